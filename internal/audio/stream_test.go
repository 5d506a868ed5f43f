package audio

import (
	"testing"

	"github.com/picoasha/bridge/internal/codec"
)

func testStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate:   16000,
		BitRate:      codec.Rate64000,
		FrameSamples: 160,
	}
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func TestNewStreamValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StreamConfig)
	}{
		{"zero sample rate", func(c *StreamConfig) { c.SampleRate = 0 }},
		{"negative sample rate", func(c *StreamConfig) { c.SampleRate = -1 }},
		{"zero frame samples", func(c *StreamConfig) { c.FrameSamples = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testStreamConfig()
			tt.mutate(&cfg)
			if _, err := NewStream(cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestStreamLifecycle(t *testing.T) {
	s, err := NewStream(testStreamConfig())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}

	if s.Active() {
		t.Error("fresh stream must be inactive")
	}
	if _, err := s.Write(make([]byte, 320)); err == nil {
		t.Error("Write on inactive stream must fail")
	}

	s.Start()
	if !s.Active() {
		t.Error("stream not active after Start")
	}

	s.Stop()
	if s.Active() {
		t.Error("stream still active after Stop")
	}
}

func TestStreamWriteRequiresSampleAlignment(t *testing.T) {
	s, _ := NewStream(testStreamConfig())
	s.Start()

	if _, err := s.Write(make([]byte, 3)); err == nil {
		t.Error("expected error for odd-length PCM data")
	}
}

func TestStreamProcessEncodesFrames(t *testing.T) {
	s, _ := NewStream(testStreamConfig())
	s.Start()

	// 2.5 frames of PCM: exactly two frames must drain.
	samples := make([]int16, 400)
	for i := range samples {
		samples[i] = int16(i * 83)
	}
	if _, err := s.Write(pcmBytes(samples)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if frames := s.Process(); frames != 2 {
		t.Fatalf("Process encoded %d frames, want 2", frames)
	}
	if got := s.EncodedAvailable(); got != 320 {
		t.Fatalf("encoded bytes available = %d, want 320", got)
	}

	stats := s.GetStats()
	if stats.FramesProcessed != 2 || stats.SamplesEncoded != 320 || stats.BytesEncoded != 320 {
		t.Errorf("stats = %+v, want 2 frames / 320 samples / 320 bytes", stats)
	}
	if stats.PCMBuffered != 160 {
		t.Errorf("pcm residue = %d bytes, want 160", stats.PCMBuffered)
	}
}

func TestStreamMatchesRawEncoder(t *testing.T) {
	cfg := testStreamConfig()
	s, _ := NewStream(cfg)
	s.Start()

	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = int16(i*211 - 16000)
	}
	s.Write(pcmBytes(samples))
	s.Process()

	got := make([]byte, 320)
	if n := s.ReadEncoded(got); n != 320 {
		t.Fatalf("ReadEncoded returned %d, want 320", n)
	}

	// A standalone encoder over the same samples must produce the same
	// bytes: the stream adds buffering, not transform behavior.
	enc := codec.NewEncoder(cfg.BitRate, cfg.Options)
	want := make([]byte, 320)
	enc.Encode(want, samples)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: stream %#02x, raw encoder %#02x", i, got[i], want[i])
		}
	}
}

func TestStreamVolume(t *testing.T) {
	cfg := testStreamConfig()
	s, _ := NewStream(cfg)
	s.Start()

	if s.Volume() != 100 {
		t.Fatalf("default volume = %d, want 100", s.Volume())
	}
	s.SetVolume(200)
	if s.Volume() != 100 {
		t.Errorf("volume above 100 must clamp, got %d", s.Volume())
	}

	// Half volume halves the samples before encoding.
	s.SetVolume(50)
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = 20000
	}
	s.Write(pcmBytes(samples))
	s.Process()
	got := make([]byte, 160)
	s.ReadEncoded(got)

	enc := codec.NewEncoder(cfg.BitRate, cfg.Options)
	halved := make([]int16, 160)
	for i := range halved {
		halved[i] = 10000
	}
	want := make([]byte, 160)
	enc.Encode(want, halved)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: volume-scaled stream %#02x, reference %#02x", i, got[i], want[i])
		}
	}
}

func TestStreamUnderrunAccounting(t *testing.T) {
	s, _ := NewStream(testStreamConfig())
	s.Start()

	out := make([]byte, 16)
	if n := s.ReadEncoded(out); n != 0 {
		t.Fatalf("read from empty stream returned %d", n)
	}
	if stats := s.GetStats(); stats.Underruns != 1 {
		t.Errorf("underruns = %d, want 1", stats.Underruns)
	}
}

func TestStreamOverrunAccounting(t *testing.T) {
	cfg := testStreamConfig()
	cfg.PCMBufferBytes = 64
	s, _ := NewStream(cfg)
	s.Start()

	if _, err := s.Write(make([]byte, 128)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if stats := s.GetStats(); stats.Overruns != 1 {
		t.Errorf("overruns = %d, want 1", stats.Overruns)
	}
}

func TestStreamResetRestartsTrajectory(t *testing.T) {
	cfg := testStreamConfig()
	s, _ := NewStream(cfg)
	s.Start()

	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = int16(i * 997)
	}

	s.Write(pcmBytes(samples))
	s.Process()
	first := make([]byte, 160)
	s.ReadEncoded(first)

	s.Reset()
	s.Write(pcmBytes(samples))
	s.Process()
	second := make([]byte, 160)
	s.ReadEncoded(second)

	// A fresh state must reproduce the first-call bytes exactly.
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("byte %d differs after Reset: %#02x vs %#02x", i, first[i], second[i])
		}
	}
}
