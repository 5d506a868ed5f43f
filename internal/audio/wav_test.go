package audio

import (
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("encoded size = %d, want %d", len(data), 44+len(samples)*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = int16(i*191 - 30000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, decoded[i], samples[i])
		}
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	if _, _, err := DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data")
	}

	valid, _ := EncodeWAV([]int16{1, 2, 3, 4}, 16000)

	bad := make([]byte, len(valid))
	copy(bad, valid)
	copy(bad[0:4], "JUNK")
	if _, _, err := DecodeWAV(bad); err == nil {
		t.Error("expected error for bad RIFF marker")
	}

	copy(bad, valid)
	bad[20] = 3 // IEEE float format
	if _, _, err := DecodeWAV(bad); err == nil {
		t.Error("expected error for non-PCM format")
	}

	copy(bad, valid)
	bad[22] = 2 // stereo
	if _, _, err := DecodeWAV(bad); err == nil {
		t.Error("expected error for stereo input")
	}
}
