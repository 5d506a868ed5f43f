package audio

import (
	"fmt"
	"sync"

	"github.com/picoasha/bridge/internal/codec"
)

// StreamConfig contains the parameters for one audio stream.
type StreamConfig struct {
	SampleRate   int // Hz, single interleaved mono stream
	BitRate      int // codec bit rate: 48000, 56000 or 64000
	Options      int // codec options word (bit 0: packed format)
	FrameSamples int // samples drained per Process step

	PCMBufferBytes     int // capacity of the inbound PCM ring
	EncodedBufferBytes int // capacity of the outbound codeword ring
}

// Stream owns the per-stream codec state and the rings on either side of
// it: PCM bytes in, codeword bytes out. The encoder state persists for the
// stream's lifetime; Reset builds a fresh one, which desynchronizes any
// decoder that tracked the old trajectory.
type Stream struct {
	config  StreamConfig
	encoder *codec.Encoder

	pcmRing     *Ring
	encodedRing *Ring

	active bool
	volume uint8 // 0-100

	// Statistics
	framesProcessed uint64
	samplesEncoded  uint64
	bytesEncoded    uint64
	underruns       uint64
	overruns        uint64

	mu sync.Mutex
}

// StreamStats represents stream statistics for monitoring.
type StreamStats struct {
	Active          bool   `json:"active"`
	Volume          uint8  `json:"volume"`
	FramesProcessed uint64 `json:"frames_processed"`
	SamplesEncoded  uint64 `json:"samples_encoded"`
	BytesEncoded    uint64 `json:"bytes_encoded"`
	Underruns       uint64 `json:"underruns"`
	Overruns        uint64 `json:"overruns"`
	PCMBuffered     int    `json:"pcm_buffered_bytes"`
	EncodedBuffered int    `json:"encoded_buffered_bytes"`
}

// NewStream creates an audio stream with its encoder and rings.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("frame samples must be positive, got %d", cfg.FrameSamples)
	}

	pcmBytes := cfg.PCMBufferBytes
	if pcmBytes <= 0 {
		pcmBytes = cfg.SampleRate * 2 // one second of 16-bit PCM
	}
	encodedBytes := cfg.EncodedBufferBytes
	if encodedBytes <= 0 {
		encodedBytes = cfg.SampleRate
	}

	pcmRing, err := NewRing(pcmBytes)
	if err != nil {
		return nil, fmt.Errorf("pcm ring: %w", err)
	}
	encodedRing, err := NewRing(encodedBytes)
	if err != nil {
		return nil, fmt.Errorf("encoded ring: %w", err)
	}

	return &Stream{
		config:      cfg,
		encoder:     codec.NewEncoder(cfg.BitRate, cfg.Options),
		pcmRing:     pcmRing,
		encodedRing: encodedRing,
		volume:      100,
	}, nil
}

// Start marks the stream active.
func (s *Stream) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
}

// Stop marks the stream inactive. Buffered data is retained.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Active reports whether the stream is accepting and processing audio.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Write queues little-endian 16-bit PCM bytes for encoding. The length must
// be sample aligned. A full ring counts an overrun and the excess is
// dropped.
func (s *Stream) Write(data []byte) (int, error) {
	if len(data)%2 != 0 {
		return 0, fmt.Errorf("pcm data length must be even, got %d bytes", len(data))
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return 0, fmt.Errorf("stream is not active")
	}
	s.mu.Unlock()

	n := s.pcmRing.Write(data)
	if n < len(data) {
		s.mu.Lock()
		s.overruns++
		s.mu.Unlock()
	}

	return n, nil
}

// Process drains complete frames from the PCM ring through the encoder into
// the encoded ring and returns the number of frames encoded. Volume is
// applied in the linear domain before encoding.
func (s *Stream) Process() int {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return 0
	}
	frameSamples := s.config.FrameSamples
	volume := int32(s.volume)
	s.mu.Unlock()

	frameBytes := frameSamples * 2
	raw := make([]byte, frameBytes)
	pcm := make([]int16, frameSamples)
	encoded := make([]byte, frameSamples)

	frames := 0
	for s.pcmRing.Len() >= frameBytes {
		n := s.pcmRing.Read(raw)
		if n < frameBytes {
			break
		}

		for i := 0; i < frameSamples; i++ {
			sample := int16(raw[i*2]) | int16(raw[i*2+1])<<8
			if volume < 100 {
				sample = int16(int32(sample) * volume / 100)
			}
			pcm[i] = sample
		}

		s.mu.Lock()
		s.encoder.Encode(encoded, pcm)
		s.framesProcessed++
		s.samplesEncoded += uint64(frameSamples)
		s.mu.Unlock()

		written := s.encodedRing.Write(encoded)
		s.mu.Lock()
		s.bytesEncoded += uint64(written)
		if written < len(encoded) {
			s.overruns++
		}
		s.mu.Unlock()

		frames++
	}

	return frames
}

// ReadEncoded drains codeword bytes into dst and returns the number copied.
// An empty ring on an active stream counts an underrun.
func (s *Stream) ReadEncoded(dst []byte) int {
	n := s.encodedRing.Read(dst)
	if n == 0 && len(dst) > 0 {
		s.mu.Lock()
		if s.active {
			s.underruns++
		}
		s.mu.Unlock()
	}
	return n
}

// EncodedAvailable returns the number of buffered codeword bytes.
func (s *Stream) EncodedAvailable() int {
	return s.encodedRing.Len()
}

// SetVolume sets the stream volume (0-100). Values above 100 clamp.
func (s *Stream) SetVolume(volume uint8) {
	if volume > 100 {
		volume = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

// Volume returns the current volume (0-100).
func (s *Stream) Volume() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Reset empties both rings and replaces the encoder with a fresh state.
// Only safe between logical streams: the receiving decoder must be reset in
// lockstep or it will decode a corrupted trajectory.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pcmRing.Reset()
	s.encodedRing.Reset()
	s.encoder = codec.NewEncoder(s.config.BitRate, s.config.Options)
}

// GetStats returns current stream statistics.
func (s *Stream) GetStats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StreamStats{
		Active:          s.active,
		Volume:          s.volume,
		FramesProcessed: s.framesProcessed,
		SamplesEncoded:  s.samplesEncoded,
		BytesEncoded:    s.bytesEncoded,
		Underruns:       s.underruns,
		Overruns:        s.overruns,
		PCMBuffered:     s.pcmRing.Len(),
		EncodedBuffered: s.encodedRing.Len(),
	}
}
