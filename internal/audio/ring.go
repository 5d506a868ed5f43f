package audio

import (
	"fmt"
	"sync"
)

// Ring is a fixed-capacity byte ring buffer used between the capture side,
// the encoder, and the transmit side. Writes that exceed the free space are
// truncated and flagged as an overflow; reads from an empty ring flag an
// underflow. Both conditions are sticky until ClearFlags or Reset.
type Ring struct {
	buf       []byte
	readIdx   int
	writeIdx  int
	size      int
	overflow  bool
	underflow bool

	overflows  uint64
	underflows uint64

	mu sync.Mutex
}

// RingStats represents ring buffer statistics for monitoring.
type RingStats struct {
	Capacity   int    `json:"capacity"`
	Size       int    `json:"size"`
	Overflows  uint64 `json:"overflows"`
	Underflows uint64 `json:"underflows"`
}

// NewRing creates a ring buffer with the given capacity in bytes.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Write copies as much of data as fits and returns the number of bytes
// stored. A short write marks the overflow flag.
func (r *Ring) Write(data []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	free := len(r.buf) - r.size
	n := len(data)
	if n > free {
		n = free
		r.overflow = true
		r.overflows++
	}

	for i := 0; i < n; i++ {
		r.buf[r.writeIdx] = data[i]
		r.writeIdx = (r.writeIdx + 1) % len(r.buf)
	}
	r.size += n

	return n
}

// Read copies up to len(dst) bytes out of the ring and returns the number
// copied. Reading from an empty ring marks the underflow flag.
func (r *Ring) Read(dst []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.size {
		n = r.size
	}
	if n == 0 && len(dst) > 0 {
		r.underflow = true
		r.underflows++
		return 0
	}

	for i := 0; i < n; i++ {
		dst[i] = r.buf[r.readIdx]
		r.readIdx = (r.readIdx + 1) % len(r.buf)
	}
	r.size -= n

	return n
}

// Len returns the number of buffered bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Free returns the remaining capacity in bytes.
func (r *Ring) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.size
}

// Overflowed reports whether a write has been truncated since the last
// flag clear.
func (r *Ring) Overflowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflow
}

// Underflowed reports whether an empty read has occurred since the last
// flag clear.
func (r *Ring) Underflowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.underflow
}

// ClearFlags resets the sticky overflow and underflow flags.
func (r *Ring) ClearFlags() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overflow = false
	r.underflow = false
}

// Reset empties the ring and clears the flags. Counters are preserved for
// monitoring.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readIdx = 0
	r.writeIdx = 0
	r.size = 0
	r.overflow = false
	r.underflow = false
}

// GetStats returns current ring statistics.
func (r *Ring) GetStats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RingStats{
		Capacity:   len(r.buf),
		Size:       r.size,
		Overflows:  r.overflows,
		Underflows: r.underflows,
	}
}
