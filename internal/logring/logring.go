package logring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity matches the firmware heritage of a small fixed ring.
const DefaultCapacity = 32

// Entry is one retained log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Ring retains the most recent log entries. Shared between the handler and
// any wrapped copies it produces.
type Ring struct {
	entries []Entry
	next    int
	count   int
	total   uint64
	mu      sync.Mutex
}

// NewRing creates a ring with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]Entry, capacity)}
}

func (r *Ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
	r.total++
}

// Count returns the number of retained entries.
func (r *Ring) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Total returns the number of entries ever recorded, including overwritten
// ones.
func (r *Ring) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Snapshot returns the retained entries, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.entries)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

// Clear drops all retained entries. The total counter is preserved.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.count = 0
}

// Handler is a slog.Handler that retains formatted records in a ring while
// forwarding everything to the wrapped handler.
type Handler struct {
	inner slog.Handler
	ring  *Ring
}

// NewHandler wraps inner with ring retention.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	if ring == nil {
		ring = NewRing(DefaultCapacity)
	}
	return &Handler{inner: inner, ring: ring}
}

// Ring returns the shared ring.
func (h *Handler) Ring() *Ring {
	return h.ring
}

// Enabled reports whether the wrapped handler handles the level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle records the entry and forwards it.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		fmt.Fprintf(&sb, "%v", a.Value.Any())
		return true
	})

	h.ring.add(Entry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: sb.String(),
	})

	return h.inner.Handle(ctx, record)
}

// WithAttrs returns a handler with the attrs applied to the wrapped
// handler. The ring is shared.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs), ring: h.ring}
}

// WithGroup returns a handler with the group applied to the wrapped
// handler. The ring is shared.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), ring: h.ring}
}
