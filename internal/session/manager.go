package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/picoasha/bridge/internal/audio"
	"github.com/picoasha/bridge/internal/metrics"
	"github.com/picoasha/bridge/internal/protocol"
)

// Sender receives encoded audio bytes for delivery. Satisfied by the
// hearing-aid sink client.
type Sender interface {
	Send(data []byte) error
}

// Session is one bridged audio stream: a left and a right encode pipeline
// fed by audio frames and drained into the sink by the pump loop.
type Session struct {
	ID           uint32
	DeviceName   string
	StartTime    time.Time
	LastActivity time.Time

	// Encode pipelines per ear
	Left  *audio.Stream
	Right *audio.Stream

	// Sequence tracking per side, indexed by side code
	lastSeq map[uint8]uint32

	// Statistics
	framesReceived uint64
	framesDropped  uint64
	sinkSends      uint64
	sinkFailures   uint64

	pumpCtx    context.Context
	pumpCancel context.CancelFunc
	pumpWG     sync.WaitGroup

	manager *Manager

	mu sync.RWMutex
}

// Manager owns all active sessions and their pump loops.
type Manager struct {
	sessions map[uint32]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	sink     Sender
	config   ManagerConfig
	metrics  *metrics.Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// ManagerConfig contains configuration for the session manager.
type ManagerConfig struct {
	Timeout      time.Duration      // inactivity timeout before cleanup
	PumpInterval time.Duration      // encode loop tick
	StreamConfig audio.StreamConfig // defaults for new streams
	Metrics      *metrics.Metrics   // optional
}

// NewManager creates a session manager and starts its cleanup routine.
func NewManager(logger *slog.Logger, sink Sender, config ManagerConfig) (*Manager, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.PumpInterval <= 0 {
		config.PumpInterval = 20 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		sessions: make(map[uint32]*Session),
		logger:   logger,
		sink:     sink,
		config:   config,
		metrics:  config.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession creates a session from a signaling announcement. Codec
// parameters in the announcement override the manager defaults. Repeated
// signaling for a live stream updates metadata only.
func (m *Manager) CreateSession(streamID uint32, signaling *protocol.SignalingPayload) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.sessions[streamID]; exists {
		m.logger.Warn("session already exists, updating metadata",
			slog.Uint64("stream_id", uint64(streamID)),
			slog.String("device", signaling.GetDeviceName()),
		)

		existing.mu.Lock()
		existing.DeviceName = signaling.GetDeviceName()
		existing.LastActivity = time.Now()
		existing.mu.Unlock()

		return existing, nil
	}

	streamCfg := m.config.StreamConfig
	if signaling.SampleRate > 0 {
		streamCfg.SampleRate = int(signaling.SampleRate)
	}
	if signaling.BitRate > 0 {
		streamCfg.BitRate = int(signaling.BitRate)
	}
	streamCfg.Options = int(signaling.Options)

	left, err := audio.NewStream(streamCfg)
	if err != nil {
		return nil, fmt.Errorf("left stream: %w", err)
	}
	right, err := audio.NewStream(streamCfg)
	if err != nil {
		return nil, fmt.Errorf("right stream: %w", err)
	}
	left.Start()
	right.Start()

	pumpCtx, pumpCancel := context.WithCancel(m.ctx)

	now := time.Now()
	session := &Session{
		ID:           streamID,
		DeviceName:   signaling.GetDeviceName(),
		StartTime:    now,
		LastActivity: now,
		Left:         left,
		Right:        right,
		lastSeq:      make(map[uint8]uint32),
		pumpCtx:      pumpCtx,
		pumpCancel:   pumpCancel,
		manager:      m,
	}

	m.sessions[streamID] = session
	session.startPump(m.config.PumpInterval)

	m.logger.Info("created session",
		slog.Uint64("stream_id", uint64(streamID)),
		slog.String("device", session.DeviceName),
		slog.Int("sample_rate", streamCfg.SampleRate),
		slog.Int("bit_rate", streamCfg.BitRate),
	)

	return session, nil
}

// GetSession retrieves an existing session.
func (m *Manager) GetSession(streamID uint32) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[streamID]
	return session, exists
}

// UpdateActivity refreshes the inactivity clock for a stream.
func (m *Manager) UpdateActivity(streamID uint32) {
	m.mu.RLock()
	session, exists := m.sessions[streamID]
	m.mu.RUnlock()

	if !exists {
		return
	}

	session.mu.Lock()
	session.LastActivity = time.Now()
	session.mu.Unlock()
}

// GetActiveSessionCount returns the number of live sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all live sessions.
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// RemoveSession stops a session's pump loop and drops it.
func (m *Manager) RemoveSession(streamID uint32) bool {
	m.mu.Lock()
	session, exists := m.sessions[streamID]
	if exists {
		delete(m.sessions, streamID)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}

	session.stopPump()

	info := session.GetSessionInfo()
	if m.metrics != nil {
		m.metrics.RecordSessionDestroyed(info.Duration.Seconds())
		m.metrics.SetActiveSessions(m.GetActiveSessionCount())
	}
	m.logger.Info("session removed",
		slog.Uint64("stream_id", uint64(streamID)),
		slog.String("device", info.DeviceName),
		slog.Duration("duration", info.Duration),
		slog.Uint64("frames_received", info.FramesReceived),
		slog.Uint64("sink_sends", info.SinkSends),
	)

	return true
}

// Stop gracefully stops the manager and all sessions.
func (m *Manager) Stop() {
	m.logger.Info("stopping session manager")

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[uint32]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.stopPump()
	}

	m.cancel()
	<-m.cleanup

	m.logger.Info("session manager stopped",
		slog.Int("final_sessions", len(sessions)))
}

func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expired := make([]uint32, 0)

	m.mu.RLock()
	for streamID, session := range m.sessions {
		session.mu.RLock()
		lastActivity := session.LastActivity
		session.mu.RUnlock()

		if now.Sub(lastActivity) > m.config.Timeout {
			expired = append(expired, streamID)
		}
	}
	m.mu.RUnlock()

	if len(expired) > 0 {
		m.logger.Info("cleaning up expired sessions",
			slog.Int("expired_count", len(expired)))

		for _, streamID := range expired {
			m.RemoveSession(streamID)
		}
	}
}

// AddAudio queues an audio frame's PCM into the side's encode pipeline.
// Sequence gaps are counted as dropped frames.
func (s *Session) AddAudio(side uint8, sequence uint32, pcm []byte) error {
	stream, err := s.sideStream(side)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.LastActivity = time.Now()
	s.framesReceived++
	if last, seen := s.lastSeq[side]; seen && sequence > last+1 {
		s.framesDropped += uint64(sequence - last - 1)
	}
	s.lastSeq[side] = sequence
	s.mu.Unlock()

	n, err := stream.Write(pcm)
	if err == nil && n < len(pcm) && s.manager.metrics != nil {
		s.manager.metrics.RecordBufferOverrun()
	}
	return err
}

// SideStream returns the encode pipeline for a side.
func (s *Session) SideStream(side uint8) (*audio.Stream, error) {
	return s.sideStream(side)
}

func (s *Session) sideStream(side uint8) (*audio.Stream, error) {
	switch side {
	case protocol.SideLeft:
		return s.Left, nil
	case protocol.SideRight:
		return s.Right, nil
	default:
		return nil, fmt.Errorf("invalid side: 0x%02x", side)
	}
}

func (s *Session) startPump(interval time.Duration) {
	s.pumpWG.Add(1)
	go func() {
		defer s.pumpWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.pumpCtx.Done():
				return
			case <-ticker.C:
				s.pump()
			}
		}
	}()
}

func (s *Session) stopPump() {
	s.pumpCancel()
	s.pumpWG.Wait()

	// Flush whatever is still buffered.
	s.pump()
	s.Left.Stop()
	s.Right.Stop()
}

// pump drains both encode pipelines into the sink, left ear first.
func (s *Session) pump() {
	m := s.manager.metrics

	for _, stream := range []*audio.Stream{s.Left, s.Right} {
		start := time.Now()
		frames := stream.Process()
		if frames > 0 && m != nil {
			m.RecordFramesEncoded(frames, frames*s.manager.config.StreamConfig.FrameSamples,
				time.Since(start).Seconds())
		}

		for stream.EncodedAvailable() > 0 {
			buf := make([]byte, stream.EncodedAvailable())
			n := stream.ReadEncoded(buf)
			if n == 0 {
				break
			}

			err := s.manager.sink.Send(buf[:n])
			s.mu.Lock()
			if err != nil {
				s.sinkFailures++
			} else {
				s.sinkSends++
			}
			s.mu.Unlock()

			if err != nil {
				if m != nil {
					m.RecordSinkFailure()
				}
				s.manager.logger.Warn("sink delivery failed",
					slog.Uint64("stream_id", uint64(s.ID)),
					slog.String("error", err.Error()))
				return
			}
			if m != nil {
				m.RecordSinkSend(n)
			}
		}
	}
}

// SessionInfo represents session state for monitoring and APIs.
type SessionInfo struct {
	StreamID     uint32        `json:"stream_id"`
	DeviceName   string        `json:"device_name"`
	StartTime    time.Time     `json:"start_time"`
	LastActivity time.Time     `json:"last_activity"`
	Duration     time.Duration `json:"duration"`

	FramesReceived uint64 `json:"frames_received"`
	FramesDropped  uint64 `json:"frames_dropped"`
	SinkSends      uint64 `json:"sink_sends"`
	SinkFailures   uint64 `json:"sink_failures"`

	Left  audio.StreamStats `json:"left"`
	Right audio.StreamStats `json:"right"`
}

// GetSessionInfo returns a snapshot of the session.
func (s *Session) GetSessionInfo() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		StreamID:       s.ID,
		DeviceName:     s.DeviceName,
		StartTime:      s.StartTime,
		LastActivity:   s.LastActivity,
		Duration:       time.Since(s.StartTime),
		FramesReceived: s.framesReceived,
		FramesDropped:  s.framesDropped,
		SinkSends:      s.sinkSends,
		SinkFailures:   s.sinkFailures,
		Left:           s.Left.GetStats(),
		Right:          s.Right.GetStats(),
	}
}
