package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/picoasha/bridge/internal/config"
	"github.com/picoasha/bridge/internal/metrics"
	"github.com/picoasha/bridge/internal/protocol"
	"github.com/picoasha/bridge/internal/session"
)

// UDPServer receives framed audio from the capture side
type UDPServer struct {
	conn       *net.UDPConn
	config     *config.ServerConfig
	logger     *slog.Logger
	sessionMgr *session.Manager
	metrics    *metrics.Metrics

	// Concurrency management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Frame processing
	frameChan chan *incomingFrame

	// Basic counters
	framesReceived  uint64
	framesProcessed uint64
	parseErrors     uint64
	mu              sync.RWMutex
}

// incomingFrame represents a received UDP datagram with metadata
type incomingFrame struct {
	data       []byte
	remoteAddr *net.UDPAddr
	timestamp  time.Time
}

// NewUDPServer creates a new UDP ingest server instance
func NewUDPServer(cfg *config.ServerConfig, logger *slog.Logger, sessionMgr *session.Manager, m *metrics.Metrics) *UDPServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &UDPServer{
		config:     cfg,
		logger:     logger,
		sessionMgr: sessionMgr,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
		frameChan:  make(chan *incomingFrame, 1000),
	}
}

// Start begins listening for UDP frames
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP server started",
		slog.String("address", addr.String()),
		slog.Int("buffer_size", s.config.BufferSize),
	)

	// Start frame processing workers
	numWorkers := 4
	for i := 0; i < numWorkers; i++ {
		s.wg.Add(1)
		go s.frameProcessor(i)
	}

	// Start main receiver loop
	s.wg.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop gracefully stops the UDP server
func (s *UDPServer) Stop() error {
	s.logger.Info("Stopping UDP server...")

	s.cancel()

	// Close UDP connection to unblock the receive loop
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}
	}

	// Close frame channel to signal workers to stop
	close(s.frameChan)

	s.wg.Wait()

	s.mu.RLock()
	framesReceived := s.framesReceived
	framesProcessed := s.framesProcessed
	parseErrors := s.parseErrors
	s.mu.RUnlock()

	s.logger.Info("UDP server stopped",
		slog.Uint64("frames_received", framesReceived),
		slog.Uint64("frames_processed", framesProcessed),
		slog.Uint64("parse_errors", parseErrors),
	)

	return nil
}

// receiveLoop is the main frame receiving loop
func (s *UDPServer) receiveLoop() {
	defer s.wg.Done()

	buffer := make([]byte, s.config.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Receive loop stopping due to context cancellation")
			return
		default:
			// Continue to receive frames
		}

		// Set read deadline to check for context cancellation periodically
		if err := s.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP frame", slog.String("error", err.Error()))
				continue
			}
		}

		s.mu.Lock()
		s.framesReceived++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordFrameReceived()
		}

		// Copy out the datagram, the buffer is reused
		frameData := make([]byte, n)
		copy(frameData, buffer[:n])

		frame := &incomingFrame{
			data:       frameData,
			remoteAddr: remoteAddr,
			timestamp:  time.Now(),
		}

		select {
		case s.frameChan <- frame:
			// Frame queued successfully
		default:
			s.logger.Warn("Frame processing queue full, dropping frame",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("frame_size", n),
			)
		}
		if s.metrics != nil {
			s.metrics.SetQueueSize(len(s.frameChan))
		}
	}
}

// frameProcessor processes frames from the frame channel
func (s *UDPServer) frameProcessor(workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Frame processor started", slog.Int("worker_id", workerID))

	for frame := range s.frameChan {
		s.handleFrame(frame, workerID)
	}

	s.logger.Debug("Frame processor stopped", slog.Int("worker_id", workerID))
}

// handleFrame processes a single incoming frame
func (s *UDPServer) handleFrame(frame *incomingFrame, workerID int) {
	parsedFrame, err := protocol.ParseFrame(frame.data)
	if err != nil {
		s.mu.Lock()
		s.parseErrors++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordParseError()
		}

		s.logger.Error("Failed to parse frame",
			slog.String("remote_addr", frame.remoteAddr.String()),
			slog.Int("frame_size", len(frame.data)),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		return
	}

	s.mu.Lock()
	s.framesProcessed++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordFrameProcessed()
	}

	switch parsedFrame.Header.FrameType {
	case protocol.FrameTypeSignaling:
		s.processSignalingFrame(parsedFrame.Header, parsedFrame.Signaling, workerID)
	case protocol.FrameTypeAudio:
		s.processAudioFrame(parsedFrame.Header, parsedFrame.Audio, workerID)
	default:
		s.logger.Error("Unknown frame type",
			slog.Uint64("stream_id", uint64(parsedFrame.Header.StreamID)),
			slog.Int("frame_type", int(parsedFrame.Header.FrameType)),
			slog.Int("worker_id", workerID),
		)
	}
}

// processSignalingFrame handles stream announcements (session creation/update)
func (s *UDPServer) processSignalingFrame(header *protocol.Header, payload *protocol.SignalingPayload, workerID int) {
	s.logger.Debug("Processing signaling frame",
		slog.Uint64("stream_id", uint64(header.StreamID)),
		slog.String("device", payload.GetDeviceName()),
		slog.String("side", protocol.SideName(header.Side)),
		slog.Int("worker_id", workerID),
	)

	existed := s.sessionMgr.GetActiveSessionCount()
	sess, err := s.sessionMgr.CreateSession(header.StreamID, payload)
	if err != nil {
		s.logger.Error("Failed to create session",
			slog.Uint64("stream_id", uint64(header.StreamID)),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		return
	}

	if s.metrics != nil {
		count := s.sessionMgr.GetActiveSessionCount()
		if count > existed {
			s.metrics.RecordSessionCreated()
		}
		s.metrics.SetActiveSessions(count)
	}

	s.logger.Info("Signaling frame processed",
		slog.Uint64("stream_id", uint64(header.StreamID)),
		slog.String("device", sess.DeviceName),
		slog.Int("worker_id", workerID),
	)
}

// processAudioFrame routes audio into the stream's side pipeline
func (s *UDPServer) processAudioFrame(header *protocol.Header, payload *protocol.AudioPayload, workerID int) {
	sess, exists := s.sessionMgr.GetSession(header.StreamID)
	if !exists {
		s.logger.Warn("Received audio frame for unknown stream",
			slog.Uint64("stream_id", uint64(header.StreamID)),
			slog.Uint64("sequence", uint64(payload.Sequence)),
			slog.String("side", protocol.SideName(header.Side)),
			slog.Int("audio_size", len(payload.PCMData)),
			slog.Int("worker_id", workerID),
		)
		return
	}

	if err := sess.AddAudio(header.Side, payload.Sequence, payload.PCMData); err != nil {
		s.logger.Error("Failed to add audio to session",
			slog.Uint64("stream_id", uint64(header.StreamID)),
			slog.Uint64("sequence", uint64(payload.Sequence)),
			slog.String("side", protocol.SideName(header.Side)),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		return
	}

	s.logger.Debug("Audio frame processed",
		slog.Uint64("stream_id", uint64(header.StreamID)),
		slog.Uint64("sequence", uint64(payload.Sequence)),
		slog.String("side", protocol.SideName(header.Side)),
		slog.Int("audio_size", len(payload.PCMData)),
		slog.Int("worker_id", workerID),
	)
}

// GetStatistics returns current server statistics
func (s *UDPServer) GetStatistics() ServerStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerStatistics{
		FramesReceived:  s.framesReceived,
		FramesProcessed: s.framesProcessed,
		ParseErrors:     s.parseErrors,
		ActiveSessions:  uint64(s.sessionMgr.GetActiveSessionCount()),
		QueueSize:       uint64(len(s.frameChan)),
		QueueCapacity:   uint64(cap(s.frameChan)),
	}
}

// ServerStatistics represents server performance metrics
type ServerStatistics struct {
	FramesReceived  uint64 `json:"frames_received"`
	FramesProcessed uint64 `json:"frames_processed"`
	ParseErrors     uint64 `json:"parse_errors"`
	ActiveSessions  uint64 `json:"active_sessions"`
	QueueSize       uint64 `json:"queue_size"`
	QueueCapacity   uint64 `json:"queue_capacity"`
}
