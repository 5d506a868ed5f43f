package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/picoasha/bridge/internal/audio"
	"github.com/picoasha/bridge/internal/config"
	"github.com/picoasha/bridge/internal/led"
	"github.com/picoasha/bridge/internal/logring"
	"github.com/picoasha/bridge/internal/metrics"
	"github.com/picoasha/bridge/internal/server"
	"github.com/picoasha/bridge/internal/session"
	"github.com/picoasha/bridge/internal/sink"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "asha-bridge"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with ring retention for the /logs endpoint
	logRing := logring.NewRing(cfg.Logging.RingEntries)
	logger := initLogger(cfg.Logging, logRing)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("udp_port", cfg.Server.UDPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("max_concurrent_streams", cfg.Server.MaxConcurrentStreams),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_samples", cfg.Audio.FrameSamples),
		slog.Int("codec_bit_rate", cfg.Codec.BitRate),
		slog.String("sink_endpoint", cfg.Sink.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize hearing-aid sink client
	sinkClient, err := sink.NewClient(sink.Config{
		Endpoint:     cfg.Sink.Endpoint,
		DialTimeout:  cfg.Sink.GetDialTimeoutDuration(),
		WriteTimeout: cfg.Sink.GetWriteTimeoutDuration(),
		MaxRetries:   cfg.Sink.MaxRetries,
	}, logger)
	if err != nil {
		logger.Error("Failed to create sink client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize session manager
	sessionMgr, err := session.NewManager(logger, sinkClient, session.ManagerConfig{
		Timeout: cfg.Audio.GetStreamTimeoutDuration(),
		Metrics: appMetrics,
		StreamConfig: audio.StreamConfig{
			SampleRate:   cfg.Audio.SampleRate,
			BitRate:      cfg.Codec.BitRate,
			Options:      cfg.Codec.Options,
			FrameSamples: cfg.Audio.FrameSamples,
		},
	})
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("stream_timeout", cfg.Audio.GetStreamTimeoutDuration()),
	)

	// Initialize UDP ingest server
	udpServer := server.NewUDPServer(&cfg.Server, logger, sessionMgr, appMetrics)
	logger.Info("UDP server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, sessionMgr, udpServer, sinkClient, logRing, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Connect to the hearing aid. The bridge keeps running if it fails; the
	// sink reconnects on the next delivery attempt and the LED shows SOS.
	if err := sinkClient.Connect(ctx); err != nil {
		logger.Warn("Initial hearing aid connection failed", slog.String("error", err.Error()))
	}

	// Status LED driven by sink and session state
	if cfg.LED.Enabled {
		ledController := led.NewController()
		ledController.SetBrightness(uint8(cfg.LED.Brightness))
		go runStatusLED(ctx, ledController, sinkClient, sessionMgr, logger)
		logger.Info("Status LED controller started", slog.Int("brightness", cfg.LED.Brightness))
	}

	if err := udpServer.Start(); err != nil {
		logger.Error("Failed to start UDP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("udp_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.UDPPort)),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop UDP server (stop accepting new frames)
	if err := udpServer.Stop(); err != nil {
		logger.Error("Error stopping UDP server", slog.String("error", err.Error()))
	}

	// Stop session manager (flush pipelines and stop background routines)
	sessionMgr.Stop()

	// Disconnect from the hearing aid last so final flushes can deliver
	if err := sinkClient.Close(); err != nil {
		logger.Warn("Error closing sink client", slog.String("error", err.Error()))
	}

	stats := udpServer.GetStatistics()
	logger.Info("Final server statistics",
		slog.Uint64("frames_received", stats.FramesReceived),
		slog.Uint64("frames_processed", stats.FramesProcessed),
		slog.Uint64("parse_errors", stats.ParseErrors),
		slog.Uint64("active_sessions", stats.ActiveSessions),
	)

	logger.Info("Service stopped")
}

// runStatusLED maps bridge state to indicator patterns and steps the
// animation on a fixed tick
func runStatusLED(ctx context.Context, c *led.Controller, sinkClient *sink.Client,
	sessionMgr *session.Manager, logger *slog.Logger) {

	const tick = 50 * time.Millisecond

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.SetPattern(led.PatternOff)
			return
		case <-ticker.C:
			var pattern led.Pattern
			switch sinkClient.State() {
			case sink.StateStreaming:
				pattern = led.PatternOn
			case sink.StateReady:
				if sessionMgr.GetActiveSessionCount() > 0 {
					pattern = led.PatternBlinkFast
				} else {
					pattern = led.PatternBlinkSlow
				}
			case sink.StateConnecting:
				pattern = led.PatternPulse
			case sink.StateError:
				pattern = led.PatternSOS
			default:
				pattern = led.PatternDoubleBlink
			}

			if pattern != c.GetPattern() {
				logger.Debug("Status LED pattern changed",
					slog.String("pattern", pattern.String()),
					slog.String("sink_state", sinkClient.State().String()),
				)
			}
			c.SetPattern(pattern)
			c.Process(uint32(tick / time.Millisecond))
		}
	}
}

// initLogger creates the structured logger with ring retention
func initLogger(cfg config.LoggingConfig, ring *logring.Ring) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var inner slog.Handler
	switch cfg.Format {
	case "json":
		inner = slog.NewJSONHandler(output, opts)
	default:
		inner = slog.NewTextHandler(output, opts)
	}

	return slog.New(logring.NewHandler(inner, ring))
}
