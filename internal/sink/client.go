package sink

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"
)

// State describes the hearing-aid connection lifecycle.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateStreaming
	StateDisconnecting
	StateError
)

// String returns the state name for logs and the HTTP API.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateDisconnecting:
		return "disconnecting"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Config contains hearing-aid client configuration.
type Config struct {
	Endpoint     string        // TCP address of the hearing aid
	DialTimeout  time.Duration // per-attempt connect timeout
	WriteTimeout time.Duration // per-send deadline
	MaxRetries   int           // reconnect attempts before giving up
}

// Client delivers encoded audio bytes to a hearing aid over a TCP byte
// stream. The wire carries raw codeword bytes with no extra framing; the
// receiver regenerates timing from its own clock.
type Client struct {
	config Config
	logger *slog.Logger

	conn  net.Conn
	state State

	// Statistics
	framesSent   uint64
	bytesSent    uint64
	sendFailures uint64
	reconnects   uint64

	mu sync.RWMutex
}

// ClientStats represents client statistics for monitoring.
type ClientStats struct {
	State        string `json:"state"`
	Endpoint     string `json:"endpoint"`
	FramesSent   uint64 `json:"frames_sent"`
	BytesSent    uint64 `json:"bytes_sent"`
	SendFailures uint64 `json:"send_failures"`
	Reconnects   uint64 `json:"reconnects"`
}

// NewClient creates a hearing-aid sink client.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 2 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: config,
		logger: logger,
		state:  StateDisconnected,
	}, nil
}

// Connect dials the hearing aid, retrying with exponential backoff up to
// MaxRetries additional attempts.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.reconnects++
			c.mu.Unlock()

			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.setState(StateDisconnected)
				return ctx.Err()
			}
		}

		dialer := net.Dialer{Timeout: c.config.DialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", c.config.Endpoint)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.state = StateReady
			c.mu.Unlock()

			c.logger.Info("connected to hearing aid",
				slog.String("endpoint", c.config.Endpoint),
				slog.Int("attempt", attempt+1))
			return nil
		}

		lastErr = err
		c.logger.Warn("hearing aid connection attempt failed",
			slog.String("endpoint", c.config.Endpoint),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}

	c.setState(StateError)
	return fmt.Errorf("connect to %s failed after %d attempts: %w",
		c.config.Endpoint, c.config.MaxRetries+1, lastErr)
}

// Send writes encoded audio bytes to the hearing aid. The first successful
// send moves the client to the streaming state. A write failure tears down
// the connection and attempts one transparent reconnect before reporting.
func (c *Client) Send(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateReady && state != StateStreaming {
		return fmt.Errorf("cannot send in state %s", state)
	}

	if err := c.write(conn, data); err != nil {
		c.mu.Lock()
		c.sendFailures++
		c.mu.Unlock()
		c.logger.Warn("send to hearing aid failed, reconnecting",
			slog.String("error", err.Error()))

		if rerr := c.Connect(context.Background()); rerr != nil {
			return fmt.Errorf("send failed: %w", err)
		}

		c.mu.RLock()
		conn = c.conn
		c.mu.RUnlock()
		if err := c.write(conn, data); err != nil {
			c.mu.Lock()
			c.sendFailures++
			c.state = StateError
			c.mu.Unlock()
			return fmt.Errorf("send failed after reconnect: %w", err)
		}
	}

	c.mu.Lock()
	c.framesSent++
	c.bytesSent += uint64(len(data))
	c.state = StateStreaming
	c.mu.Unlock()

	return nil
}

func (c *Client) write(conn net.Conn, data []byte) error {
	if conn == nil {
		return fmt.Errorf("no connection")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ClientStats{
		State:        c.state.String(),
		Endpoint:     c.config.Endpoint,
		FramesSent:   c.framesSent,
		BytesSent:    c.bytesSent,
		SendFailures: c.sendFailures,
		Reconnects:   c.reconnects,
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisconnecting
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	return err
}
