package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			UDPPort:              4444,
			BindAddress:          "0.0.0.0",
			BufferSize:           65536,
			MaxConcurrentStreams: 16,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			BitDepth:      16,
			FrameSamples:  160,
			StreamTimeout: 60,
		},
		Codec: CodecConfig{
			BitRate: 64000,
		},
		Sink: SinkConfig{
			Endpoint:     "127.0.0.1:7700",
			DialTimeout:  5,
			WriteTimeout: 2,
			MaxRetries:   3,
		},
		LED: LEDConfig{
			Enabled:    true,
			Brightness: 255,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "stdout",
			RingEntries: 32,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.UDPPort = 70000 },
			expectError: true,
			errorMsg:    "udp_port must be between 1 and 65535",
		},
		{
			name:        "invalid audio sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = 96000 },
			expectError: true,
			errorMsg:    "sample_rate must be between 8000 and 48000",
		},
		{
			name:        "stereo rejected",
			mutate:      func(c *Config) { c.Audio.Channels = 2 },
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name:        "invalid codec bit rate",
			mutate:      func(c *Config) { c.Codec.BitRate = 32000 },
			expectError: true,
			errorMsg:    "bit_rate must be one of",
		},
		{
			name:        "empty sink endpoint",
			mutate:      func(c *Config) { c.Sink.Endpoint = "" },
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name:        "led brightness out of range",
			mutate:      func(c *Config) { c.LED.Brightness = 300 },
			expectError: true,
			errorMsg:    "brightness must be between 0 and 255",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  udp_port: 4444
  bind_address: "0.0.0.0"
  buffer_size: 65536
  max_concurrent_streams: 16
http:
  port: 8080
  address: "0.0.0.0"
  enabled: true
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
  frame_samples: 160
  stream_timeout: 60
codec:
  bit_rate: 64000
  options: 1
sink:
  endpoint: "127.0.0.1:7700"
  dial_timeout: 5
  write_timeout: 2
  max_retries: 3
led:
  enabled: true
  brightness: 255
logging:
  level: "info"
  format: "json"
  output: "stdout"
  ring_entries: 32
`,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  udp_port: 4444
  bind_address: "0.0.0.0"
  buffer_size: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
server:
  udp_port: 4444
  # missing bind_address
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				} else if config.Codec.BitRate != 64000 {
					t.Errorf("codec bit_rate = %d, want 64000", config.Codec.BitRate)
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatalf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	audio := AudioConfig{StreamTimeout: 60}
	if audio.GetStreamTimeoutDuration() != 60*time.Second {
		t.Errorf("Expected 60 seconds, got %v", audio.GetStreamTimeoutDuration())
	}

	snk := SinkConfig{DialTimeout: 5, WriteTimeout: 2}
	if snk.GetDialTimeoutDuration() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", snk.GetDialTimeoutDuration())
	}
	if snk.GetWriteTimeoutDuration() != 2*time.Second {
		t.Errorf("Expected 2 seconds, got %v", snk.GetWriteTimeoutDuration())
	}
}

func TestServerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config ServerConfig
		valid  bool
	}{
		{
			name: "valid config",
			config: ServerConfig{
				UDPPort:              4444,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 16,
			},
			valid: true,
		},
		{
			name: "port too low",
			config: ServerConfig{
				UDPPort:              0,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 16,
			},
		},
		{
			name: "port too high",
			config: ServerConfig{
				UDPPort:              70000,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 16,
			},
		},
		{
			name: "empty bind address",
			config: ServerConfig{
				UDPPort:              4444,
				BufferSize:           65536,
				MaxConcurrentStreams: 16,
			},
		},
		{
			name: "buffer too small",
			config: ServerConfig{
				UDPPort:              4444,
				BindAddress:          "0.0.0.0",
				BufferSize:           512,
				MaxConcurrentStreams: 16,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}

func TestCodecConfigValidation(t *testing.T) {
	for _, rate := range []int{48000, 56000, 64000} {
		cfg := CodecConfig{BitRate: rate}
		if err := cfg.Validate(); err != nil {
			t.Errorf("bit_rate %d rejected: %v", rate, err)
		}
	}
	for _, rate := range []int{0, 8000, 44100, 128000} {
		cfg := CodecConfig{BitRate: rate}
		if err := cfg.Validate(); err == nil {
			t.Errorf("bit_rate %d accepted, want error", rate)
		}
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name:   "valid json to stdout",
			config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			valid:  true,
		},
		{
			name:   "valid text to stderr",
			config: LoggingConfig{Level: "debug", Format: "text", Output: "stderr"},
			valid:  true,
		},
		{
			name:   "invalid log level",
			config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"},
		},
		{
			name:   "invalid format",
			config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
		},
		{
			name:   "negative ring entries",
			config: LoggingConfig{Level: "info", Format: "json", Output: "stdout", RingEntries: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}
