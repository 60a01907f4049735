package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
endpoint:
  socket_url: https://feed.example.com
  local_socket_url: http://localhost:9000
  host_context: localhost
connection:
  max_reconnect_attempts: 3
  reconnect_delay: 250ms
events:
  - new_post
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Endpoint.SocketURL != "https://feed.example.com" {
		t.Errorf("Endpoint.SocketURL = %q, want %q", cfg.Endpoint.SocketURL, "https://feed.example.com")
	}
	if cfg.Connection.MaxReconnectAttempts != 3 {
		t.Errorf("Connection.MaxReconnectAttempts = %d, want 3", cfg.Connection.MaxReconnectAttempts)
	}
	if cfg.Connection.ReconnectDelay != 250*time.Millisecond {
		t.Errorf("Connection.ReconnectDelay = %v, want 250ms", cfg.Connection.ReconnectDelay)
	}
	if len(cfg.Events) != 1 || cfg.Events[0] != EventNewPost {
		t.Errorf("Events = %v, want [%s]", cfg.Events, EventNewPost)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_HOST", "feed.internal:8443")

	yaml := `
endpoint:
  socket_url: wss://${TEST_FEED_HOST}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Endpoint.SocketURL != "wss://feed.internal:8443" {
		t.Errorf("Endpoint.SocketURL = %q, want %q", cfg.Endpoint.SocketURL, "wss://feed.internal:8443")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv(SocketURLEnv, "")

	path := writeTempFile(t, "log:\n  level: debug\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Endpoint.SocketURL != DefaultSocketURL {
		t.Errorf("Endpoint.SocketURL = %q, want default %q", cfg.Endpoint.SocketURL, DefaultSocketURL)
	}
	if cfg.Connection.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Connection.MaxReconnectAttempts = %d, want default %d", cfg.Connection.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Connection.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Connection.ReconnectDelay = %v, want default %v", cfg.Connection.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Connection.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Connection.ConnectTimeout = %v, want default %v", cfg.Connection.ConnectTimeout, DefaultConnectTimeout)
	}
	if len(cfg.Events) != 2 {
		t.Errorf("Events = %v, want defaults", cfg.Events)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestFromEnv_SocketURL(t *testing.T) {
	t.Setenv(SocketURLEnv, "https://prod.example.com")

	cfg := FromEnv()
	if cfg.Endpoint.SocketURL != "https://prod.example.com" {
		t.Errorf("Endpoint.SocketURL = %q, want value from %s", cfg.Endpoint.SocketURL, SocketURLEnv)
	}
	if cfg.Endpoint.LocalSocketURL != DefaultLocalSocketURL {
		t.Errorf("Endpoint.LocalSocketURL = %q, want default", cfg.Endpoint.LocalSocketURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		cfg.Endpoint.SocketURL = "https://feed.example.com"
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Endpoint.SocketURL = "ftp://feed.example.com" },
			wantErr: `endpoint.socket_url has unsupported scheme "ftp"`,
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Endpoint.LocalSocketURL = "http://" },
			wantErr: "endpoint.local_socket_url is missing a host",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *Config) { c.Connection.MaxReconnectAttempts = -1 },
			wantErr: "connection.max_reconnect_attempts must be >= 1",
		},
		{
			name:    "empty event name",
			mutate:  func(c *Config) { c.Events = []string{"new_post", ""} },
			wantErr: "events[1] must not be empty",
		},
		{
			name:    "bad metrics port",
			mutate:  func(c *Config) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "negative ping interval",
			mutate:  func(c *Config) { c.Connection.PingInterval = -time.Second },
			wantErr: "connection.ping_interval must be >= 0",
		},
		{
			name:    "negative write timeout",
			mutate:  func(c *Config) { c.Connection.WriteTimeout = -time.Second },
			wantErr: "connection.write_timeout must be >= 0",
		},
		{
			name:    "metrics path collides with health",
			mutate:  func(c *Config) { c.Metrics.Path = "/health" },
			wantErr: "metrics.path must not be /health",
		},
		{
			name:    "metrics path without slash",
			mutate:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: `metrics.path must start with /, got "metrics"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
