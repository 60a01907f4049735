package config

import "time"

// Config is the root configuration for a feed client.
type Config struct {
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Connection ConnectionConfig `yaml:"connection"`
	Events     []string         `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// EndpointConfig holds the event stream addresses.
type EndpointConfig struct {
	SocketURL      string `yaml:"socket_url"`       // Remote/production base address
	LocalSocketURL string `yaml:"local_socket_url"` // Address used when the host context is localhost
	Path           string `yaml:"path"`             // WebSocket path appended to the base address
	HostContext    string `yaml:"host_context"`     // Host the caller runs under (e.g., "localhost")
}

// ConnectionConfig holds reconnection and socket settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	EventBufferSize      int           `yaml:"event_buffer_size"`
}

// MetricsConfig holds Prometheus and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
