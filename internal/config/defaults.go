package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultSocketURL            = "http://localhost:8000"
	DefaultLocalSocketURL       = "http://localhost:8000"
	DefaultPath                 = "/ws"
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 1 * time.Second
	DefaultConnectTimeout       = 10 * time.Second
	DefaultPingInterval         = 25 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultEventBufferSize      = 1000
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

// Event names pushed by the server.
const (
	EventNewPost  = "new_post"  // A single newly created post
	EventNewPosts = "new_posts" // A batch of newly created posts
)

// HealthPath is served next to the metrics endpoint by feedwatch.
const HealthPath = "/health"

// SocketURLEnv overrides the remote socket address when the config leaves it empty.
const SocketURLEnv = "SOCKET_URL"

// DefaultEvents returns the event names forwarded to subscribers by default.
func DefaultEvents() []string {
	return []string{EventNewPost, EventNewPosts}
}

func (c *Config) applyDefaults() {
	// Endpoint defaults
	if c.Endpoint.SocketURL == "" {
		c.Endpoint.SocketURL = os.Getenv(SocketURLEnv)
	}
	if c.Endpoint.SocketURL == "" {
		c.Endpoint.SocketURL = DefaultSocketURL
	}
	if c.Endpoint.LocalSocketURL == "" {
		c.Endpoint.LocalSocketURL = DefaultLocalSocketURL
	}
	if c.Endpoint.Path == "" {
		c.Endpoint.Path = DefaultPath
	}
	if c.Endpoint.HostContext == "" {
		if host, err := os.Hostname(); err == nil {
			c.Endpoint.HostContext = host
		}
	}

	// Connection defaults
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.EventBufferSize == 0 {
		c.Connection.EventBufferSize = DefaultEventBufferSize
	}

	if len(c.Events) == 0 {
		c.Events = DefaultEvents()
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
