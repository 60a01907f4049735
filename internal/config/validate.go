package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("endpoint.socket_url", c.Endpoint.SocketURL); err != nil {
		return err
	}
	if err := validateURL("endpoint.local_socket_url", c.Endpoint.LocalSocketURL); err != nil {
		return err
	}

	if c.Connection.MaxReconnectAttempts < 1 {
		return errors.New("connection.max_reconnect_attempts must be >= 1")
	}
	if c.Connection.ReconnectDelay < 0 {
		return errors.New("connection.reconnect_delay must be >= 0")
	}
	if c.Connection.ConnectTimeout <= 0 {
		return errors.New("connection.connect_timeout must be > 0")
	}
	if c.Connection.PingInterval < 0 {
		return errors.New("connection.ping_interval must be >= 0")
	}
	if c.Connection.WriteTimeout < 0 {
		return errors.New("connection.write_timeout must be >= 0")
	}
	if c.Connection.EventBufferSize < 1 {
		return errors.New("connection.event_buffer_size must be >= 1")
	}

	for i, name := range c.Events {
		if name == "" {
			return fmt.Errorf("events[%d] must not be empty", i)
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.Metrics.Path == HealthPath {
		return fmt.Errorf("metrics.path must not be %s", HealthPath)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s has unsupported scheme %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
