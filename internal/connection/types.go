package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/postfeed/internal/config"
	"github.com/rickgao/postfeed/internal/transport"
)

// Errors
var (
	ErrConnectFailed = errors.New("connect failed")
	ErrDisconnected  = errors.New("disconnected before connect completed")
)

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State          State
	Failures       int  // Connect errors since the last successful connect
	AttemptPending bool // A Connect is waiting for the outcome
	TransportOpens int
}

// EventSink receives named events from the transport.
type EventSink func(name string, payload json.RawMessage)

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Endpoint       string        // WebSocket URL (e.g., ws://localhost:8000/ws)
	MaxAttempts    int           // Connect errors before an attempt fails
	ReconnectDelay time.Duration // Transport delay between attempts
	ConnectTimeout time.Duration // Transport handshake timeout
	PingInterval   time.Duration // Transport ping period
	WriteTimeout   time.Duration // Transport control frame deadline
	QueueSize      int           // Transport event queue capacity
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxAttempts:    config.DefaultMaxReconnectAttempts,
		ReconnectDelay: config.DefaultReconnectDelay,
		ConnectTimeout: config.DefaultConnectTimeout,
		PingInterval:   config.DefaultPingInterval,
		WriteTimeout:   config.DefaultWriteTimeout,
		QueueSize:      config.DefaultEventBufferSize,
	}
}

// ManagerConfigFrom builds a ManagerConfig from loaded configuration.
// Unset connection fields take the DefaultManagerConfig values, so a
// Config that was never passed through Load still gets the default
// retry policy. An endpoint that cannot be resolved is passed through
// unchanged so that Connect reports it as a construction failure.
func ManagerConfigFrom(cfg *config.Config) ManagerConfig {
	endpoint, err := cfg.Endpoint.WebSocketURL()
	if err != nil {
		endpoint = cfg.Endpoint.SocketBase()
	}

	mc := DefaultManagerConfig()
	mc.Endpoint = endpoint

	conn := cfg.Connection
	if conn.MaxReconnectAttempts > 0 {
		mc.MaxAttempts = conn.MaxReconnectAttempts
	}
	if conn.ReconnectDelay > 0 {
		mc.ReconnectDelay = conn.ReconnectDelay
	}
	if conn.ConnectTimeout > 0 {
		mc.ConnectTimeout = conn.ConnectTimeout
	}
	if conn.PingInterval > 0 {
		mc.PingInterval = conn.PingInterval
	}
	if conn.WriteTimeout > 0 {
		mc.WriteTimeout = conn.WriteTimeout
	}
	if conn.EventBufferSize > 0 {
		mc.QueueSize = conn.EventBufferSize
	}
	return mc
}

// transportOptions maps the manager config onto transport options.
func (c ManagerConfig) transportOptions() transport.Options {
	return transport.Options{
		Reconnection:         true,
		ReconnectionAttempts: c.MaxAttempts,
		ReconnectionDelay:    c.ReconnectDelay,
		Timeout:              c.ConnectTimeout,
		PingInterval:         c.PingInterval,
		WriteTimeout:         c.WriteTimeout,
		QueueSize:            c.QueueSize,
	}
}
