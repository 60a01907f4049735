package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrClosed          = errors.New("socket closed")
)

// ClientIDHeader carries the per-socket client ID on the handshake.
const ClientIDHeader = "X-Client-ID"

// Handler receives signals from a socket.
//
// Lifecycle signals are delivered from the socket's connection goroutine and
// named events from its delivery goroutine; each kind arrives in order.
// Handler methods are never called from Open or Close.
type Handler interface {
	// OnConnect is called once the handshake succeeds.
	OnConnect()

	// OnDisconnect is called when an established connection drops.
	OnDisconnect(err error)

	// OnConnectError is called for every failed dial.
	OnConnectError(err error)

	// OnEvent is called for every named event frame.
	OnEvent(name string, payload json.RawMessage)
}

// Conn is an open transport.
type Conn interface {
	// Close stops reconnection and closes the connection. It does not block
	// on in-flight handler calls.
	Close() error
}

// Opener opens transports. It exists so the Connection Manager can be
// tested without a network.
type Opener interface {
	Open(endpoint string, opts Options, h Handler) (Conn, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(endpoint string, opts Options, h Handler) (Conn, error)

// Open calls f.
func (f OpenerFunc) Open(endpoint string, opts Options, h Handler) (Conn, error) {
	return f(endpoint, opts, h)
}

// Options configures a socket.
type Options struct {
	Reconnection         bool          // Retry dials and reconnect after drops
	ReconnectionAttempts int           // Consecutive failed dials before giving up
	ReconnectionDelay    time.Duration // Wait between attempts
	Timeout              time.Duration // Handshake timeout per dial
	PingInterval         time.Duration // Client ping period (0 disables)
	WriteTimeout         time.Duration // Deadline for control frames
	QueueSize            int           // Initial event queue capacity
	Header               http.Header   // Extra handshake headers
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Reconnection:         true,
		ReconnectionAttempts: 5,
		ReconnectionDelay:    1 * time.Second,
		Timeout:              10 * time.Second,
		PingInterval:         25 * time.Second,
		WriteTimeout:         5 * time.Second,
		QueueSize:            1000,
	}
}

// Event is a named event received from the server.
type Event struct {
	Name string
	Data json.RawMessage
}

// frame is the wire envelope of an event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
