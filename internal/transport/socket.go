package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

// Socket is a self-reconnecting WebSocket connection to one endpoint.
type Socket struct {
	url     string
	opts    Options
	handler Handler
	logger  *slog.Logger
	id      string

	dialer websocket.Dialer
	header http.Header

	ctx    context.Context
	cancel context.CancelFunc

	events *eventQueue

	// State
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// WebSocketOpener opens Sockets. It implements Opener.
type WebSocketOpener struct {
	Logger *slog.Logger
}

// Open implements Opener.
func (o WebSocketOpener) Open(endpoint string, opts Options, h Handler) (Conn, error) {
	s, err := Open(endpoint, opts, h, o.Logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open validates the endpoint and starts connecting in the background.
// Only endpoint and argument errors are returned; dial failures are
// reported through h.OnConnectError.
func Open(endpoint string, opts Options, h Handler, logger *slog.Logger) (*Socket, error) {
	if h == nil {
		return nil, errors.New("nil handler")
	}
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()

	header := http.Header{}
	for k, v := range opts.Header {
		header[k] = append([]string(nil), v...)
	}
	header.Set(ClientIDHeader, id)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Socket{
		url:     endpoint,
		opts:    opts,
		handler: h,
		logger:  logger.With("client_id", id),
		id:      id,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.Timeout,
		},
		header: header,
		ctx:    ctx,
		cancel: cancel,
		events: newEventQueue(opts.QueueSize),
	}

	go s.run()
	go s.deliver()

	return s, nil
}

// ID returns the client ID sent on every handshake of this socket.
func (s *Socket) ID() string {
	return s.id
}

// Close stops reconnection and closes the connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	// Signal goroutines to stop
	s.cancel()

	if conn == nil {
		return nil
	}

	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return multierr.Append(err, conn.Close())
}

// IsConnected reports whether a connection is currently established.
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// run dials, reads until the connection drops, and reconnects.
func (s *Socket) run() {
	defer s.events.Close()

	failures := 0
	for {
		conn, err := s.dial()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			failures++
			s.logger.Warn("websocket connect error",
				"url", s.url,
				"attempt", failures,
				"error", err,
			)
			s.handler.OnConnectError(err)

			if !s.opts.Reconnection || failures >= s.opts.ReconnectionAttempts {
				s.logger.Warn("giving up reconnection", "attempts", failures)
				return
			}
			if !s.wait(s.opts.ReconnectionDelay) {
				return
			}
			continue
		}

		failures = 0
		if !s.attach(conn) {
			conn.Close()
			return
		}

		s.logger.Debug("websocket connected", "url", s.url)
		s.handler.OnConnect()

		err = s.readLoop(conn)
		s.detach(conn)

		if s.ctx.Err() != nil {
			return
		}

		s.logger.Debug("websocket disconnected", "error", err)
		s.handler.OnDisconnect(err)

		if !s.opts.Reconnection {
			return
		}
		if !s.wait(s.opts.ReconnectionDelay) {
			return
		}
	}
}

// dial performs a single handshake bounded by the connect timeout.
func (s *Socket) dial() (*websocket.Conn, error) {
	ctx := s.ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.opts.Timeout)
		defer cancel()
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", s.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	return conn, nil
}

// wait sleeps for d. Returns false if the socket was closed meanwhile.
func (s *Socket) wait(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Socket) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *Socket) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

// readLoop reads frames until the connection fails and queues named events.
func (s *Socket) readLoop(conn *websocket.Conn) error {
	s.extendDeadline(conn)

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		s.extendDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	// Server responds to our ping
	conn.SetPongHandler(func(string) error {
		s.extendDeadline(conn)
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.heartbeatLoop(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.extendDeadline(conn)

		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			s.logger.Warn("dropping malformed frame", "size", len(data), "error", err)
			continue
		}

		if !s.events.Send(Event{Name: f.Event, Data: f.Data}) {
			return ErrClosed
		}
	}
}

// extendDeadline pushes the read deadline two ping intervals ahead.
func (s *Socket) extendDeadline(conn *websocket.Conn) {
	if s.opts.PingInterval <= 0 {
		return
	}
	conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingInterval))
}

// heartbeatLoop pings the server until stop is closed.
func (s *Socket) heartbeatLoop(conn *websocket.Conn, stop <-chan struct{}) {
	if s.opts.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

// deliver hands queued events to the handler in arrival order.
func (s *Socket) deliver() {
	for {
		ev, ok := s.events.Receive()
		if !ok {
			return
		}
		s.handler.OnEvent(ev.Name, ev.Data)
	}
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return nil
}
