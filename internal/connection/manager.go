package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/postfeed/internal/metrics"
	"github.com/rickgao/postfeed/internal/transport"
)

// Manager owns the single transport to the event stream.
type Manager struct {
	cfg     ManagerConfig
	opener  transport.Opener
	sink    EventSink
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    State
	conn     transport.Conn
	gen      uint64   // Incremented whenever conn is replaced; stale signals are ignored
	attempt  *attempt // In-flight connect, nil when none
	failures int
	opens    int
}

// attempt is one in-flight connection negotiation shared by every
// Connect caller that arrives before it resolves.
type attempt struct {
	endpoint string
	done     chan struct{}
	err      error
}

// resolve sets the outcome and releases waiters. Must be called with the
// manager lock held, exactly once.
func (a *attempt) resolve(err error) {
	a.err = err
	close(a.done)
}

// ManagerOption configures optional Manager dependencies.
type ManagerOption func(*Manager)

// WithEventSink sets the receiver of named transport events.
func WithEventSink(sink EventSink) ManagerOption {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a new Connection Manager. A nil opener uses the
// WebSocket transport.
func NewManager(cfg ManagerConfig, opener transport.Opener, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opener == nil {
		opener = transport.WebSocketOpener{Logger: logger}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	m := &Manager{
		cfg:    cfg,
		opener: opener,
		logger: logger,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect blocks until the connection is established or fails permanently.
//
// It returns nil immediately when already connected. Concurrent callers
// share one attempt and one transport. Connect errors below the configured
// maximum are retried by the transport and not returned. Cancelling ctx only
// releases this caller; the attempt continues for the others.
func (m *Manager) Connect(ctx context.Context) error {
	a, err := m.begin()
	if err != nil || a == nil {
		return err
	}

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin joins the in-flight attempt or starts a new one. It returns a nil
// attempt when already connected.
func (m *Manager) begin() (*attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateConnected && m.conn != nil {
		return nil, nil
	}
	if m.attempt != nil {
		return m.attempt, nil
	}

	a := &attempt{
		endpoint: m.cfg.Endpoint,
		done:     make(chan struct{}),
	}

	// A transport that is still reconnecting after a drop is reused
	if m.conn == nil {
		if err := m.openLocked(); err != nil {
			m.metrics.ConnectFailed()
			m.logger.Error("failed to create transport",
				"endpoint", m.cfg.Endpoint,
				"error", err,
			)
			return nil, err
		}
	}

	m.attempt = a
	m.setStateLocked(StateConnecting)
	return a, nil
}

// openLocked opens a transport. Must be called with lock held.
func (m *Manager) openLocked() error {
	m.gen++
	h := &signalHandler{m: m, gen: m.gen}

	conn, err := m.opener.Open(m.cfg.Endpoint, m.cfg.transportOptions(), h)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	m.conn = conn
	m.opens++
	m.metrics.TransportOpened()
	m.logger.Debug("transport opened", "endpoint", m.cfg.Endpoint)
	return nil
}

// Disconnect closes the transport and rejects any in-flight attempt with
// ErrDisconnected. It does not wait for transport goroutines or for an
// event sink call already in progress, so listeners may call Disconnect.
// Events that arrive after Disconnect returns are dropped.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.detachLocked()
	if m.attempt != nil {
		m.attempt.resolve(ErrDisconnected)
		m.attempt = nil
	}
	m.mu.Unlock()

	if conn == nil {
		return
	}
	m.closeConn(conn)
	m.logger.Info("disconnected", "endpoint", m.cfg.Endpoint)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the transport is connected.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.conn != nil
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManagerStats{
		State:          m.state,
		Failures:       m.failures,
		AttemptPending: m.attempt != nil,
		TransportOpens: m.opens,
	}
}

// detachLocked forgets the current transport and returns it for closing.
// Must be called with lock held.
func (m *Manager) detachLocked() transport.Conn {
	conn := m.conn
	m.conn = nil
	m.gen++
	m.failures = 0
	m.setStateLocked(StateDisconnected)
	return conn
}

func (m *Manager) closeConn(conn transport.Conn) {
	if err := conn.Close(); err != nil {
		m.logger.Debug("transport close error", "error", err)
	}
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.metrics.SetConnectionState(int(s))
}

func (m *Manager) handleConnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	m.failures = 0
	m.setStateLocked(StateConnected)
	if m.attempt != nil {
		m.attempt.resolve(nil)
		m.attempt = nil
	}

	m.logger.Info("connected", "endpoint", m.cfg.Endpoint)
}

func (m *Manager) handleDisconnect(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	m.setStateLocked(StateDisconnected)
	m.logger.Warn("connection lost", "endpoint", m.cfg.Endpoint, "error", err)
}

func (m *Manager) handleConnectError(gen uint64, err error) {
	m.mu.Lock()

	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	m.failures++
	m.metrics.ConnectError()
	m.logger.Warn("connect error",
		"endpoint", m.cfg.Endpoint,
		"attempt", m.failures,
		"max_attempts", m.cfg.MaxAttempts,
		"error", err,
	)

	if m.failures < m.cfg.MaxAttempts {
		m.mu.Unlock()
		return
	}

	attempts := m.failures
	conn := m.detachLocked()
	if m.attempt != nil {
		m.attempt.resolve(fmt.Errorf("%w after %d attempts: %w", ErrConnectFailed, attempts, err))
		m.attempt = nil
	}
	m.mu.Unlock()

	m.metrics.ConnectFailed()
	m.logger.Error("giving up connecting",
		"endpoint", m.cfg.Endpoint,
		"attempts", attempts,
		"error", err,
	)

	if conn != nil {
		m.closeConn(conn)
	}
}

// handleEvent forwards an event from the current transport. The sink runs
// without the lock; an event that passed the generation check before a
// Disconnect is still delivered.
func (m *Manager) handleEvent(gen uint64, name string, payload json.RawMessage) {
	m.mu.Lock()
	current := gen == m.gen
	sink := m.sink
	m.mu.Unlock()

	if !current || sink == nil {
		return
	}
	sink(name, payload)
}

// signalHandler binds transport signals to the transport generation that
// produced them.
type signalHandler struct {
	m   *Manager
	gen uint64
}

func (h *signalHandler) OnConnect() {
	h.m.handleConnect(h.gen)
}

func (h *signalHandler) OnDisconnect(err error) {
	h.m.handleDisconnect(h.gen, err)
}

func (h *signalHandler) OnConnectError(err error) {
	h.m.handleConnectError(h.gen, err)
}

func (h *signalHandler) OnEvent(name string, payload json.RawMessage) {
	h.m.handleEvent(h.gen, name, payload)
}
