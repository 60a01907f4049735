package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rickgao/postfeed/internal/config"
	"github.com/rickgao/postfeed/internal/connection"
	"github.com/rickgao/postfeed/internal/dispatch"
	"github.com/rickgao/postfeed/internal/metrics"
	"github.com/rickgao/postfeed/internal/transport"
)

// Event names pushed by the server.
const (
	EventNewPost  = config.EventNewPost
	EventNewPosts = config.EventNewPosts
)

// serverErrorEvent is logged rather than dispatched.
const serverErrorEvent = "error"

// Listener is a subscription handle.
type Listener = dispatch.Listener

// NewListener wraps fn in a listener handle.
func NewListener(fn dispatch.HandlerFunc) *Listener {
	return dispatch.NewListener(fn)
}

// Client is the feed client facade.
type Client struct {
	logger     *slog.Logger
	manager    *connection.Manager
	dispatcher *dispatch.Dispatcher
	forward    map[string]struct{}
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	opener  transport.Opener
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOpener replaces the WebSocket transport.
func WithOpener(opener transport.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// New creates a client for cfg. Nothing is dialed until Connect.
func New(cfg *config.Config, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	events := cfg.Events
	if len(events) == 0 {
		events = config.DefaultEvents()
	}
	forward := make(map[string]struct{}, len(events))
	for _, name := range events {
		forward[name] = struct{}{}
	}

	c := &Client{
		logger:     o.logger,
		dispatcher: dispatch.NewDispatcher(o.logger.With("component", "dispatch"), o.metrics),
		forward:    forward,
	}
	c.manager = connection.NewManager(
		connection.ManagerConfigFrom(cfg),
		o.opener,
		o.logger.With("component", "connection"),
		connection.WithEventSink(c.route),
		connection.WithMetrics(o.metrics),
	)
	return c
}

var (
	defaultMu   sync.Mutex
	defaultCfg  *config.Config
	defaultOpts []Option

	defaultClient = sync.OnceValue(func() *Client {
		defaultMu.Lock()
		cfg, opts := defaultCfg, defaultOpts
		defaultMu.Unlock()

		if cfg == nil {
			cfg = config.FromEnv()
		}
		return New(cfg, opts...)
	})
)

// Configure sets the config and options used to build the Default client.
// It has no effect once Default has been called.
func Configure(cfg *config.Config, opts ...Option) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCfg = cfg
	defaultOpts = opts
}

// Default returns the process-wide client, building it on first use. Without
// Configure the config comes from .env files, the environment and defaults.
// Concurrent first calls build it once.
func Default() *Client {
	return defaultClient()
}

// Connect establishes the shared connection. See connection.Manager.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Disconnect closes the connection.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// Subscribe registers l for event.
func (c *Client) Subscribe(event string, l *Listener) {
	c.dispatcher.Subscribe(event, l)
}

// Unsubscribe removes l from event.
func (c *Client) Unsubscribe(event string, l *Listener) {
	c.dispatcher.Unsubscribe(event, l)
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.manager.IsConnected()
}

// Stats returns connection statistics.
func (c *Client) Stats() connection.ManagerStats {
	return c.manager.Stats()
}

// route receives named events from the transport.
func (c *Client) route(name string, payload json.RawMessage) {
	if name == serverErrorEvent {
		c.logger.Error("server error event", "payload", string(payload))
		return
	}
	if _, ok := c.forward[name]; !ok {
		c.logger.Debug("ignoring event", "event", name)
		return
	}
	c.dispatcher.Dispatch(name, payload)
}
