package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/postfeed/internal/metrics"
)

// HandlerFunc receives the raw payload of an event.
type HandlerFunc func(payload json.RawMessage) error

// Listener is a subscription handle. Listeners are compared by identity,
// so registering the same *Listener twice for one event delivers once.
type Listener struct {
	fn HandlerFunc
}

// NewListener wraps fn in a listener handle.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{fn: fn}
}

// Dispatcher owns the listener registry and delivers events.
type Dispatcher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
}

// NewDispatcher creates an empty dispatcher. m may be nil.
func NewDispatcher(logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:    logger,
		metrics:   m,
		listeners: make(map[string]map[*Listener]struct{}),
	}
}

// Subscribe registers l for event. Subscribing an already registered listener is a no-op.
func (d *Dispatcher) Subscribe(event string, l *Listener) {
	if l == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.listeners[event]
	if !ok {
		set = make(map[*Listener]struct{})
		d.listeners[event] = set
	}
	set[l] = struct{}{}
}

// Unsubscribe removes l from event. Removing an absent listener is a no-op.
func (d *Dispatcher) Unsubscribe(event string, l *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.listeners[event]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(d.listeners, event)
	}
}

// Listeners returns the number of listeners registered for event.
func (d *Dispatcher) Listeners(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event])
}

// Dispatch delivers payload to every listener registered for event.
// Listeners run in the caller's goroutine after the registry lock is
// released, so they may subscribe or unsubscribe while being called.
func (d *Dispatcher) Dispatch(event string, payload json.RawMessage) {
	d.mu.RLock()
	set := d.listeners[event]
	targets := make([]*Listener, 0, len(set))
	for l := range set {
		targets = append(targets, l)
	}
	d.mu.RUnlock()

	d.metrics.EventDispatched(event)

	for _, l := range targets {
		if err := d.invoke(l, payload); err != nil {
			d.metrics.ListenerFailed(event)
			d.logger.Error("listener failed",
				"event", event,
				"error", err,
			)
		}
	}
}

// invoke calls a single listener, converting a panic into an error.
func (d *Dispatcher) invoke(l *Listener, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()

	if l.fn == nil {
		return nil
	}
	return l.fn(payload)
}
