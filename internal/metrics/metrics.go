package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "postfeed"

// Metrics holds the collectors for the feed client.
type Metrics struct {
	connectionState  prometheus.Gauge
	transportOpens   prometheus.Counter
	connectErrors    prometheus.Counter
	connectFailures  prometheus.Counter
	eventsDispatched *prometheus.CounterVec
	listenerFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg registers nothing, which is useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected)",
		}),
		transportOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "transport_opens_total",
			Help:      "Number of transports opened",
		}),
		connectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "connect_errors_total",
			Help:      "Number of connect_error signals received from the transport",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "connect_failures_total",
			Help:      "Number of connection attempts that failed permanently",
		}),
		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "events_total",
			Help:      "Number of events dispatched to listeners",
		}, []string{"event"}),
		listenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "listener_failures_total",
			Help:      "Number of listener invocations that returned an error or panicked",
		}, []string{"event"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.connectionState,
			m.transportOpens,
			m.connectErrors,
			m.connectFailures,
			m.eventsDispatched,
			m.listenerFailures,
		)
	}

	return m
}

// SetConnectionState records the current connection state as a number.
func (m *Metrics) SetConnectionState(v int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(v))
}

// TransportOpened counts a transport open.
func (m *Metrics) TransportOpened() {
	if m == nil {
		return
	}
	m.transportOpens.Inc()
}

// ConnectError counts a connect_error signal.
func (m *Metrics) ConnectError() {
	if m == nil {
		return
	}
	m.connectErrors.Inc()
}

// ConnectFailed counts a permanently failed connection attempt.
func (m *Metrics) ConnectFailed() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}

// EventDispatched counts an event handed to the listeners of name.
func (m *Metrics) EventDispatched(name string) {
	if m == nil {
		return
	}
	m.eventsDispatched.WithLabelValues(name).Inc()
}

// ListenerFailed counts a failed listener invocation for name.
func (m *Metrics) ListenerFailed(name string) {
	if m == nil {
		return
	}
	m.listenerFailures.WithLabelValues(name).Inc()
}
