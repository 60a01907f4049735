package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/postfeed/internal/config"
	"github.com/rickgao/postfeed/internal/connection"
	"github.com/rickgao/postfeed/internal/metrics"
	"github.com/rickgao/postfeed/internal/transport"
)

type fakeConn struct{}

func (fakeConn) Close() error { return nil }

type fakeOpener struct {
	mu        sync.Mutex
	endpoints []string
	opts      []transport.Options
	handlers  []transport.Handler
}

func (o *fakeOpener) Open(endpoint string, opts transport.Options, h transport.Handler) (transport.Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endpoints = append(o.endpoints, endpoint)
	o.opts = append(o.opts, opts)
	o.handlers = append(o.handlers, h)
	return fakeConn{}, nil
}

func (o *fakeOpener) opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handlers)
}

func (o *fakeOpener) handler(i int) transport.Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handlers[i]
}

func testConfig() *config.Config {
	return &config.Config{
		Endpoint: config.EndpointConfig{
			SocketURL:      "https://feed.example.com",
			LocalSocketURL: "http://localhost:8000",
			Path:           "/ws",
			HostContext:    config.LocalHost,
		},
		Connection: config.ConnectionConfig{
			MaxReconnectAttempts: 5,
			ReconnectDelay:       10 * time.Millisecond,
			ConnectTimeout:       time.Second,
		},
	}
}

// connect drives a client to the connected state through the fake opener.
func connect(t *testing.T, c *Client, o *fakeOpener) transport.Handler {
	t.Helper()
	n := o.opens()
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()

	require.Eventually(t, func() bool { return o.opens() == n+1 }, time.Second, 5*time.Millisecond)
	h := o.handler(n)
	h.OnConnect()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Connect")
	}
	return h
}

func collector(mu *sync.Mutex, into *[]string) *Listener {
	return NewListener(func(p json.RawMessage) error {
		mu.Lock()
		defer mu.Unlock()
		*into = append(*into, string(p))
		return nil
	})
}

func TestDefault_Singleton(t *testing.T) {
	var wg sync.WaitGroup
	clients := make([]*Client, 32)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i] = Default()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, clients[0])
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.False(t, Default().IsConnected())
}

func TestClient_ResolvesLocalEndpoint(t *testing.T) {
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o))
	connect(t, c, o)

	assert.Equal(t, []string{"ws://localhost:8000/ws"}, o.endpoints)
}

func TestClient_DeliversNewPost(t *testing.T) {
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o))

	var mu sync.Mutex
	var got []string
	c1 := collector(&mu, &got)
	c.Subscribe(EventNewPost, c1)
	c.Subscribe(EventNewPost, c1)

	h := connect(t, c, o)
	h.OnEvent(EventNewPost, json.RawMessage(`{"id": 42}`))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"id": 42}`}, got)
}

func TestClient_Unsubscribe(t *testing.T) {
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o))

	var mu sync.Mutex
	var got []string
	l := collector(&mu, &got)
	c.Subscribe(EventNewPosts, l)
	c.Unsubscribe(EventNewPosts, l)
	c.Unsubscribe(EventNewPosts, l)
	c.Unsubscribe(EventNewPost, NewListener(nil))

	h := connect(t, c, o)
	h.OnEvent(EventNewPosts, json.RawMessage(`[]`))

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got)
}

func TestClient_FailingListenerIsolated(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o), WithLogger(logger))

	var mu sync.Mutex
	var batch, single []string
	c.Subscribe(EventNewPosts, NewListener(func(json.RawMessage) error {
		panic("bad listener")
	}))
	c.Subscribe(EventNewPosts, collector(&mu, &batch))
	c.Subscribe(EventNewPost, collector(&mu, &single))

	h := connect(t, c, o)
	require.NotPanics(t, func() {
		h.OnEvent(EventNewPosts, json.RawMessage(`[{"id":1},{"id":2}]`))
		h.OnEvent(EventNewPost, json.RawMessage(`{"id":3}`))
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`[{"id":1},{"id":2}]`}, batch)
	assert.Equal(t, []string{`{"id":3}`}, single)
	assert.Contains(t, logs.String(), "bad listener")
}

func TestClient_RoutesOnlyConfiguredEvents(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	o := &fakeOpener{}
	cfg := testConfig()
	cfg.Events = []string{EventNewPost}
	c := New(cfg, WithOpener(o), WithLogger(logger))

	var mu sync.Mutex
	var got []string
	c.Subscribe(EventNewPosts, collector(&mu, &got))
	c.Subscribe("error", collector(&mu, &got))

	h := connect(t, c, o)
	h.OnEvent(EventNewPosts, json.RawMessage(`[]`))
	h.OnEvent("error", json.RawMessage(`"rate limited"`))

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got)
	assert.Contains(t, logs.String(), "server error event")
	assert.Contains(t, logs.String(), "rate limited")
}

func TestClient_DisconnectThenConnect(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o), WithMetrics(metrics.New(reg)))

	connect(t, c, o)
	assert.True(t, c.IsConnected())

	c.Disconnect()
	assert.False(t, c.IsConnected())
	assert.Equal(t, connection.StateDisconnected, c.Stats().State)

	connect(t, c, o)
	assert.Equal(t, 2, o.opens())
	assert.Equal(t, 2, c.Stats().TransportOpens)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestClient_ConnectWhenConnected(t *testing.T) {
	o := &fakeOpener{}
	c := New(testConfig(), WithOpener(o))
	connect(t, c, o)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 1, o.opens())
}

func TestNew_EndpointOnlyConfigUsesDefaultPolicy(t *testing.T) {
	o := &fakeOpener{}
	c := New(&config.Config{
		Endpoint: config.EndpointConfig{SocketURL: "ws://feed.example.com/ws"},
	}, WithOpener(o))

	ch := make(chan error, 1)
	go func() { ch <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return o.opens() == 1 }, time.Second, 5*time.Millisecond)

	o.mu.Lock()
	opts := o.opts[0]
	o.mu.Unlock()
	assert.Equal(t, 5, opts.ReconnectionAttempts)
	assert.Equal(t, time.Second, opts.ReconnectionDelay)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.True(t, opts.Reconnection)

	// A single connect error no longer ends the attempt.
	h := o.handler(0)
	h.OnConnectError(errors.New("refused"))
	select {
	case err := <-ch:
		t.Fatalf("Connect returned after one error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	h.OnConnect()
	select {
	case err := <-ch:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Connect")
	}
	c.Disconnect()
}
