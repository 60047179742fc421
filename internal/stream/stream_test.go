package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
)

type recorder struct {
	mu        sync.Mutex
	replaced  [][]model.OpenOrder
	updates   []OrderUpdate
	positions []Message
}

func (r *recorder) ReplaceOpenOrders(orders []model.OpenOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = append(r.replaced, orders)
}

func (r *recorder) OrderUpdate(u OrderUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) PositionUpdate(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, m)
}

func (r *recorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replaced), len(r.updates), len(r.positions)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"orders":[{"id":"o1","symbol":"AAPL","side":"BUY","quantity":10}]}`))
	require.NoError(t, err)
	assert.True(t, msg.HasOrders)
	require.Len(t, msg.Orders, 1)
	assert.Equal(t, "o1", msg.Orders[0].ID)
	assert.False(t, msg.Throttled())

	msg, err = DecodeMessage([]byte(`{"orders":[]}`))
	require.NoError(t, err)
	assert.True(t, msg.HasOrders)
	assert.Empty(t, msg.Orders)

	msg, err = DecodeMessage([]byte(`{"order_update":{"order_id":"o1","status":"FILLED"}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.OrderUpdate)
	assert.Equal(t, "FILLED", msg.OrderUpdate.Status)
	assert.False(t, msg.HasOrders)

	msg, err = DecodeMessage([]byte(`{"type":"PNL_UPDATE","pnl":12.5}`))
	require.NoError(t, err)
	assert.True(t, msg.Throttled())

	_, err = DecodeMessage([]byte(`not json`))
	assert.ErrorIs(t, err, ErrBadMessage)

	_, err = DecodeMessage([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(15 * time.Second)
	start := time.Unix(1_700_000_000, 0)

	assert.True(t, th.Allow(start))
	assert.False(t, th.Allow(start.Add(5*time.Second)))
	assert.False(t, th.Allow(start.Add(14*time.Second)))
	assert.True(t, th.Allow(start.Add(15*time.Second)))
	assert.False(t, th.Allow(start.Add(20*time.Second)), "window restarts at the last passed event")
	assert.True(t, th.Allow(start.Add(31*time.Second)))
}

func TestChannelHandleThrottlesPositionUpdates(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	ch := NewChannel("ws://unused", rec, ChannelOptions{ThrottleWindow: 15 * time.Second, Now: clock.Now}, logger.NewNopLogger())

	ch.handle([]byte(`{"type":"POSITION_UPDATE"}`))
	clock.Advance(5 * time.Second)
	ch.handle([]byte(`{"type":"PNL_UPDATE"}`))
	clock.Advance(5 * time.Second)
	ch.handle([]byte(`{"type":"POSITION_UPDATE"}`))
	clock.Advance(6 * time.Second)
	ch.handle([]byte(`{"type":"POSITION_UPDATE"}`))

	_, _, positions := rec.counts()
	assert.Equal(t, 2, positions)

	// other kinds are never throttled
	ch.handle([]byte(`{"orders":[]}`))
	ch.handle([]byte(`{"order_update":{"status":"NEW"}}`))
	ch.handle([]byte(`garbage`))
	replaced, updates, _ := rec.counts()
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 1, updates)
}

func TestThrottleIsPerChannel(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	opts := ChannelOptions{ThrottleWindow: 15 * time.Second, Now: clock.Now}

	NewChannel("ws://a", rec, opts, logger.NewNopLogger()).handle([]byte(`{"type":"PNL_UPDATE"}`))
	NewChannel("ws://b", rec, opts, logger.NewNopLogger()).handle([]byte(`{"type":"PNL_UPDATE"}`))

	_, _, positions := rec.counts()
	assert.Equal(t, 2, positions)
}

func wsServer(t *testing.T, serve func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestChannelRunDispatchesAndEndsDisconnected(t *testing.T) {
	_, url := wsServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"orders":[{"id":"o1"}]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"order_update":{"status":"FILLED"}}`))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	rec := &recorder{}
	var mu sync.Mutex
	var states []State
	ch := NewChannel(url, rec, ChannelOptions{
		ThrottleWindow: 15 * time.Second,
		OnState: func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	}, logger.NewNopLogger())

	err := ch.Run(context.Background())
	require.NoError(t, err)

	replaced, updates, _ := rec.counts()
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 1, updates)
	assert.True(t, ch.Opened())
	assert.Equal(t, Disconnected, ch.State())

	mu.Lock()
	assert.Equal(t, []State{Connecting, Open, Disconnected}, states)
	mu.Unlock()

	assert.ErrorIs(t, ch.Run(context.Background()), ErrClosed, "channels are single use")
}

func TestChannelRunStopsOnContext(t *testing.T) {
	_, url := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ch := NewChannel(url, &recorder{}, ChannelOptions{}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	require.Eventually(t, func() bool { return ch.State() == Open }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not stop")
	}
}

func TestChannelDialFailure(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", &recorder{}, ChannelOptions{HandshakeTimeout: time.Second}, logger.NewNopLogger())
	err := ch.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, ch.Opened())
	assert.Equal(t, Disconnected, ch.State())
}

func TestSupervisorNotAllowedNeverDials(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
	}))
	defer srv.Close()

	s := NewSupervisor("ws"+strings.TrimPrefix(srv.URL, "http"), false, &recorder{},
		ReconnectPolicy{Enabled: true, Min: time.Millisecond, Max: time.Millisecond, Factor: 2}, ChannelOptions{}, logger.NewNopLogger())

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, int32(0), dials.Load())
}

func TestSupervisorReconnectsUntilMaxAttempts(t *testing.T) {
	var connects atomic.Int32
	_, url := wsServer(t, func(conn *websocket.Conn) {
		connects.Add(1)
	})

	s := NewSupervisor(url, true, &recorder{}, ReconnectPolicy{
		Enabled:     true,
		Min:         time.Millisecond,
		Max:         5 * time.Millisecond,
		Factor:      2,
		MaxAttempts: 2,
	}, ChannelOptions{}, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// every connection opens then drops, which resets the failure count,
	// so the supervisor keeps going until the context ends
	require.NoError(t, s.Run(ctx))
	assert.Greater(t, connects.Load(), int32(2))
}

func TestSupervisorGivesUpOnDialFailures(t *testing.T) {
	s := NewSupervisor("ws://127.0.0.1:1/ws", true, &recorder{}, ReconnectPolicy{
		Enabled:     true,
		Min:         time.Millisecond,
		Max:         2 * time.Millisecond,
		Factor:      2,
		MaxAttempts: 3,
	}, ChannelOptions{HandshakeTimeout: time.Second}, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not give up")
	}
}

func TestSupervisorReconnectDisabled(t *testing.T) {
	var connects atomic.Int32
	_, url := wsServer(t, func(conn *websocket.Conn) {
		connects.Add(1)
	})

	s := NewSupervisor(url, true, &recorder{}, ReconnectPolicy{Enabled: false}, ChannelOptions{}, logger.NewNopLogger())
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, int32(1), connects.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "disconnected", Disconnected.String())
}
