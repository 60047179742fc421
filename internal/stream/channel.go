package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Open
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var ErrClosed = errors.New("channel already used")

// Handler receives decoded push messages.
type Handler interface {
	ReplaceOpenOrders(orders []model.OpenOrder)
	OrderUpdate(u OrderUpdate)
	PositionUpdate(m Message)
}

type ChannelOptions struct {
	ThrottleWindow   time.Duration
	HandshakeTimeout time.Duration
	Now              func() time.Time
	OnState          func(State)
}

// Channel is one WebSocket connection. It moves Disconnected -> Connecting
// -> Open -> Disconnected once and is never reused; reconnecting means
// building a new Channel, which also starts with a fresh throttle.
type Channel struct {
	url      string
	dialer   *websocket.Dialer
	handler  Handler
	throttle *Throttle
	now      func() time.Time
	onState  func(State)

	mu     sync.Mutex
	state  State
	used   bool
	opened bool

	logger logger.Logger
}

func NewChannel(url string, handler Handler, opts ChannelOptions, logger logger.Logger) *Channel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnState == nil {
		opts.OnState = func(State) {}
	}
	return &Channel{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
		handler:  handler,
		throttle: NewThrottle(opts.ThrottleWindow),
		now:      opts.Now,
		onState:  opts.OnState,
		logger:   logger,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Opened reports whether the channel ever reached Open.
func (c *Channel) Opened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	if s == Open {
		c.opened = true
	}
	c.mu.Unlock()
	c.onState(s)
}

// Run connects and dispatches frames until the connection drops or ctx is
// done. The channel always ends Disconnected.
func (c *Channel) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return ErrClosed
	}
	c.used = true
	c.mu.Unlock()

	c.setState(Connecting)
	defer c.setState(Disconnected)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: can't dial %s, status %s", err, c.url, resp.Status)
		}
		return fmt.Errorf("%w: can't dial %s", err, c.url)
	}
	defer conn.Close()

	c.setState(Open)
	c.logger.Infof("websocket connected to %s", c.url)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: websocket read", err)
		}
		c.handle(frame)
	}
}

func (c *Channel) handle(frame []byte) {
	msg, err := DecodeMessage(frame)
	if err != nil {
		c.logger.Errorf("%s: can't decode websocket message", err)
		return
	}

	if msg.Throttled() {
		if !c.throttle.Allow(c.now()) {
			return
		}
		c.logger.Debugf("processing %s", msg.Type)
	}

	if msg.HasOrders {
		c.handler.ReplaceOpenOrders(msg.Orders)
	}
	if msg.OrderUpdate != nil {
		c.logger.Debugf("order status update: %s", msg.OrderUpdate.Status)
		c.handler.OrderUpdate(*msg.OrderUpdate)
	}
	if msg.Throttled() {
		c.handler.PositionUpdate(msg)
	}
}
