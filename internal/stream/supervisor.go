package stream

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/widesurf/hft-sync/internal/logger"
)

type ReconnectPolicy struct {
	Enabled     bool
	Min         time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      bool
	MaxAttempts int // consecutive failures before giving up, 0 is unlimited
}

// Supervisor owns the push path. It builds a new Channel per connection
// attempt and waits a capped exponential backoff between attempts.
type Supervisor struct {
	url     string
	allowed bool
	policy  ReconnectPolicy
	newChan func() *Channel
	onState func(State)

	logger logger.Logger
}

func NewSupervisor(url string, allowed bool, handler Handler, policy ReconnectPolicy, opts ChannelOptions, logger logger.Logger) *Supervisor {
	onState := opts.OnState
	if onState == nil {
		onState = func(State) {}
	}
	return &Supervisor{
		url:     url,
		allowed: allowed,
		policy:  policy,
		newChan: func() *Channel {
			return NewChannel(url, handler, opts, logger)
		},
		onState: onState,
		logger:  logger,
	}
}

// Run blocks until ctx is done or the policy gives up. When the push path
// is not allowed no channel is ever created.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.allowed {
		s.logger.Infof("skipping websocket: https page with http backend, polling only")
		s.onState(Disconnected)
		return nil
	}

	b := &backoff.Backoff{
		Min:    s.policy.Min,
		Max:    s.policy.Max,
		Factor: s.policy.Factor,
		Jitter: s.policy.Jitter,
	}

	failures := 0
	for {
		ch := s.newChan()
		err := ch.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if ch.Opened() {
			b.Reset()
			failures = 0
		}
		failures++

		if err != nil {
			s.logger.Warnf("%s: websocket disconnected", err)
		} else {
			s.logger.Infof("websocket closed by server")
		}

		if !s.policy.Enabled {
			s.logger.Infof("websocket reconnect disabled, polling only")
			return nil
		}
		if s.policy.MaxAttempts > 0 && failures > s.policy.MaxAttempts {
			s.logger.Errorf("websocket gave up after %d attempts, polling only", failures)
			return nil
		}

		d := b.Duration()
		s.logger.Infof("websocket reconnecting in %s", d)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
		}
	}
}
