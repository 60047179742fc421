package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/widesurf/hft-sync/internal/api"
	"github.com/widesurf/hft-sync/internal/config"
	"github.com/widesurf/hft-sync/internal/dispatcher"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/poller"
	"github.com/widesurf/hft-sync/internal/store"
	"github.com/widesurf/hft-sync/internal/stream"
	"github.com/widesurf/hft-sync/internal/transport"
)

var (
	ErrNotRunning  = errors.New("session is not running")
	ErrUnknownView = errors.New("unknown view")
)

// Session is one dashboard session: the resolved backend, the store, and
// the set of currently mounted views with their poll loops.
type Session struct {
	cfg        config.SyncConfig
	endpoints  transport.Endpoints
	api        API
	store      *store.Store
	sched      *poller.Scheduler
	dispatcher *dispatcher.Dispatcher
	jobs       map[model.Resource]poller.Job

	mu     sync.Mutex
	ctx    context.Context
	mounts map[config.View]*poller.Mount
	ws     *wsRun

	logger logger.Logger
}

type wsRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New resolves the backend for cfg.PageURL and builds a client for it.
func New(cfg config.SyncConfig, logger logger.Logger) (*Session, *api.Client, error) {
	endpoints, err := cfg.Transport.Resolver().Resolve(cfg.PageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't resolve backend", err)
	}
	logger.Infof("page %s resolved by rule %q: api %s, websocket %q (allowed %t)",
		cfg.PageURL, endpoints.Rule, endpoints.APIBase, endpoints.WSURL, endpoints.WSAllowed)

	client := api.NewClient(endpoints.APIBase, api.Options{
		RequestTimeout:     cfg.Timeouts.Request,
		MoversTimeout:      cfg.Timeouts.Movers,
		PerformanceTimeout: cfg.Timeouts.PerformanceTest,
		RequestsPerMinute:  cfg.RateLimit.RequestsPerMinute,
	}, logger)

	return NewWithAPI(cfg, endpoints, client, logger), client, nil
}

func NewWithAPI(cfg config.SyncConfig, endpoints transport.Endpoints, a API, logger logger.Logger) *Session {
	st := store.New(store.Options{ExecutionFeedCap: cfg.Store.ExecutionFeedCap})
	st.SetStreamState(stream.Disconnected.String())

	s := &Session{
		cfg:       cfg,
		endpoints: endpoints,
		api:       a,
		store:     st,
		sched:     poller.NewScheduler(cfg.Timeouts.Request, logger),
		jobs:      buildJobs(a, st, cfg.Intervals, cfg.Timeouts),
		mounts:    make(map[config.View]*poller.Mount),
		logger:    logger,
	}
	s.dispatcher = dispatcher.New(a, st, s, dispatcher.Options{
		ClientOrderIDPrefix: cfg.Dispatcher.ClientOrderIDPrefix,
		OpenOrdersRefetch:   cfg.Dispatcher.OpenOrdersRefetch,
		ExecutionsRefetch:   cfg.Dispatcher.ExecutionsRefetch,
	}, logger)
	return s
}

func (s *Session) Store() *store.Store {
	return s.store
}

func (s *Session) Dispatcher() *dispatcher.Dispatcher {
	return s.dispatcher
}

func (s *Session) Endpoints() transport.Endpoints {
	return s.endpoints
}

// Run mounts the configured views and keeps them until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	for _, v := range s.cfg.Views {
		if err := s.Mount(v); err != nil {
			return err
		}
	}

	<-ctx.Done()

	for _, v := range s.Views() {
		if err := s.Unmount(v); err != nil {
			s.logger.Errorf("%s: can't unmount %s", err, v)
		}
	}
	s.logger.Infof("session stopped")
	return nil
}

// Views returns the mounted views in a stable order.
func (s *Session) Views() []config.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]config.View, 0, len(s.mounts))
	for _, v := range config.AllViews {
		if _, ok := s.mounts[v]; ok {
			views = append(views, v)
		}
	}
	return views
}

// Mount starts the poll loops of view. Mounting a mounted view is a no-op.
func (s *Session) Mount(view config.View) error {
	resources, ok := viewResources[view]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return ErrNotRunning
	}
	if _, mounted := s.mounts[view]; mounted {
		return nil
	}

	jobs := make([]poller.Job, 0, len(resources))
	for _, r := range resources {
		jobs = append(jobs, s.jobs[r])
	}
	s.mounts[view] = s.sched.Mount(s.ctx, string(view), jobs...)

	if view == config.ViewTrading {
		s.startStream()
	}
	s.logger.Infof("mounted view %s", view)
	return nil
}

func (s *Session) Unmount(view config.View) error {
	if _, ok := viewResources[view]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	s.mu.Lock()
	m, mounted := s.mounts[view]
	delete(s.mounts, view)
	var ws *wsRun
	if view == config.ViewTrading {
		ws, s.ws = s.ws, nil
	}
	s.mu.Unlock()

	if !mounted {
		return nil
	}
	m.Unmount()
	if ws != nil {
		ws.cancel()
		<-ws.done
	}
	s.logger.Infof("unmounted view %s", view)
	return nil
}

// startStream runs a fresh supervisor for the trading view. Caller holds s.mu.
func (s *Session) startStream() {
	ctx, cancel := context.WithCancel(s.ctx)
	run := &wsRun{cancel: cancel, done: make(chan struct{})}
	s.ws = run

	rc := s.cfg.Stream.Reconnect
	sup := stream.NewSupervisor(s.endpoints.WSURL, s.endpoints.WSAllowed, s, stream.ReconnectPolicy{
		Enabled:     rc.Enabled == nil || *rc.Enabled,
		Min:         rc.Min,
		Max:         rc.Max,
		Factor:      rc.Factor,
		Jitter:      rc.Jitter == nil || *rc.Jitter,
		MaxAttempts: rc.MaxAttempts,
	}, stream.ChannelOptions{
		ThrottleWindow:   s.cfg.Stream.ThrottleWindow,
		HandshakeTimeout: s.cfg.Stream.HandshakeTimeout,
		OnState: func(st stream.State) {
			s.store.SetStreamState(st.String())
		},
	}, s.logger.With("component", "stream"))

	go func() {
		defer close(run.done)
		_ = sup.Run(ctx)
	}()
}

func (s *Session) owner(r model.Resource) *poller.Mount {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range config.AllViews {
		if m, ok := s.mounts[v]; ok && m.Owns(r) {
			return m
		}
	}
	return nil
}

// Refresh fetches r now through the mount that owns it, or once directly
// when no mounted view does.
func (s *Session) Refresh(r model.Resource) {
	s.RefreshAfter(r, 0)
}

func (s *Session) RefreshAfter(r model.Resource, d time.Duration) {
	if m := s.owner(r); m != nil && m.TriggerAfter(r, d) {
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	job, ok := s.jobs[r]
	if ctx == nil || !ok {
		return
	}

	go func() {
		if d > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
		}
		if err := s.sched.RunOnce(ctx, job); err != nil && ctx.Err() == nil {
			s.logger.Warnf("%s: can't refresh %s", err, r)
		}
	}()
}

func (s *Session) ReplaceOpenOrders(orders []model.OpenOrder) {
	s.sched.Do(func() { s.store.ReplaceOpenOrders(orders) })
}

func (s *Session) OrderUpdate(u stream.OrderUpdate) {
	s.Refresh(model.ResourceOpenOrders)
}

// PositionUpdate applies a full positions list when the frame carries one.
// Frames without it only mark the push path as alive.
func (s *Session) PositionUpdate(m stream.Message) {
	if m.Positions == nil {
		return
	}
	positions := slices.Clone(m.Positions)
	s.sched.Do(func() { s.store.ReplacePositions(positions) })
}
