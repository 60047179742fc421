package store

import (
	"slices"
	"sync"
	"time"

	"github.com/widesurf/hft-sync/internal/model"
)

const _executionFeedCapDefault = 100

type Options struct {
	ExecutionFeedCap int
	Now              func() time.Time
}

// Store holds the last known good state of every synced resource.
// Poll results and push messages replace whole collections; the only
// incremental mutations are the capped execution feed and optimistic
// order removal. Safe for concurrent use.
type Store struct {
	feedCap int
	now     func() time.Time

	mu sync.RWMutex

	version uint64
	subs    map[int]chan struct{}
	nextSub int

	openOrders          []model.OpenOrder
	positions           []model.Position
	executionFeed       []model.Execution
	executions          []model.Execution
	account             *model.Account
	health              *model.HealthSnapshot
	healthAvailable     bool
	analytics           *model.Analytics
	movers              model.Movers
	performance         map[model.Provider]model.PerformanceMetrics
	strategyStatus      *model.StrategyStatus
	strategyPositions   []model.StrategyPosition
	strategyPerformance *model.StrategyPerformance
	riskAlerts          []model.RiskAlert
	circuitBreaker      *model.CircuitBreakerEvent
	streamState         string
	connected           map[model.Resource]bool
	updatedAt           map[model.Resource]time.Time
}

func New(opts Options) *Store {
	if opts.ExecutionFeedCap <= 0 {
		opts.ExecutionFeedCap = _executionFeedCapDefault
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		feedCap:     opts.ExecutionFeedCap,
		now:         opts.Now,
		subs:        make(map[int]chan struct{}),
		performance: make(map[model.Provider]model.PerformanceMetrics),
		connected:   make(map[model.Resource]bool),
		updatedAt:   make(map[model.Resource]time.Time),
	}
}

// Subscribe returns a channel that receives a value after each change.
// Notifications coalesce: a slow reader sees one pending signal, not a backlog.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// changed must be called with mu held for writing.
func (s *Store) changed(r model.Resource) {
	s.version++
	s.connected[r] = true
	s.updatedAt[r] = s.now()
	s.notify()
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) ReplaceOpenOrders(orders []model.OpenOrder) {
	deduped := dedupe(orders, model.OpenOrder.Key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.openOrders = deduped
	s.changed(model.ResourceOpenOrders)
}

// RemoveOpenOrder drops the order locally ahead of server confirmation.
// The next authoritative ReplaceOpenOrders restores it if it is still open.
func (s *Store) RemoveOpenOrder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.openOrders, func(o model.OpenOrder) bool { return o.ID == id })
	if idx < 0 {
		return false
	}
	s.openOrders = slices.Delete(slices.Clone(s.openOrders), idx, idx+1)
	s.changed(model.ResourceOpenOrders)
	return true
}

func (s *Store) OpenOrders() []model.OpenOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.openOrders)
}

func (s *Store) ReplacePositions(positions []model.Position) {
	deduped := dedupe(positions, model.Position.Key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = deduped
	s.changed(model.ResourcePositions)
}

func (s *Store) Positions() []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.positions)
}

// PrependExecution adds e to the live feed, newest first, capped.
func (s *Store) PrependExecution(e model.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := make([]model.Execution, 0, min(len(s.executionFeed)+1, s.feedCap))
	feed = append(feed, e)
	for _, old := range s.executionFeed {
		if len(feed) == s.feedCap {
			break
		}
		feed = append(feed, old)
	}
	s.executionFeed = feed
	s.changed(model.ResourceExecutions)
}

func (s *Store) ExecutionFeed() []model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.executionFeed)
}

// ReplaceExecutions sets the server-backed execution history. It is not capped.
func (s *Store) ReplaceExecutions(executions []model.Execution) {
	cp := slices.Clone(executions)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = cp
	s.changed(model.ResourceExecutions)
}

func (s *Store) Executions() []model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.executions)
}

func (s *Store) SetAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = &a
	s.changed(model.ResourceAccount)
}

func (s *Store) Account() (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return model.Account{}, false
	}
	return *s.account, true
}

func (s *Store) SetHealth(h model.HealthSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = &h
	s.healthAvailable = true
	s.changed(model.ResourceHealth)
}

// MarkHealthUnavailable keeps the previous snapshot but flags it stale.
func (s *Store) MarkHealthUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthAvailable = false
	s.version++
	s.connected[model.ResourceHealth] = false
	s.notify()
}

func (s *Store) Health() (model.HealthSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.health == nil {
		return model.HealthSnapshot{}, false
	}
	return *s.health, s.healthAvailable
}

func (s *Store) SetAnalytics(a model.Analytics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = &a
	s.changed(model.ResourceAnalytics)
}

func (s *Store) SetMovers(m model.Movers) {
	m = model.Movers{Gainers: slices.Clone(m.Gainers), Losers: slices.Clone(m.Losers)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.movers = m
	s.changed(model.ResourceMovers)
}

// ClearMovers empties the movers board. A failed movers fetch shows
// "no data" rather than a stale board.
func (s *Store) ClearMovers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movers = model.Movers{}
	s.version++
	s.connected[model.ResourceMovers] = false
	s.notify()
}

func (s *Store) SetPerformance(p model.Provider, m model.PerformanceMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performance[p] = m
	s.version++
	s.notify()
}

func (s *Store) SetStrategyStatus(st model.StrategyStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategyStatus = &st
	s.changed(model.ResourceStrategyStatus)
}

func (s *Store) SetStrategyPositions(ps []model.StrategyPosition) {
	cp := slices.Clone(ps)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategyPositions = cp
	s.changed(model.ResourceStrategyPositions)
}

func (s *Store) SetStrategyPerformance(p model.StrategyPerformance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategyPerformance = &p
	s.changed(model.ResourceStrategyPerformance)
}

func (s *Store) SetRiskAlerts(alerts []model.RiskAlert) {
	cp := slices.Clone(alerts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskAlerts = cp
	s.changed(model.ResourceRiskAlerts)
}

// SetCircuitBreaker records the breaker; nil or an inactive event clears it.
func (s *Store) SetCircuitBreaker(e *model.CircuitBreakerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil || !e.Active {
		s.circuitBreaker = nil
	} else {
		cp := *e
		s.circuitBreaker = &cp
	}
	s.changed(model.ResourceCircuitBreaker)
}

func (s *Store) SetStreamState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamState == state {
		return
	}
	s.streamState = state
	s.version++
	s.notify()
}

// SetConnected records the outcome of the last fetch of r without touching its data.
func (s *Store) SetConnected(r model.Resource, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, seen := s.connected[r]; seen && prev == ok {
		return
	}
	s.connected[r] = ok
	s.version++
	s.notify()
}

func (s *Store) notify() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// dedupe drops records without a key and collapses duplicates: the first
// occurrence keeps its position, the last occurrence supplies the value.
func dedupe[T any](items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
