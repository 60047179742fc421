package store

import (
	"maps"
	"slices"
	"time"

	"github.com/widesurf/hft-sync/internal/model"
)

// Snapshot is a deep copy of the store at one version.
type Snapshot struct {
	Version             uint64                                      `json:"version"`
	OpenOrders          []model.OpenOrder                           `json:"open_orders"`
	Positions           []model.Position                            `json:"positions"`
	ExecutionFeed       []model.Execution                           `json:"execution_feed"`
	Executions          []model.Execution                           `json:"executions"`
	Account             *model.Account                              `json:"account,omitempty"`
	Health              *model.HealthSnapshot                       `json:"health,omitempty"`
	HealthAvailable     bool                                        `json:"health_available"`
	Analytics           *model.Analytics                            `json:"analytics,omitempty"`
	Movers              model.Movers                                `json:"movers"`
	Performance         map[model.Provider]model.PerformanceMetrics `json:"performance"`
	StrategyStatus      *model.StrategyStatus                       `json:"strategy_status,omitempty"`
	StrategyPositions   []model.StrategyPosition                    `json:"strategy_positions"`
	StrategyPerformance *model.StrategyPerformance                  `json:"strategy_performance,omitempty"`
	RiskAlerts          []model.RiskAlert                           `json:"risk_alerts"`
	CircuitBreaker      *model.CircuitBreakerEvent                  `json:"circuit_breaker,omitempty"`
	StreamState         string                                      `json:"stream_state"`
	Connected           map[model.Resource]bool                     `json:"connected"`
	UpdatedAt           map[model.Resource]time.Time                `json:"updated_at"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Version:             s.version,
		OpenOrders:          slices.Clone(s.openOrders),
		Positions:           slices.Clone(s.positions),
		ExecutionFeed:       slices.Clone(s.executionFeed),
		Executions:          slices.Clone(s.executions),
		Account:             clonePtr(s.account),
		Health:              clonePtr(s.health),
		HealthAvailable:     s.healthAvailable,
		Analytics:           clonePtr(s.analytics),
		Movers:              model.Movers{Gainers: slices.Clone(s.movers.Gainers), Losers: slices.Clone(s.movers.Losers)},
		Performance:         maps.Clone(s.performance),
		StrategyStatus:      clonePtr(s.strategyStatus),
		StrategyPositions:   slices.Clone(s.strategyPositions),
		StrategyPerformance: clonePtr(s.strategyPerformance),
		RiskAlerts:          slices.Clone(s.riskAlerts),
		CircuitBreaker:      clonePtr(s.circuitBreaker),
		StreamState:         s.streamState,
		Connected:           maps.Clone(s.connected),
		UpdatedAt:           maps.Clone(s.updatedAt),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
