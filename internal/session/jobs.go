package session

import (
	"context"
	"errors"
	"time"

	"github.com/widesurf/hft-sync/internal/api"
	"github.com/widesurf/hft-sync/internal/config"
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/poller"
	"github.com/widesurf/hft-sync/internal/store"
)

// API is the backend surface a session polls and commands.
type API interface {
	GetPositions(ctx context.Context) ([]model.Position, error)
	GetOpenOrders(ctx context.Context) ([]model.OpenOrder, error)
	GetExecutions(ctx context.Context) ([]model.Execution, error)
	GetAccount(ctx context.Context) (model.Account, error)
	GetAnalytics(ctx context.Context) (model.Analytics, error)
	GetHealth(ctx context.Context) (model.HealthSnapshot, error)
	GetMovers(ctx context.Context) (model.Movers, error)
	GetStrategyStatus(ctx context.Context) (model.StrategyStatus, error)
	GetStrategyPositions(ctx context.Context) ([]model.StrategyPosition, error)
	GetStrategyPerformance(ctx context.Context) (model.StrategyPerformance, error)
	GetRiskAlerts(ctx context.Context) ([]model.RiskAlert, error)
	GetCircuitBreaker(ctx context.Context) (*model.CircuitBreakerEvent, error)

	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error)
	CancelOrder(ctx context.Context, id string) (model.CommandResponse, error)
	SetStrategyEnabled(ctx context.Context, enabled bool) (model.CommandResponse, error)
	GetPerformance(ctx context.Context, p model.Provider, iterations int) (model.PerformanceMetrics, error)
}

// viewResources lists what each view keeps in sync.
var viewResources = map[config.View][]model.Resource{
	config.ViewTrading:    {model.ResourceOpenOrders, model.ResourceAccount, model.ResourceExecutions},
	config.ViewPositions:  {model.ResourcePositions},
	config.ViewRisk:       {model.ResourcePositions, model.ResourceRiskAlerts, model.ResourceCircuitBreaker},
	config.ViewMonitoring: {model.ResourceHealth},
	config.ViewStrategy:   {model.ResourceStrategyStatus, model.ResourceStrategyPositions, model.ResourceStrategyPerformance},
	config.ViewMovers:     {model.ResourceMovers},
	config.ViewAnalytics:  {model.ResourceAnalytics},
	config.ViewExecutions: {model.ResourceExecutions},
}

func job[T any](r model.Resource, every time.Duration, fetch func(context.Context) (T, error), apply func(T)) poller.Job {
	return poller.Job{
		Resource: r,
		Interval: every,
		Fetch: func(ctx context.Context) (poller.Apply, error) {
			v, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			return func() { apply(v) }, nil
		},
	}
}

func buildJobs(a API, st *store.Store, iv config.IntervalsConfig, to config.TimeoutsConfig) map[model.Resource]poller.Job {
	jobs := map[model.Resource]poller.Job{
		model.ResourceOpenOrders:          job(model.ResourceOpenOrders, iv.OpenOrders, a.GetOpenOrders, st.ReplaceOpenOrders),
		model.ResourceAccount:             job(model.ResourceAccount, iv.Account, a.GetAccount, st.SetAccount),
		model.ResourceExecutions:          job(model.ResourceExecutions, iv.Executions, a.GetExecutions, st.ReplaceExecutions),
		model.ResourcePositions:           job(model.ResourcePositions, iv.Positions, a.GetPositions, st.ReplacePositions),
		model.ResourceRiskAlerts:          job(model.ResourceRiskAlerts, iv.Risk, a.GetRiskAlerts, st.SetRiskAlerts),
		model.ResourceCircuitBreaker:      job(model.ResourceCircuitBreaker, iv.Risk, a.GetCircuitBreaker, st.SetCircuitBreaker),
		model.ResourceHealth:              job(model.ResourceHealth, iv.Health, a.GetHealth, st.SetHealth),
		model.ResourceStrategyStatus:      job(model.ResourceStrategyStatus, iv.StrategyStatus, a.GetStrategyStatus, st.SetStrategyStatus),
		model.ResourceStrategyPositions:   job(model.ResourceStrategyPositions, iv.StrategyPositions, a.GetStrategyPositions, st.SetStrategyPositions),
		model.ResourceStrategyPerformance: job(model.ResourceStrategyPerformance, iv.StrategyPerformance, a.GetStrategyPerformance, st.SetStrategyPerformance),
		model.ResourceMovers:              job(model.ResourceMovers, iv.Movers, a.GetMovers, st.SetMovers),
		model.ResourceAnalytics:           job(model.ResourceAnalytics, iv.Analytics, a.GetAnalytics, st.SetAnalytics),
	}

	for r, j := range jobs {
		j.OnError = onError(st, r)
		jobs[r] = j
	}

	movers := jobs[model.ResourceMovers]
	movers.Timeout = to.Movers
	jobs[model.ResourceMovers] = movers

	return jobs
}

// onError decides what a failed tick does to the store. Most resources keep
// their last good data and only lose the connected flag.
func onError(st *store.Store, r model.Resource) func(error) poller.Apply {
	return func(err error) poller.Apply {
		switch {
		case r == model.ResourceHealth:
			return st.MarkHealthUnavailable
		case r == model.ResourceMovers:
			return st.ClearMovers
		case errors.Is(err, api.ErrNotFound) && (r == model.ResourceRiskAlerts || r == model.ResourceCircuitBreaker):
			// risk endpoints are optional on older backends
			return nil
		default:
			return func() { st.SetConnected(r, false) }
		}
	}
}
