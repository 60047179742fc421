package config

import "time"

// IntervalsConfig holds the poll period per resource. Analytics and
// executions are fetched once per mount unless a positive period is set.
type IntervalsConfig struct {
	Health              time.Duration `yaml:"health"`
	StrategyStatus      time.Duration `yaml:"strategy_status"`
	StrategyPositions   time.Duration `yaml:"strategy_positions"`
	StrategyPerformance time.Duration `yaml:"strategy_performance"`
	OpenOrders          time.Duration `yaml:"open_orders"`
	Account             time.Duration `yaml:"account"`
	Movers              time.Duration `yaml:"movers"`
	Positions           time.Duration `yaml:"positions"`
	Risk                time.Duration `yaml:"risk"`
	Analytics           time.Duration `yaml:"analytics"`
	Executions          time.Duration `yaml:"executions"`
}

const (
	_healthIntervalDefault              = 5 * time.Second
	_strategyStatusIntervalDefault      = 3 * time.Second
	_strategyPositionsIntervalDefault   = 5 * time.Second
	_strategyPerformanceIntervalDefault = 10 * time.Second
	_openOrdersIntervalDefault          = 15 * time.Second
	_accountIntervalDefault             = 30 * time.Second
	_moversIntervalDefault              = 30 * time.Second
	_positionsIntervalDefault           = 60 * time.Second // matches the backend cache
	_riskIntervalDefault                = 60 * time.Second
)

func (c *IntervalsConfig) Setup() {
	orDefault(&c.Health, _healthIntervalDefault)
	orDefault(&c.StrategyStatus, _strategyStatusIntervalDefault)
	orDefault(&c.StrategyPositions, _strategyPositionsIntervalDefault)
	orDefault(&c.StrategyPerformance, _strategyPerformanceIntervalDefault)
	orDefault(&c.OpenOrders, _openOrdersIntervalDefault)
	orDefault(&c.Account, _accountIntervalDefault)
	orDefault(&c.Movers, _moversIntervalDefault)
	orDefault(&c.Positions, _positionsIntervalDefault)
	orDefault(&c.Risk, _riskIntervalDefault)
	if c.Analytics < 0 {
		c.Analytics = 0
	}
	if c.Executions < 0 {
		c.Executions = 0
	}
}

type TimeoutsConfig struct {
	Request         time.Duration `yaml:"request"`
	Movers          time.Duration `yaml:"movers"`
	PerformanceTest time.Duration `yaml:"performance_test"`
}

const (
	_requestTimeoutDefault         = 10 * time.Second
	_moversTimeoutDefault          = 10 * time.Second
	_performanceTestTimeoutDefault = 2 * time.Minute
)

func (c *TimeoutsConfig) Setup() {
	orDefault(&c.Request, _requestTimeoutDefault)
	orDefault(&c.Movers, _moversTimeoutDefault)
	orDefault(&c.PerformanceTest, _performanceTestTimeoutDefault)
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

const _requestsPerMinuteDefault = 200

func (c *RateLimitConfig) Setup() {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = _requestsPerMinuteDefault
	}
}

func orDefault(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
