package model

// Resource names one backend collection the session keeps in sync.
type Resource string

const (
	ResourceOpenOrders          Resource = "open_orders"
	ResourcePositions           Resource = "positions"
	ResourceExecutions          Resource = "executions"
	ResourceAccount             Resource = "account"
	ResourceHealth              Resource = "health"
	ResourceAnalytics           Resource = "analytics"
	ResourceMovers              Resource = "movers"
	ResourceStrategyStatus      Resource = "strategy_status"
	ResourceStrategyPositions   Resource = "strategy_positions"
	ResourceStrategyPerformance Resource = "strategy_performance"
	ResourceRiskAlerts          Resource = "risk_alerts"
	ResourceCircuitBreaker      Resource = "circuit_breaker"
	ResourceStream              Resource = "stream"
)
