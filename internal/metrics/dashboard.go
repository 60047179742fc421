package metrics

import (
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/store"
)

type PositionRow struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	MarketValue   string `json:"market_value"`
	UnrealizedPnL string `json:"unrealized_pnl"`
	ReturnPercent string `json:"return_percent"`
}

type ServiceRow struct {
	Name   string      `json:"name"`
	Status string      `json:"status"`
	Class  StatusClass `json:"class"`
}

type AnalyticsView struct {
	TotalOrders  int    `json:"total_orders"`
	FillRate     string `json:"fill_rate"`
	BuySellRatio string `json:"buy_sell_ratio"`
	AvgLatencyMs string `json:"avg_latency_ms"`
	P50LatencyMs string `json:"p50_latency_ms"`
	P99LatencyMs string `json:"p99_latency_ms"`
}

// Dashboard is the computed view of one store snapshot. Monetary and
// percentage values are preformatted with two decimals.
type Dashboard struct {
	Version          uint64              `json:"version"`
	StreamState      string              `json:"stream_state"`
	Positions        []PositionRow       `json:"positions"`
	UnrealizedPnL    string              `json:"unrealized_pnl"`
	TotalMarketValue string              `json:"total_market_value"`
	OpenOrders       int                 `json:"open_orders"`
	Executions       ExecutionSummary    `json:"executions"`
	Analytics        *AnalyticsView      `json:"analytics,omitempty"`
	HealthStatus     string              `json:"health_status"`
	HealthClass      StatusClass         `json:"health_class"`
	HealthAvailable  bool                `json:"health_available"`
	Services         []ServiceRow        `json:"services,omitempty"`
	Providers        *ProviderComparison `json:"providers,omitempty"`
	CircuitBreaker   bool                `json:"circuit_breaker"`
	RiskAlerts       int                 `json:"risk_alerts"`
}

func Summarize(s store.Snapshot) Dashboard {
	d := Dashboard{
		Version:          s.Version,
		StreamState:      s.StreamState,
		Positions:        make([]PositionRow, 0, len(s.Positions)),
		UnrealizedPnL:    Format2(PortfolioUnrealizedPnL(s.Positions)),
		TotalMarketValue: Format2(TotalMarketValue(s.Positions)),
		OpenOrders:       len(s.OpenOrders),
		Executions:       ExecutionStats(executionsOf(s)),
		HealthAvailable:  s.HealthAvailable,
		CircuitBreaker:   s.CircuitBreaker != nil,
		RiskAlerts:       len(s.RiskAlerts),
	}

	for _, p := range s.Positions {
		d.Positions = append(d.Positions, positionRow(p))
	}

	if a := s.Analytics; a != nil {
		d.Analytics = &AnalyticsView{
			TotalOrders:  a.TotalOrders,
			FillRate:     Format2(decimalOf(a.FillRate)),
			BuySellRatio: Format2(BuySellRatio(a.BuyOrders, a.SellOrders)),
			AvgLatencyMs: Format2(decimalOf(a.AvgLatencyMs)),
			P50LatencyMs: Format2(decimalOf(a.P50LatencyMs)),
			P99LatencyMs: Format2(decimalOf(a.P99LatencyMs)),
		}
	}

	d.HealthStatus = "unavailable"
	d.HealthClass = ClassDanger
	if h := s.Health; h != nil {
		if s.HealthAvailable {
			d.HealthStatus = h.Status
			d.HealthClass = ClassifyStatus(h.Status)
		}
		d.Services = []ServiceRow{
			serviceRow("engine", h.Services.Engine),
			serviceRow("database", h.Services.Database),
			serviceRow("redis", h.Services.Redis),
		}
	}

	if c, ok := CompareProviders(s.Performance); ok {
		d.Providers = &c
	}

	return d
}

// executionsOf prefers the server's execution list and falls back to the
// locally synthesized feed before the first fetch lands.
func executionsOf(s store.Snapshot) []model.Execution {
	if len(s.Executions) > 0 {
		return s.Executions
	}
	return s.ExecutionFeed
}

func positionRow(p model.Position) PositionRow {
	return PositionRow{
		Symbol:        p.Symbol,
		Qty:           Format2(decimalOf(p.Qty)),
		AvgEntryPrice: Format2(decimalOf(p.AvgEntryPrice)),
		CurrentPrice:  Format2(decimalOf(p.CurrentPrice)),
		MarketValue:   Format2(decimalOf(p.MarketValue)),
		UnrealizedPnL: Format2(UnrealizedPnL(p)),
		ReturnPercent: Format2(ReturnPercent(p)),
	}
}

func serviceRow(name string, h model.ServiceHealth) ServiceRow {
	return ServiceRow{Name: name, Status: h.Status, Class: ClassifyStatus(h.Status)}
}
