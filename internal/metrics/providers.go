package metrics

import (
	"github.com/shopspring/decimal"
	"github.com/widesurf/hft-sync/internal/model"
)

// ProviderComparison sets the two market data providers side by side.
// Diffs are alpaca minus polygon.
type ProviderComparison struct {
	Faster             model.Provider  `json:"faster"`
	AvgTimeDiffMs      decimal.Decimal `json:"avg_time_diff_ms"`
	P99TimeDiffMs      decimal.Decimal `json:"p99_time_diff_ms"`
	ThroughputDiffMbps decimal.Decimal `json:"throughput_diff_mbps"`
	SuccessRateDiff    decimal.Decimal `json:"success_rate_diff"`
	SpeedupPercent     decimal.Decimal `json:"speedup_percent"`
}

// CompareProviders needs results for both providers.
func CompareProviders(perf map[model.Provider]model.PerformanceMetrics) (ProviderComparison, bool) {
	a, okA := perf[model.Alpaca]
	p, okP := perf[model.Polygon]
	if !okA || !okP {
		return ProviderComparison{}, false
	}

	aAvg := decimal.NewFromFloat(a.AvgTimeMs)
	pAvg := decimal.NewFromFloat(p.AvgTimeMs)

	c := ProviderComparison{
		Faster:             model.Alpaca,
		AvgTimeDiffMs:      aAvg.Sub(pAvg),
		P99TimeDiffMs:      decimal.NewFromFloat(a.P99TimeMs).Sub(decimal.NewFromFloat(p.P99TimeMs)),
		ThroughputDiffMbps: decimal.NewFromFloat(a.ThroughputMbps).Sub(decimal.NewFromFloat(p.ThroughputMbps)),
		SuccessRateDiff:    decimal.NewFromFloat(a.SuccessRate).Sub(decimal.NewFromFloat(p.SuccessRate)),
		SpeedupPercent:     decimal.Zero,
	}

	fast, slow := aAvg, pAvg
	if pAvg.LessThan(aAvg) {
		c.Faster = model.Polygon
		fast, slow = pAvg, aAvg
	}
	if slow.IsPositive() {
		c.SpeedupPercent = slow.Sub(fast).Div(slow).Mul(_hundred)
	}
	return c, true
}
