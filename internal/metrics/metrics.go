package metrics

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/widesurf/hft-sync/internal/model"
)

var _hundred = decimal.NewFromInt(100)

// FillRate is filled/total in percent, 0 when there is nothing to fill.
func FillRate(filled, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(filled)).Mul(_hundred).Div(decimal.NewFromInt(int64(total)))
}

func UnrealizedPnL(p model.Position) decimal.Decimal {
	cur := decimal.NewFromFloat(p.CurrentPrice)
	avg := decimal.NewFromFloat(p.AvgEntryPrice)
	return cur.Sub(avg).Mul(decimal.NewFromFloat(p.Qty))
}

func PortfolioUnrealizedPnL(ps []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(UnrealizedPnL(p))
	}
	return total
}

// ReturnPercent is 0 for a position without an entry price.
func ReturnPercent(p model.Position) decimal.Decimal {
	if p.AvgEntryPrice == 0 {
		return decimal.Zero
	}
	cur := decimal.NewFromFloat(p.CurrentPrice)
	avg := decimal.NewFromFloat(p.AvgEntryPrice)
	return cur.Sub(avg).Div(avg).Mul(_hundred)
}

// BuySellRatio clamps the denominator to 1.
func BuySellRatio(buy, sell int) decimal.Decimal {
	return decimal.NewFromInt(int64(buy)).Div(decimal.NewFromInt(int64(max(sell, 1))))
}

func TotalMarketValue(ps []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(decimal.NewFromFloat(p.MarketValue))
	}
	return total
}

type ExecutionSummary struct {
	Total    int             `json:"total"`
	Filled   int             `json:"filled"`
	Rejected int             `json:"rejected"`
	Pending  int             `json:"pending"`
	Buys     int             `json:"buys"`
	Sells    int             `json:"sells"`
	Volume   decimal.Decimal `json:"volume"`
	FillRate decimal.Decimal `json:"fill_rate"`
}

func ExecutionStats(execs []model.Execution) ExecutionSummary {
	s := ExecutionSummary{Total: len(execs), Volume: decimal.Zero}
	for _, e := range execs {
		switch e.Status {
		case model.Filled:
			s.Filled++
			s.Volume = s.Volume.Add(decimal.NewFromFloat(e.Quantity).Mul(decimal.NewFromFloat(e.Price)))
		case model.Rejected:
			s.Rejected++
		case model.Pending:
			s.Pending++
		}
		switch e.Side {
		case model.Buy:
			s.Buys++
		case model.Sell:
			s.Sells++
		}
	}
	s.FillRate = FillRate(s.Filled, s.Total)
	return s
}

type StatusClass string

const (
	ClassSuccess StatusClass = "success"
	ClassWarning StatusClass = "warning"
	ClassDanger  StatusClass = "danger"
)

func ClassifyStatus(status string) StatusClass {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "healthy", "connected", "ok":
		return ClassSuccess
	case "degraded", "slow":
		return ClassWarning
	default:
		return ClassDanger
	}
}

// Format2 renders d with exactly two decimals.
func Format2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func decimalOf(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
