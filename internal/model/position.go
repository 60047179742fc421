package model

import "github.com/bytedance/sonic"

// Position is keyed by symbol. Unrealized P&L and return are derived, never stored.
type Position struct {
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
}

func (p Position) Key() string {
	return p.Symbol
}

type positionWire struct {
	Symbol        string `json:"symbol"`
	Qty           *Float `json:"qty"`
	Quantity      *Float `json:"quantity"`
	AvgEntryPrice *Float `json:"avg_entry_price"`
	AvgPrice      *Float `json:"avg_price"`
	CurrentPrice  *Float `json:"current_price"`
	MarketValue   *Float `json:"market_value"`
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var w positionWire
	if err := sonic.Unmarshal(b, &w); err != nil {
		return err
	}

	*p = Position{
		Symbol:        w.Symbol,
		Qty:           firstFloat(w.Qty, w.Quantity),
		AvgEntryPrice: firstFloat(w.AvgEntryPrice, w.AvgPrice),
		CurrentPrice:  w.CurrentPrice.Value(),
		MarketValue:   w.MarketValue.Value(),
	}
	return nil
}

type Account struct {
	Cash             float64 `json:"cash"`
	Equity           float64 `json:"equity"`
	BuyingPower      float64 `json:"buying_power"`
	Status           string  `json:"status"`
	DaytradeCount    int     `json:"daytrade_count"`
	PatternDayTrader bool    `json:"pattern_day_trader"`
	AccountBlocked   bool    `json:"account_blocked"`
	TradingBlocked   bool    `json:"trading_blocked"`
}

type accountWire struct {
	Cash             *Float `json:"cash"`
	Equity           *Float `json:"equity"`
	PortfolioValue   *Float `json:"portfolio_value"`
	BuyingPower      *Float `json:"buying_power"`
	Status           string `json:"status"`
	DaytradeCount    *Float `json:"daytrade_count"`
	PatternDayTrader bool   `json:"pattern_day_trader"`
	AccountBlocked   bool   `json:"account_blocked"`
	TradingBlocked   bool   `json:"trading_blocked"`
}

func (a *Account) UnmarshalJSON(b []byte) error {
	var w accountWire
	if err := sonic.Unmarshal(b, &w); err != nil {
		return err
	}

	*a = Account{
		Cash:             w.Cash.Value(),
		Equity:           firstFloat(w.Equity, w.PortfolioValue),
		BuyingPower:      w.BuyingPower.Value(),
		Status:           w.Status,
		DaytradeCount:    int(w.DaytradeCount.Value()),
		PatternDayTrader: w.PatternDayTrader,
		AccountBlocked:   w.AccountBlocked,
		TradingBlocked:   w.TradingBlocked,
	}
	return nil
}
