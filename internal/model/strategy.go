package model

type StrategyConfig struct {
	BuyThreshold     float64 `json:"buy_threshold"`
	SellThreshold    float64 `json:"sell_threshold"`
	InvestmentAmount float64 `json:"investment_amount"`
	CheckInterval    float64 `json:"check_interval"`
	MaxPositions     int     `json:"max_positions"`
}

// StrategyStatus is the movers strategy as reported by the backend.
type StrategyStatus struct {
	Running         bool           `json:"running"`
	Enabled         bool           `json:"enabled"`
	SelectedAPI     string         `json:"selected_api"`
	APIFailures     int            `json:"api_failures"`
	ActivePositions int            `json:"active_positions"`
	PurchasedToday  int            `json:"purchased_today"`
	Config          StrategyConfig `json:"config"`
	MarketHours     bool           `json:"market_hours"`
	BeforeCutoff    bool           `json:"before_cutoff"`
	NearClose       bool           `json:"near_close"`
	CurrentTime     string         `json:"current_time,omitempty"`
}

type StrategyPosition struct {
	Symbol        string  `json:"symbol"`
	PurchasePrice float64 `json:"purchase_price"`
	Quantity      float64 `json:"quantity"`
	PurchaseTime  Time    `json:"purchase_time"`
	OrderID       string  `json:"order_id"`
	IsActive      bool    `json:"is_active"`
}

type StrategyPerformance struct {
	TotalPositions int    `json:"total_positions"`
	PurchasedToday int    `json:"purchased_today"`
	APIFailures    int    `json:"api_failures"`
	SelectedAPI    string `json:"selected_api"`
}
