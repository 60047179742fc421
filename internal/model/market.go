package model

type Mover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	Volume        float64 `json:"volume,omitempty"`
}

type Movers struct {
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}

type Provider string

const (
	Alpaca  Provider = "alpaca"
	Polygon Provider = "polygon"
)

func (p Provider) Valid() bool {
	return p == Alpaca || p == Polygon
}

// PerformanceMetrics is the result of a backend latency test against a
// market data provider. Percentiles are computed by the backend.
type PerformanceMetrics struct {
	APIProvider    string  `json:"api_provider"`
	Iterations     int     `json:"iterations"`
	TotalTimeMs    float64 `json:"total_time_ms"`
	AvgTimeMs      float64 `json:"avg_time_ms"`
	MinTimeMs      float64 `json:"min_time_ms"`
	MaxTimeMs      float64 `json:"max_time_ms"`
	P50TimeMs      float64 `json:"p50_time_ms"`
	P95TimeMs      float64 `json:"p95_time_ms"`
	P99TimeMs      float64 `json:"p99_time_ms"`
	SuccessCount   int     `json:"success_count"`
	ErrorCount     int     `json:"error_count"`
	SuccessRate    float64 `json:"success_rate"`
	DataSizeBytes  int64   `json:"data_size_bytes"`
	ThroughputMbps float64 `json:"throughput_mbps"`
}

// Analytics is the backend's aggregate order statistics.
type Analytics struct {
	TotalOrders  int     `json:"total_orders"`
	FillRate     float64 `json:"fillRate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	BuyOrders    int     `json:"buy_orders"`
	SellOrders   int     `json:"sell_orders"`
	TotalVolume  float64 `json:"total_volume"`
}
