package model

type RiskAlert struct {
	ID        int64  `json:"id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt Time   `json:"created_at"`
}

type CircuitBreakerEvent struct {
	ID           int64   `json:"id"`
	TriggerType  string  `json:"trigger_type"`
	TriggerValue float64 `json:"trigger_value"`
	Threshold    float64 `json:"threshold"`
	Active       bool    `json:"active"`
	CreatedAt    Time    `json:"created_at"`
}
