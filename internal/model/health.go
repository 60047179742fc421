package model

type ServiceHealth struct {
	Status      string  `json:"status"`
	LatencyMs   float64 `json:"latency_ms,omitempty"`
	Error       string  `json:"error,omitempty"`
	Connections int     `json:"connections,omitempty"`
	HitRate     float64 `json:"hit_rate,omitempty"`
}

type Services struct {
	Engine   ServiceHealth `json:"engine"`
	Database ServiceHealth `json:"database"`
	Redis    ServiceHealth `json:"redis"`
}

type HealthSnapshot struct {
	Status           string   `json:"status"`
	Services         Services `json:"services"`
	Uptime           Text     `json:"uptime"`
	RequestsPerSec   float64  `json:"requests_per_sec"`
	ActiveWebsockets int      `json:"active_websockets"`
}
