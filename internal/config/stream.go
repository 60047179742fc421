package config

import "time"

type ReconnectConfig struct {
	Enabled     *bool         `yaml:"enabled"`
	Min         time.Duration `yaml:"min"`
	Max         time.Duration `yaml:"max"`
	Factor      float64       `yaml:"factor"`
	Jitter      *bool         `yaml:"jitter"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 means unlimited
}

type StreamConfig struct {
	ThrottleWindow   time.Duration   `yaml:"throttle_window"`
	HandshakeTimeout time.Duration   `yaml:"handshake_timeout"`
	Reconnect        ReconnectConfig `yaml:"reconnect"`
}

const (
	_throttleWindowDefault   = 15 * time.Second
	_handshakeTimeoutDefault = 10 * time.Second
	_reconnectMinDefault     = 1 * time.Second
	_reconnectMaxDefault     = 30 * time.Second
	_reconnectFactorDefault  = 2
)

func (c *StreamConfig) Setup() {
	orDefault(&c.ThrottleWindow, _throttleWindowDefault)
	orDefault(&c.HandshakeTimeout, _handshakeTimeoutDefault)

	r := &c.Reconnect
	if r.Enabled == nil {
		r.Enabled = boolPtr(true)
	}
	if r.Jitter == nil {
		r.Jitter = boolPtr(true)
	}
	orDefault(&r.Min, _reconnectMinDefault)
	orDefault(&r.Max, _reconnectMaxDefault)
	if r.Max < r.Min {
		r.Max = r.Min
	}
	if r.Factor <= 1 {
		r.Factor = _reconnectFactorDefault
	}
	if r.MaxAttempts < 0 {
		r.MaxAttempts = 0
	}
}

type DispatcherConfig struct {
	ClientOrderIDPrefix string          `yaml:"client_order_id_prefix"`
	OpenOrdersRefetch   []time.Duration `yaml:"open_orders_refetch"`
	ExecutionsRefetch   []time.Duration `yaml:"executions_refetch"`
}

const _clientOrderIDPrefixDefault = "web"

func (c *DispatcherConfig) Setup() {
	if c.ClientOrderIDPrefix == "" {
		c.ClientOrderIDPrefix = _clientOrderIDPrefixDefault
	}
	if len(c.OpenOrdersRefetch) == 0 {
		c.OpenOrdersRefetch = []time.Duration{500 * time.Millisecond, 2 * time.Second}
	}
	if len(c.ExecutionsRefetch) == 0 {
		c.ExecutionsRefetch = []time.Duration{1 * time.Second}
	}
}

type StoreConfig struct {
	ExecutionFeedCap int `yaml:"execution_feed_cap"`
}

const _executionFeedCapDefault = 100

func (c *StoreConfig) Setup() {
	if c.ExecutionFeedCap <= 0 {
		c.ExecutionFeedCap = _executionFeedCapDefault
	}
}

type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

const _journalFlushIntervalDefault = 1 * time.Minute

func (c *JournalConfig) Setup() {
	orDefault(&c.FlushInterval, _journalFlushIntervalDefault)
}

func boolPtr(b bool) *bool {
	return &b
}
