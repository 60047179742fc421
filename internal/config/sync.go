package config

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	_pageURLDefault    = "http://localhost:3000"
	_logLevelDefault   = "info"
	_listenPortDefault = "8090"

	EnvPageURL    = "HFT_PAGE_URL"
	EnvLogLevel   = "HFT_LOG_LEVEL"
	EnvListenPort = "HFT_LISTEN_PORT"
)

type View string

const (
	ViewTrading    View = "trading"
	ViewPositions  View = "positions"
	ViewRisk       View = "risk"
	ViewMonitoring View = "monitoring"
	ViewStrategy   View = "strategy"
	ViewMovers     View = "movers"
	ViewAnalytics  View = "analytics"
	ViewExecutions View = "executions"
)

var AllViews = []View{
	ViewTrading, ViewPositions, ViewRisk, ViewMonitoring,
	ViewStrategy, ViewMovers, ViewAnalytics, ViewExecutions,
}

func (v View) Valid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

type SyncConfig struct {
	// PageURL is the dashboard origin the session pretends to be served from.
	PageURL    string           `yaml:"page_url"`
	LogLevel   string           `yaml:"log_level"`
	ListenPort string           `yaml:"listen_port"`
	Views      []View           `yaml:"views"`
	Transport  TransportConfig  `yaml:"transport"`
	Intervals  IntervalsConfig  `yaml:"intervals"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Stream     StreamConfig     `yaml:"stream"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Store      StoreConfig      `yaml:"store"`
	Journal    JournalConfig    `yaml:"journal"`
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *SyncConfig) ApplyEnv() {
	c.PageURL = cmp.Or(os.Getenv(EnvPageURL), c.PageURL)
	c.LogLevel = cmp.Or(os.Getenv(EnvLogLevel), c.LogLevel)
	c.ListenPort = cmp.Or(os.Getenv(EnvListenPort), c.ListenPort)
}

func (c *SyncConfig) ValidateAndSetup() error {
	c.PageURL = cmp.Or(c.PageURL, _pageURLDefault)
	if _, err := url.Parse(c.PageURL); err != nil {
		return fmt.Errorf("%w: can't parse page url", err)
	}
	c.LogLevel = cmp.Or(c.LogLevel, _logLevelDefault)
	c.ListenPort = cmp.Or(c.ListenPort, _listenPortDefault)
	if _, err := strconv.Atoi(c.ListenPort); err != nil {
		return fmt.Errorf("%w: bad listen port %q", err, c.ListenPort)
	}

	if len(c.Views) == 0 {
		c.Views = []View{ViewTrading, ViewMonitoring}
	}
	for _, v := range c.Views {
		if !v.Valid() {
			return fmt.Errorf("unknown view %q", v)
		}
	}

	if err := c.Transport.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup transport", err)
	}
	c.Intervals.Setup()
	c.Timeouts.Setup()
	c.Stream.Setup()
	c.Dispatcher.Setup()
	c.RateLimit.Setup()
	c.Store.Setup()
	c.Journal.Setup()

	return nil
}

// Default returns a config with every default applied.
func Default() SyncConfig {
	var cfg SyncConfig
	if err := cfg.ValidateAndSetup(); err != nil {
		panic(err)
	}
	return cfg
}

func LoadSyncConfig(filename string) (SyncConfig, error) {
	var cfg SyncConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	cfg.ApplyEnv()

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
