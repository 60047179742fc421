package config

import (
	"fmt"

	"github.com/widesurf/hft-sync/internal/transport"
)

type RuleConfig struct {
	Name         string `yaml:"name"`
	HostEquals   string `yaml:"host_equals"`
	HostContains string `yaml:"host_contains"`
	BaseURL      string `yaml:"base_url"`
}

type TransportConfig struct {
	Rules    []RuleConfig `yaml:"rules"`
	Fallback string       `yaml:"fallback"`
}

func (c *TransportConfig) Setup() error {
	if len(c.Rules) == 0 {
		c.Rules = []RuleConfig{
			{Name: "production", HostEquals: transport.ProductionHost, BaseURL: transport.ProductionAPIBase},
			{Name: "development", HostContains: transport.DevelopmentHost, BaseURL: transport.DevelopmentAPI},
		}
	}
	for i, r := range c.Rules {
		if r.BaseURL == "" {
			return fmt.Errorf("rule %d: base_url is required", i)
		}
		if (r.HostEquals == "") == (r.HostContains == "") {
			return fmt.Errorf("rule %d: exactly one of host_equals, host_contains is required", i)
		}
		if r.Name == "" {
			c.Rules[i].Name = fmt.Sprintf("rule-%d", i)
		}
	}
	if c.Fallback == "" {
		c.Fallback = transport.SameOriginAPIBase
	}
	return nil
}

func (c TransportConfig) Resolver() *transport.Resolver {
	rules := make([]transport.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rule := transport.Rule{Name: r.Name, BaseURL: r.BaseURL}
		if r.HostEquals != "" {
			rule.Match = transport.HostEquals(r.HostEquals)
		} else {
			rule.Match = transport.HostContains(r.HostContains)
		}
		rules = append(rules, rule)
	}
	return transport.NewResolver(rules, c.Fallback)
}
