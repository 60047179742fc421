package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	ProductionHost    = "hft.widesurf.com"
	ProductionAPIBase = "https://hftapi.widesurf.com/api"
	DevelopmentHost   = "178.128.15.57"
	DevelopmentAPI    = "http://178.128.15.57:8082/api"
	SameOriginAPIBase = "/api"

	_wsPath    = "/ws"
	_apiSuffix = "/api"
)

var ErrBadPageURL = errors.New("bad page url")

type Predicate func(host string) bool

func HostEquals(h string) Predicate {
	return func(host string) bool {
		return strings.EqualFold(host, h)
	}
}

func HostContains(s string) Predicate {
	return func(host string) bool {
		return strings.Contains(host, s)
	}
}

type Rule struct {
	Name    string
	Match   Predicate
	BaseURL string
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "production", Match: HostEquals(ProductionHost), BaseURL: ProductionAPIBase},
		{Name: "development", Match: HostContains(DevelopmentHost), BaseURL: DevelopmentAPI},
	}
}

// Endpoints is what the pollers and the push channel connect to.
type Endpoints struct {
	Page      *url.URL
	Rule      string
	APIBase   string
	WSURL     string
	WSAllowed bool
}

type Resolver struct {
	rules    []Rule
	fallback string
}

// NewResolver evaluates rules in order; the first match wins, fallback otherwise.
func NewResolver(rules []Rule, fallback string) *Resolver {
	if fallback == "" {
		fallback = SameOriginAPIBase
	}
	return &Resolver{rules: rules, fallback: fallback}
}

func (r *Resolver) Resolve(pageURL string) (Endpoints, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("%w: %w", ErrBadPageURL, err)
	}
	if page.Scheme != "http" && page.Scheme != "https" {
		return Endpoints{}, fmt.Errorf("%w: unsupported scheme %q", ErrBadPageURL, page.Scheme)
	}
	if page.Host == "" {
		return Endpoints{}, fmt.Errorf("%w: empty host", ErrBadPageURL)
	}

	e := Endpoints{Page: page, Rule: "fallback", APIBase: r.fallback}
	host := page.Hostname()
	for _, rule := range r.rules {
		if rule.Match != nil && rule.Match(host) {
			e.Rule = rule.Name
			e.APIBase = rule.BaseURL
			break
		}
	}

	api, err := url.Parse(e.APIBase)
	if err != nil {
		return Endpoints{}, fmt.Errorf("%w: can't parse api base %q", err, e.APIBase)
	}
	if !api.IsAbs() {
		api = page.ResolveReference(&url.URL{Path: api.Path})
	}
	e.APIBase = strings.TrimRight(api.String(), "/")

	// Browsers refuse ws:// from an https page, so the push path stays off.
	e.WSAllowed = !(page.Scheme == "https" && api.Scheme == "http")
	if e.WSAllowed {
		e.WSURL = WebSocketURL(e.APIBase)
	}
	return e, nil
}

// WebSocketURL strips the /api suffix, upgrades the scheme and appends /ws.
func WebSocketURL(apiBase string) string {
	base := strings.TrimSuffix(strings.TrimRight(apiBase, "/"), _apiSuffix)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + _wsPath
}
