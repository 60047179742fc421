package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRules(t *testing.T) {
	r := NewResolver(DefaultRules(), "")

	tests := []struct {
		name      string
		page      string
		rule      string
		api       string
		ws        string
		wsAllowed bool
	}{
		{
			name:      "production",
			page:      "https://hft.widesurf.com/trading",
			rule:      "production",
			api:       "https://hftapi.widesurf.com/api",
			ws:        "wss://hftapi.widesurf.com/ws",
			wsAllowed: true,
		},
		{
			name:      "development over http",
			page:      "http://178.128.15.57:3000/trading",
			rule:      "development",
			api:       "http://178.128.15.57:8082/api",
			ws:        "ws://178.128.15.57:8082/ws",
			wsAllowed: true,
		},
		{
			name:      "development over https is gated",
			page:      "https://178.128.15.57/trading",
			rule:      "development",
			api:       "http://178.128.15.57:8082/api",
			wsAllowed: false,
		},
		{
			name:      "same origin",
			page:      "https://dashboard.example.com/positions",
			rule:      "fallback",
			api:       "https://dashboard.example.com/api",
			ws:        "wss://dashboard.example.com/ws",
			wsAllowed: true,
		},
		{
			name:      "same origin over http",
			page:      "http://localhost:3000/",
			rule:      "fallback",
			api:       "http://localhost:3000/api",
			ws:        "ws://localhost:3000/ws",
			wsAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.Resolve(tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, e.Rule)
			assert.Equal(t, tt.api, e.APIBase)
			assert.Equal(t, tt.wsAllowed, e.WSAllowed)
			assert.Equal(t, tt.ws, e.WSURL)
		})
	}
}

func TestResolveFirstRuleWins(t *testing.T) {
	r := NewResolver([]Rule{
		{Name: "first", Match: HostContains("example"), BaseURL: "https://one.example.com/api"},
		{Name: "second", Match: HostEquals("a.example.com"), BaseURL: "https://two.example.com/api"},
	}, "")

	e, err := r.Resolve("https://a.example.com")
	require.NoError(t, err)
	assert.Equal(t, "first", e.Rule)
	assert.Equal(t, "https://one.example.com/api", e.APIBase)
}

func TestResolveHostEqualsIgnoresPort(t *testing.T) {
	r := NewResolver(DefaultRules(), "")
	e, err := r.Resolve("https://HFT.widesurf.com:443/")
	require.NoError(t, err)
	assert.Equal(t, "production", e.Rule)
}

func TestResolveBadPage(t *testing.T) {
	r := NewResolver(nil, "")
	for _, page := range []string{"", "ftp://x", "https://", "::bad"} {
		_, err := r.Resolve(page)
		assert.ErrorIs(t, err, ErrBadPageURL, page)
	}
}

func TestWebSocketURL(t *testing.T) {
	assert.Equal(t, "wss://h.example.com/ws", WebSocketURL("https://h.example.com/api"))
	assert.Equal(t, "ws://h:8082/ws", WebSocketURL("http://h:8082/api/"))
	assert.Equal(t, "ws://h:8082/v1/ws", WebSocketURL("http://h:8082/v1"))
}
