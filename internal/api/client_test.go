package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/api", Options{
		RequestTimeout:    2 * time.Second,
		RequestsPerMinute: 60000,
	}, logger.NewNopLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClientGetPositions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/positions", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, http.StatusOK, `{"positions":[{"symbol":"AAPL","qty":"10"}]}`)
	}))

	ps, err := c.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "AAPL", ps[0].Symbol)
}

func TestClientNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.GetRiskAlerts(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientNotFoundKeepsBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"order not found"}`)
	}))

	_, err := c.CancelOrder(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotFound)
	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, "order not found", respErr.Field("error"))
}

func TestClientRiskAlertsQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/risk/alerts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `{"alerts":[]}`)
	}))

	alerts, err := c.GetRiskAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestClientServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"message":"slow down"}`)
	}))

	_, err := c.GetOpenOrders(context.Background())
	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusTooManyRequests, respErr.StatusCode)
	assert.Equal(t, "slow down", respErr.Field("error", "message"))
	assert.Contains(t, err.Error(), "slow down")
}

func TestClientTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	c := NewClient(srv.URL, Options{RequestTimeout: 50 * time.Millisecond, RequestsPerMinute: 60000}, logger.NewNopLogger())
	defer c.Close()

	start := time.Now()
	_, err := c.GetHealth(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientSubmitOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/order", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "AAPL", got["symbol"])
		assert.Equal(t, "MARKET", got["order_type"])
		assert.Equal(t, 0.0, got["price"])
		_, hasLimit := got["limit_price"]
		assert.False(t, hasLimit)

		writeJSON(w, http.StatusOK, `{"success":true,"order_id":"o-1","symbol":"AAPL","side":"BUY","fill_qty":100,"fill_price":150.25}`)
	}))

	resp, err := c.SubmitOrder(context.Background(), model.OrderRequest{
		Symbol: "AAPL", Quantity: 100, Side: model.Buy, OrderType: model.Market, ClientOrderID: "web-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 100.0, resp.FillQty.Value())
	assert.Equal(t, 150.25, resp.FillPrice.Value())
}

func TestClientCancelOrderPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/order/abc-123", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}))

	resp, err := c.CancelOrder(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestClientPerformance(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/performance/polygon", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("iterations"))
		writeJSON(w, http.StatusOK, `{"api_provider":"polygon","iterations":25,"p99_time_ms":12.5}`)
	}))

	m, err := c.GetPerformance(context.Background(), model.Polygon, 25)
	require.NoError(t, err)
	assert.Equal(t, 12.5, m.P99TimeMs)

	_, err = c.GetPerformance(context.Background(), model.Provider("bogus"), 1)
	assert.Error(t, err)
}

func TestClientStrategyToggle(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}))

	_, err := c.SetStrategyEnabled(context.Background(), true)
	require.NoError(t, err)
	_, err = c.SetStrategyEnabled(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/strategy/movers/enable", "/api/strategy/movers/disable"}, paths)
}
