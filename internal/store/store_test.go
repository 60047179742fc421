package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/widesurf/hft-sync/internal/model"
)

func orders(ids ...string) []model.OpenOrder {
	out := make([]model.OpenOrder, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.OpenOrder{ID: id, Symbol: "AAPL", Side: model.Buy, Quantity: 1})
	}
	return out
}

func ids(os []model.OpenOrder) []string {
	out := make([]string, 0, len(os))
	for _, o := range os {
		out = append(out, o.ID)
	}
	return out
}

func TestReplaceOpenOrdersDedupes(t *testing.T) {
	s := New(Options{})

	in := orders("a", "b", "a", "c", "")
	in[2].Quantity = 7
	s.ReplaceOpenOrders(in)

	got := s.OpenOrders()
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, 7.0, got[0].Quantity, "last duplicate supplies the value")
}

func TestReplaceOpenOrdersIdempotent(t *testing.T) {
	s := New(Options{})
	s.ReplaceOpenOrders(orders("a", "b"))
	first := s.OpenOrders()
	s.ReplaceOpenOrders(orders("a", "b"))

	assert.Equal(t, first, s.OpenOrders())
}

func TestOptimisticRemovalIsReversible(t *testing.T) {
	s := New(Options{})
	s.ReplaceOpenOrders(orders("a", "b", "c"))

	require.True(t, s.RemoveOpenOrder("b"))
	assert.Equal(t, []string{"a", "c"}, ids(s.OpenOrders()))
	assert.False(t, s.RemoveOpenOrder("b"))

	// the server still reports b as open
	s.ReplaceOpenOrders(orders("a", "b", "c"))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.OpenOrders()))
}

func TestRemoveDoesNotAliasCallerSlice(t *testing.T) {
	s := New(Options{})
	in := orders("a", "b")
	s.ReplaceOpenOrders(in)
	snap := s.OpenOrders()

	s.RemoveOpenOrder("a")
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, []string{"a", "b"}, ids(in))
}

func TestReplacePositionsKeyedBySymbol(t *testing.T) {
	s := New(Options{})
	s.ReplacePositions([]model.Position{
		{Symbol: "AAPL", Qty: 1},
		{Symbol: "MSFT", Qty: 2},
		{Symbol: "AAPL", Qty: 3},
	})

	got := s.Positions()
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, 3.0, got[0].Qty)
}

func TestExecutionFeedNewestFirstCapped(t *testing.T) {
	s := New(Options{ExecutionFeedCap: 3})
	for i := range 5 {
		s.PrependExecution(model.Execution{OrderID: fmt.Sprint(i)})
	}

	feed := s.ExecutionFeed()
	require.Len(t, feed, 3)
	assert.Equal(t, "4", feed[0].OrderID)
	assert.Equal(t, "3", feed[1].OrderID)
	assert.Equal(t, "2", feed[2].OrderID)
}

func TestExecutionFeedDefaultCap(t *testing.T) {
	s := New(Options{})
	for i := range 150 {
		s.PrependExecution(model.Execution{OrderID: fmt.Sprint(i)})
	}
	assert.Len(t, s.ExecutionFeed(), 100)
}

func TestServerExecutionsUncapped(t *testing.T) {
	s := New(Options{ExecutionFeedCap: 2})
	execs := make([]model.Execution, 10)
	s.ReplaceExecutions(execs)
	assert.Len(t, s.Executions(), 10)
}

func TestHealthUnavailableKeepsSnapshot(t *testing.T) {
	s := New(Options{})
	_, ok := s.Health()
	assert.False(t, ok)

	s.SetHealth(model.HealthSnapshot{Status: "healthy"})
	h, ok := s.Health()
	assert.True(t, ok)
	assert.Equal(t, "healthy", h.Status)

	s.MarkHealthUnavailable()
	h, ok = s.Health()
	assert.False(t, ok)
	assert.Equal(t, "healthy", h.Status)

	snap := s.Snapshot()
	assert.False(t, snap.HealthAvailable)
	assert.False(t, snap.Connected[model.ResourceHealth])
}

func TestCircuitBreakerOnlyWhenActive(t *testing.T) {
	s := New(Options{})
	s.SetCircuitBreaker(&model.CircuitBreakerEvent{ID: 1, Active: true})
	assert.NotNil(t, s.Snapshot().CircuitBreaker)

	s.SetCircuitBreaker(&model.CircuitBreakerEvent{ID: 2, Active: false})
	assert.Nil(t, s.Snapshot().CircuitBreaker)
}

func TestSetConnectedLeavesDataAlone(t *testing.T) {
	s := New(Options{})
	s.ReplacePositions([]model.Position{{Symbol: "AAPL"}})
	s.SetConnected(model.ResourcePositions, false)

	snap := s.Snapshot()
	assert.Len(t, snap.Positions, 1)
	assert.False(t, snap.Connected[model.ResourcePositions])
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New(Options{})
	s.SetAccount(model.Account{Cash: 10})
	s.ReplacePositions([]model.Position{{Symbol: "AAPL"}})

	snap := s.Snapshot()
	snap.Account.Cash = 99
	snap.Positions[0].Symbol = "X"

	a, _ := s.Account()
	assert.Equal(t, 10.0, a.Cash)
	assert.Equal(t, "AAPL", s.Positions()[0].Symbol)
}

func TestSubscribeCoalesces(t *testing.T) {
	s := New(Options{})
	ch, cancel := s.Subscribe()

	v0 := s.Version()
	s.ReplaceOpenOrders(orders("a"))
	s.ReplaceOpenOrders(orders("b"))

	select {
	case <-ch:
	default:
		t.Fatal("expected a change notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}
	assert.Equal(t, v0+2, s.Version())

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}
