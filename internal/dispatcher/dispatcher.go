package dispatcher

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/widesurf/hft-sync/internal/api"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/store"
)

const (
	_msgSubmitted       = "Order submitted successfully"
	_msgOrderFailed     = "Order failed"
	_msgSubmitFailed    = "Failed to submit order"
	_msgCancelled       = "Order cancelled successfully"
	_msgCancelFailed    = "Failed to cancel order. Please try again."
	_msgCancelUnclear   = "Cancel not confirmed, refreshing open orders"
	_msgActionFailed    = "Action failed"
	_msgStrategyEnabled = "Strategy enabled"
	_msgStrategyStopped = "Strategy disabled"

	_minIterations = 1
	_maxIterations = 100
)

var (
	ErrInvalidSymbol     = errors.New("symbol is required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidSide       = errors.New("side must be BUY or SELL")
	ErrInvalidOrderType  = errors.New("order type must be MARKET or LIMIT")
	ErrInvalidLimitPrice = errors.New("limit price must be greater than 0 for LIMIT orders")
	ErrInvalidProvider   = errors.New("unknown market data provider")
)

// OrderAPI is the part of the backend the dispatcher writes to.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error)
	CancelOrder(ctx context.Context, id string) (model.CommandResponse, error)
	SetStrategyEnabled(ctx context.Context, enabled bool) (model.CommandResponse, error)
	GetPerformance(ctx context.Context, p model.Provider, iterations int) (model.PerformanceMetrics, error)
}

// Refresher schedules confirmatory fetches. Neither call blocks.
type Refresher interface {
	Refresh(r model.Resource)
	RefreshAfter(r model.Resource, d time.Duration)
}

// Result is what every command resolves to. Commands never return errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type OrderInput struct {
	Symbol        string          `json:"symbol"`
	Quantity      float64         `json:"quantity"`
	Side          model.Side      `json:"side"`
	OrderType     model.OrderType `json:"order_type"`
	LimitPrice    float64         `json:"limit_price"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

type Options struct {
	ClientOrderIDPrefix string
	OpenOrdersRefetch   []time.Duration
	ExecutionsRefetch   []time.Duration
	Now                 func() time.Time
}

type Dispatcher struct {
	api     OrderAPI
	store   *store.Store
	refresh Refresher
	opts    Options

	logger logger.Logger
}

func New(api OrderAPI, st *store.Store, refresh Refresher, opts Options, logger logger.Logger) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.ClientOrderIDPrefix = cmp.Or(opts.ClientOrderIDPrefix, "web")
	return &Dispatcher{
		api:     api,
		store:   st,
		refresh: refresh,
		opts:    opts,
		logger:  logger,
	}
}

func (in OrderInput) normalize() OrderInput {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Side = model.ParseSide(string(in.Side))
	in.OrderType = model.ParseOrderType(string(in.OrderType))
	return in
}

func (in OrderInput) validate() error {
	switch {
	case in.Symbol == "":
		return ErrInvalidSymbol
	case in.Quantity <= 0:
		return ErrInvalidQuantity
	case !in.Side.Valid():
		return ErrInvalidSide
	case !in.OrderType.Valid():
		return ErrInvalidOrderType
	case in.OrderType == model.Limit && in.LimitPrice <= 0:
		return ErrInvalidLimitPrice
	}
	return nil
}

// NewClientOrderID returns prefix-<unix ms>-<uuid>.
func (d *Dispatcher) NewClientOrderID() string {
	return fmt.Sprintf("%s-%d-%s", d.opts.ClientOrderIDPrefix, d.opts.Now().UnixMilli(), uuid.NewString())
}

func (d *Dispatcher) request(in OrderInput) model.OrderRequest {
	req := model.OrderRequest{
		Symbol:        in.Symbol,
		Quantity:      in.Quantity,
		Side:          in.Side,
		OrderType:     in.OrderType,
		ClientOrderID: cmp.Or(in.ClientOrderID, d.NewClientOrderID()),
	}
	if in.OrderType == model.Limit {
		price := in.LimitPrice
		req.Price = price
		req.LimitPrice = &price
	}
	return req
}

func (d *Dispatcher) SubmitOrder(ctx context.Context, in OrderInput) Result {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return Result{Message: err.Error()}
	}

	req := d.request(in)
	d.logger.Infof("submitting %s %s order %s: %v %s", req.OrderType, req.Side, req.ClientOrderID, req.Quantity, req.Symbol)

	resp, err := d.api.SubmitOrder(ctx, req)
	if err != nil {
		d.logger.Errorf("%s: can't submit order %s", err, req.ClientOrderID)
		return Result{Message: errorMessage(err, _msgSubmitFailed, "error", "reason", "message")}
	}
	if !resp.Success {
		return Result{Message: cmp.Or(resp.Error, _msgOrderFailed), Data: resp}
	}

	if resp.FillQty.Value() > 0 {
		d.store.PrependExecution(model.Execution{
			OrderID:       resp.OrderID,
			ClientOrderID: cmp.Or(resp.ClientOrderID, req.ClientOrderID),
			Symbol:        cmp.Or(resp.Symbol, req.Symbol),
			Side:          cmp.Or(resp.Side, req.Side),
			Quantity:      resp.FillQty.Value(),
			Price:         resp.FillPrice.Value(),
			Status:        model.Filled,
			Timestamp:     model.Time{Time: d.opts.Now()},
		})
	}

	d.refetch(model.ResourceOpenOrders, d.opts.OpenOrdersRefetch)
	d.refetch(model.ResourceExecutions, d.opts.ExecutionsRefetch)

	return Result{Success: true, Message: cmp.Or(resp.Message, _msgSubmitted), Data: resp}
}

func (d *Dispatcher) CancelOrder(ctx context.Context, id string) Result {
	resp, err := d.api.CancelOrder(ctx, id)
	if err != nil {
		d.logger.Errorf("%s: can't cancel order %s", err, id)
		d.refresh.Refresh(model.ResourceOpenOrders)
		return Result{Message: errorMessage(err, _msgCancelFailed, "error", "message")}
	}

	if !resp.Success {
		d.logger.Warnf("cancel of %s not confirmed, refreshing open orders", id)
		d.refresh.Refresh(model.ResourceOpenOrders)
		return Result{Message: _msgCancelUnclear, Data: resp}
	}

	d.store.RemoveOpenOrder(id)
	d.refetch(model.ResourceOpenOrders, d.opts.OpenOrdersRefetch)
	return Result{Success: true, Message: _msgCancelled, Data: resp}
}

func (d *Dispatcher) SetStrategyEnabled(ctx context.Context, enabled bool) Result {
	resp, err := d.api.SetStrategyEnabled(ctx, enabled)
	if err != nil {
		d.logger.Errorf("%s: can't toggle strategy", err)
		return Result{Message: errorMessage(err, _msgActionFailed, "error")}
	}
	d.refresh.Refresh(model.ResourceStrategyStatus)
	if !resp.Success {
		return Result{Message: cmp.Or(resp.Error, _msgActionFailed), Data: resp}
	}

	msg := _msgStrategyStopped
	if enabled {
		msg = _msgStrategyEnabled
	}
	return Result{Success: true, Message: cmp.Or(resp.Message, msg), Data: resp}
}

// ClampIterations bounds a performance test to 1..100 iterations.
func ClampIterations(n int) int {
	return min(max(n, _minIterations), _maxIterations)
}

func (d *Dispatcher) RunPerformanceTest(ctx context.Context, p model.Provider, iterations int) Result {
	if !p.Valid() {
		return Result{Message: ErrInvalidProvider.Error()}
	}
	iterations = ClampIterations(iterations)

	m, err := d.api.GetPerformance(ctx, p, iterations)
	if err != nil {
		d.logger.Errorf("%s: performance test against %s failed", err, p)
		return Result{Message: errorMessage(err, fmt.Sprintf("Performance test against %s failed", p), "error", "message")}
	}

	d.store.SetPerformance(p, m)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Completed %d iterations against %s", m.Iterations, p),
		Data:    m,
	}
}

func (d *Dispatcher) refetch(r model.Resource, delays []time.Duration) {
	for _, delay := range delays {
		d.refresh.RefreshAfter(r, delay)
	}
}

// errorMessage picks the most specific text available: the named fields of
// a backend error body in order, then the transport error, then fallback.
func errorMessage(err error, fallback string, fields ...string) string {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		if msg := respErr.Field(fields...); msg != "" {
			return msg
		}
	}
	return cmp.Or(err.Error(), fallback)
}
