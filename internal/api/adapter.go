package api

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/widesurf/hft-sync/internal/model"
)

var (
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnsuccessful    = errors.New("backend reported failure")
	ErrNotFound        = errors.New("endpoint not found")
)

// The decoders below are the only place that knows the backend answers the
// same question in several shapes. Everything past them sees model types.

func parse(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json", ErrUnexpectedShape)
	}
	return gjson.ParseBytes(body), nil
}

func decodeRaw[T any](raw string) (T, error) {
	var v T
	if err := sonic.UnmarshalString(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}
	return v, nil
}

func decodeArray[T any](r gjson.Result) ([]T, error) {
	out, err := decodeRaw[[]T](r.Raw)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// DecodePositions accepts {positions:[...]} or a bare array. An object whose
// positions field is itself an object carries a rate limit message. An object
// with an error, message or reason is a failure; any other object without
// positions means the account holds nothing.
func DecodePositions(body []byte) ([]model.Position, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}

	positions := root.Get("positions")
	switch {
	case root.IsArray():
		return decodeArray[model.Position](root)
	case positions.IsArray():
		return decodeArray[model.Position](positions)
	case positions.IsObject():
		if msg := positions.Get("message").String(); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, msg)
		}
		return nil, fmt.Errorf("%w: positions is an object", ErrUnexpectedShape)
	case root.IsObject():
		if msg := firstField(root, "error", "message", "reason"); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
		}
		return []model.Position{}, nil
	}
	return nil, fmt.Errorf("%w: positions", ErrUnexpectedShape)
}

// DecodeOpenOrders only accepts a bare array; anything else leaves the
// current list in place.
func DecodeOpenOrders(body []byte) ([]model.OpenOrder, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: open orders is not an array", ErrUnexpectedShape)
	}
	return decodeArray[model.OpenOrder](root)
}

func DecodeExecutions(body []byte) ([]model.Execution, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	switch {
	case root.IsArray():
		return decodeArray[model.Execution](root)
	case root.Type == gjson.Null:
		return []model.Execution{}, nil
	}
	return nil, fmt.Errorf("%w: executions is not an array", ErrUnexpectedShape)
}

func DecodeAccount(body []byte) (model.Account, error) {
	root, err := parse(body)
	if err != nil {
		return model.Account{}, err
	}
	account := root.Get("account")
	if !account.IsObject() {
		return model.Account{}, fmt.Errorf("%w: no account object", ErrUnexpectedShape)
	}
	return decodeRaw[model.Account](account.Raw)
}

func decodeObject[T any](body []byte, what string) (T, error) {
	var zero T
	root, err := parse(body)
	if err != nil {
		return zero, err
	}
	if !root.IsObject() {
		return zero, fmt.Errorf("%w: %s is not an object", ErrUnexpectedShape, what)
	}
	return decodeRaw[T](root.Raw)
}

func DecodeHealth(body []byte) (model.HealthSnapshot, error) {
	return decodeObject[model.HealthSnapshot](body, "health")
}

func DecodeAnalytics(body []byte) (model.Analytics, error) {
	return decodeObject[model.Analytics](body, "analytics")
}

func DecodePerformance(body []byte) (model.PerformanceMetrics, error) {
	return decodeObject[model.PerformanceMetrics](body, "performance")
}

func DecodeMovers(body []byte) (model.Movers, error) {
	root, err := parse(body)
	if err != nil {
		return model.Movers{}, err
	}
	movers := root.Get("movers")
	if !movers.IsObject() {
		return model.Movers{}, fmt.Errorf("%w: no movers object", ErrUnexpectedShape)
	}
	m, err := decodeRaw[model.Movers](movers.Raw)
	if err != nil {
		return model.Movers{}, err
	}
	if m.Gainers == nil {
		m.Gainers = []model.Mover{}
	}
	if m.Losers == nil {
		m.Losers = []model.Mover{}
	}
	return m, nil
}

// envelope unwraps {success, data}. success=false yields ErrUnsuccessful
// carrying the backend's error text.
func envelope(body []byte) (gjson.Result, error) {
	root, err := parse(body)
	if err != nil {
		return gjson.Result{}, err
	}
	if !root.Get("success").Bool() {
		msg := firstField(root, "error", "message")
		if msg == "" {
			msg = "no success flag"
		}
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
	}
	return root.Get("data"), nil
}

func DecodeStrategyStatus(body []byte) (model.StrategyStatus, error) {
	data, err := envelope(body)
	if err != nil {
		return model.StrategyStatus{}, err
	}
	if !data.IsObject() {
		return model.StrategyStatus{}, fmt.Errorf("%w: strategy status data", ErrUnexpectedShape)
	}
	return decodeRaw[model.StrategyStatus](data.Raw)
}

func DecodeStrategyPositions(body []byte) ([]model.StrategyPosition, error) {
	data, err := envelope(body)
	if err != nil {
		return nil, err
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: strategy positions data", ErrUnexpectedShape)
	}
	return decodeArray[model.StrategyPosition](data)
}

func DecodeStrategyPerformance(body []byte) (model.StrategyPerformance, error) {
	data, err := envelope(body)
	if err != nil {
		return model.StrategyPerformance{}, err
	}
	if !data.IsObject() {
		return model.StrategyPerformance{}, fmt.Errorf("%w: strategy performance data", ErrUnexpectedShape)
	}
	return decodeRaw[model.StrategyPerformance](data.Raw)
}

func DecodeRiskAlerts(body []byte) ([]model.RiskAlert, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	alerts := root.Get("alerts")
	switch {
	case root.IsArray():
		return decodeArray[model.RiskAlert](root)
	case alerts.IsArray():
		return decodeArray[model.RiskAlert](alerts)
	}
	return nil, fmt.Errorf("%w: risk alerts", ErrUnexpectedShape)
}

// DecodeCircuitBreaker returns nil when no breaker is active.
func DecodeCircuitBreaker(body []byte) (*model.CircuitBreakerEvent, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if root.Type == gjson.Null {
		return nil, nil
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: circuit breaker", ErrUnexpectedShape)
	}
	if !root.Get("active").Bool() {
		return nil, nil
	}
	e, err := decodeRaw[model.CircuitBreakerEvent](root.Raw)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func DecodeOrderResponse(body []byte) (model.OrderResponse, error) {
	return decodeObject[model.OrderResponse](body, "order response")
}

func DecodeCommandResponse(body []byte) (model.CommandResponse, error) {
	return decodeObject[model.CommandResponse](body, "command response")
}

// ErrorField returns the first non-empty string field of a JSON body, in
// the order given.
func ErrorField(body []byte, fields ...string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return firstField(gjson.ParseBytes(body), fields...)
}

func firstField(root gjson.Result, fields ...string) string {
	for _, f := range fields {
		v := root.Get(f)
		if v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
