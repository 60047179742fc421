package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_positionsURL           = "/positions"
	_openOrdersURL          = "/orders/open"
	_executionsURL          = "/executions"
	_accountURL             = "/account"
	_analyticsURL           = "/analytics"
	_healthURL              = "/health"
	_moversURL              = "/movers"
	_performanceURL         = "/performance/{provider}"
	_strategyStatusURL      = "/strategy/movers/status"
	_strategyPositionsURL   = "/strategy/movers/positions"
	_strategyPerformanceURL = "/strategy/movers/performance"
	_strategyEnableURL      = "/strategy/movers/enable"
	_strategyDisableURL     = "/strategy/movers/disable"
	_orderURL               = "/order"
	_cancelOrderURL         = "/order/{id}"
	_riskAlertsURL          = "/risk/alerts"
	_circuitBreakerURL      = "/risk/circuit-breaker"

	_riskAlertsLimit = 10

	_requestTimeoutDefault = 10 * time.Second
	_requestsPerMinute     = 200
)

// ResponseError is a non-2xx answer from the backend. Body is kept so
// callers can pick the most specific message field.
type ResponseError struct {
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	if msg := e.Field("error", "reason", "message"); msg != "" {
		return fmt.Sprintf("backend responded %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("backend responded %d", e.StatusCode)
}

// Is lets a 404 answer match ErrNotFound while keeping its body.
func (e *ResponseError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Field returns the first non-empty string among fields of the error body.
func (e *ResponseError) Field(fields ...string) string {
	return ErrorField(e.Body, fields...)
}

type Options struct {
	RequestTimeout     time.Duration
	MoversTimeout      time.Duration
	PerformanceTimeout time.Duration
	RequestsPerMinute  int
}

type Client struct {
	c       *resty.Client
	opts    Options
	limiter ratelimit.Limiter

	logger logger.Logger
}

func NewClient(baseURL string, opts Options, logger logger.Logger) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = _requestTimeoutDefault
	}
	if opts.MoversTimeout <= 0 {
		opts.MoversTimeout = opts.RequestTimeout
	}
	if opts.PerformanceTimeout <= 0 {
		opts.PerformanceTimeout = opts.RequestTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = _requestsPerMinute
	}

	client := resty.New().
		SetLogger(logger).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &Client{
		c:       client,
		opts:    opts,
		limiter: ratelimit.New(opts.RequestsPerMinute, ratelimit.Per(time.Minute)),
		logger:  logger,
	}
}

func (c *Client) Close() error {
	return c.c.Close()
}

type call struct {
	method     string
	url        string
	pathParams map[string]string
	query      map[string]string
	body       any
	timeout    time.Duration
}

// do sends one request and returns the raw body of a 2xx response.
// Non-2xx statuses come back as *ResponseError; a 404 also matches ErrNotFound.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.c.R().
		SetContext(ctx).
		SetPathParams(cl.pathParams).
		SetQueryParams(cl.query)

	if cl.body != nil {
		payload, err := sonic.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%w: can't marshal request for %s", err, cl.url)
		}
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	c.limiter.Take()
	resp, err := req.Execute(cl.method, cl.url)
	if err != nil {
		return nil, fmt.Errorf("%w: can't send request for %s", err, cl.url)
	}
	defer resp.Body.Close()

	c.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	body := resp.Bytes()
	if resp.IsError() {
		return nil, &ResponseError{StatusCode: resp.StatusCode(), Body: body}
	}
	if resp.IsSuccess() {
		return body, nil
	}

	return nil, fmt.Errorf("%s unexpected request error: %s", cl.url, resp.Status())
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, call{method: http.MethodGet, url: url})
}

func (c *Client) GetPositions(ctx context.Context) ([]model.Position, error) {
	body, err := c.get(ctx, _positionsURL)
	if err != nil {
		return nil, err
	}
	return DecodePositions(body)
}

func (c *Client) GetOpenOrders(ctx context.Context) ([]model.OpenOrder, error) {
	body, err := c.get(ctx, _openOrdersURL)
	if err != nil {
		return nil, err
	}
	return DecodeOpenOrders(body)
}

func (c *Client) GetExecutions(ctx context.Context) ([]model.Execution, error) {
	body, err := c.get(ctx, _executionsURL)
	if err != nil {
		return nil, err
	}
	return DecodeExecutions(body)
}

func (c *Client) GetAccount(ctx context.Context) (model.Account, error) {
	body, err := c.get(ctx, _accountURL)
	if err != nil {
		return model.Account{}, err
	}
	return DecodeAccount(body)
}

func (c *Client) GetAnalytics(ctx context.Context) (model.Analytics, error) {
	body, err := c.get(ctx, _analyticsURL)
	if err != nil {
		return model.Analytics{}, err
	}
	return DecodeAnalytics(body)
}

func (c *Client) GetHealth(ctx context.Context) (model.HealthSnapshot, error) {
	body, err := c.get(ctx, _healthURL)
	if err != nil {
		return model.HealthSnapshot{}, err
	}
	return DecodeHealth(body)
}

func (c *Client) GetMovers(ctx context.Context) (model.Movers, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, url: _moversURL, timeout: c.opts.MoversTimeout})
	if err != nil {
		return model.Movers{}, err
	}
	return DecodeMovers(body)
}

func (c *Client) GetPerformance(ctx context.Context, p model.Provider, iterations int) (model.PerformanceMetrics, error) {
	if !p.Valid() {
		return model.PerformanceMetrics{}, fmt.Errorf("unknown provider %q", p)
	}
	body, err := c.do(ctx, call{
		method:     http.MethodGet,
		url:        _performanceURL,
		pathParams: map[string]string{"provider": string(p)},
		query:      map[string]string{"iterations": strconv.Itoa(iterations)},
		timeout:    c.opts.PerformanceTimeout,
	})
	if err != nil {
		return model.PerformanceMetrics{}, err
	}
	return DecodePerformance(body)
}

func (c *Client) GetStrategyStatus(ctx context.Context) (model.StrategyStatus, error) {
	body, err := c.get(ctx, _strategyStatusURL)
	if err != nil {
		return model.StrategyStatus{}, err
	}
	return DecodeStrategyStatus(body)
}

func (c *Client) GetStrategyPositions(ctx context.Context) ([]model.StrategyPosition, error) {
	body, err := c.get(ctx, _strategyPositionsURL)
	if err != nil {
		return nil, err
	}
	return DecodeStrategyPositions(body)
}

func (c *Client) GetStrategyPerformance(ctx context.Context) (model.StrategyPerformance, error) {
	body, err := c.get(ctx, _strategyPerformanceURL)
	if err != nil {
		return model.StrategyPerformance{}, err
	}
	return DecodeStrategyPerformance(body)
}

func (c *Client) GetRiskAlerts(ctx context.Context) ([]model.RiskAlert, error) {
	body, err := c.do(ctx, call{
		method: http.MethodGet,
		url:    _riskAlertsURL,
		query:  map[string]string{"limit": strconv.Itoa(_riskAlertsLimit)},
	})
	if err != nil {
		return nil, err
	}
	return DecodeRiskAlerts(body)
}

func (c *Client) GetCircuitBreaker(ctx context.Context) (*model.CircuitBreakerEvent, error) {
	body, err := c.get(ctx, _circuitBreakerURL)
	if err != nil {
		return nil, err
	}
	return DecodeCircuitBreaker(body)
}

func (c *Client) SetStrategyEnabled(ctx context.Context, enabled bool) (model.CommandResponse, error) {
	url := _strategyDisableURL
	if enabled {
		url = _strategyEnableURL
	}
	body, err := c.do(ctx, call{method: http.MethodPost, url: url})
	if err != nil {
		return model.CommandResponse{}, err
	}
	return DecodeCommandResponse(body)
}

func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.OrderResponse, error) {
	body, err := c.do(ctx, call{method: http.MethodPost, url: _orderURL, body: req})
	if err != nil {
		return model.OrderResponse{}, err
	}
	return DecodeOrderResponse(body)
}

func (c *Client) CancelOrder(ctx context.Context, id string) (model.CommandResponse, error) {
	body, err := c.do(ctx, call{
		method:     http.MethodDelete,
		url:        _cancelOrderURL,
		pathParams: map[string]string{"id": id},
	})
	if err != nil {
		return model.CommandResponse{}, err
	}
	return DecodeCommandResponse(body)
}
