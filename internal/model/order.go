package model

import (
	"strings"

	"github.com/bytedance/sonic"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func ParseSide(s string) Side {
	return Side(strings.ToUpper(strings.TrimSpace(s)))
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

func ParseOrderType(s string) OrderType {
	return OrderType(strings.ToUpper(strings.TrimSpace(s)))
}

func (t OrderType) Valid() bool {
	return t == Market || t == Limit
}

type ExecutionStatus string

const (
	Filled   ExecutionStatus = "FILLED"
	Rejected ExecutionStatus = "REJECTED"
	Pending  ExecutionStatus = "PENDING"
)

// OpenOrder is a working order as reported by the backend. Status is
// whatever string the backend uses.
type OpenOrder struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side"`
	Quantity      float64   `json:"quantity"`
	FilledQty     float64   `json:"filled_qty,omitempty"`
	OrderType     OrderType `json:"order_type"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	SubmittedAt   Time      `json:"submitted_at"`
}

func (o OpenOrder) Key() string {
	return o.ID
}

type openOrderWire struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      *Float `json:"quantity"`
	Qty           *Float `json:"qty"`
	FilledQty     *Float `json:"filled_qty"`
	OrderType     string `json:"order_type"`
	Type          string `json:"type"`
	Price         *Float `json:"price"`
	LimitPrice    *Float `json:"limit_price"`
	Status        string `json:"status"`
	SubmittedAt   *Time  `json:"submitted_at"`
	CreatedAt     *Time  `json:"created_at"`
}

// UnmarshalJSON folds the backend's field aliases into the canonical shape:
// id|order_id, quantity|qty, order_type|type, price|limit_price, submitted_at|created_at.
func (o *OpenOrder) UnmarshalJSON(b []byte) error {
	var w openOrderWire
	if err := sonic.Unmarshal(b, &w); err != nil {
		return err
	}

	*o = OpenOrder{
		ID:            firstString(w.ID, w.OrderID),
		ClientOrderID: w.ClientOrderID,
		Symbol:        w.Symbol,
		Side:          ParseSide(w.Side),
		Quantity:      firstFloat(w.Quantity, w.Qty),
		FilledQty:     w.FilledQty.Value(),
		OrderType:     ParseOrderType(firstString(w.OrderType, w.Type)),
		Price:         firstFloat(w.Price, w.LimitPrice),
		Status:        w.Status,
	}
	switch {
	case w.SubmittedAt != nil && !w.SubmittedAt.IsZero():
		o.SubmittedAt = *w.SubmittedAt
	case w.CreatedAt != nil:
		o.SubmittedAt = *w.CreatedAt
	}
	return nil
}

// Execution is immutable once created.
type Execution struct {
	OrderID       string          `json:"order_id"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Quantity      float64         `json:"quantity"`
	Price         float64         `json:"price"`
	Status        ExecutionStatus `json:"status"`
	Timestamp     Time            `json:"timestamp"`
}

type executionWire struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      *Float `json:"quantity"`
	FillQty       *Float `json:"fill_qty"`
	Price         *Float `json:"price"`
	FillPrice     *Float `json:"fill_price"`
	Status        string `json:"status"`
	Timestamp     Time   `json:"timestamp"`
}

func (e *Execution) UnmarshalJSON(b []byte) error {
	var w executionWire
	if err := sonic.Unmarshal(b, &w); err != nil {
		return err
	}

	*e = Execution{
		OrderID:       w.OrderID,
		ClientOrderID: w.ClientOrderID,
		Symbol:        w.Symbol,
		Side:          ParseSide(w.Side),
		Quantity:      firstFloat(w.Quantity, w.FillQty),
		Price:         firstFloat(w.Price, w.FillPrice),
		Status:        ExecutionStatus(strings.ToUpper(w.Status)),
		Timestamp:     w.Timestamp,
	}
	return nil
}

// OrderRequest is the body of POST /order.
type OrderRequest struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	Side          Side      `json:"side"`
	OrderType     OrderType `json:"order_type"`
	Price         float64   `json:"price"`
	LimitPrice    *float64  `json:"limit_price,omitempty"`
	ClientOrderID string    `json:"client_order_id"`
}

// OrderResponse is the reply to POST /order. The error text may sit in
// error, reason or message.
type OrderResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Side          Side   `json:"side"`
	FillQty       Float  `json:"fill_qty"`
	FillPrice     Float  `json:"fill_price"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// CommandResponse is the reply to cancel and strategy toggle commands.
type CommandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...*Float) float64 {
	for _, v := range vals {
		if v.Value() != 0 {
			return v.Value()
		}
	}
	return 0
}
