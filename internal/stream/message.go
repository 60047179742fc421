package stream

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/widesurf/hft-sync/internal/model"
)

const (
	TypePositionUpdate = "POSITION_UPDATE"
	TypePnLUpdate      = "PNL_UPDATE"
)

var ErrBadMessage = errors.New("bad stream message")

type OrderUpdate struct {
	OrderID string `json:"order_id"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
}

// Message is one decoded push frame. A frame may carry several parts.
type Message struct {
	Type        string
	Orders      []model.OpenOrder
	HasOrders   bool
	OrderUpdate *OrderUpdate
	Positions   []model.Position
	Raw         []byte
}

// Throttled reports whether the frame is a high-frequency position or P&L delta.
func (m Message) Throttled() bool {
	return m.Type == TypePositionUpdate || m.Type == TypePnLUpdate
}

func DecodeMessage(frame []byte) (Message, error) {
	if !gjson.ValidBytes(frame) {
		return Message{}, fmt.Errorf("%w: invalid json", ErrBadMessage)
	}
	root := gjson.ParseBytes(frame)
	if !root.IsObject() {
		return Message{}, fmt.Errorf("%w: not an object", ErrBadMessage)
	}

	msg := Message{Type: root.Get("type").String(), Raw: frame}

	if orders := root.Get("orders"); orders.IsArray() {
		if err := sonic.UnmarshalString(orders.Raw, &msg.Orders); err != nil {
			return Message{}, fmt.Errorf("%w: orders: %w", ErrBadMessage, err)
		}
		if msg.Orders == nil {
			msg.Orders = []model.OpenOrder{}
		}
		msg.HasOrders = true
	}

	if update := root.Get("order_update"); update.IsObject() {
		var u OrderUpdate
		if err := sonic.UnmarshalString(update.Raw, &u); err != nil {
			return Message{}, fmt.Errorf("%w: order_update: %w", ErrBadMessage, err)
		}
		msg.OrderUpdate = &u
	}

	if positions := root.Get("positions"); positions.IsArray() {
		if err := sonic.UnmarshalString(positions.Raw, &msg.Positions); err != nil {
			return Message{}, fmt.Errorf("%w: positions: %w", ErrBadMessage, err)
		}
	}

	return msg, nil
}
