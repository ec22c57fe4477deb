// Package events reports trade and error events from the trading loop.
// Sinks are fire-and-forget: their failures never reach the caller.
package events

import (
	"time"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// TradeKind what happened to a position.
type TradeKind string

const (
	TradeOpened   TradeKind = "opened"
	TradeClosed   TradeKind = "closed"
	TradeRejected TradeKind = "rejected"
)

// TradeEvent describes an entry, exit or rejected submission.
// Decimals are strings to keep precision for JSON consumers.
type TradeEvent struct {
	Timestamp  time.Time `json:"ts"`
	Pair       string    `json:"pair"`
	Kind       TradeKind `json:"kind"`
	Direction  string    `json:"direction"`
	Token      string    `json:"token,omitempty"`
	Quantity   string    `json:"quantity,omitempty"`
	Entry      string    `json:"entry,omitempty"`
	Stop       string    `json:"stop,omitempty"`
	TakeProfit string    `json:"take_profit,omitempty"`
	Price      string    `json:"price,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// ErrorEvent a cycle failure with enough context to diagnose it.
type ErrorEvent struct {
	Timestamp time.Time        `json:"ts"`
	Pair      string           `json:"pair"`
	CycleAt   time.Time        `json:"cycle_at"`
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
}

// Sink receives loop events.
type Sink interface {
	Error(ErrorEvent)
	Trade(TradeEvent)
}

// NewOpenedEvent builds the event for a filled entry.
func NewOpenedEvent(at time.Time, pos domain.OpenPosition) TradeEvent {
	return TradeEvent{
		Timestamp:  at,
		Pair:       pos.Order.Pair.String(),
		Kind:       TradeOpened,
		Direction:  pos.Order.Direction.String(),
		Token:      pos.Token.String(),
		Quantity:   pos.Order.Quantity.String(),
		Entry:      pos.Order.EntryPrice.String(),
		Stop:       pos.Order.StopPrice.String(),
		TakeProfit: pos.Order.TakeProfitPrice.String(),
		Price:      pos.FillPrice.String(),
	}
}

// NewClosedEvent builds the event for a closed position.
func NewClosedEvent(pos domain.OpenPosition, ev domain.ClosedEvent) TradeEvent {
	return TradeEvent{
		Timestamp: ev.At,
		Pair:      pos.Order.Pair.String(),
		Kind:      TradeClosed,
		Direction: pos.Order.Direction.String(),
		Token:     pos.Token.String(),
		Quantity:  pos.Order.Quantity.String(),
		Entry:     pos.FillPrice.String(),
		Price:     ev.ExitPrice.String(),
		Reason:    ev.Reason,
	}
}

// NewRejectedEvent builds the event for a rejected submission.
func NewRejectedEvent(at time.Time, res domain.ExecutionResult) TradeEvent {
	ev := TradeEvent{
		Timestamp: at,
		Kind:      TradeRejected,
		Token:     res.Token.String(),
		Reason:    res.Reason,
	}
	if res.Order != nil {
		ev.Pair = res.Order.Pair.String()
		ev.Direction = res.Order.Direction.String()
		ev.Quantity = res.Order.Quantity.String()
		ev.Entry = res.Order.EntryPrice.String()
		ev.Stop = res.Order.StopPrice.String()
		ev.TakeProfit = res.Order.TakeProfitPrice.String()
	}
	return ev
}
