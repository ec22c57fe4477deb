package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionStatus discriminates PositionState.
type PositionStatus string

const (
	PositionFlat PositionStatus = "flat"
	PositionOpen PositionStatus = "open"
)

// OpenPosition details of a filled entry.
type OpenPosition struct {
	Order     Order
	FillPrice decimal.Decimal
	Token     IdempotencyToken
	OpenedAt  time.Time
}

// PositionState is Flat or Open. The zero value is Flat.
type PositionState struct {
	status PositionStatus
	open   *OpenPosition
}

// Flat returns the flat state.
func Flat() PositionState {
	return PositionState{status: PositionFlat}
}

func (s PositionState) Status() PositionStatus {
	if s.status == "" {
		return PositionFlat
	}
	return s.status
}

func (s PositionState) IsOpen() bool { return s.Status() == PositionOpen }

// Open returns the open position, if any.
func (s PositionState) Open() (OpenPosition, bool) {
	if s.open == nil {
		return OpenPosition{}, false
	}
	return *s.open, true
}

// PositionEvent drives PositionState transitions.
type PositionEvent interface {
	isPositionEvent()
}

// FilledEvent an entry order filled.
type FilledEvent struct {
	Order     Order
	FillPrice decimal.Decimal
	Token     IdempotencyToken
	At        time.Time
}

// ClosedEvent the open position was closed by stop, target or an explicit exit.
type ClosedEvent struct {
	ExitPrice decimal.Decimal
	Reason    string
	At        time.Time
}

func (FilledEvent) isPositionEvent() {}
func (ClosedEvent) isPositionEvent() {}

// Transition applies ev and returns the next state.
//
//	Flat --Filled--> Open
//	Open --Closed--> Flat
func (s PositionState) Transition(ev PositionEvent) (PositionState, error) {
	switch e := ev.(type) {
	case FilledEvent:
		if s.IsOpen() {
			return s, errors.Wrap(ErrInvalidTransition, "fill while a position is open")
		}
		return PositionState{
			status: PositionOpen,
			open: &OpenPosition{
				Order:     e.Order,
				FillPrice: e.FillPrice,
				Token:     e.Token,
				OpenedAt:  e.At,
			},
		}, nil
	case ClosedEvent:
		if !s.IsOpen() {
			return s, errors.Wrap(ErrInvalidTransition, "close while flat")
		}
		return Flat(), nil
	default:
		return s, errors.Wrapf(ErrInvalidTransition, "unknown event %T", ev)
	}
}

// PositionCheck venue view of an open position.
type PositionCheck struct {
	Closed    bool
	ExitPrice decimal.Decimal
	Reason    string
}
