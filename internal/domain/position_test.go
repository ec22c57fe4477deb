package domain

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionState_ZeroValueIsFlat(t *testing.T) {
	var s PositionState
	assert.Equal(t, PositionFlat, s.Status())
	assert.False(t, s.IsOpen())
	_, ok := s.Open()
	assert.False(t, ok)
}

func TestPositionState_Transitions(t *testing.T) {
	order := Order{
		Pair:       Pair{From: "BTC", To: "USDT"},
		Direction:  DirectionLong,
		EntryPrice: decimal.NewFromInt(30000),
		StopPrice:  decimal.NewFromInt(29900),
		Quantity:   decimal.RequireFromString("0.1"),
	}
	now := time.Unix(1700000000, 0)

	open, err := Flat().Transition(FilledEvent{Order: order, FillPrice: decimal.NewFromInt(30001), Token: "tok", At: now})
	require.NoError(t, err)
	assert.True(t, open.IsOpen())
	pos, ok := open.Open()
	require.True(t, ok)
	assert.True(t, pos.FillPrice.Equal(decimal.NewFromInt(30001)))
	assert.Equal(t, IdempotencyToken("tok"), pos.Token)
	assert.Equal(t, now, pos.OpenedAt)

	_, err = open.Transition(FilledEvent{Order: order})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	flat, err := open.Transition(ClosedEvent{ExitPrice: decimal.NewFromInt(29900), Reason: "stop"})
	require.NoError(t, err)
	assert.False(t, flat.IsOpen())

	_, err = flat.Transition(ClosedEvent{})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}
