package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Order a fully specified, risk-bounded instruction to open a position.
type Order struct {
	Pair            Pair
	Direction       Direction
	EntryPrice      decimal.Decimal
	StopPrice       decimal.Decimal
	TakeProfitPrice decimal.Decimal
	Quantity        decimal.Decimal
}

// StopDistance returns |entry - stop|.
func (o Order) StopDistance() decimal.Decimal {
	return o.EntryPrice.Sub(o.StopPrice).Abs()
}

// RiskAmount returns the loss taken if the stop is hit.
func (o Order) RiskAmount() decimal.Decimal {
	return o.Quantity.Mul(o.StopDistance())
}

// Validate checks the order against the balance it was sized from.
func (o Order) Validate(balance, maxRiskFraction decimal.Decimal) error {
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrDegenerateRisk, "quantity %s must be positive", o.Quantity)
	}
	if o.EntryPrice.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrDegenerateRisk, "entry price %s must be positive", o.EntryPrice)
	}

	switch o.Direction {
	case DirectionLong:
		if !o.StopPrice.LessThan(o.EntryPrice) {
			return errors.Wrapf(ErrDegenerateRisk, "long stop %s must be below entry %s", o.StopPrice, o.EntryPrice)
		}
		if o.TakeProfitPrice.IsPositive() && !o.TakeProfitPrice.GreaterThan(o.EntryPrice) {
			return errors.Wrapf(ErrDegenerateRisk, "long target %s must be above entry %s", o.TakeProfitPrice, o.EntryPrice)
		}
	case DirectionShort:
		if !o.StopPrice.GreaterThan(o.EntryPrice) {
			return errors.Wrapf(ErrDegenerateRisk, "short stop %s must be above entry %s", o.StopPrice, o.EntryPrice)
		}
		if o.TakeProfitPrice.IsPositive() && !o.TakeProfitPrice.LessThan(o.EntryPrice) {
			return errors.Wrapf(ErrDegenerateRisk, "short target %s must be below entry %s", o.TakeProfitPrice, o.EntryPrice)
		}
	default:
		return errors.Wrapf(ErrDegenerateRisk, "unknown direction %d", o.Direction)
	}

	budget := NewRiskBudget(maxRiskFraction).Allocate(balance)
	if o.RiskAmount().GreaterThan(budget) {
		return errors.Wrapf(ErrDegenerateRisk, "risk %s exceeds budget %s", o.RiskAmount(), budget)
	}
	return nil
}
