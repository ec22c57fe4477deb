// Package risk converts signals into risk-bounded orders and tracks the risk budget in flight.
package risk

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// Params sizing parameters.
type Params struct {
	// StopMultiplier k in stop distance = k * ATR.
	StopMultiplier decimal.Decimal
	// MaxRiskFraction fraction of balance that may be lost if the stop is hit, in (0, 1].
	MaxRiskFraction decimal.Decimal
	// RewardRisk take-profit distance as a multiple of the stop distance.
	RewardRisk decimal.Decimal
	// QtyStep venue lot size; quantities are floored to it.
	QtyStep decimal.Decimal
	// PriceTick venue price increment; zero disables price rounding.
	PriceTick decimal.Decimal
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case !p.StopMultiplier.IsPositive():
		return errors.Wrapf(domain.ErrConfiguration, "stop multiplier must be > 0, got %s", p.StopMultiplier)
	case !p.MaxRiskFraction.IsPositive() || p.MaxRiskFraction.GreaterThan(decimal.NewFromInt(1)):
		return errors.Wrapf(domain.ErrConfiguration, "max risk fraction must be in (0, 1], got %s", p.MaxRiskFraction)
	case !p.RewardRisk.IsPositive():
		return errors.Wrapf(domain.ErrConfiguration, "reward:risk must be > 0, got %s", p.RewardRisk)
	case !p.QtyStep.IsPositive():
		return errors.Wrapf(domain.ErrConfiguration, "quantity step must be > 0, got %s", p.QtyStep)
	case p.PriceTick.IsNegative():
		return errors.Wrapf(domain.ErrConfiguration, "price tick must be >= 0, got %s", p.PriceTick)
	}
	return nil
}

// Sizer is a pure function of its inputs.
type Sizer struct {
	params Params
	budget domain.RiskBudget
}

// NewSizer creates a Sizer.
func NewSizer(params Params) (*Sizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Sizer{params: params, budget: domain.NewRiskBudget(params.MaxRiskFraction)}, nil
}

// Params returns the configured parameters.
func (s *Sizer) Params() Params {
	return s.params
}

// Size returns the order for sig, or nil for SignalNone.
func (s *Sizer) Size(pair domain.Pair, sig domain.Signal, atr, price, balance decimal.Decimal) (*domain.Order, error) {
	dir, ok := sig.Direction()
	if !ok {
		return nil, nil
	}
	if !atr.IsPositive() {
		return nil, errors.Wrapf(domain.ErrDegenerateRisk, "atr %s must be positive", atr)
	}
	if !price.IsPositive() {
		return nil, errors.Wrapf(domain.ErrDegenerateRisk, "price %s must be positive", price)
	}
	if !balance.IsPositive() {
		return nil, errors.Wrapf(domain.ErrDegenerateRisk, "balance %s must be positive", balance)
	}

	distance := atr.Mul(s.params.StopMultiplier)
	var stop decimal.Decimal
	if dir == domain.DirectionLong {
		stop = s.toTick(price.Sub(distance), true)
	} else {
		stop = s.toTick(price.Add(distance), false)
	}
	// the rounded stop is the one the venue sees, so risk is measured from it
	distance = price.Sub(stop).Abs()
	if !distance.IsPositive() || (dir == domain.DirectionLong && !stop.IsPositive()) {
		return nil, errors.Wrapf(domain.ErrDegenerateRisk, "stop %s unusable for entry %s", stop, price)
	}

	riskAmount := s.budget.Allocate(balance)
	qty := riskAmount.Div(distance).Div(s.params.QtyStep).Floor().Mul(s.params.QtyStep)
	if !qty.IsPositive() {
		return nil, errors.Wrapf(domain.ErrDegenerateRisk,
			"quantity rounds to zero: risk %s, stop distance %s, step %s", riskAmount, distance, s.params.QtyStep)
	}

	target := distance.Mul(s.params.RewardRisk)
	var tp decimal.Decimal
	if dir == domain.DirectionLong {
		tp = s.toTick(price.Add(target), false)
	} else {
		tp = s.toTick(price.Sub(target), true)
	}

	order := &domain.Order{
		Pair:            pair,
		Direction:       dir,
		EntryPrice:      price,
		StopPrice:       stop,
		TakeProfitPrice: tp,
		Quantity:        qty,
	}
	if err := order.Validate(balance, s.params.MaxRiskFraction); err != nil {
		return nil, err
	}
	return order, nil
}

// toTick rounds p to the tick grid, up when ceil is set.
func (s *Sizer) toTick(p decimal.Decimal, ceil bool) decimal.Decimal {
	tick := s.params.PriceTick
	if !tick.IsPositive() {
		return p
	}
	steps := p.Div(tick)
	if ceil {
		steps = steps.Ceil()
	} else {
		steps = steps.Floor()
	}
	return steps.Mul(tick)
}
