package domain

import "github.com/shopspring/decimal"

// RiskBudget caps the amount of balance that may be lost on a single trade.
type RiskBudget struct {
	fraction decimal.Decimal
}

// NewRiskBudget returns a risk budget for the given fraction of balance, e.g. 0.01 for 1%.
func NewRiskBudget(fraction decimal.Decimal) RiskBudget {
	return RiskBudget{fraction: fraction}
}

// Fraction returns the configured fraction.
func (r RiskBudget) Fraction() decimal.Decimal {
	return r.fraction
}

// Allocate returns the maximum loss allowed for balance.
func (r RiskBudget) Allocate(balance decimal.Decimal) decimal.Decimal {
	if r.fraction.LessThanOrEqual(decimal.Zero) || balance.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return balance.Mul(r.fraction)
}
