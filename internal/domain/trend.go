package domain

import "github.com/shopspring/decimal"

// Trend qualitative direction of price action.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Momentum sign of the MACD line.
type Momentum string

const (
	MomentumUp   Momentum = "up"
	MomentumDown Momentum = "down"
	MomentumFlat Momentum = "flat"
)

// DetermineTrend classifies price against a fast and slow EMA.
// Up requires price > fast > slow, Down requires price < fast < slow.
func DetermineTrend(price, emaFast, emaSlow decimal.Decimal) Trend {
	if price.GreaterThan(emaFast) && emaFast.GreaterThan(emaSlow) {
		return TrendUp
	} else if price.LessThan(emaFast) && emaFast.LessThan(emaSlow) {
		return TrendDown
	}
	return TrendNeutral
}

// DetermineMomentum classifies the MACD line by sign.
func DetermineMomentum(macd decimal.Decimal) Momentum {
	switch macd.Sign() {
	case 1:
		return MomentumUp
	case -1:
		return MomentumDown
	default:
		return MomentumFlat
	}
}
