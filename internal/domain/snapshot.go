package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorSnapshot derived indicator values at the last bar of a series.
type IndicatorSnapshot struct {
	Interval string
	OpenTime time.Time
	Close    decimal.Decimal
	EMAFast  decimal.Decimal
	EMASlow  decimal.Decimal
	RSI      decimal.Decimal
	MACD     decimal.Decimal
	ATR      decimal.Decimal
	Trend    Trend
	Momentum Momentum
}
