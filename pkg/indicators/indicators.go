// Package indicators provides technical analysis indicators (EMA, MACD, RSI, ATR).
package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// MACDSlowPeriod and MACDSignalPeriod are the standard 12/26/9 MACD parameters.
const (
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	// MACDMinPoints is the warmup the MACD line needs before it is considered settled.
	MACDMinPoints = MACDSlowPeriod + MACDSignalPeriod
)

// ErrNonFinite is returned when an indicator produces NaN or an infinity.
var ErrNonFinite = errors.New("indicator produced a non-finite value")

// PriceData represents OHLC (open, high, low, close) price data.
type PriceData struct {
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("invalid EMA period %d", period)
	}
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := ema.Compute(inputChan)
	emaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(emaFloat)
}

// CalculateMACD calculates MACD line values.
func CalculateMACD(closes []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(closes) < MACDSlowPeriod {
		return nil, fmt.Errorf("not enough data points for MACD: need at least %d, got %d", MACDSlowPeriod, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	macd := trend.NewMacd[float64]()
	inputChan := helper.SliceToChan(closesFloat)
	macdChan, signalChan := macd.Compute(inputChan)
	// drain signal channel to prevent blocking
	go func() {
		for range signalChan {
		}
	}()
	macdFloat := helper.ChanToSlice(macdChan)

	return float64ToDecimals(macdFloat)
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("invalid RSI period %d", period)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := rsi.Compute(inputChan)
	rsiFloat := helper.ChanToSlice(outputChan)

	// no movement at all yields 0/0; treat it as neutral
	for i, v := range rsiFloat {
		if math.IsNaN(v) {
			rsiFloat[i] = 50
		}
	}

	return float64ToDecimals(rsiFloat)
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(cur PriceData, prevClose decimal.Decimal) decimal.Decimal {
	tr := cur.High.Sub(cur.Low)
	if hc := cur.High.Sub(prevClose).Abs(); hc.GreaterThan(tr) {
		tr = hc
	}
	if lc := cur.Low.Sub(prevClose).Abs(); lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}

// CalculateATR calculates the Average True Range with Wilder smoothing.
// The first value is the simple mean of the first period true ranges, each
// following value is (prev*(period-1) + tr) / period. Needs period+1 bars;
// the result has len(priceData)-period values, aligned to the tail of the input.
func CalculateATR(priceData []PriceData, period int) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("invalid ATR period %d", period)
	}
	if len(priceData) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(priceData))
	}

	trs := make([]decimal.Decimal, 0, len(priceData)-1)
	for i := 1; i < len(priceData); i++ {
		trs = append(trs, TrueRange(priceData[i], priceData[i-1].Close))
	}

	p := decimal.NewFromInt(int64(period))
	pm1 := decimal.NewFromInt(int64(period - 1))

	sum := decimal.Zero
	for _, tr := range trs[:period] {
		sum = sum.Add(tr)
	}
	atr := sum.Div(p)

	out := make([]decimal.Decimal, 0, len(trs)-period+1)
	out = append(out, atr)
	for _, tr := range trs[period:] {
		atr = atr.Mul(pm1).Add(tr).Div(p)
		out = append(out, atr)
	}

	return out, nil
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) ([]decimal.Decimal, error) {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w at index %d: %v", ErrNonFinite, i, f)
		}
		result[i] = decimal.NewFromFloat(f)
	}
	return result, nil
}
