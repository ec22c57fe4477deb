package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle single OHLCV candlestick.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// CandleSeries is an ordered, immutable sequence of candles for one pair and interval.
// The last element is the most recent bar.
type CandleSeries struct {
	pair     Pair
	interval string
	candles  []Candle
}

// NewCandleSeries copies candles into a new series.
func NewCandleSeries(pair Pair, interval string, candles []Candle) CandleSeries {
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	return CandleSeries{pair: pair, interval: interval, candles: cp}
}

func (s CandleSeries) Pair() Pair       { return s.pair }
func (s CandleSeries) Interval() string { return s.interval }
func (s CandleSeries) Len() int         { return len(s.candles) }

// At returns the i-th candle, oldest first.
func (s CandleSeries) At(i int) Candle {
	return s.candles[i]
}

// Last returns the most recent candle.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Candles returns a copy of the underlying candles.
func (s CandleSeries) Candles() []Candle {
	cp := make([]Candle, len(s.candles))
	copy(cp, s.candles)
	return cp
}

// Tail returns a series holding the last n candles.
func (s CandleSeries) Tail(n int) CandleSeries {
	if n >= len(s.candles) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return NewCandleSeries(s.pair, s.interval, s.candles[len(s.candles)-n:])
}

// Closes extracts close prices.
func (s CandleSeries) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}
	return out
}
