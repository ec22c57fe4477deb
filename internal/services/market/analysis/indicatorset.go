// Package analysis derives indicator snapshots from candle series.
package analysis

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/pkg/indicators"
)

// Params indicator periods.
type Params struct {
	EMAFast   int
	EMASlow   int
	RSIPeriod int
	ATRPeriod int
}

// DefaultParams EMA 20/50, RSI 14, ATR 14.
func DefaultParams() Params {
	return Params{EMAFast: 20, EMASlow: 50, RSIPeriod: 14, ATRPeriod: 14}
}

// Validate checks that all periods are usable.
func (p Params) Validate() error {
	if p.EMAFast <= 0 || p.EMASlow <= 0 || p.RSIPeriod <= 0 || p.ATRPeriod <= 0 {
		return errors.Wrapf(domain.ErrConfiguration, "indicator periods must be positive: %+v", p)
	}
	if p.EMAFast >= p.EMASlow {
		return errors.Wrapf(domain.ErrConfiguration, "fast EMA period %d must be shorter than slow EMA period %d", p.EMAFast, p.EMASlow)
	}
	return nil
}

// IndicatorSet computes an IndicatorSnapshot for the last bar of a series.
// It holds no state between calls.
type IndicatorSet struct {
	params Params
}

// NewIndicatorSet creates an IndicatorSet.
func NewIndicatorSet(params Params) (*IndicatorSet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &IndicatorSet{params: params}, nil
}

// Params returns the configured periods.
func (s *IndicatorSet) Params() Params {
	return s.params
}

// MinLookback is the shortest series Compute accepts.
func (s *IndicatorSet) MinLookback() int {
	n := s.params.EMASlow
	if v := s.params.RSIPeriod + 1; v > n {
		n = v
	}
	if v := s.params.ATRPeriod + 1; v > n {
		n = v
	}
	if indicators.MACDMinPoints > n {
		n = indicators.MACDMinPoints
	}
	return n
}

// Compute returns indicator values at the last bar of series.
func (s *IndicatorSet) Compute(series domain.CandleSeries) (domain.IndicatorSnapshot, error) {
	if series.Len() < s.MinLookback() {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory,
			"%s %s: need %d candles, got %d", series.Pair().String(), series.Interval(), s.MinLookback(), series.Len())
	}

	closes := series.Closes()
	candles := series.Candles()
	priceData := make([]indicators.PriceData, len(candles))
	for i, c := range candles {
		priceData[i] = indicators.PriceData{Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}

	emaFast, err := indicators.CalculateEMA(closes, s.params.EMAFast)
	if err != nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "EMA%d: %s", s.params.EMAFast, err)
	}
	emaSlow, err := indicators.CalculateEMA(closes, s.params.EMASlow)
	if err != nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "EMA%d: %s", s.params.EMASlow, err)
	}
	rsi, err := indicators.CalculateRSI(closes, s.params.RSIPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "RSI%d: %s", s.params.RSIPeriod, err)
	}
	macd, err := indicators.CalculateMACD(closes)
	if err != nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "MACD: %s", err)
	}
	atr, err := indicators.CalculateATR(priceData, s.params.ATRPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "ATR%d: %s", s.params.ATRPeriod, err)
	}

	for name, out := range map[string]int{"ema_fast": len(emaFast), "ema_slow": len(emaSlow), "rsi": len(rsi), "macd": len(macd), "atr": len(atr)} {
		if out == 0 {
			return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory, "%s produced no values for %d candles", name, series.Len())
		}
	}

	last, _ := series.Last()
	snap := domain.IndicatorSnapshot{
		Interval: series.Interval(),
		OpenTime: last.OpenTime,
		Close:    last.Close,
		EMAFast:  emaFast[len(emaFast)-1],
		EMASlow:  emaSlow[len(emaSlow)-1],
		RSI:      rsi[len(rsi)-1],
		MACD:     macd[len(macd)-1],
		ATR:      atr[len(atr)-1],
	}
	snap.Trend = domain.DetermineTrend(snap.Close, snap.EMAFast, snap.EMASlow)
	snap.Momentum = domain.DetermineMomentum(snap.MACD)

	return snap, nil
}
