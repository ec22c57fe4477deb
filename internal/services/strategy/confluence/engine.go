// Package confluence turns fast and slow timeframe snapshots into a trading signal.
package confluence

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// Thresholds RSI bounds used to reject entries into exhausted moves.
type Thresholds struct {
	Overbought decimal.Decimal
	Oversold   decimal.Decimal
}

// DefaultThresholds 70/30.
func DefaultThresholds() Thresholds {
	return Thresholds{Overbought: decimal.NewFromInt(70), Oversold: decimal.NewFromInt(30)}
}

// SignalEngine is stateless: the same pair of snapshots always yields the same signal.
type SignalEngine struct {
	thresholds Thresholds
}

// NewSignalEngine creates a SignalEngine.
func NewSignalEngine(t Thresholds) (*SignalEngine, error) {
	if !t.Oversold.LessThan(t.Overbought) {
		return nil, errors.Wrapf(domain.ErrConfiguration, "rsi oversold %s must be below overbought %s", t.Oversold, t.Overbought)
	}
	return &SignalEngine{thresholds: t}, nil
}

// Generate combines the slow timeframe trend with fast timeframe confirmation.
//
// The slow trend must be directional and the fast trend must agree with it.
// The fast MACD must not point against the trend and the fast RSI must not be
// beyond the threshold in the trade direction.
func (e *SignalEngine) Generate(fast, slow domain.IndicatorSnapshot) domain.Signal {
	if slow.Trend == domain.TrendNeutral {
		return domain.SignalNone
	}
	if fast.Trend != slow.Trend {
		return domain.SignalNone
	}

	switch slow.Trend {
	case domain.TrendUp:
		if fast.Momentum == domain.MomentumDown {
			return domain.SignalNone
		}
		if !fast.RSI.LessThan(e.thresholds.Overbought) {
			return domain.SignalNone
		}
		return domain.SignalLong
	case domain.TrendDown:
		if fast.Momentum == domain.MomentumUp {
			return domain.SignalNone
		}
		if !fast.RSI.GreaterThan(e.thresholds.Oversold) {
			return domain.SignalNone
		}
		return domain.SignalShort
	default:
		return domain.SignalNone
	}
}
