package confluence

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

func snap(trend domain.Trend, momentum domain.Momentum, rsi int64) domain.IndicatorSnapshot {
	return domain.IndicatorSnapshot{Trend: trend, Momentum: momentum, RSI: decimal.NewFromInt(rsi)}
}

func TestNewSignalEngine_InvalidThresholds(t *testing.T) {
	_, err := NewSignalEngine(Thresholds{Overbought: decimal.NewFromInt(30), Oversold: decimal.NewFromInt(70)})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestSignalEngine_Generate(t *testing.T) {
	engine, err := NewSignalEngine(DefaultThresholds())
	require.NoError(t, err)

	tests := []struct {
		name string
		fast domain.IndicatorSnapshot
		slow domain.IndicatorSnapshot
		want domain.Signal
	}{
		{"aligned up", snap(domain.TrendUp, domain.MomentumUp, 55), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalLong},
		{"aligned down", snap(domain.TrendDown, domain.MomentumDown, 45), snap(domain.TrendDown, domain.MomentumDown, 40), domain.SignalShort},
		{"slow up, fast down", snap(domain.TrendDown, domain.MomentumDown, 45), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalNone},
		{"slow neutral", snap(domain.TrendUp, domain.MomentumUp, 55), snap(domain.TrendNeutral, domain.MomentumFlat, 50), domain.SignalNone},
		{"fast neutral", snap(domain.TrendNeutral, domain.MomentumUp, 55), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalNone},
		{"long with flat momentum", snap(domain.TrendUp, domain.MomentumFlat, 55), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalLong},
		{"long against momentum", snap(domain.TrendUp, domain.MomentumDown, 55), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalNone},
		{"long overbought", snap(domain.TrendUp, domain.MomentumUp, 75), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalNone},
		{"long at overbought bound", snap(domain.TrendUp, domain.MomentumUp, 70), snap(domain.TrendUp, domain.MomentumUp, 60), domain.SignalNone},
		{"short against momentum", snap(domain.TrendDown, domain.MomentumUp, 45), snap(domain.TrendDown, domain.MomentumDown, 40), domain.SignalNone},
		{"short oversold", snap(domain.TrendDown, domain.MomentumDown, 25), snap(domain.TrendDown, domain.MomentumDown, 40), domain.SignalNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Generate(tt.fast, tt.slow))
		})
	}
}

func TestSignalEngine_Deterministic(t *testing.T) {
	engine, err := NewSignalEngine(DefaultThresholds())
	require.NoError(t, err)

	fast := snap(domain.TrendUp, domain.MomentumUp, 55)
	slow := snap(domain.TrendUp, domain.MomentumUp, 60)
	first := engine.Generate(fast, slow)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Generate(fast, slow))
	}
}
