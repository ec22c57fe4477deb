package risk

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

var pair = domain.Pair{From: "BTC", To: "USDT"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func defaultParams() Params {
	return Params{
		StopMultiplier:  d("2"),
		MaxRiskFraction: d("0.01"),
		RewardRisk:      d("2"),
		QtyStep:         d("0.001"),
	}
}

func newSizer(t *testing.T, p Params) *Sizer {
	t.Helper()
	s, err := NewSizer(p)
	require.NoError(t, err)
	return s
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero multiplier", func(p *Params) { p.StopMultiplier = decimal.Zero }},
		{"zero risk fraction", func(p *Params) { p.MaxRiskFraction = decimal.Zero }},
		{"risk fraction above one", func(p *Params) { p.MaxRiskFraction = d("1.5") }},
		{"negative reward risk", func(p *Params) { p.RewardRisk = d("-1") }},
		{"zero qty step", func(p *Params) { p.QtyStep = decimal.Zero }},
		{"negative tick", func(p *Params) { p.PriceTick = d("-0.1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mutate(&p)
			_, err := NewSizer(p)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}

	p := defaultParams()
	p.MaxRiskFraction = d("1")
	_, err := NewSizer(p)
	assert.NoError(t, err)
}

func TestSizer_LongFixedFractional(t *testing.T) {
	s := newSizer(t, defaultParams())

	order, err := s.Size(pair, domain.SignalLong, d("50"), d("30000"), d("1000"))
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, domain.DirectionLong, order.Direction)
	assert.True(t, order.EntryPrice.Equal(d("30000")))
	assert.True(t, order.StopPrice.Equal(d("29900")), order.StopPrice.String())
	assert.True(t, order.Quantity.Equal(d("0.1")), order.Quantity.String())
	assert.True(t, order.TakeProfitPrice.Equal(d("30200")), order.TakeProfitPrice.String())
	assert.True(t, order.RiskAmount().LessThanOrEqual(d("10")))
}

func TestSizer_Short(t *testing.T) {
	s := newSizer(t, defaultParams())

	order, err := s.Size(pair, domain.SignalShort, d("50"), d("30000"), d("1000"))
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionShort, order.Direction)
	assert.True(t, order.StopPrice.Equal(d("30100")))
	assert.True(t, order.TakeProfitPrice.Equal(d("29800")))
	assert.True(t, order.Quantity.Equal(d("0.1")))
}

func TestSizer_NoSignal(t *testing.T) {
	s := newSizer(t, defaultParams())
	order, err := s.Size(pair, domain.SignalNone, d("50"), d("30000"), d("1000"))
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestSizer_NonPositiveATR(t *testing.T) {
	s := newSizer(t, defaultParams())

	for _, atr := range []string{"0", "-1"} {
		order, err := s.Size(pair, domain.SignalLong, d(atr), d("30000"), d("1000"))
		assert.Nil(t, order)
		assert.True(t, errors.Is(err, domain.ErrDegenerateRisk), "atr=%s err=%v", atr, err)
	}
}

func TestSizer_QuantityRoundsToZero(t *testing.T) {
	s := newSizer(t, defaultParams())

	// risk 0.01, stop distance 100 -> 0.0001 < step
	order, err := s.Size(pair, domain.SignalLong, d("50"), d("30000"), d("1"))
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, domain.ErrDegenerateRisk))
}

func TestSizer_LongStopBelowZero(t *testing.T) {
	s := newSizer(t, defaultParams())
	_, err := s.Size(pair, domain.SignalLong, d("60"), d("100"), d("1000"))
	assert.True(t, errors.Is(err, domain.ErrDegenerateRisk))
}

func TestSizer_PriceTickRounding(t *testing.T) {
	p := defaultParams()
	p.PriceTick = d("0.5")
	s := newSizer(t, p)

	order, err := s.Size(pair, domain.SignalLong, d("33.33"), d("30000.5"), d("1000"))
	require.NoError(t, err)
	assert.True(t, order.StopPrice.Equal(d("29934")), order.StopPrice.String())
	assert.True(t, order.Quantity.Equal(d("0.15")), order.Quantity.String())
	assert.True(t, order.TakeProfitPrice.Equal(d("30133.5")), order.TakeProfitPrice.String())
	assert.True(t, order.RiskAmount().LessThanOrEqual(d("10")))
}

func TestSizer_RiskBoundHolds(t *testing.T) {
	s := newSizer(t, defaultParams())

	atrs := []string{"0.5", "3.7", "12.25", "50", "333.3"}
	prices := []string{"1000", "27345.67", "30000", "64000.1"}
	balances := []string{"250", "1000", "12345.6"}

	for _, a := range atrs {
		for _, pr := range prices {
			for _, b := range balances {
				for _, sig := range []domain.Signal{domain.SignalLong, domain.SignalShort} {
					order, err := s.Size(pair, sig, d(a), d(pr), d(b))
					if err != nil {
						assert.True(t, errors.Is(err, domain.ErrDegenerateRisk))
						continue
					}
					budget := d(b).Mul(d("0.01"))
					assert.True(t, order.RiskAmount().LessThanOrEqual(budget),
						"atr=%s price=%s balance=%s risk=%s", a, pr, b, order.RiskAmount())
					assert.True(t, order.Quantity.IsPositive())
					assert.NoError(t, order.Validate(d(b), d("0.01")))
				}
			}
		}
	}
}
