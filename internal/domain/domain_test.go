package domain

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	p, err := ParsePair("btc_usdt")
	require.NoError(t, err)
	assert.Equal(t, Pair{From: "BTC", To: "USDT"}, p)
	assert.Equal(t, "BTCUSDT", p.Symbol())
	assert.Equal(t, "BTC_USDT", p.String())

	for _, bad := range []string{"", "BTCUSDT", "BTC_", "_USDT", "A_B_C"} {
		_, err := ParsePair(bad)
		assert.True(t, errors.Is(err, ErrConfiguration), bad)
	}
}

func TestDetermineTrend(t *testing.T) {
	assert.Equal(t, TrendUp, DetermineTrend(d("110"), d("105"), d("100")))
	assert.Equal(t, TrendDown, DetermineTrend(d("90"), d("95"), d("100")))
	assert.Equal(t, TrendNeutral, DetermineTrend(d("104"), d("105"), d("100")))
	assert.Equal(t, TrendNeutral, DetermineTrend(d("100"), d("100"), d("100")))
}

func TestDetermineMomentum(t *testing.T) {
	assert.Equal(t, MomentumUp, DetermineMomentum(d("0.5")))
	assert.Equal(t, MomentumDown, DetermineMomentum(d("-0.5")))
	assert.Equal(t, MomentumFlat, DetermineMomentum(decimal.Zero))
}

func TestIdempotencyToken_Deterministic(t *testing.T) {
	pair := Pair{From: "BTC", To: "USDT"}
	bar := time.UnixMilli(1700000000000)

	a := NewIdempotencyToken(pair, bar, DirectionLong)
	b := NewIdempotencyToken(pair, bar, DirectionLong)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, NewIdempotencyToken(pair, bar, DirectionShort))
	assert.NotEqual(t, a, NewIdempotencyToken(pair, bar.Add(time.Minute), DirectionLong))
	assert.Len(t, a.Compact(), 32)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{errors.Wrap(ErrInsufficientHistory, "x"), ErrorKindInsufficientHistory},
		{errors.Wrap(ErrDegenerateRisk, "x"), ErrorKindDegenerateRisk},
		{Rejected("min notional"), ErrorKindGatewayRejected},
		{errors.Wrap(ErrTransport, "x"), ErrorKindTransport},
		{errors.Wrap(ErrConfiguration, "x"), ErrorKindConfiguration},
		{context.Canceled, ErrorKindCanceled},
		{errors.New("boom"), ErrorKindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), tt.err.Error())
	}
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestCandleSeries_Immutable(t *testing.T) {
	candles := []Candle{{Close: d("1")}, {Close: d("2")}, {Close: d("3")}}
	s := NewCandleSeries(Pair{From: "BTC", To: "USDT"}, "5m", candles)
	candles[0].Close = d("100")
	assert.True(t, s.At(0).Close.Equal(d("1")))

	out := s.Candles()
	out[1].Close = d("200")
	assert.True(t, s.At(1).Close.Equal(d("2")))

	last, ok := s.Last()
	require.True(t, ok)
	assert.True(t, last.Close.Equal(d("3")))
	assert.Equal(t, 2, s.Tail(2).Len())
	assert.True(t, s.Tail(2).At(0).Close.Equal(d("2")))
}

func TestSignal_Opposes(t *testing.T) {
	assert.True(t, SignalShort.Opposes(DirectionLong))
	assert.False(t, SignalLong.Opposes(DirectionLong))
	assert.False(t, SignalNone.Opposes(DirectionLong))
}

func TestMarketType_Allows(t *testing.T) {
	assert.True(t, MarketTypeSpot.Allows(DirectionLong))
	assert.False(t, MarketTypeSpot.Allows(DirectionShort))
	assert.True(t, MarketTypeMargin.Allows(DirectionLong))
	assert.True(t, MarketTypeMargin.Allows(DirectionShort))
	assert.False(t, MarketType("futures").Allows(DirectionLong))
}
