package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/storage/simstate"
	"go.uber.org/zap"
)

// mockPricer is a simple mock for the Pricer interface.
type mockPricer struct {
	price decimal.Decimal
	err   error
}

func (m *mockPricer) GetPrice(context.Context, domain.Pair) (decimal.Decimal, error) {
	return m.price, m.err
}

var testPair = domain.Pair{From: "BTC", To: "USDT"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func longOrder() domain.Order {
	return domain.Order{
		Pair:            testPair,
		Direction:       domain.DirectionLong,
		EntryPrice:      dec("30000"),
		StopPrice:       dec("29900"),
		TakeProfitPrice: dec("30200"),
		Quantity:        dec("0.1"),
	}
}

func shortOrder() domain.Order {
	return domain.Order{
		Pair:            testPair,
		Direction:       domain.DirectionShort,
		EntryPrice:      dec("30000"),
		StopPrice:       dec("30100"),
		TakeProfitPrice: dec("29800"),
		Quantity:        dec("0.1"),
	}
}

func newSim(t *testing.T, mt domain.MarketType, p *mockPricer) *SimulateGateway {
	t.Helper()
	g, err := NewSimulateGateway(testPair, mt, 1, dec("10000"), p, nil, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestSimulateGateway_LongTakeProfit(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g := newSim(t, domain.MarketTypeSpot, p)
	token := domain.NewIdempotencyToken(testPair, time.Unix(0, 0), domain.DirectionLong)

	fill, err := g.Submit(ctx, longOrder(), token)
	require.NoError(t, err)
	assert.True(t, fill.Equal(dec("30000")))

	quote, _ := g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("7000")), quote.String())
	base, _ := g.Balance(ctx, "BTC")
	assert.True(t, base.Equal(dec("0.1")))

	pos := domain.OpenPosition{Order: longOrder(), FillPrice: fill, Token: token}

	p.price = dec("30100")
	check, err := g.Status(ctx, pos)
	require.NoError(t, err)
	assert.False(t, check.Closed)

	p.price = dec("30250")
	check, err = g.Status(ctx, pos)
	require.NoError(t, err)
	assert.True(t, check.Closed)
	assert.Equal(t, ReasonTakeProfit, check.Reason)
	assert.True(t, check.ExitPrice.Equal(dec("30200")))

	quote, _ = g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("10020")), quote.String())
}

func TestSimulateGateway_ShortStop(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g := newSim(t, domain.MarketTypeMargin, p)
	token := domain.NewIdempotencyToken(testPair, time.Unix(0, 0), domain.DirectionShort)

	fill, err := g.Submit(ctx, shortOrder(), token)
	require.NoError(t, err)

	p.price = dec("30150")
	check, err := g.Status(ctx, domain.OpenPosition{Order: shortOrder(), FillPrice: fill, Token: token})
	require.NoError(t, err)
	assert.True(t, check.Closed)
	assert.Equal(t, ReasonStopLoss, check.Reason)

	// lost 0.1 * 100
	quote, _ := g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("9990")), quote.String())
}

func TestSimulateGateway_ShortRejectedOnSpot(t *testing.T) {
	g := newSim(t, domain.MarketTypeSpot, &mockPricer{price: dec("30000")})

	_, err := g.Submit(context.Background(), shortOrder(), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGatewayRejected))
}

func TestSimulateGateway_DuplicateTokenReturnsOriginalFill(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g := newSim(t, domain.MarketTypeSpot, p)

	first, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)

	p.price = dec("31000")
	second, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	base, _ := g.Balance(ctx, "BTC")
	assert.True(t, base.Equal(dec("0.1")))

	filled, price, err := g.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, filled)
	assert.True(t, price.Equal(first))

	filled, _, err = g.Lookup(ctx, "other")
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestSimulateGateway_InsufficientBalance(t *testing.T) {
	g := newSim(t, domain.MarketTypeSpot, &mockPricer{price: dec("30000")})
	order := longOrder()
	order.Quantity = dec("1")

	_, err := g.Submit(context.Background(), order, "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGatewayRejected))
}

func TestSimulateGateway_PricerFailureIsTransport(t *testing.T) {
	g := newSim(t, domain.MarketTypeSpot, &mockPricer{err: errors.New("boom")})

	_, err := g.Submit(context.Background(), longOrder(), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestSimulateGateway_Close(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g := newSim(t, domain.MarketTypeSpot, p)

	fill, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)
	pos := domain.OpenPosition{Order: longOrder(), FillPrice: fill, Token: "tok"}

	p.price = dec("30050")
	exit, err := g.Close(ctx, pos)
	require.NoError(t, err)
	assert.True(t, exit.Equal(dec("30050")))

	_, err = g.Close(ctx, pos)
	assert.True(t, errors.Is(err, domain.ErrGatewayRejected))

	check, err := g.Status(ctx, pos)
	require.NoError(t, err)
	assert.True(t, check.Closed)
	assert.Equal(t, ReasonClosed, check.Reason)
}

func TestSimulateGateway_RestoresState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := simstate.NewStore(dir, testPair)
	require.NoError(t, err)
	p := &mockPricer{price: dec("30000")}

	g, err := NewSimulateGateway(testPair, domain.MarketTypeSpot, 1, dec("10000"), p, store, zap.NewNop())
	require.NoError(t, err)
	_, err = g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)

	restored, err := NewSimulateGateway(testPair, domain.MarketTypeSpot, 1, dec("10000"), p, store, zap.NewNop())
	require.NoError(t, err)

	quote, _ := restored.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("7000")))
	filled, _, _ := restored.Lookup(ctx, "tok")
	assert.True(t, filled)

	_, err = restored.Submit(ctx, longOrder(), "other")
	assert.True(t, errors.Is(err, domain.ErrGatewayRejected))
}

func TestSimulateGateway_DefaultFundingFillsRiskSizedOrder(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse(config.Default(), config.Credentials{})
	require.NoError(t, err)

	// 1% of the 1000 sizing balance against a 100 stop distance: 0.1 BTC at 30000
	g, err := NewSimulateGateway(testPair, cfg.MarketType, cfg.Leverage, cfg.SimulateBalance,
		&mockPricer{price: dec("30000")}, nil, zap.NewNop())
	require.NoError(t, err)

	fill, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)
	assert.True(t, fill.Equal(dec("30000")))
	quote, _ := g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(cfg.SimulateBalance.Sub(dec("3000"))), quote.String())
}

func TestSimulateGateway_MarginLocksCollateral(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g, err := NewSimulateGateway(testPair, domain.MarketTypeMargin, 5, dec("1000"), p, nil, zap.NewNop())
	require.NoError(t, err)

	fill, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)

	// 3000 notional at 5x
	quote, _ := g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("400")), quote.String())
	base, _ := g.Balance(ctx, "BTC")
	assert.True(t, base.IsZero())

	p.price = dec("30250")
	check, err := g.Status(ctx, domain.OpenPosition{Order: longOrder(), FillPrice: fill, Token: "tok"})
	require.NoError(t, err)
	require.True(t, check.Closed)
	assert.Equal(t, ReasonTakeProfit, check.Reason)

	quote, _ = g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("1020")), quote.String())
}

func TestSimulateGateway_MarginShortAtLeverage(t *testing.T) {
	ctx := context.Background()
	p := &mockPricer{price: dec("30000")}
	g, err := NewSimulateGateway(testPair, domain.MarketTypeMargin, 3, dec("1000"), p, nil, zap.NewNop())
	require.NoError(t, err)

	fill, err := g.Submit(ctx, shortOrder(), "tok")
	require.NoError(t, err)
	quote, _ := g.Balance(ctx, "USDT")
	assert.True(t, quote.IsZero(), quote.String())

	p.price = dec("30150")
	check, err := g.Status(ctx, domain.OpenPosition{Order: shortOrder(), FillPrice: fill, Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, ReasonStopLoss, check.Reason)

	quote, _ = g.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("990")), quote.String())
}

func TestSimulateGateway_SpotIgnoresLeverage(t *testing.T) {
	g, err := NewSimulateGateway(testPair, domain.MarketTypeSpot, 10, dec("1000"), &mockPricer{price: dec("30000")}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Submit(context.Background(), longOrder(), "tok")
	assert.True(t, errors.Is(err, domain.ErrGatewayRejected))
}

func TestSimulateGateway_RestoresLeverageWithPosition(t *testing.T) {
	ctx := context.Background()
	store, err := simstate.NewStore(t.TempDir(), testPair)
	require.NoError(t, err)
	p := &mockPricer{price: dec("30000")}

	g, err := NewSimulateGateway(testPair, domain.MarketTypeMargin, 5, dec("1000"), p, store, zap.NewNop())
	require.NoError(t, err)
	fill, err := g.Submit(ctx, longOrder(), "tok")
	require.NoError(t, err)

	restored, err := NewSimulateGateway(testPair, domain.MarketTypeMargin, 2, dec("1000"), p, store, zap.NewNop())
	require.NoError(t, err)

	p.price = dec("29850")
	check, err := restored.Status(ctx, domain.OpenPosition{Order: longOrder(), FillPrice: fill, Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, ReasonStopLoss, check.Reason)

	// 600 collateral back minus the 10 loss
	quote, _ := restored.Balance(ctx, "USDT")
	assert.True(t, quote.Equal(dec("990")), quote.String())
}

func TestCloid(t *testing.T) {
	c := cloid("abc")
	assert.Len(t, c, 34)
	assert.Equal(t, "0x", c[:2])
	assert.Equal(t, c, cloid(" abc "))
}

func TestAveragePrice(t *testing.T) {
	assert.True(t, averagePrice("0.1", "3000").Equal(dec("30000")))
	assert.True(t, averagePrice("0", "3000").IsZero())
	assert.True(t, averagePrice("bad", "3000").IsZero())
}
