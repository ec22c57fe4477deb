package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/pricer"
	"github.com/vadiminshakov/mtftrader/internal/storage/simstate"
	"go.uber.org/zap"
)

// SimulateGateway is a paper venue. Entries fill at the current ticker price;
// stops and targets are evaluated against the ticker on every Status call.
// Spot longs pay the full notional. Margin positions lock notional/leverage as collateral.
type SimulateGateway struct {
	mu         sync.Mutex
	pair       domain.Pair
	marketType domain.MarketType
	leverage   decimal.Decimal
	logger     *zap.Logger
	pricer     pricer.Pricer
	store      *simstate.Store
	now        func() time.Time

	wallet   map[string]decimal.Decimal
	fills    map[domain.IdempotencyToken]decimal.Decimal
	position *domain.OpenPosition
}

// NewSimulateGateway creates a paper venue funded with initialQuote. leverage
// applies in margin mode only; values below 1 mean unlevered. A nil store
// disables persistence.
func NewSimulateGateway(pair domain.Pair, marketType domain.MarketType, leverage int, initialQuote decimal.Decimal, p pricer.Pricer, store *simstate.Store, logger *zap.Logger) (*SimulateGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		return nil, errors.Wrap(domain.ErrConfiguration, "pricer is required for SimulateGateway")
	}
	if leverage < 1 || marketType != domain.MarketTypeMargin {
		leverage = 1
	}

	g := &SimulateGateway{
		pair:       pair,
		marketType: marketType,
		leverage:   decimal.NewFromInt(int64(leverage)),
		logger:     logger,
		pricer:     p,
		store:      store,
		now:        time.Now,
		wallet:     map[string]decimal.Decimal{pair.From: decimal.Zero, pair.To: initialQuote},
		fills:      make(map[domain.IdempotencyToken]decimal.Decimal),
	}
	if err := g.restore(); err != nil {
		logger.Warn("failed to restore simulate state", zap.Error(err))
	}

	logger.Info("simulate init",
		zap.String("pair", pair.String()),
		zap.String("quote", g.wallet[pair.To].String()),
		zap.String("market_type", string(marketType)),
		zap.String("leverage", g.leverage.String()),
		zap.Bool("position_open", g.position != nil))
	return g, nil
}

func (g *SimulateGateway) Submit(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if fill, ok := g.fills[token]; ok {
		return fill, nil
	}
	if !g.marketType.Allows(order.Direction) {
		return decimal.Zero, domain.Rejected("short positions are supported only in margin trading mode")
	}
	if g.position != nil {
		return decimal.Zero, domain.Rejected("position %s already open", g.position.Token)
	}
	if !order.Quantity.IsPositive() {
		return decimal.Zero, domain.Rejected("quantity must be positive, got %s", order.Quantity)
	}

	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "failed to get price for simulated entry: %v", err)
	}

	required := g.collateral(order.Quantity, price)
	if g.wallet[g.pair.To].LessThan(required) {
		return decimal.Zero, domain.Rejected("insufficient %s balance: have %s need %s",
			g.pair.To, g.wallet[g.pair.To], required)
	}

	g.wallet[g.pair.To] = g.wallet[g.pair.To].Sub(required)
	if g.marketType == domain.MarketTypeSpot {
		g.wallet[g.pair.From] = g.wallet[g.pair.From].Add(order.Quantity)
	}

	g.fills[token] = price
	g.position = &domain.OpenPosition{Order: order, FillPrice: price, Token: token, OpenedAt: g.now()}
	g.persist()

	g.logger.Info("Simulated entry executed",
		zap.String("token", token.String()),
		zap.String("direction", order.Direction.String()),
		zap.String("quantity", order.Quantity.String()),
		zap.String("price", price.String()))
	return price, nil
}

func (g *SimulateGateway) Lookup(_ context.Context, token domain.IdempotencyToken) (bool, decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fill, ok := g.fills[token]
	return ok, fill, nil
}

func (g *SimulateGateway) Status(ctx context.Context, pos domain.OpenPosition) (domain.PositionCheck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.position == nil || g.position.Token != pos.Token {
		// the venue does not hold this position anymore
		return domain.PositionCheck{Closed: true, ExitPrice: pos.FillPrice, Reason: ReasonClosed}, nil
	}

	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil {
		return domain.PositionCheck{}, errors.Wrapf(domain.ErrTransport, "failed to get price: %v", err)
	}

	check, ok := crossed(*g.position, price)
	if !ok {
		return domain.PositionCheck{}, nil
	}
	g.settle(check.ExitPrice, check.Reason)
	return check, nil
}

func (g *SimulateGateway) Close(ctx context.Context, pos domain.OpenPosition) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.position == nil || g.position.Token != pos.Token {
		return decimal.Zero, domain.Rejected("no open position for token %s", pos.Token)
	}

	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "failed to get price for simulated exit: %v", err)
	}
	g.settle(price, "exit")
	return price, nil
}

func (g *SimulateGateway) Balance(_ context.Context, currency string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wallet[currency], nil
}

// settle closes the held position at exit. Caller holds mu.
func (g *SimulateGateway) settle(exit decimal.Decimal, reason string) {
	pos := g.position
	qty := pos.Order.Quantity

	pnl := exit.Sub(pos.FillPrice).Mul(qty)
	if pos.Order.Direction == domain.DirectionShort {
		pnl = pnl.Neg()
	}

	if g.marketType == domain.MarketTypeSpot {
		g.wallet[g.pair.From] = g.wallet[g.pair.From].Sub(qty)
		g.wallet[g.pair.To] = g.wallet[g.pair.To].Add(qty.Mul(exit))
	} else {
		// a loss beyond the collateral is capped at the collateral
		back := decimal.Max(g.collateral(qty, pos.FillPrice).Add(pnl), decimal.Zero)
		g.wallet[g.pair.To] = g.wallet[g.pair.To].Add(back)
	}

	g.position = nil
	g.persist()

	g.logger.Info("Simulated exit executed",
		zap.String("token", pos.Token.String()),
		zap.String("reason", reason),
		zap.String("price", exit.String()),
		zap.String("pnl", pnl.String()))
}

// collateral is the quote amount an entry of qty at price takes from the wallet.
func (g *SimulateGateway) collateral(qty, price decimal.Decimal) decimal.Decimal {
	return qty.Mul(price).Div(g.leverage)
}

func (g *SimulateGateway) persist() {
	if g.store == nil {
		return
	}

	state := simstate.State{
		Pair:     g.pair.String(),
		Wallet:   make(map[string]string, len(g.wallet)),
		Fills:    make(map[string]string, len(g.fills)),
		Position: simstate.NewStoredPosition(g.position),
		Leverage: g.leverage.String(),
	}
	for currency, amount := range g.wallet {
		state.Wallet[currency] = amount.String()
	}
	for token, price := range g.fills {
		state.Fills[token.String()] = price.String()
	}

	if err := g.store.Save(state); err != nil {
		g.logger.Warn("failed to persist simulate state", zap.Error(err))
	}
}

func (g *SimulateGateway) restore() error {
	if g.store == nil {
		return nil
	}

	state, err := g.store.Load()
	if err != nil || state == nil {
		return err
	}
	if state.Pair != "" && state.Pair != g.pair.String() {
		return errors.Errorf("state belongs to %s", state.Pair)
	}

	for currency, raw := range state.Wallet {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return errors.Wrapf(err, "decode %s balance", currency)
		}
		g.wallet[currency] = amount
	}
	for token, raw := range state.Fills {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return errors.Wrapf(err, "decode fill %s", token)
		}
		g.fills[domain.IdempotencyToken(token)] = price
	}

	pos, err := state.Position.ToPosition(g.pair)
	if err != nil {
		return err
	}
	g.position = pos
	if pos != nil && state.Leverage != "" {
		lev, err := decimal.NewFromString(state.Leverage)
		if err != nil || !lev.IsPositive() {
			return errors.Errorf("decode leverage %q", state.Leverage)
		}
		g.leverage = lev
	}
	return nil
}
