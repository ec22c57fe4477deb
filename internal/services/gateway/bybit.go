package gateway

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/pricer"
	"go.uber.org/zap"
)

// BybitGateway trades Bybit spot, long only. Protective levels are watched
// against the ticker and closed with a market sell once crossed.
type BybitGateway struct {
	client *bybit.Client
	pair   domain.Pair
	pricer pricer.Pricer
	logger *zap.Logger
}

func NewBybitGateway(client *bybit.Client, pair domain.Pair, p pricer.Pricer, logger *zap.Logger) *BybitGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BybitGateway{client: client, pair: pair, pricer: p, logger: logger}
}

func (g *BybitGateway) market(side bybit.Side, qty decimal.Decimal, linkID string) error {
	_, err := g.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    "spot",
		Symbol:      bybit.SymbolV5(g.pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         qty.String(),
		IsLeverage:  nil,
		OrderLinkID: &linkID,
	})
	return err
}

func (g *BybitGateway) Submit(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error) {
	if !domain.MarketTypeSpot.Allows(order.Direction) {
		return decimal.Zero, domain.Rejected("bybit spot supports long entries only")
	}

	if err := g.market(bybit.SideBuy, order.Quantity, token.Compact()); err != nil {
		// outcome unknown; the executor cannot look it up on this venue and keeps the token
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "bybit create order: %v", err)
	}

	// spot market orders do not report an average price synchronously
	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil || !price.IsPositive() {
		g.logger.Warn("failed to read fill price, using planned entry", zap.Error(err))
		return order.EntryPrice, nil
	}
	return price, nil
}

func (g *BybitGateway) Lookup(context.Context, domain.IdempotencyToken) (bool, decimal.Decimal, error) {
	return false, decimal.Zero, ErrLookupUnsupported
}

func (g *BybitGateway) Status(ctx context.Context, pos domain.OpenPosition) (domain.PositionCheck, error) {
	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil {
		return domain.PositionCheck{}, errors.Wrapf(domain.ErrTransport, "bybit ticker: %v", err)
	}

	check, ok := crossed(pos, price)
	if !ok {
		return domain.PositionCheck{}, nil
	}

	if err := g.market(bybit.SideSell, pos.Order.Quantity, exitID(pos.Token)); err != nil {
		return domain.PositionCheck{}, errors.Wrapf(domain.ErrTransport, "bybit protective exit: %v", err)
	}
	check.ExitPrice = price
	return check, nil
}

func (g *BybitGateway) Close(ctx context.Context, pos domain.OpenPosition) (decimal.Decimal, error) {
	if err := g.market(bybit.SideSell, pos.Order.Quantity, exitID(pos.Token)); err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "bybit exit order: %v", err)
	}
	price, err := g.pricer.GetPrice(ctx, g.pair)
	if err != nil {
		return pos.FillPrice, nil
	}
	return price, nil
}

func (g *BybitGateway) Balance(_ context.Context, currency string) (decimal.Decimal, error) {
	res, err := g.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "get bybit wallet balance: %v", err)
	}
	if len(res.Result.List) == 0 {
		return decimal.Zero, nil
	}

	for _, coin := range res.Result.List[0].Coin {
		if string(coin.Coin) == currency {
			balance, err := decimal.NewFromString(coin.WalletBalance)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse bybit balance")
			}
			return balance, nil
		}
	}
	return decimal.Zero, nil
}
