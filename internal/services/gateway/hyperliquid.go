package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/pricer"
	"go.uber.org/zap"
)

const hyperliquidSlippage = 0.005

// HyperliquidGateway trades Hyperliquid perpetuals. Market orders are emulated
// with IOC limits at a slippage price; stops and targets are reduce-only triggers.
type HyperliquidGateway struct {
	ex          *hyperliquid.Exchange
	info        *hyperliquid.Info
	accountAddr string
	pair        domain.Pair
	pricer      pricer.Pricer
	logger      *zap.Logger
}

func NewHyperliquidGateway(ctx context.Context, ex *hyperliquid.Exchange, accountAddr string, pair domain.Pair, leverage int, p pricer.Pricer, logger *zap.Logger) (*HyperliquidGateway, error) {
	if ex == nil {
		return nil, errors.Wrap(domain.ErrConfiguration, "hyperliquid exchange is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if leverage > 1 {
		if _, err := ex.UpdateLeverage(ctx, leverage, pair.From, true); err != nil {
			return nil, errors.Wrap(err, "failed to set leverage for hyperliquid")
		}
	}

	return &HyperliquidGateway{
		ex:          ex,
		info:        ex.Info(),
		accountAddr: accountAddr,
		pair:        pair,
		pricer:      p,
		logger:      logger,
	}, nil
}

// cloid maps a free-form id onto a Hyperliquid cloid (0x + 32 hex chars).
func cloid(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return "0x" + hex.EncodeToString(sum[:16])
}

func (g *HyperliquidGateway) ioc(ctx context.Context, isBuy bool, qty decimal.Decimal, id string, reduceOnly bool) error {
	size, _ := qty.Round(8).Float64()

	px, err := g.ex.SlippagePrice(ctx, g.pair.From, isBuy, hyperliquidSlippage, nil)
	if err != nil {
		return errors.Wrapf(domain.ErrTransport, "slippage price: %v", err)
	}

	c := cloid(id)
	_, err = g.ex.Order(ctx, hyperliquid.CreateOrderRequest{
		Coin:          g.pair.From,
		IsBuy:         isBuy,
		Price:         px,
		Size:          size,
		ReduceOnly:    reduceOnly,
		ClientOrderID: &c,
		OrderType: hyperliquid.OrderType{
			Limit: &hyperliquid.LimitOrderType{Tif: hyperliquid.TifIoc},
		},
	}, nil)
	if err != nil {
		return errors.Wrapf(domain.ErrTransport, "hyperliquid order: %v", err)
	}
	return nil
}

func (g *HyperliquidGateway) Submit(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error) {
	if err := g.ioc(ctx, order.Direction == domain.DirectionLong, order.Quantity, token.String(), false); err != nil {
		return decimal.Zero, err
	}

	filled, fill, err := g.Lookup(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	if !filled {
		return decimal.Zero, domain.Rejected("ioc entry was not filled")
	}
	if fill.IsZero() {
		fill = order.EntryPrice
	}

	if err := g.placeTriggers(ctx, order, token); err != nil {
		g.logger.Error("trigger placement failed, flattening", zap.String("token", token.String()), zap.Error(err))
		if flatErr := g.ioc(ctx, order.Direction != domain.DirectionLong, order.Quantity, exitID(token), true); flatErr != nil {
			g.logger.Error("flatten after trigger failure failed", zap.Error(flatErr))
			return fill, nil
		}
		return decimal.Zero, domain.Rejected("protective triggers failed, position flattened: %v", err)
	}

	return fill, nil
}

func (g *HyperliquidGateway) placeTriggers(ctx context.Context, order domain.Order, token domain.IdempotencyToken) error {
	size, _ := order.Quantity.Round(8).Float64()
	isBuy := order.Direction == domain.DirectionShort

	orders := make([]hyperliquid.CreateOrderRequest, 0, 2)
	add := func(px decimal.Decimal, tpsl hyperliquid.Tpsl, id string) {
		if !px.IsPositive() {
			return
		}
		priceF, _ := px.Round(8).Float64()
		c := cloid(id)
		orders = append(orders, hyperliquid.CreateOrderRequest{
			Coin:       g.pair.From,
			IsBuy:      isBuy,
			Price:      priceF,
			Size:       size,
			ReduceOnly: true,
			OrderType: hyperliquid.OrderType{
				Trigger: &hyperliquid.TriggerOrderType{
					TriggerPx: priceF,
					IsMarket:  true,
					Tpsl:      tpsl,
				},
			},
			ClientOrderID: &c,
		})
	}
	add(order.StopPrice, hyperliquid.StopLoss, stopLossID(token))
	add(order.TakeProfitPrice, hyperliquid.TakeProfit, takeProfitID(token))

	if _, err := g.ex.BulkOrders(ctx, orders, nil); err != nil {
		return errors.Wrap(err, "place hyperliquid tpsl orders")
	}
	return nil
}

func (g *HyperliquidGateway) cancelTriggers(ctx context.Context) error {
	open, err := g.info.FrontendOpenOrders(ctx, g.accountAddr)
	if err != nil {
		return errors.Wrap(err, "list open orders")
	}

	var cancels []hyperliquid.CancelOrderRequest
	for _, o := range open {
		if !strings.EqualFold(o.Coin, g.pair.From) || !o.IsTrigger {
			continue
		}
		cancels = append(cancels, hyperliquid.CancelOrderRequest{Coin: g.pair.From, OrderID: o.Oid})
	}
	if len(cancels) == 0 {
		return nil
	}
	if _, err := g.ex.BulkCancel(ctx, cancels); err != nil {
		return errors.Wrap(err, "cancel triggers")
	}
	return nil
}

func (g *HyperliquidGateway) Lookup(ctx context.Context, token domain.IdempotencyToken) (bool, decimal.Decimal, error) {
	res, err := g.info.QueryOrderByCloid(ctx, g.accountAddr, cloid(token.String()))
	if err != nil {
		return false, decimal.Zero, errors.Wrap(err, "query order by cloid")
	}
	if res == nil || res.Status != hyperliquid.OrderQueryStatusSuccess {
		return false, decimal.Zero, nil
	}
	if res.Order.Status != hyperliquid.OrderStatusValueFilled {
		return false, decimal.Zero, nil
	}

	entry, _, err := g.position(ctx)
	if err != nil {
		return true, decimal.Zero, nil
	}
	return true, entry, nil
}

// position returns entry price and signed size of the pair's perp position.
func (g *HyperliquidGateway) position(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	st, err := g.info.UserState(ctx, g.accountAddr)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.Wrapf(domain.ErrTransport, "get user state: %v", err)
	}

	for _, ap := range st.AssetPositions {
		if ap.Position.Coin != g.pair.From {
			continue
		}
		size, err := decimal.NewFromString(strings.TrimSpace(ap.Position.Szi))
		if err != nil || size.IsZero() {
			continue
		}
		var entry decimal.Decimal
		if ap.Position.EntryPx != nil {
			entry, _ = decimal.NewFromString(*ap.Position.EntryPx)
		}
		if entry.IsZero() {
			entry, _ = g.mid(ctx)
		}
		return entry, size, nil
	}
	return decimal.Zero, decimal.Zero, nil
}

func (g *HyperliquidGateway) mid(ctx context.Context) (decimal.Decimal, error) {
	if g.pricer == nil {
		return pricer.NewHyperliquidPricer(g.info).GetPrice(ctx, g.pair)
	}
	return g.pricer.GetPrice(ctx, g.pair)
}

func (g *HyperliquidGateway) Status(ctx context.Context, pos domain.OpenPosition) (domain.PositionCheck, error) {
	_, size, err := g.position(ctx)
	if err != nil {
		return domain.PositionCheck{}, err
	}
	if !size.IsZero() {
		return domain.PositionCheck{}, nil
	}

	// position is gone; one trigger fired or it was closed outside the bot
	if err := g.cancelTriggers(ctx); err != nil {
		g.logger.Warn("failed to cancel leftover triggers", zap.Error(err))
	}

	mid, err := g.mid(ctx)
	if err != nil {
		return domain.PositionCheck{Closed: true, ExitPrice: pos.Order.StopPrice, Reason: ReasonClosed}, nil
	}
	if check, ok := crossed(pos, mid); ok {
		return check, nil
	}
	return domain.PositionCheck{Closed: true, ExitPrice: mid, Reason: ReasonClosed}, nil
}

func (g *HyperliquidGateway) Close(ctx context.Context, pos domain.OpenPosition) (decimal.Decimal, error) {
	if err := g.cancelTriggers(ctx); err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "%v", err)
	}
	if err := g.ioc(ctx, pos.Order.Direction != domain.DirectionLong, pos.Order.Quantity, exitID(pos.Token), true); err != nil {
		return decimal.Zero, err
	}
	exit, err := g.mid(ctx)
	if err != nil {
		return pos.FillPrice, nil
	}
	return exit, nil
}

func (g *HyperliquidGateway) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if !strings.EqualFold(currency, g.pair.To) {
		// perp accounts are denominated in the quote currency only
		return decimal.Zero, nil
	}

	st, err := g.info.UserState(ctx, g.accountAddr)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "get user state: %v", err)
	}
	if st.MarginSummary.TotalRawUsd != "" {
		if d, err := decimal.NewFromString(st.MarginSummary.TotalRawUsd); err == nil {
			return d, nil
		}
	}
	if st.Withdrawable != "" {
		if d, err := decimal.NewFromString(st.Withdrawable); err == nil {
			return d, nil
		}
	}
	return decimal.Zero, nil
}
