package gateway

import (
	"context"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"go.uber.org/zap"
)

// BinanceGateway trades on Binance spot or cross margin. Entries are market
// orders followed by STOP_LOSS and TAKE_PROFIT protective orders.
type BinanceGateway struct {
	client     *binance.Client
	pair       domain.Pair
	marketType domain.MarketType
	logger     *zap.Logger
}

func NewBinanceGateway(client *binance.Client, pair domain.Pair, marketType domain.MarketType, logger *zap.Logger) *BinanceGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BinanceGateway{client: client, pair: pair, marketType: marketType, logger: logger}
}

type binanceOrderRequest struct {
	side      binance.SideType
	orderType binance.OrderType
	qty       decimal.Decimal
	stopPrice decimal.Decimal
	clientID  string
	opening   bool
}

func (g *BinanceGateway) place(ctx context.Context, req binanceOrderRequest) (*binance.CreateOrderResponse, error) {
	symbol := g.pair.Symbol()

	if g.marketType == domain.MarketTypeMargin {
		svc := g.client.NewCreateMarginOrderService().Symbol(symbol).
			Side(req.side).Type(req.orderType).
			Quantity(req.qty.String()).
			NewClientOrderID(req.clientID)
		if req.stopPrice.IsPositive() {
			svc = svc.StopPrice(req.stopPrice.String())
		}
		if req.opening {
			svc = svc.SideEffectType(binance.SideEffectTypeMarginBuy)
		} else {
			svc = svc.SideEffectType(binance.SideEffectTypeAutoRepay)
		}
		return svc.Do(ctx)
	}

	svc := g.client.NewCreateOrderService().Symbol(symbol).
		Side(req.side).Type(req.orderType).
		Quantity(req.qty.String()).
		NewClientOrderID(req.clientID)
	if req.stopPrice.IsPositive() {
		svc = svc.StopPrice(req.stopPrice.String())
	}
	return svc.Do(ctx)
}

func (g *BinanceGateway) getOrder(ctx context.Context, clientID string) (*binance.Order, error) {
	if g.marketType == domain.MarketTypeMargin {
		return g.client.NewGetMarginOrderService().
			Symbol(g.pair.Symbol()).
			OrigClientOrderID(clientID).
			Do(ctx)
	}
	return g.client.NewGetOrderService().
		Symbol(g.pair.Symbol()).
		OrigClientOrderID(clientID).
		Do(ctx)
}

func (g *BinanceGateway) cancel(ctx context.Context, clientID string) error {
	var err error
	if g.marketType == domain.MarketTypeMargin {
		_, err = g.client.NewCancelMarginOrderService().
			Symbol(g.pair.Symbol()).
			OrigClientOrderID(clientID).
			Do(ctx)
	} else {
		_, err = g.client.NewCancelOrderService().
			Symbol(g.pair.Symbol()).
			OrigClientOrderID(clientID).
			Do(ctx)
	}
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && (apiErr.Code == -2011 || apiErr.Code == -2013) {
			// already gone
			return nil
		}
		return errors.Wrapf(err, "cancel binance order %s", clientID)
	}
	return nil
}

func binanceSide(action domain.Action) binance.SideType {
	if action.IsBuy() {
		return binance.SideTypeBuy
	}
	return binance.SideTypeSell
}

// classifyBinanceError separates definite refusals from failures whose outcome is unknown.
func classifyBinanceError(op string, err error) error {
	apiErr, ok := err.(*common.APIError)
	if !ok {
		return errors.Wrapf(domain.ErrTransport, "%s: %v", op, err)
	}
	switch apiErr.Code {
	case -1000, -1001, -1003, -1006, -1007, -1021:
		// unknown, disconnected, rate limited, unexpected response, timeout, clock skew
		return errors.Wrapf(domain.ErrTransport, "%s: binance code %d: %s", op, apiErr.Code, apiErr.Message)
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "duplicate") {
		// the first submission reached the venue; let the caller look it up
		return errors.Wrapf(domain.ErrTransport, "%s: duplicate client order id: %s", op, apiErr.Message)
	}
	return domain.Rejected("%s: binance code %d: %s", op, apiErr.Code, apiErr.Message)
}

func (g *BinanceGateway) Submit(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error) {
	if !g.marketType.Allows(order.Direction) {
		return decimal.Zero, domain.Rejected("short entries require margin market type on binance")
	}

	open := domain.OpenAction(order.Direction)
	resp, err := g.place(ctx, binanceOrderRequest{
		side:      binanceSide(open),
		orderType: binance.OrderTypeMarket,
		qty:       order.Quantity,
		clientID:  token.String(),
		opening:   true,
	})
	if err != nil {
		return decimal.Zero, classifyBinanceError("place entry order", err)
	}

	fill := averagePrice(resp.ExecutedQuantity, resp.CummulativeQuoteQuantity)
	if resp.Status != binance.OrderStatusTypeFilled && fill.IsZero() {
		return decimal.Zero, domain.Rejected("entry order not filled, status %s", resp.Status)
	}
	if fill.IsZero() {
		fill = order.EntryPrice
	}

	if err := g.protect(ctx, order, token); err != nil {
		g.logger.Error("protective orders failed, flattening", zap.String("token", token.String()), zap.Error(err))
		if _, flatErr := g.flatten(ctx, order, token); flatErr != nil {
			// keep the position so the loop can still exit it explicitly
			g.logger.Error("flatten after protective failure failed", zap.Error(flatErr))
			return fill, nil
		}
		return decimal.Zero, domain.Rejected("protective orders failed, position flattened: %v", err)
	}

	return fill, nil
}

func (g *BinanceGateway) protect(ctx context.Context, order domain.Order, token domain.IdempotencyToken) error {
	closeSide := binanceSide(domain.CloseAction(order.Direction))

	if _, err := g.place(ctx, binanceOrderRequest{
		side:      closeSide,
		orderType: binance.OrderTypeStopLoss,
		qty:       order.Quantity,
		stopPrice: order.StopPrice,
		clientID:  stopLossID(token),
	}); err != nil {
		return errors.Wrap(err, "place stop loss")
	}

	if order.TakeProfitPrice.IsPositive() {
		if _, err := g.place(ctx, binanceOrderRequest{
			side:      closeSide,
			orderType: binance.OrderTypeTakeProfit,
			qty:       order.Quantity,
			stopPrice: order.TakeProfitPrice,
			clientID:  takeProfitID(token),
		}); err != nil {
			_ = g.cancel(ctx, stopLossID(token))
			return errors.Wrap(err, "place take profit")
		}
	}
	return nil
}

func (g *BinanceGateway) flatten(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error) {
	resp, err := g.place(ctx, binanceOrderRequest{
		side:      binanceSide(domain.CloseAction(order.Direction)),
		orderType: binance.OrderTypeMarket,
		qty:       order.Quantity,
		clientID:  exitID(token),
	})
	if err != nil {
		return decimal.Zero, classifyBinanceError("place exit order", err)
	}
	return averagePrice(resp.ExecutedQuantity, resp.CummulativeQuoteQuantity), nil
}

func (g *BinanceGateway) Lookup(ctx context.Context, token domain.IdempotencyToken) (bool, decimal.Decimal, error) {
	o, err := g.getOrder(ctx, token.String())
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == -2013 {
			// order does not exist
			return false, decimal.Zero, nil
		}
		return false, decimal.Zero, errors.Wrap(err, "failed to query binance order status")
	}

	avg := averagePrice(o.ExecutedQuantity, o.CummulativeQuoteQuantity)
	if o.Status == binance.OrderStatusTypeFilled || avg.IsPositive() {
		return true, avg, nil
	}
	return false, decimal.Zero, nil
}

func (g *BinanceGateway) Status(ctx context.Context, pos domain.OpenPosition) (domain.PositionCheck, error) {
	legs := []struct {
		id, other, reason string
		fallback          decimal.Decimal
	}{
		{stopLossID(pos.Token), takeProfitID(pos.Token), ReasonStopLoss, pos.Order.StopPrice},
		{takeProfitID(pos.Token), stopLossID(pos.Token), ReasonTakeProfit, pos.Order.TakeProfitPrice},
	}

	for _, leg := range legs {
		o, err := g.getOrder(ctx, leg.id)
		if err != nil {
			if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == -2013 {
				continue
			}
			return domain.PositionCheck{}, errors.Wrapf(domain.ErrTransport, "query %s: %v", leg.id, err)
		}
		if o.Status != binance.OrderStatusTypeFilled {
			continue
		}

		// emulate OCO: the sibling must not fire after the position is gone
		if err := g.cancel(ctx, leg.other); err != nil {
			g.logger.Warn("failed to cancel sibling protective order", zap.String("id", leg.other), zap.Error(err))
		}
		exit := averagePrice(o.ExecutedQuantity, o.CummulativeQuoteQuantity)
		if exit.IsZero() {
			exit = leg.fallback
		}
		return domain.PositionCheck{Closed: true, ExitPrice: exit, Reason: leg.reason}, nil
	}

	return domain.PositionCheck{}, nil
}

func (g *BinanceGateway) Close(ctx context.Context, pos domain.OpenPosition) (decimal.Decimal, error) {
	for _, id := range []string{stopLossID(pos.Token), takeProfitID(pos.Token)} {
		if err := g.cancel(ctx, id); err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrTransport, "%v", err)
		}
	}

	exit, err := g.flatten(ctx, pos.Order, pos.Token)
	if err != nil {
		return decimal.Zero, err
	}
	if exit.IsZero() {
		exit = pos.FillPrice
	}
	return exit, nil
}

func (g *BinanceGateway) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if g.marketType == domain.MarketTypeMargin {
		marginAccount, err := g.client.NewGetMarginAccountService().Do(ctx)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrTransport, "get binance margin account balance: %v", err)
		}

		for _, asset := range marginAccount.UserAssets {
			if asset.Asset == currency {
				free, err := decimal.NewFromString(asset.Free)
				if err != nil {
					return decimal.Zero, errors.Wrap(err, "failed to parse margin balance")
				}
				return free, nil
			}
		}
		return decimal.Zero, nil
	}

	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "get binance account balance: %v", err)
	}

	for _, balance := range account.Balances {
		if balance.Asset == currency {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse balance")
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}
