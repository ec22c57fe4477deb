// Package gateway implements order execution against exchanges and a paper venue.
package gateway

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// ErrLookupUnsupported the venue cannot query orders by client id.
var ErrLookupUnsupported = errors.New("lookup by client id is not supported")

// Exit reasons reported through domain.PositionCheck.
const (
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonClosed     = "closed_externally"
)

// client order id prefixes for protective and exit orders
const (
	stopLossPrefix   = "sl-"
	takeProfitPrefix = "tp-"
	exitPrefix       = "x-"
)

func stopLossID(token domain.IdempotencyToken) string   { return stopLossPrefix + token.Compact() }
func takeProfitID(token domain.IdempotencyToken) string { return takeProfitPrefix + token.Compact() }
func exitID(token domain.IdempotencyToken) string       { return exitPrefix + token.Compact() }

// averagePrice returns quote/qty, or zero when nothing executed.
func averagePrice(executedQty, cumulativeQuote string) decimal.Decimal {
	qty, err := decimal.NewFromString(executedQty)
	if err != nil || !qty.IsPositive() {
		return decimal.Zero
	}
	quote, err := decimal.NewFromString(cumulativeQuote)
	if err != nil || !quote.IsPositive() {
		return decimal.Zero
	}
	return quote.Div(qty)
}

// crossed reports whether price has reached the stop or the target of pos.
func crossed(pos domain.OpenPosition, price decimal.Decimal) (domain.PositionCheck, bool) {
	o := pos.Order
	switch o.Direction {
	case domain.DirectionLong:
		if price.LessThanOrEqual(o.StopPrice) {
			return domain.PositionCheck{Closed: true, ExitPrice: o.StopPrice, Reason: ReasonStopLoss}, true
		}
		if o.TakeProfitPrice.IsPositive() && price.GreaterThanOrEqual(o.TakeProfitPrice) {
			return domain.PositionCheck{Closed: true, ExitPrice: o.TakeProfitPrice, Reason: ReasonTakeProfit}, true
		}
	case domain.DirectionShort:
		if price.GreaterThanOrEqual(o.StopPrice) {
			return domain.PositionCheck{Closed: true, ExitPrice: o.StopPrice, Reason: ReasonStopLoss}, true
		}
		if o.TakeProfitPrice.IsPositive() && price.LessThanOrEqual(o.TakeProfitPrice) {
			return domain.PositionCheck{Closed: true, ExitPrice: o.TakeProfitPrice, Reason: ReasonTakeProfit}, true
		}
	}
	return domain.PositionCheck{}, false
}
