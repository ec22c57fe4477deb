package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// BybitPricer reads spot last prices. The bybit client has no context
// support, so ctx is only checked before the call.
type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

func (p *BybitPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	symbol := bybit.SymbolV5(pair.Symbol())
	res, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "bybit tickers %s: %v", symbol, err)
	}
	if len(res.Result.Spot.List) == 0 {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "bybit returned no ticker for %s", symbol)
	}
	return parsePrice("bybit", pair, res.Result.Spot.List[0].LastPrice)
}
