package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// BinancePricer reads ticker prices from the Binance public API.
// It works without API keys, which is what the paper venue relies on.
type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "binance ticker %s: %v", pair.Symbol(), err)
	}
	for _, sp := range prices {
		if sp.Symbol == pair.Symbol() {
			return parsePrice("binance", pair, sp.Price)
		}
	}
	return decimal.Zero, errors.Wrapf(domain.ErrTransport, "binance returned no ticker for %s", pair.Symbol())
}
