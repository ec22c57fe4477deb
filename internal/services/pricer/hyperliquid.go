package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// HyperliquidPricer reads perpetual mid prices; mids are keyed by base coin.
type HyperliquidPricer struct {
	info *hyperliquid.Info
}

func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	return &HyperliquidPricer{info: info}
}

func (p *HyperliquidPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if p.info == nil {
		return decimal.Zero, errors.Wrap(domain.ErrConfiguration, "hyperliquid info client is nil")
	}
	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "hyperliquid all mids: %v", err)
	}
	mid, ok := mids[pair.From]
	if !ok {
		return decimal.Zero, errors.Wrapf(domain.ErrConfiguration, "hyperliquid has no perpetual for %s", pair.From)
	}
	return parsePrice("hyperliquid", pair, mid)
}
