package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// BinanceKlineProvider implements KlineProvider for Binance exchange.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// GetKlines fetches kline data from Binance.
func (p *BinanceKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s klines from Binance for %s", interval, pair.String())
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		c, err := parseCandle(ohlcv{k.Open, k.High, k.Low, k.Close, k.Volume})
		if err != nil {
			return nil, errors.Wrapf(err, "binance kline at index %d", i)
		}
		c.OpenTime = time.UnixMilli(k.OpenTime)
		c.CloseTime = time.UnixMilli(k.CloseTime)
		result[i] = c
	}

	return result, nil
}

// ohlcv raw string fields as exchanges return them.
type ohlcv struct {
	open, high, low, close, volume string
}

func parseCandle(raw ohlcv) (domain.Candle, error) {
	var c domain.Candle
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", raw.open, &c.Open},
		{"high", raw.high, &c.High},
		{"low", raw.low, &c.Low},
		{"close", raw.close, &c.Close},
		{"volume", raw.volume, &c.Volume},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.Candle{}, errors.Wrapf(err, "failed to parse %s", f.name)
		}
		*f.dst = v
	}
	return c, nil
}
