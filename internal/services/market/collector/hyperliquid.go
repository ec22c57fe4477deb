package collector

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// HyperliquidKlineProvider implements KlineProvider for Hyperliquid exchange.
type HyperliquidKlineProvider struct {
	info *hyperliquid.Info
}

// NewHyperliquidKlineProvider creates a new Hyperliquid kline provider.
func NewHyperliquidKlineProvider(info *hyperliquid.Info) *HyperliquidKlineProvider {
	return &HyperliquidKlineProvider{info: info}
}

// GetKlines fetches kline data.
func (p *HyperliquidKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrConfiguration, "invalid interval %s: %v", interval, err)
	}

	endMs := time.Now().UnixMilli()
	// Fetch a bit more window to account for rounding; add +2 extra candles worth of duration
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()

	// perps are keyed by the base coin, e.g. "BTC"
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from hyperliquid for %s", coin)
	}

	if len(candles) == 0 {
		return nil, errors.Errorf("no candles from hyperliquid for %s %s", coin, interval)
	}

	// Keep only the last `limit` candles if more returned
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	out := make([]domain.Candle, 0, len(candles))
	for i, k := range candles {
		c, err := parseCandle(ohlcv{k.Open, k.High, k.Low, k.Close, k.Volume})
		if err != nil {
			return nil, errors.Wrapf(err, "hyperliquid candle at index %d", i)
		}
		c.OpenTime = time.UnixMilli(k.TimeOpen)
		c.CloseTime = time.UnixMilli(k.TimeClose)
		out = append(out, c)
	}

	return out, nil
}
