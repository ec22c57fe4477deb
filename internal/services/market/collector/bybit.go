package collector

import (
	"context"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

const bybitMaxPerRequest = 200

// BybitKlineProvider implements KlineProvider for Bybit spot.
type BybitKlineProvider struct {
	client *bybit.Client
	// pause between paginated requests
	pause time.Duration
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client, pause: 100 * time.Millisecond}
}

// GetKlines fetches kline data. Bybit returns newest first and caps each page
// at 200 items, so older pages are requested with an end bound.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrConfiguration, "invalid interval %s: %v", interval, err)
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrConfiguration, "invalid interval %s: %v", interval, err)
	}

	symbol := bybit.SymbolV5(pair.Symbol())

	var allKlines []bybit.V5GetKlineItem
	remaining := limit
	var end *int64

	for remaining > 0 {
		batchSize := remaining
		if batchSize > bybitMaxPerRequest {
			batchSize = bybitMaxPerRequest
		}

		result, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   symbol,
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", pair.String())
		}

		klines := result.Result.List
		if len(klines) == 0 {
			if len(allKlines) == 0 {
				return nil, errors.Errorf("no kline data returned from Bybit for %s", pair.String())
			}
			break
		}
		allKlines = append(allKlines, klines...)

		if len(klines) < batchSize {
			break
		}
		remaining -= len(klines)

		oldest, err := parseTimestamp(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, err
		}
		prevEnd := oldest.UnixMilli() - 1
		end = &prevEnd

		if remaining > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.pause):
			}
		}
	}

	candles := make([]domain.Candle, len(allKlines))
	for i, k := range allKlines {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
		c, err := parseCandle(ohlcv{k.Open, k.High, k.Low, k.Close, k.Volume})
		if err != nil {
			return nil, errors.Wrapf(err, "bybit kline at index %d", i)
		}
		c.OpenTime = openTime
		// Bybit does not report close time
		c.CloseTime = openTime.Add(dur - time.Millisecond)
		candles[i] = c
	}

	return candles, nil
}
