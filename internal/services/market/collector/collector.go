// Package collector fetches candle history for the entry and context timeframes.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fetchTimeout = 30 * time.Second

// KlineProvider fetches historical candles for a trading pair.
// interval uses the exchange-neutral form ("1m", "15m", "1h", "4h", "1d").
type KlineProvider interface {
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}

// Config describes what MultiTimeframeCollector fetches.
type Config struct {
	FastInterval string
	SlowInterval string
	Lookback     int
	// ClosedCandlesOnly drops the still-forming last candle.
	ClosedCandlesOnly bool
}

// MultiTimeframeCollector returns candle series for the fast and slow timeframes.
type MultiTimeframeCollector struct {
	provider KlineProvider
	cfg      Config
	retrier  *retrier.Retrier
	logger   *zap.Logger
	now      func() time.Time
}

func NewMultiTimeframeCollector(provider KlineProvider, cfg Config, r *retrier.Retrier, logger *zap.Logger) (*MultiTimeframeCollector, error) {
	if provider == nil {
		return nil, errors.Wrap(domain.ErrConfiguration, "kline provider is required")
	}
	if cfg.Lookback <= 0 {
		return nil, errors.Wrapf(domain.ErrConfiguration, "lookback must be positive, got %d", cfg.Lookback)
	}
	for _, interval := range []string{cfg.FastInterval, cfg.SlowInterval} {
		if _, err := parseIntervalToDuration(interval); err != nil {
			return nil, errors.Wrapf(domain.ErrConfiguration, "timeframe %q: %v", interval, err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithInitialInterval(500*time.Millisecond),
			retrier.WithOnRetry(func(attempt int, err error) {
				logger.Warn("kline fetch failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}),
		)
	}

	return &MultiTimeframeCollector{
		provider: provider,
		cfg:      cfg,
		retrier:  r,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// GetMultiTimeframeData fetches both timeframes concurrently.
func (c *MultiTimeframeCollector) GetMultiTimeframeData(ctx context.Context, pair domain.Pair) (domain.CandleSeries, domain.CandleSeries, error) {
	var fast, slow domain.CandleSeries

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.FetchSeries(gctx, pair, c.cfg.FastInterval)
		fast = s
		return err
	})
	g.Go(func() error {
		s, err := c.FetchSeries(gctx, pair, c.cfg.SlowInterval)
		slow = s
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CandleSeries{}, domain.CandleSeries{}, err
	}

	return fast, slow, nil
}

// FetchSeries reads one timeframe, ordered by open time.
func (c *MultiTimeframeCollector) FetchSeries(ctx context.Context, pair domain.Pair, interval string) (domain.CandleSeries, error) {
	limit := c.cfg.Lookback
	if c.cfg.ClosedCandlesOnly {
		limit++
	}

	candles, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.Candle, error) {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		candles, err := c.provider.GetKlines(ctxWithTimeout, pair, interval, limit)
		if errors.Is(err, domain.ErrConfiguration) {
			// a bad symbol or interval will not fix itself
			return nil, retrier.Permanent(err)
		}
		return candles, err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrConfiguration) {
			return domain.CandleSeries{}, err
		}
		return domain.CandleSeries{}, errors.Wrapf(domain.ErrTransport, "fetch klines for timeframe %s: %v", interval, err)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	if c.cfg.ClosedCandlesOnly {
		candles = dropForming(candles, c.now())
	}
	if len(candles) > c.cfg.Lookback {
		candles = candles[len(candles)-c.cfg.Lookback:]
	}

	c.logger.Debug("klines fetched",
		zap.String("pair", pair.String()),
		zap.String("interval", interval),
		zap.Int("count", len(candles)))

	return domain.NewCandleSeries(pair, interval, candles), nil
}

// dropForming removes the last candle when it has not closed yet at now.
func dropForming(candles []domain.Candle, now time.Time) []domain.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.CloseTime.After(now) {
		return candles[:len(candles)-1]
	}
	return candles
}
