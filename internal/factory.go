package internal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal/events"
	"github.com/vadiminshakov/mtftrader/internal/metrics"
	"github.com/vadiminshakov/mtftrader/internal/services/balance"
	"github.com/vadiminshakov/mtftrader/internal/services/executor"
	"github.com/vadiminshakov/mtftrader/internal/services/market/analysis"
	"github.com/vadiminshakov/mtftrader/internal/services/market/collector"
	"github.com/vadiminshakov/mtftrader/internal/services/risk"
	"github.com/vadiminshakov/mtftrader/internal/services/strategy/confluence"
	"github.com/vadiminshakov/mtftrader/internal/storage/journal"
)

const broadcastBuffer = 64

// Instance is a trading bot together with the resources it owns.
type Instance struct {
	Bot         *TradingBot
	Metrics     *metrics.Recorder
	Broadcaster *events.Broadcaster
	// Journal is nil when journaling is disabled.
	Journal journal.Journal

	closers []func() error
}

// NewInstance wires every component for cfg.
func NewInstance(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *Instance, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("platform", cfg.Platform))

	inst := &Instance{
		Metrics:     metrics.New(),
		Broadcaster: events.NewBroadcaster(broadcastBuffer),
	}
	defer func() {
		if err != nil {
			_ = inst.Close()
		}
	}()

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create exchange client")
	}
	provider, err := newServiceProvider(client, logger)
	if err != nil {
		return nil, err
	}
	gw, err := provider.Gateway(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order gateway")
	}

	source, err := collector.NewMultiTimeframeCollector(provider.KlineProvider(), collector.Config{
		FastInterval:      cfg.FastInterval,
		SlowInterval:      cfg.SlowInterval,
		Lookback:          cfg.Lookback,
		ClosedCandlesOnly: cfg.ClosedCandlesOnly,
	}, nil, logger)
	if err != nil {
		return nil, err
	}

	indicators, err := analysis.NewIndicatorSet(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	engine, err := confluence.NewSignalEngine(cfg.Signal)
	if err != nil {
		return nil, err
	}
	sizer, err := risk.NewSizer(cfg.Risk)
	if err != nil {
		return nil, err
	}

	tokens, err := inst.newTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ledger := risk.NewLedger()
	exec := executor.New(cfg.Pair, gw, tokens, ledger, logger)

	var bal BalanceSource
	if cfg.BalanceSource == config.BalanceSourceLive {
		bal, err = balance.NewLive(gw, cfg.BalanceCurrency)
	} else {
		bal, err = balance.NewFixed(cfg.FixedBalance)
	}
	if err != nil {
		return nil, err
	}

	sink, err := inst.newSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	inst.Bot, err = NewTradingBot(cfg.Pair, LoopConfig{
		PollInterval:         cfg.PollInterval,
		ErrorBackoff:         cfg.ErrorBackoff,
		ExitOnOppositeSignal: cfg.ExitOnOpposite,
	}, Components{
		Source:     source,
		Indicators: indicators,
		Engine:     engine,
		Sizer:      sizer,
		Ledger:     ledger,
		Executor:   exec,
		Balance:    bal,
		Sink:       sink,
		Metrics:    inst.Metrics,
	}, logger)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (i *Instance) newTokenStore(ctx context.Context, cfg config.Config) (executor.TokenStore, error) {
	if cfg.Dedup.Backend != config.DedupRedis {
		return executor.NewMemoryTokenStore(cfg.Dedup.TTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Dedup.RedisAddr,
		Password: cfg.Credentials.RedisPassword,
	})
	i.closers = append(i.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Dedup.RedisAddr)
	}
	return executor.NewRedisTokenStore(client, cfg.Dedup.TTL), nil
}

func (i *Instance) newSink(cfg config.Config, logger *zap.Logger) (events.Sink, error) {
	sinks := []events.Sink{events.NewZapSink(logger), i.Broadcaster}

	switch cfg.Journal.Type {
	case config.JournalWAL:
		j, err := journal.NewWALStore(cfg.Journal.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open WAL journal")
		}
		i.Journal = j
	case config.JournalSQLite:
		j, err := journal.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open SQLite journal")
		}
		i.Journal = j
	}
	if i.Journal != nil {
		i.closers = append(i.closers, i.Journal.Close)
		sinks = append(sinks, events.NewJournalSink(i.Journal, logger))
	}

	if cfg.Kafka.Enabled() {
		k, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return nil, err
		}
		i.closers = append(i.closers, k.Close)
		sinks = append(sinks, k)
	}

	return events.NewFanOut(logger, sinks...), nil
}

// Status is served by the HTTP status endpoint.
func (i *Instance) Status() any {
	return i.Bot.Status()
}

// Close releases resources in reverse order of acquisition.
func (i *Instance) Close() error {
	var first error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil && first == nil {
			first = err
		}
	}
	i.closers = nil
	return first
}
