package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/events"
	"github.com/vadiminshakov/mtftrader/internal/services/executor"
	"github.com/vadiminshakov/mtftrader/internal/services/risk"
)

// ExitReasonOppositeSignal is recorded when a position is closed because the signal flipped.
const ExitReasonOppositeSignal = "opposite_signal"

const (
	DefaultPollInterval = 5 * time.Minute
	DefaultErrorBackoff = 60 * time.Second
)

// MarketDataSource fetches the fast and slow series for one cycle.
type MarketDataSource interface {
	GetMultiTimeframeData(ctx context.Context, pair domain.Pair) (fast, slow domain.CandleSeries, err error)
}

// IndicatorComputer derives the snapshot at the last bar of a series.
type IndicatorComputer interface {
	Compute(series domain.CandleSeries) (domain.IndicatorSnapshot, error)
}

// SignalGenerator combines fast and slow snapshots into a signal.
type SignalGenerator interface {
	Generate(fast, slow domain.IndicatorSnapshot) domain.Signal
}

// OrderSizer turns a signal into a risk-bounded order.
type OrderSizer interface {
	Size(pair domain.Pair, sig domain.Signal, atr, price, balance decimal.Decimal) (*domain.Order, error)
}

// BalanceSource reports the quote balance that sizing is computed against.
type BalanceSource interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Recorder receives loop metrics.
type Recorder interface {
	RecordCycle(outcome string, took time.Duration)
	RecordSignal(signal string)
	RecordExecution(result, reason string)
	RecordError(kind string)
	SetBalance(balance decimal.Decimal)
	SetPositionOpen(open bool)
}

// LoopConfig timing and behaviour of the control loop.
type LoopConfig struct {
	PollInterval         time.Duration
	ErrorBackoff         time.Duration
	ExitOnOppositeSignal bool
}

// Components everything the loop drives. Metrics is optional.
type Components struct {
	Source     MarketDataSource
	Indicators IndicatorComputer
	Engine     SignalGenerator
	Sizer      OrderSizer
	Ledger     *risk.Ledger
	Executor   *executor.TradeExecutor
	Balance    BalanceSource
	Sink       events.Sink
	Metrics    Recorder
}

// CycleReport summarises one pass of the loop.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Fast      *domain.IndicatorSnapshot
	Slow      *domain.IndicatorSnapshot
	Signal    domain.Signal
	Closed    *domain.ClosedEvent
	Execution *domain.ExecutionResult
	Err       error
}

// Outcome is a short label for metrics and status output.
func (r CycleReport) Outcome() string {
	switch {
	case r.Err != nil:
		return "error"
	case r.Execution != nil:
		return string(r.Execution.Kind)
	case r.Closed != nil:
		return "closed"
	default:
		return "idle"
	}
}

// TradingBot runs the fetch, evaluate, size and execute cycle for one pair.
type TradingBot struct {
	pair   domain.Pair
	cfg    LoopConfig
	c      Components
	logger *zap.Logger
	now    func() time.Time

	mu           sync.RWMutex
	lastActedBar time.Time
	lastReport   *CycleReport
}

// NewTradingBot creates a new trading bot instance
func NewTradingBot(pair domain.Pair, cfg LoopConfig, c Components, logger *zap.Logger) (*TradingBot, error) {
	switch {
	case c.Source == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "market data source is required")
	case c.Indicators == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "indicator set is required")
	case c.Engine == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "signal engine is required")
	case c.Sizer == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "sizer is required")
	case c.Executor == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "executor is required")
	case c.Balance == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "balance source is required")
	case c.Sink == nil:
		return nil, errors.Wrap(domain.ErrConfiguration, "event sink is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if c.Metrics == nil {
		c.Metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TradingBot{
		pair:   pair,
		cfg:    cfg,
		c:      c,
		logger: logger.With(zap.String("pair", pair.String())),
		now:    time.Now,
	}, nil
}

// Run executes cycles until ctx is cancelled. Cycle errors are reported and
// followed by the error backoff; they never stop the loop.
func (b *TradingBot) Run(ctx context.Context) error {
	b.logger.Info("Starting trading loop",
		zap.Duration("poll_interval", b.cfg.PollInterval),
		zap.Duration("error_backoff", b.cfg.ErrorBackoff))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context done, stopping trading bot run loop.")
			return nil
		case <-timer.C:
		}

		report, err := b.RunCycle(ctx)
		wait := b.cfg.PollInterval
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("Context done, stopping trading bot run loop.")
				return nil
			}
			b.report(report.StartedAt, err)
			wait = b.cfg.ErrorBackoff
		}
		b.logger.Debug("Cycle finished", zap.String("outcome", report.Outcome()), zap.Duration("next_in", wait))
		timer.Reset(wait)
	}
}

// RunCycle performs one pass. Panics are converted into errors.
func (b *TradingBot) RunCycle(ctx context.Context) (report CycleReport, err error) {
	report.StartedAt = b.now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in trading cycle: %v", r)
			b.logger.Error("Trading cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		report.Err = err
		report.Duration = b.now().Sub(report.StartedAt)
		b.c.Metrics.RecordCycle(report.Outcome(), report.Duration)
		b.c.Metrics.SetPositionOpen(b.c.Executor.State().IsOpen())
		b.remember(report)
	}()

	err = b.cycle(ctx, &report)
	return report, err
}

func (b *TradingBot) cycle(ctx context.Context, report *CycleReport) error {
	if err := b.syncPosition(ctx, report); err != nil {
		return err
	}

	fastSeries, slowSeries, err := b.c.Source.GetMultiTimeframeData(ctx, b.pair)
	if err != nil {
		return errors.Wrap(err, "fetch market data")
	}

	fast, err := b.c.Indicators.Compute(fastSeries)
	if err != nil {
		return errors.Wrap(err, "compute fast indicators")
	}
	slow, err := b.c.Indicators.Compute(slowSeries)
	if err != nil {
		return errors.Wrap(err, "compute slow indicators")
	}
	report.Fast, report.Slow = &fast, &slow

	sig := b.c.Engine.Generate(fast, slow)
	report.Signal = sig
	b.c.Metrics.RecordSignal(sig.String())
	b.logger.Debug("Signal evaluated",
		zap.Stringer("signal", sig),
		zap.String("close", fast.Close.String()),
		zap.String("atr", fast.ATR.String()),
		zap.String("fast_trend", string(fast.Trend)),
		zap.String("slow_trend", string(slow.Trend)))

	if pos, open := b.c.Executor.State().Open(); open {
		if b.cfg.ExitOnOppositeSignal && sig.Opposes(pos.Order.Direction) {
			return b.exit(ctx, pos, report)
		}
		b.skip(report, domain.SkipPositionOpen)
		return nil
	}

	dir, ok := sig.Direction()
	if !ok {
		b.skip(report, domain.SkipNoSignal)
		return nil
	}

	barOpen := fast.OpenTime
	if b.actedOn(barOpen) {
		b.skip(report, domain.SkipBarAlreadyTraded)
		return nil
	}

	balance, err := b.c.Balance.Balance(ctx)
	if err != nil {
		return errors.Wrap(err, "read balance")
	}
	b.c.Metrics.SetBalance(balance)
	if b.c.Ledger != nil {
		b.c.Ledger.Sync(balance)
	}

	order, err := b.c.Sizer.Size(b.pair, sig, fast.ATR, fast.Close, balance)
	if err != nil {
		if errors.Is(err, domain.ErrDegenerateRisk) {
			// the same bar sizes the same way on every retry
			b.markActed(barOpen)
		}
		return errors.Wrap(err, "size order")
	}

	token := domain.NewIdempotencyToken(b.pair, barOpen, dir)
	res := b.c.Executor.Execute(ctx, order, token)
	report.Execution = &res
	b.c.Metrics.RecordExecution(string(res.Kind), res.Reason)

	switch res.Kind {
	case domain.ExecutionFilled:
		b.markActed(barOpen)
		if pos, ok := b.c.Executor.State().Open(); ok {
			b.c.Sink.Trade(events.NewOpenedEvent(b.now(), pos))
		}
	case domain.ExecutionRejected:
		b.markActed(barOpen)
		b.c.Sink.Trade(events.NewRejectedEvent(b.now(), res))
		return res.Err
	case domain.ExecutionPending:
		b.markActed(barOpen)
		return errors.Wrap(res.Err, "order outcome unresolved")
	}
	return nil
}

func (b *TradingBot) syncPosition(ctx context.Context, report *CycleReport) error {
	pos, open := b.c.Executor.State().Open()
	_, unresolved := b.c.Executor.Unresolved()
	if !open && !unresolved {
		return nil
	}
	closed, err := b.c.Executor.Sync(ctx)
	if err != nil {
		return errors.Wrap(err, "sync position")
	}
	if unresolved {
		if opened, ok := b.c.Executor.State().Open(); ok {
			b.c.Sink.Trade(events.NewOpenedEvent(b.now(), opened))
		}
		return nil
	}
	if closed != nil {
		report.Closed = closed
		b.c.Sink.Trade(events.NewClosedEvent(pos, *closed))
	}
	return nil
}

func (b *TradingBot) exit(ctx context.Context, pos domain.OpenPosition, report *CycleReport) error {
	closed, err := b.c.Executor.Exit(ctx, ExitReasonOppositeSignal)
	if err != nil {
		return errors.Wrap(err, "exit on opposite signal")
	}
	if closed != nil {
		report.Closed = closed
		b.c.Sink.Trade(events.NewClosedEvent(pos, *closed))
	}
	return nil
}

func (b *TradingBot) skip(report *CycleReport, reason string) {
	res := domain.Skipped(reason)
	report.Execution = &res
	b.c.Metrics.RecordExecution(string(res.Kind), reason)
}

func (b *TradingBot) report(cycleAt time.Time, err error) {
	kind := domain.KindOf(err)
	b.c.Metrics.RecordError(string(kind))
	b.c.Sink.Error(events.ErrorEvent{
		Timestamp: b.now(),
		Pair:      b.pair.String(),
		CycleAt:   cycleAt,
		Kind:      kind,
		Message:   err.Error(),
	})
}

func (b *TradingBot) actedOn(barOpen time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastActedBar.Equal(barOpen)
}

func (b *TradingBot) markActed(barOpen time.Time) {
	b.mu.Lock()
	b.lastActedBar = barOpen
	b.mu.Unlock()
}

// ResetBarMemory forgets the last bar an entry was attempted on.
func (b *TradingBot) ResetBarMemory() {
	b.mu.Lock()
	b.lastActedBar = time.Time{}
	b.mu.Unlock()
}

func (b *TradingBot) remember(report CycleReport) {
	b.mu.Lock()
	b.lastReport = &report
	b.mu.Unlock()
}

// PositionUnresolved is reported while a submission's venue outcome is unknown.
const PositionUnresolved = "unresolved"

// Status is a JSON view of the loop for the HTTP status endpoint.
type Status struct {
	Pair         string        `json:"pair"`
	Position     string        `json:"position"`
	Direction    string        `json:"direction,omitempty"`
	Quantity     string        `json:"quantity,omitempty"`
	FillPrice    string        `json:"fill_price,omitempty"`
	Stop         string        `json:"stop,omitempty"`
	TakeProfit   string        `json:"take_profit,omitempty"`
	Token        string        `json:"token,omitempty"`
	LastActedBar *time.Time    `json:"last_acted_bar,omitempty"`
	LastCycle    *CycleSummary `json:"last_cycle,omitempty"`
}

// CycleSummary is the JSON view of a CycleReport.
type CycleSummary struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Signal     string    `json:"signal"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Status returns the current position and the last cycle outcome.
func (b *TradingBot) Status() Status {
	state := b.c.Executor.State()
	st := Status{Pair: b.pair.String(), Position: string(state.Status())}
	if pos, ok := state.Open(); ok {
		st.Direction = pos.Order.Direction.String()
		st.Quantity = pos.Order.Quantity.String()
		st.FillPrice = pos.FillPrice.String()
		st.Stop = pos.Order.StopPrice.String()
		st.TakeProfit = pos.Order.TakeProfitPrice.String()
		st.Token = pos.Token.String()
	}
	if token, ok := b.c.Executor.Unresolved(); ok {
		st.Position = PositionUnresolved
		st.Token = token.String()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.lastActedBar.IsZero() {
		bar := b.lastActedBar
		st.LastActedBar = &bar
	}
	if r := b.lastReport; r != nil {
		sum := &CycleSummary{
			StartedAt:  r.StartedAt,
			DurationMs: r.Duration.Milliseconds(),
			Signal:     r.Signal.String(),
			Outcome:    r.Outcome(),
		}
		if r.Execution != nil {
			sum.Reason = r.Execution.Reason
		}
		if r.Err != nil {
			sum.Error = r.Err.Error()
		}
		st.LastCycle = sum
	}
	return st
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle(string, time.Duration) {}
func (nopRecorder) RecordSignal(string)               {}
func (nopRecorder) RecordExecution(string, string)    {}
func (nopRecorder) RecordError(string)                {}
func (nopRecorder) SetBalance(decimal.Decimal)        {}
func (nopRecorder) SetPositionOpen(bool)              {}
