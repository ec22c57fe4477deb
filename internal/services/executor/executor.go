// Package executor submits orders and owns the position lifecycle.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/risk"
	"go.uber.org/zap"
)

//go:generate mockery --name=OrderGateway --output=mocks --outpkg=mocks

// OrderGateway is the venue side of order execution.
type OrderGateway interface {
	// Submit places the entry and its protective orders, returning the fill price.
	// A definite refusal must match domain.ErrGatewayRejected.
	Submit(ctx context.Context, order domain.Order, token domain.IdempotencyToken) (decimal.Decimal, error)
	// Lookup reports whether an order with token was filled. Read only.
	Lookup(ctx context.Context, token domain.IdempotencyToken) (bool, decimal.Decimal, error)
	// Status reports whether the open position has been closed by its stop or target.
	Status(ctx context.Context, pos domain.OpenPosition) (domain.PositionCheck, error)
	// Close cancels protective orders and closes the position at market.
	Close(ctx context.Context, pos domain.OpenPosition) (decimal.Decimal, error)
	// Balance returns the free balance of currency.
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// DefaultVenueTimeout bounds a submission or lookup once it has been started.
const DefaultVenueTimeout = 30 * time.Second

// TradeExecutor submits at most one order per idempotency token and holds the
// only copy of the position state.
type TradeExecutor struct {
	pair         domain.Pair
	gateway      OrderGateway
	tokens       TokenStore
	ledger       *risk.Ledger
	logger       *zap.Logger
	now          func() time.Time
	venueTimeout time.Duration

	mu    sync.Mutex
	state domain.PositionState
	// unresolved is a submission whose venue outcome is still unknown.
	unresolved *pendingEntry
}

type pendingEntry struct {
	order domain.Order
	token domain.IdempotencyToken
}

// New creates a TradeExecutor. ledger may be nil.
func New(pair domain.Pair, gateway OrderGateway, tokens TokenStore, ledger *risk.Ledger, logger *zap.Logger) *TradeExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore(0)
	}
	return &TradeExecutor{
		pair:         pair,
		gateway:      gateway,
		tokens:       tokens,
		ledger:       ledger,
		logger:       logger,
		now:          time.Now,
		venueTimeout: DefaultVenueTimeout,
		state:        domain.Flat(),
	}
}

// State returns the current position state.
func (e *TradeExecutor) State() domain.PositionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Unresolved returns the token of a submission whose outcome is not yet known.
func (e *TradeExecutor) Unresolved() (domain.IdempotencyToken, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unresolved == nil {
		return "", false
	}
	return e.unresolved.token, true
}

// venueContext keeps a started venue call alive when ctx is cancelled, so an
// interrupt cannot abandon an order halfway.
func (e *TradeExecutor) venueContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.venueTimeout)
}

// Execute submits order unless a position is open or token was already used.
// Submission is never retried; an ambiguous transport failure is resolved by a single Lookup.
// Once the venue has been contacted the call runs to a definite outcome even if ctx is cancelled.
func (e *TradeExecutor) Execute(ctx context.Context, order *domain.Order, token domain.IdempotencyToken) domain.ExecutionResult {
	if order == nil {
		return domain.Skipped(domain.SkipNoSignal)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unresolved != nil {
		if err := e.resolveLocked(ctx); err != nil {
			e.logger.Warn("previous order still unresolved", zap.String("token", e.unresolved.token.String()), zap.Error(err))
			return domain.Skipped(domain.SkipOrderUnresolved)
		}
	}

	if e.state.IsOpen() {
		return domain.Skipped(domain.SkipPositionOpen)
	}

	reserved, err := e.tokens.Reserve(ctx, token)
	if err != nil {
		return domain.RejectedResult(order, token, errors.Wrap(err, "reserve idempotency token"))
	}
	if !reserved {
		e.logger.Info("duplicate submission suppressed", zap.String("token", token.String()))
		return domain.Skipped(domain.SkipDuplicateSubmission)
	}

	if e.ledger != nil {
		if err := e.ledger.Reserve(token, order.RiskAmount()); err != nil {
			e.releaseToken(ctx, token)
			e.logger.Warn("risk budget unavailable", zap.String("risk", order.RiskAmount().String()), zap.Error(err))
			return domain.Skipped(domain.SkipRiskBudgetExhausted)
		}
	}

	venueCtx, cancel := e.venueContext(ctx)
	defer cancel()

	fillPrice, err := e.gateway.Submit(venueCtx, *order, token)
	if err == nil {
		return e.onFilled(order, token, fillPrice)
	}

	if errors.Is(err, domain.ErrGatewayRejected) {
		e.releaseToken(venueCtx, token)
		e.releaseRisk(token)
		e.logger.Warn("order rejected by venue", zap.String("token", token.String()), zap.Error(err))
		return domain.RejectedResult(order, token, err)
	}

	if !errors.Is(err, domain.ErrTransport) {
		err = errors.Wrapf(domain.ErrTransport, "submit %s: %v", token, err)
	}

	// the order may or may not have reached the venue
	filled, lookupPrice, lookupErr := e.gateway.Lookup(venueCtx, token)
	if lookupErr != nil {
		// token and risk stay reserved until a later Lookup settles the outcome
		e.unresolved = &pendingEntry{order: *order, token: token}
		e.logger.Error("order status unknown after transport failure",
			zap.String("token", token.String()), zap.Error(err), zap.NamedError("lookup_error", lookupErr))
		return domain.PendingResult(order, token, err)
	}
	if filled {
		e.logger.Info("ambiguous submission resolved as filled", zap.String("token", token.String()), zap.NamedError("submit_error", err))
		return e.onFilled(order, token, lookupPrice)
	}

	e.releaseRisk(token)
	// token stays reserved so the same intent cannot be sent twice
	return domain.RejectedResult(order, token, err)
}

// resolveLocked looks up the unresolved submission and applies its outcome.
func (e *TradeExecutor) resolveLocked(ctx context.Context) error {
	p := e.unresolved
	venueCtx, cancel := e.venueContext(ctx)
	defer cancel()

	filled, price, err := e.gateway.Lookup(venueCtx, p.token)
	if err != nil {
		if !errors.Is(err, domain.ErrTransport) {
			err = errors.Wrapf(domain.ErrTransport, "lookup %s: %v", p.token, err)
		}
		return err
	}
	e.unresolved = nil
	if filled {
		e.logger.Info("unresolved order found filled", zap.String("token", p.token.String()))
		e.onFilled(&p.order, p.token, price)
		return nil
	}
	e.logger.Info("unresolved order never reached the venue", zap.String("token", p.token.String()))
	e.releaseRisk(p.token)
	return nil
}

func (e *TradeExecutor) onFilled(order *domain.Order, token domain.IdempotencyToken, fillPrice decimal.Decimal) domain.ExecutionResult {
	if !fillPrice.IsPositive() {
		fillPrice = order.EntryPrice
	}
	next, err := e.state.Transition(domain.FilledEvent{Order: *order, FillPrice: fillPrice, Token: token, At: e.now()})
	if err != nil {
		// unreachable while the mutex is held and state was checked flat
		return domain.RejectedResult(order, token, err)
	}
	e.state = next
	if e.ledger != nil {
		e.ledger.Commit(token)
	}
	e.logger.Info("order filled",
		zap.String("direction", order.Direction.String()),
		zap.String("qty", order.Quantity.String()),
		zap.String("fill_price", fillPrice.String()),
		zap.String("stop", order.StopPrice.String()),
		zap.String("take_profit", order.TakeProfitPrice.String()),
		zap.String("token", token.String()))
	return domain.Filled(order, token, fillPrice)
}

// Sync asks the venue whether the open position was closed and returns the close event if so.
// An unresolved submission is looked up first; once it resolves as filled the position is open.
func (e *TradeExecutor) Sync(ctx context.Context) (*domain.ClosedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unresolved != nil {
		if err := e.resolveLocked(ctx); err != nil {
			return nil, errors.Wrap(err, "resolve unresolved order")
		}
		return nil, nil
	}

	pos, ok := e.state.Open()
	if !ok {
		return nil, nil
	}

	check, err := e.gateway.Status(ctx, pos)
	if err != nil {
		if !errors.Is(err, domain.ErrTransport) {
			err = errors.Wrapf(domain.ErrTransport, "position status: %v", err)
		}
		return nil, err
	}
	if !check.Closed {
		return nil, nil
	}

	return e.closeLocked(pos, check.ExitPrice, check.Reason)
}

// Exit closes the open position at market. It is a no-op when flat.
func (e *TradeExecutor) Exit(ctx context.Context, reason string) (*domain.ClosedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.state.Open()
	if !ok {
		return nil, nil
	}

	exitPrice, err := e.gateway.Close(ctx, pos)
	if err != nil {
		if !errors.Is(err, domain.ErrTransport) && !errors.Is(err, domain.ErrGatewayRejected) {
			err = errors.Wrapf(domain.ErrTransport, "close position: %v", err)
		}
		return nil, err
	}

	return e.closeLocked(pos, exitPrice, reason)
}

func (e *TradeExecutor) closeLocked(pos domain.OpenPosition, exitPrice decimal.Decimal, reason string) (*domain.ClosedEvent, error) {
	ev := domain.ClosedEvent{ExitPrice: exitPrice, Reason: reason, At: e.now()}
	next, err := e.state.Transition(ev)
	if err != nil {
		return nil, err
	}
	e.state = next
	if e.ledger != nil {
		e.ledger.Settle(pos.Token)
	}
	e.logger.Info("position closed",
		zap.String("direction", pos.Order.Direction.String()),
		zap.String("entry", pos.FillPrice.String()),
		zap.String("exit", exitPrice.String()),
		zap.String("reason", reason))
	return &ev, nil
}

func (e *TradeExecutor) releaseToken(ctx context.Context, token domain.IdempotencyToken) {
	if err := e.tokens.Release(ctx, token); err != nil {
		e.logger.Warn("failed to release idempotency token", zap.String("token", token.String()), zap.Error(err))
	}
}

func (e *TradeExecutor) releaseRisk(token domain.IdempotencyToken) {
	if e.ledger != nil {
		e.ledger.Release(token)
	}
}
