// Package pricer reads last traded prices from exchanges.
package pricer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/pkg/retrier"
)

// Pricer returns the current price of a pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// parsePrice converts a venue price string, treating anything that is not a
// positive number as a missing quote.
func parsePrice(venue string, pair domain.Pair, raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "%s returned no usable price for %s: %q", venue, pair, raw)
	}
	return price, nil
}

// Retrying repeats transport failures of the wrapped pricer.
type Retrying struct {
	next    Pricer
	retrier *retrier.Retrier
}

// NewRetrying wraps p. A nil r gets two quick retries.
func NewRetrying(p Pricer, r *retrier.Retrier, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(250*time.Millisecond),
			retrier.WithRetryIf(func(err error) bool { return errors.Is(err, domain.ErrTransport) }),
			retrier.WithOnRetry(func(attempt int, err error) {
				logger.Warn("price fetch failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}),
		)
	}
	return &Retrying{next: p, retrier: r}
}

func (p *Retrying) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return p.next.GetPrice(ctx, pair)
	})
}
