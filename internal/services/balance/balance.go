// Package balance provides the account balance used for position sizing.
package balance

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// DefaultFixed is the balance assumed when no live balance is configured.
var DefaultFixed = decimal.NewFromInt(1000)

// Fixed always reports the same balance.
type Fixed struct {
	amount decimal.Decimal
}

func NewFixed(amount decimal.Decimal) (*Fixed, error) {
	if !amount.IsPositive() {
		return nil, errors.Wrapf(domain.ErrConfiguration, "fixed balance must be positive, got %s", amount)
	}
	return &Fixed{amount: amount}, nil
}

func (f *Fixed) Balance(context.Context) (decimal.Decimal, error) {
	return f.amount, nil
}

type balanceReader interface {
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Live reads the free quote balance from the venue.
type Live struct {
	venue    balanceReader
	currency string
}

func NewLive(venue balanceReader, currency string) (*Live, error) {
	if venue == nil {
		return nil, errors.Wrap(domain.ErrConfiguration, "live balance requires a venue")
	}
	if currency == "" {
		return nil, errors.Wrap(domain.ErrConfiguration, "live balance requires a currency")
	}
	return &Live{venue: venue, currency: currency}, nil
}

func (l *Live) Balance(ctx context.Context) (decimal.Decimal, error) {
	b, err := l.venue.Balance(ctx, l.currency)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			return decimal.Zero, err
		}
		return decimal.Zero, errors.Wrapf(domain.ErrTransport, "read %s balance: %v", l.currency, err)
	}
	return b, nil
}
