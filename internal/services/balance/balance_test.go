package balance

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

type venue struct {
	balances map[string]decimal.Decimal
	err      error
}

func (v venue) Balance(_ context.Context, currency string) (decimal.Decimal, error) {
	return v.balances[currency], v.err
}

func TestFixed(t *testing.T) {
	f, err := NewFixed(DefaultFixed)
	require.NoError(t, err)

	b, err := f.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(1000)))

	_, err = NewFixed(decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestLive(t *testing.T) {
	l, err := NewLive(venue{balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(250)}}, "USDT")
	require.NoError(t, err)

	b, err := l.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(250)))

	l, err = NewLive(venue{err: errors.New("401")}, "USDT")
	require.NoError(t, err)
	_, err = l.Balance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrTransport))

	_, err = NewLive(nil, "USDT")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	_, err = NewLive(venue{}, "")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
