package risk

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

func TestLedger_Lifecycle(t *testing.T) {
	l := NewLedger()
	l.Sync(d("1000"))

	require.NoError(t, l.Reserve("a", d("10")))
	assert.True(t, l.Available().Equal(d("990")))

	assert.Error(t, l.Reserve("a", d("1")))

	l.Commit("a")
	assert.True(t, l.Available().Equal(d("990")))
	assert.True(t, l.InFlight().Equal(d("10")))
	assert.Error(t, l.Reserve("a", d("1")))

	l.Settle("a")
	assert.True(t, l.Available().Equal(d("1000")))
	assert.True(t, l.InFlight().IsZero())
}

func TestLedger_ReleaseAndBudget(t *testing.T) {
	l := NewLedger()
	l.Sync(d("15"))

	require.NoError(t, l.Reserve("a", d("10")))
	err := l.Reserve("b", d("10"))
	assert.True(t, errors.Is(err, domain.ErrRiskBudgetExceeded))

	l.Release("a")
	assert.NoError(t, l.Reserve("b", d("10")))
}
