package retrier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(opts ...Option) *Retrier {
	return New(append([]Option{WithInitialInterval(time.Millisecond)}, opts...)...)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))
	assert.Equal(t, time.Second, b.Delay(50))
}

func TestBackoff_Jitter(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: time.Minute, Multiplier: 2, Jitter: 0.5}

	assert.Equal(t, 500*time.Millisecond, b.jittered(1, func() float64 { return 0 }))
	assert.Equal(t, 1500*time.Millisecond, b.jittered(1, func() float64 { return 1 }))
	assert.Equal(t, time.Second, b.jittered(1, func() float64 { return 0.5 }))
}

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		attempts := 0
		err := New().Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("recovers after failures", func(t *testing.T) {
		attempts := 0
		err := fast(WithMaxRetries(3)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("timeout")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("returns last error when retries are used up", func(t *testing.T) {
		attempts := 0
		err := fast(WithMaxRetries(2)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return fmt.Errorf("attempt %d", attempts)
		})
		assert.EqualError(t, err, "attempt 3")
		assert.Equal(t, 3, attempts)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := New(WithMaxRetries(5), WithInitialInterval(100*time.Millisecond)).Do(ctx, func(ctx context.Context) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})

	t.Run("retryIf rejects", func(t *testing.T) {
		bad := errors.New("bad symbol")
		attempts := 0
		err := fast(WithRetryIf(func(err error) bool { return !errors.Is(err, bad) })).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return bad
		})
		assert.ErrorIs(t, err, bad)
		assert.Equal(t, 1, attempts)
	})

	t.Run("permanent error is unwrapped", func(t *testing.T) {
		cause := errors.New("insufficient funds")
		attempts := 0
		err := fast().Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return Permanent(cause)
		})
		assert.Equal(t, cause, err)
		assert.Equal(t, 1, attempts)
		assert.NoError(t, Permanent(nil))
	})

	t.Run("on retry hook", func(t *testing.T) {
		var seen []int
		_ = fast(
			WithMaxRetries(2),
			WithOnRetry(func(attempt int, err error) { seen = append(seen, attempt) }),
		).Do(context.Background(), func(ctx context.Context) error {
			return errors.New("fail")
		})
		assert.Equal(t, []int{1, 2}, seen)
	})
}

func TestDoWithData(t *testing.T) {
	calls := 0
	val, err := DoWithData(fast(WithMaxRetries(1)), context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("reset by peer")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	_, err = DoWithData(fast(WithMaxRetries(0)), context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("fail")
	})
	assert.Error(t, err)
}
