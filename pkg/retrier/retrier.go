// Package retrier retries context-aware calls with capped exponential backoff.
package retrier

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Backoff computes the wait before each retry.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the fraction (0..1) of the delay that is randomised in both directions.
	Jitter float64
}

// DefaultBackoff starts at 1s, doubles, and caps at 30s with 10% jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

// Delay returns the un-jittered wait before retry n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < n; i++ {
		d *= b.Multiplier
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func (b Backoff) jittered(n int, random func() float64) time.Duration {
	base := b.Delay(n)
	if b.Jitter <= 0 {
		return base
	}
	d := time.Duration(float64(base) + (random()*2-1)*b.Jitter*float64(base))
	if d < 0 {
		return 0
	}
	return d
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retrier runs a call up to 1+maxRetries times.
type Retrier struct {
	backoff    Backoff
	maxRetries int
	retryIf    func(error) bool
	onRetry    func(attempt int, err error)
	random     func() float64
}

type Option func(*Retrier)

func WithBackoff(b Backoff) Option {
	return func(r *Retrier) { r.backoff = b }
}

func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.backoff.Initial = d }
}

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithRetryIf limits retries to errors for which fn returns true.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) { r.retryIf = fn }
}

// WithOnRetry registers a hook called before each retry with the failed attempt number.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

func New(opts ...Option) *Retrier {
	r := &Retrier{
		backoff:    DefaultBackoff(),
		maxRetries: 5,
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) retryable(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	return r.retryIf == nil || r.retryIf(err)
}

// Do calls fn until it succeeds or returns a non-retryable error. It also
// stops when ctx ends or the retries are used up.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !r.retryable(err) {
			if p, ok := err.(*permanentError); ok {
				return p.err
			}
			return err
		}
		if attempt >= r.maxRetries {
			return err
		}
		if r.onRetry != nil {
			r.onRetry(attempt+1, err)
		}

		timer := time.NewTimer(r.backoff.jittered(attempt+1, r.random))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// DoWithData is Do for calls that return a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
