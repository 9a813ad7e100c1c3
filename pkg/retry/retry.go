package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// Policy controls retry behavior.
type Policy struct {
	MaxAttempts int // total attempts including the first one
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to errors.IsRetryable.
	Retryable func(error) bool

	// OnRetry runs before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy matches the caption fetch budget: base 1s, cap 5s.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    5 * time.Second,
	Multiplier:  2.0,
}

// backOff builds the exponential schedule. Delays are not randomized so
// the documented budget holds exactly.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = p.Multiplier
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Reset()
	return b
}

// Delay returns the wait before the attempt following attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	b := p.backOff()
	wait := b.NextBackOff()
	for range attempt {
		wait = b.NextBackOff()
	}
	return wait
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. A cancelled wait reports the last attempt's error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	attempts := max(p.MaxAttempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = apperrors.IsRetryable
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var (
		attempt int
		lastErr error
	)
	op := func() (T, error) {
		result, err := fn(ctx, attempt)
		attempt++
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(attempt-1, err, wait)
		}))
	}

	result, err := backoff.Retry(ctx, op, opts...)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if lastErr != nil && ctx.Err() != nil && errors.Is(err, context.Cause(ctx)) {
		return zero, lastErr
	}
	return zero, err
}
