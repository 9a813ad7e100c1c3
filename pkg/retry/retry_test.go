package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", apperrors.New(apperrors.ErrCodeExternalService, "flaky")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, apperrors.New(apperrors.ErrCodeNotFound, "no captions")
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	assert.Equal(t, 1, calls)

	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent), "permanent marker must not leak to callers")
}

func TestDo_PermanentErrorOnLastAttempt(t *testing.T) {
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context, attempt int) (int, error) {
		if attempt == 0 {
			return 0, apperrors.New(apperrors.ErrCodeExternalService, "flaky")
		}
		return 0, apperrors.New(apperrors.ErrCodeUnavailable, "private video")
	})

	var permanent *backoff.PermanentError
	require.Error(t, err)
	assert.False(t, errors.As(err, &permanent))
	assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var (
		retries []int
		waits   []time.Duration
	)
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		retries = append(retries, attempt)
		waits = append(waits, wait)
	}

	_, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		return 0, apperrors.New(apperrors.ErrCodeBotDetected, "challenge")
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeBotDetected))
	assert.Equal(t, []int{0, 1}, retries)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(ctx context.Context, attempt int) (int, error) {
			if attempt == 0 {
				close(started)
			}
			return 0, apperrors.New(apperrors.ErrCodeAPITimeout, "slow")
		})
		done <- err
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeAPITimeout))
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(10))
}

func TestDo_CancelledContextSkipsFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, fastPolicy(3), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 1, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
