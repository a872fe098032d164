package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredError_IsAndUnwrap(t *testing.T) {
	base := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("session: %w", WrapWithTier(TierTransient, "completion", base))

	assert.ErrorIs(t, err, base)
	assert.Equal(t, TierTransient, GetTier(err))
	assert.True(t, IsRetryable(err))

	wrapped := fmt.Errorf("load: %w", ErrSessionNotFound)
	assert.ErrorIs(t, wrapped, ErrSessionNotFound)
	assert.NotErrorIs(t, wrapped, ErrInvalidState)
}

func TestWrapWithTier_KeepsInnerTier(t *testing.T) {
	inner := NewTieredError(TierExternalRateLimit, "429", nil).WithRetryAfter(3 * time.Second)
	err := WrapWithTier(TierPermanent, "outer", inner)

	var te *TieredError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TierExternalRateLimit, te.Tier)
	assert.Equal(t, 3*time.Second, te.RetryAfter)
	assert.Nil(t, WrapWithTier(TierPermanent, "x", nil))
}

func TestClassifier(t *testing.T) {
	c := NewErrorClassifier()
	tests := []struct {
		err  error
		tier ErrorTier
	}{
		{errors.New(`POST "https://api.anthropic.com/v1/messages": 429 Too Many Requests`), TierExternalRateLimit},
		{errors.New("529 overloaded_error"), TierExternalDegrading},
		{errors.New("503 Service Unavailable"), TierExternalDegrading},
		{errors.New("401 invalid x-api-key"), TierUserFixable},
		{errors.New("read: connection reset by peer"), TierTransient},
		{context.DeadlineExceeded, TierTransient},
		{context.Canceled, TierPermanent},
		{errors.New("invalid request: messages empty"), TierPermanent},
		{errors.New("something odd"), TierPermanent},
		{ErrMissingAPIKey, TierUserFixable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.tier, c.Classify(tt.err))
		})
	}
}

func TestClassifier_StatusCodeNeedsWordBoundary(t *testing.T) {
	c := NewErrorClassifier()
	assert.Equal(t, TierPermanent, c.Classify(errors.New("request id 15002 rejected")))
}

func TestCalculateDelay(t *testing.T) {
	p := &RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, CalculateDelay(0, p))
	assert.Equal(t, 400*time.Millisecond, CalculateDelay(2, p))
	assert.Equal(t, time.Second, CalculateDelay(10, p))
	assert.Equal(t, time.Duration(0), CalculateDelay(1, nil))
}

func TestAddJitter_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := AddJitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
	assert.Equal(t, time.Second, AddJitter(time.Second, 0))
}

func noSleep(executor *RetryExecutor) *[]time.Duration {
	var waits []time.Duration
	executor.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func TestRetryExecutor_RetriesTransientThenSucceeds(t *testing.T) {
	executor := NewRetryExecutor(DefaultRetryPolicies(3), nil)
	waits := noSleep(executor)

	calls := 0
	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("i/o timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, *waits, 2)
}

func TestRetryExecutor_PermanentFailsImmediately(t *testing.T) {
	executor := NewRetryExecutor(nil, nil)
	noSleep(executor)

	calls := 0
	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("invalid request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, TierPermanent, GetTier(err))
}

func TestRetryExecutor_HonoursMaxRetries(t *testing.T) {
	executor := NewRetryExecutor(DefaultRetryPolicies(1), nil)
	noSleep(executor)

	var retries []ErrorTier
	executor.OnRetry = func(attempt int, tier ErrorTier, delay time.Duration, err error) {
		retries = append(retries, tier)
	}

	calls := 0
	err := executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("429 rate limit")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []ErrorTier{TierExternalRateLimit}, retries)
	assert.Equal(t, TierExternalRateLimit, GetTier(err))
}

func TestRetryExecutor_UsesRetryAfter(t *testing.T) {
	executor := NewRetryExecutor(DefaultRetryPolicies(2), nil)
	waits := noSleep(executor)

	calls := 0
	_ = executor.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return NewTieredError(TierExternalRateLimit, "slow down", nil).WithRetryAfter(7 * time.Second)
		}
		return nil
	})
	require.Len(t, *waits, 1)
	assert.Equal(t, 7*time.Second, (*waits)[0])
}

func TestRetryExecutor_StopsOnCancel(t *testing.T) {
	executor := NewRetryExecutor(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := executor.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("i/o timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
