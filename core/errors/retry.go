package errors

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy defines the retry behavior for one error tier.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first call.
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// UseRetryAfter honours a provider supplied retry-after delay.
	UseRetryAfter bool `yaml:"use_retry_after"`

	// JitterPercent is the jitter fraction (0.1 for 10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultRetryPolicies returns policies sized for an interactive session:
// a trainee is waiting, so retries stay short. maxRetries caps every tier.
func DefaultRetryPolicies(maxRetries int) map[ErrorTier]*RetryPolicy {
	capAttempts := func(n int) int {
		if maxRetries >= 0 && n > maxRetries {
			return maxRetries
		}
		return n
	}
	return map[ErrorTier]*RetryPolicy{
		TierTransient: {
			MaxAttempts:   capAttempts(3),
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Multiplier:    2.0,
			JitterPercent: 0.1,
		},
		TierExternalRateLimit: {
			MaxAttempts:   capAttempts(4),
			InitialDelay:  1 * time.Second,
			MaxDelay:      20 * time.Second,
			Multiplier:    2.0,
			UseRetryAfter: true,
			JitterPercent: 0.1,
		},
		TierExternalDegrading: {
			MaxAttempts:   capAttempts(2),
			InitialDelay:  1 * time.Second,
			MaxDelay:      8 * time.Second,
			Multiplier:    2.0,
			JitterPercent: 0.1,
		},
	}
}

// RetryExecutor runs operations, classifying each failure and retrying
// while the tier's policy allows.
type RetryExecutor struct {
	policies   map[ErrorTier]*RetryPolicy
	classifier *ErrorClassifier
	sleep      func(ctx context.Context, d time.Duration) error

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, tier ErrorTier, delay time.Duration, err error)
}

func NewRetryExecutor(policies map[ErrorTier]*RetryPolicy, classifier *ErrorClassifier) *RetryExecutor {
	if policies == nil {
		policies = DefaultRetryPolicies(-1)
	}
	if classifier == nil {
		classifier = NewErrorClassifier()
	}
	return &RetryExecutor{
		policies:   policies,
		classifier: classifier,
		sleep:      waitBeforeRetry,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, exhausts
// the policy of the failing tier or ctx ends. The last error is returned
// wrapped with its tier.
func (e *RetryExecutor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := make(map[ErrorTier]int)
	for retry := 0; ; retry++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		tier := e.classifier.Classify(err)
		policy, ok := e.policies[tier]
		if !ok || attempts[tier] >= policy.MaxAttempts || ctx.Err() != nil {
			return WrapWithTier(tier, "operation failed", err)
		}

		delay := computeDelay(err, attempts[tier], policy)
		attempts[tier]++
		if e.OnRetry != nil {
			e.OnRetry(retry+1, tier, delay, err)
		}
		if werr := e.sleep(ctx, delay); werr != nil {
			return WrapWithTier(tier, "operation failed", err)
		}
	}
}

func computeDelay(err error, attempt int, policy *RetryPolicy) time.Duration {
	if policy.UseRetryAfter {
		var te *TieredError
		if errors.As(err, &te) && te.RetryAfter > 0 {
			return te.RetryAfter
		}
	}
	return AddJitter(CalculateDelay(attempt, policy), policy.JitterPercent)
}

func waitBeforeRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
