// Package errors classifies failures into tiers that decide whether an
// operation is retried, reported to the trainee or treated as fatal.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorTier is the classification of a failure.
type ErrorTier int

const (
	// TierTransient covers timeouts and dropped connections.
	TierTransient ErrorTier = iota

	// TierPermanent will not resolve with retry.
	TierPermanent

	// TierUserFixable needs the operator to act, e.g. configure an API key.
	TierUserFixable

	// TierExternalRateLimit is a provider rate limit or quota.
	TierExternalRateLimit

	// TierExternalDegrading is a provider 5xx or overload.
	TierExternalDegrading
)

var tierNames = map[ErrorTier]string{
	TierTransient:         "transient",
	TierPermanent:         "permanent",
	TierUserFixable:       "user_fixable",
	TierExternalRateLimit: "external_rate_limit",
	TierExternalDegrading: "external_degrading",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Retryable reports whether failures of this tier may succeed on retry.
func (t ErrorTier) Retryable() bool {
	switch t {
	case TierTransient, TierExternalRateLimit, TierExternalDegrading:
		return true
	}
	return false
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	RetryAfter time.Duration
}

func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is matches sentinels by tier and message so wrapped sentinels still
// satisfy errors.Is.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if errors.As(target, &te) {
		return e.Tier == te.Tier && e.Message == te.Message
	}
	return false
}

func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
	}
}

func (e *TieredError) WithRetryAfter(d time.Duration) *TieredError {
	e.RetryAfter = d
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Permanent.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierPermanent
}

func IsRetryable(err error) bool {
	return err != nil && GetTier(err).Retryable()
}

var (
	ErrMissingAPIKey    = NewTieredError(TierUserFixable, "missing API key", nil)
	ErrCompletionFailed = NewTieredError(TierExternalDegrading, "completion failed", nil)
	ErrSessionNotFound  = NewTieredError(TierPermanent, "session not found", nil)
	ErrInvalidState     = NewTieredError(TierPermanent, "invalid conversation state", nil)
)

// WrapWithTier wraps err, keeping the tier of an inner TieredError.
func WrapWithTier(tier ErrorTier, message string, err error) error {
	if err == nil {
		return nil
	}

	var te *TieredError
	if errors.As(err, &te) {
		return &TieredError{
			Tier:       te.Tier,
			Message:    message,
			Underlying: err,
			RetryAfter: te.RetryAfter,
		}
	}

	return NewTieredError(tier, message, err)
}
