package errors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrorClassifier tiers errors that carry no TieredError of their own,
// typically provider SDK failures.
type ErrorClassifier struct {
	transientPats   []*regexp.Regexp
	permanentPats   []*regexp.Regexp
	userFixablePats []*regexp.Regexp
	rateLimitPat    *regexp.Regexp
	degradingPat    *regexp.Regexp
}

func NewErrorClassifier() *ErrorClassifier {
	c, err := NewErrorClassifierFromConfig(DefaultClassifierConfig())
	if err != nil {
		panic(err)
	}
	return c
}

func NewErrorClassifierFromConfig(cfg ClassifierConfig) (*ErrorClassifier, error) {
	c := &ErrorClassifier{}
	specs := []struct {
		patterns []string
		target   *[]*regexp.Regexp
		name     string
	}{
		{cfg.TransientPatterns, &c.transientPats, "transient"},
		{cfg.PermanentPatterns, &c.permanentPats, "permanent"},
		{cfg.UserFixablePatterns, &c.userFixablePats, "user-fixable"},
	}
	for _, spec := range specs {
		for _, p := range spec.patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, WrapWithTier(TierPermanent, "invalid "+spec.name+" pattern", err)
			}
			*spec.target = append(*spec.target, re)
		}
	}
	c.rateLimitPat = statusPattern(`(?i)rate.?limit|too many requests|quota`, cfg.RateLimitStatuses)
	c.degradingPat = statusPattern(`(?i)overloaded|service unavailable|bad gateway`, cfg.DegradingStatuses)
	return c, nil
}

func statusPattern(words string, codes []int) *regexp.Regexp {
	alts := []string{words}
	for _, code := range codes {
		alts = append(alts, fmt.Sprintf(`\b%d\b`, code))
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

// Classify returns the tier of err. Rate limit and degrading signals win
// over message patterns; unrecognised errors are permanent.
func (c *ErrorClassifier) Classify(err error) ErrorTier {
	if err == nil {
		return TierPermanent
	}

	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	if errors.Is(err, context.Canceled) {
		return TierPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TierTransient
	}

	msg := err.Error()
	switch {
	case c.rateLimitPat.MatchString(msg):
		return TierExternalRateLimit
	case c.degradingPat.MatchString(msg):
		return TierExternalDegrading
	case matchesAny(msg, c.userFixablePats):
		return TierUserFixable
	case matchesAny(msg, c.transientPats):
		return TierTransient
	case matchesAny(msg, c.permanentPats):
		return TierPermanent
	}
	return TierPermanent
}

// Wrap returns err as a TieredError with its classified tier.
func (c *ErrorClassifier) Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	return WrapWithTier(c.Classify(err), message, err)
}

func matchesAny(msg string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}
