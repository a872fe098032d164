package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/adalundhe/voiceguard/core/errors"
)

func httpFailure(status int, header http.Header) (*http.Request, *http.Response) {
	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/v1/messages", nil)
	return req, &http.Response{StatusCode: status, Header: header, Request: req}
}

func TestAPIErrorTiersByStatus(t *testing.T) {
	tests := []struct {
		status int
		tier   coreerrors.ErrorTier
	}{
		{http.StatusTooManyRequests, coreerrors.TierExternalRateLimit},
		{http.StatusUnauthorized, coreerrors.TierUserFixable},
		{http.StatusForbidden, coreerrors.TierUserFixable},
		{http.StatusRequestTimeout, coreerrors.TierTransient},
		{http.StatusServiceUnavailable, coreerrors.TierExternalDegrading},
		{529, coreerrors.TierExternalDegrading},
		{http.StatusBadRequest, coreerrors.TierPermanent},
	}
	for _, tt := range tests {
		req, resp := httpFailure(tt.status, nil)
		err := apiError("anthropic", &anthropic.Error{StatusCode: tt.status, Request: req, Response: resp})
		assert.Equal(t, tt.tier, coreerrors.GetTier(err), "status %d", tt.status)
	}
}

func TestAPIErrorCarriesRetryAfter(t *testing.T) {
	req, resp := httpFailure(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"7"}})
	err := apiError("openai", &openai.Error{StatusCode: http.StatusTooManyRequests, Request: req, Response: resp})

	var te *coreerrors.TieredError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 7*time.Second, te.RetryAfter)

	var oerr *openai.Error
	assert.True(t, errors.As(err, &oerr), "SDK error stays reachable")
}

func TestAPIErrorWithoutStatus(t *testing.T) {
	err := apiError("anthropic", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "anthropic generate")

	var te *coreerrors.TieredError
	assert.False(t, errors.As(err, &te))
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(nil))
	assert.Zero(t, retryAfter(http.Header{"Retry-After": []string{"Wed, 21 Oct 2026 07:28:00 GMT"}}))
	assert.Zero(t, retryAfter(http.Header{"Retry-After": []string{"-1"}}))
	assert.Equal(t, 2*time.Second, retryAfter(http.Header{"Retry-After": []string{"2"}}))
}
