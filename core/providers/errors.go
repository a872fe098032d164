package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	coreerrors "github.com/adalundhe/voiceguard/core/errors"
)

// apiError tiers an SDK failure by its HTTP status so the retry executor
// does not have to guess from the message. A Retry-After header on a
// rate limit response is carried along. Errors without a status are
// returned wrapped as is.
func apiError(provider string, err error) error {
	status, header := apiStatus(err)
	if status == 0 {
		return fmt.Errorf("%s generate: %w", provider, err)
	}

	te := coreerrors.NewTieredError(tierForStatus(status), fmt.Sprintf("%s generate (HTTP %d)", provider, status), err)
	if status == http.StatusTooManyRequests {
		te.WithRetryAfter(retryAfter(header))
	}
	return te
}

func apiStatus(err error) (int, http.Header) {
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return aerr.StatusCode, responseHeader(aerr.Response)
	}
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return oerr.StatusCode, responseHeader(oerr.Response)
	}
	return 0, nil
}

func responseHeader(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	return resp.Header
}

func tierForStatus(status int) coreerrors.ErrorTier {
	switch {
	case status == http.StatusTooManyRequests:
		return coreerrors.TierExternalRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return coreerrors.TierUserFixable
	case status == http.StatusRequestTimeout || status == http.StatusConflict:
		return coreerrors.TierTransient
	case status >= 500:
		return coreerrors.TierExternalDegrading
	default:
		return coreerrors.TierPermanent
	}
}

// retryAfter reads a Retry-After header given in seconds. Dates and
// missing headers yield zero.
func retryAfter(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
