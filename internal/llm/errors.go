package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/the-bills-must-flow/internal/common"
)

// Classifier errors.
var (
	ErrProviderConfig = errors.New("invalid LLM provider configuration")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrNoJSONObject   = errors.New("response contains no JSON object")
	ErrDecode         = errors.New("failed to decode suggestions")
)

// statusError classifies a non-200 provider response. Rate limits and server
// errors are retried; other client errors are not.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return common.Permanent(err)
	}
}
