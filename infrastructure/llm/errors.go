package llm

import (
	"errors"
	"net/http"

	"github.com/ahrav/go-tactician/internal/ports"
)

// Provider-neutral construction errors.
var (
	// ErrEmptyAPIKey indicates a client was configured without a credential.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrNoChoices indicates the provider returned no completion choices.
	ErrNoChoices = errors.New("no response choices returned")
)

// classifyStatus maps a provider HTTP status to the ports error
// taxonomy so callers can test with errors.Is regardless of provider.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrUnauthorized
	case status >= 500:
		return ports.ErrUnavailable
	default:
		return nil
	}
}

// wrapProviderError tags a provider failure as an UpstreamError,
// substituting the classified sentinel when the status is recognized.
func wrapProviderError(provider, operation string, status int, err error) error {
	if sentinel := classifyStatus(status); sentinel != nil {
		err = errors.Join(sentinel, err)
	}
	return &ports.UpstreamError{
		Service:    "llm/" + provider,
		Operation:  operation,
		StatusCode: status,
		Err:        err,
	}
}
