package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUpstreamError verifies wrapping, formatting, and retryability
// classification.
func TestUpstreamError(t *testing.T) {
	t.Run("unwraps to the cause", func(t *testing.T) {
		err := NewUpstreamError("riot", "match", ErrRateLimited)
		require.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("status code appears in the message", func(t *testing.T) {
		err := &UpstreamError{Service: "riot", Operation: "match", StatusCode: 429, Err: ErrRateLimited}
		assert.Contains(t, err.Error(), "status 429")
		assert.Contains(t, err.Error(), "riot")
	})

	t.Run("retryability follows the sentinel", func(t *testing.T) {
		assert.True(t, NewUpstreamError("riot", "match", ErrRateLimited).Retryable())
		assert.True(t, NewUpstreamError("riot", "match", ErrUnavailable).Retryable())
		assert.False(t, NewUpstreamError("riot", "match", ErrNotFound).Retryable())
		assert.False(t, NewUpstreamError("riot", "match", ErrUnauthorized).Retryable())
		assert.False(t, NewUpstreamError("riot", "match", errors.New("other")).Retryable())
	})
}
