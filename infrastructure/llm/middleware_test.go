package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-tactician/internal/ports"
)

// TestRetryMiddleware verifies retry behavior per error class.
func TestRetryMiddleware(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failure recovers", func(t *testing.T) {
		core := &stubCore{
			response: "ok",
			errs: []error{
				wrapProviderError("openai", "completion", 429, errors.New("throttled")),
				wrapProviderError("openai", "completion", 503, errors.New("overloaded")),
			},
		}
		wrapped := RetryMiddleware(3, time.Millisecond, 10*time.Millisecond)(core)

		out, err := wrapped.DoRequest(ctx, "hi", nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 3, core.callCount())
	})

	t.Run("non-retryable failure surfaces immediately", func(t *testing.T) {
		core := &stubCore{
			errs: []error{wrapProviderError("openai", "completion", 401, errors.New("bad key"))},
		}
		wrapped := RetryMiddleware(3, time.Millisecond, 10*time.Millisecond)(core)

		_, err := wrapped.DoRequest(ctx, "hi", nil)
		require.ErrorIs(t, err, ports.ErrUnauthorized)
		assert.Equal(t, 1, core.callCount())
	})

	t.Run("retries are bounded", func(t *testing.T) {
		transient := wrapProviderError("openai", "completion", 503, errors.New("down"))
		core := &stubCore{errs: []error{transient, transient, transient, transient, transient}}
		wrapped := RetryMiddleware(2, time.Millisecond, 10*time.Millisecond)(core)

		_, err := wrapped.DoRequest(ctx, "hi", nil)
		require.ErrorIs(t, err, ports.ErrUnavailable)
		assert.Equal(t, 3, core.callCount())
	})

	t.Run("bare sentinel errors are retryable", func(t *testing.T) {
		core := &stubCore{response: "ok", errs: []error{ports.ErrRateLimited}}
		wrapped := RetryMiddleware(1, time.Millisecond, 10*time.Millisecond)(core)

		out, err := wrapped.DoRequest(ctx, "hi", nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})
}

// TestRateLimitMiddleware verifies pacing and cancellation of the wait.
func TestRateLimitMiddleware(t *testing.T) {
	t.Run("spaces successive requests", func(t *testing.T) {
		core := &stubCore{response: "ok"}
		wrapped := RateLimitMiddleware(rate.Every(50*time.Millisecond), 1)(core)

		start := time.Now()
		for i := 0; i < 3; i++ {
			_, err := wrapped.DoRequest(context.Background(), "hi", nil)
			require.NoError(t, err)
		}
		// First request uses the initial token; two more wait 50ms each.
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		core := &stubCore{response: "ok"}
		wrapped := RateLimitMiddleware(rate.Every(time.Hour), 1)(core)

		_, err := wrapped.DoRequest(context.Background(), "hi", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = wrapped.DoRequest(ctx, "hi", nil)
		require.Error(t, err)
		assert.Equal(t, 1, core.callCount())
	})
}

// TestTimeoutMiddleware verifies the per-request deadline.
func TestTimeoutMiddleware(t *testing.T) {
	t.Run("slow request is cut off", func(t *testing.T) {
		core := &stubCore{response: "ok", delay: 200 * time.Millisecond}
		wrapped := TimeoutMiddleware(20 * time.Millisecond)(core)

		_, err := wrapped.DoRequest(context.Background(), "hi", nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("fast request passes through", func(t *testing.T) {
		core := &stubCore{response: "ok"}
		wrapped := TimeoutMiddleware(time.Second)(core)

		out, err := wrapped.DoRequest(context.Background(), "hi", nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})

	t.Run("model passes through the chain", func(t *testing.T) {
		core := &stubCore{}
		wrapped := TimeoutMiddleware(time.Second)(RetryMiddleware(1, time.Millisecond, time.Millisecond)(core))
		assert.Equal(t, "stub-model", wrapped.Model())
	})
}
