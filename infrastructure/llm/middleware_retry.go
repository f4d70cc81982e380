package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-tactician/internal/ports"
)

// retryLLM retries transient provider failures with exponential backoff
// and jitter. Non-retryable failures (bad requests, auth) surface
// immediately.
type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries rate-limited and unavailable responses up to
// maxRetries times.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{next: next, maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
	}
}

func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}

	return "", fmt.Errorf("request failed after retries: %w", lastErr)
}

func (r *retryLLM) Model() string { return r.next.Model() }

func (r *retryLLM) delay(attempt int) time.Duration {
	d := r.baseDelay << attempt
	if d > r.maxDelay {
		d = r.maxDelay
	}
	// Jitter up to 25% avoids synchronized retry storms.
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func retryable(err error) bool {
	var upstream *ports.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return errors.Is(err, ports.ErrRateLimited) || errors.Is(err, ports.ErrUnavailable)
}
