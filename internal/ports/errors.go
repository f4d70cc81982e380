package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors for external collaborators.
var (
	// ErrRateLimited indicates the upstream service throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the upstream service is unreachable or
	// returned a server-side error.
	ErrUnavailable = errors.New("service unavailable")

	// ErrNotFound indicates the requested upstream resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the configured credential was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmptyResponse indicates the generative model returned no content.
	ErrEmptyResponse = errors.New("empty model response")
)

// UpstreamError wraps a failure from an external collaborator with
// enough context to log and classify it. Per-item operations log and
// skip these; whole-operation calls surface them.
type UpstreamError struct {
	// Service names the collaborator: "riot", "vectorstore", "llm".
	Service string

	// Operation is the call that failed.
	Operation string

	// StatusCode is the HTTP status when applicable, zero otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failed (status %d): %v", e.Service, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *UpstreamError) Retryable() bool {
	return errors.Is(e.Err, ErrRateLimited) || errors.Is(e.Err, ErrUnavailable)
}

// NewUpstreamError creates an UpstreamError without an HTTP status.
func NewUpstreamError(service, operation string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Operation: operation, Err: err}
}
