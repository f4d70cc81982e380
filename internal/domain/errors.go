package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced by the aggregation and advice paths.
var (
	// ErrNoData indicates that aggregation was requested against an empty
	// match cache. Surfaced to the caller, never retried internally.
	ErrNoData = errors.New("no cached match data")

	// ErrInvalidSnapshot indicates that a game snapshot failed validation
	// before any retrieval or generation was attempted.
	ErrInvalidSnapshot = errors.New("invalid game snapshot")
)

// ValidationError collects one or more validation failures for an entity.
// It is produced at ingestion and request boundaries; values that fail
// validation never reach the aggregation core.
type ValidationError struct {
	// Entity names the value that failed validation.
	Entity string

	// Problems lists the individual validation failures.
	Problems []string
}

// NewValidationError creates an empty ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}

// Add appends a validation failure message.
func (e *ValidationError) Add(msg string) { e.Problems = append(e.Problems, msg) }

// HasErrors reports whether any failure has been recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Problems) > 0 }

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("validation failed for %s: %s", e.Entity, e.Problems[0])
	}
	return fmt.Sprintf("validation failed for %s: %v", e.Entity, e.Problems)
}
