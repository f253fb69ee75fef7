// Package ledgererror defines the error taxonomy of the pattern engine and
// its caches. A missing pattern is never an error; only population failures,
// invalid input and lifecycle misuse surface to callers.
package ledgererror

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLookupUnavailable reports that a tenant has no known bank accounts.
	// It is logged and degrades predictions to "no prediction"; it is never
	// returned from a predict call.
	ErrLookupUnavailable = errors.New("known-account lookup unavailable")

	// ErrNoTenant is returned when an operation is called without a tenant.
	ErrNoTenant = errors.New("tenant identifier is required")

	// ErrClosed is returned by a cache or service used after Close.
	ErrClosed = errors.New("service closed")
)

// PopulationError reports that a cache entry could not be populated from the
// ledger store. The entry has been reset to empty and the next caller may retry.
type PopulationError struct {
	Tenant   string
	Kind     string
	Attempts int
	Err      error
}

func (e *PopulationError) Error() string {
	return fmt.Sprintf("populating %s cache for tenant %s failed after %d attempt(s): %v",
		e.Kind, e.Tenant, e.Attempts, e.Err)
}

func (e *PopulationError) Unwrap() error {
	return e.Err
}

// Retryable is always true: a failed population leaves no state behind.
func (e *PopulationError) Retryable() bool {
	return true
}

// ValidationError represents invalid input handed to the engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure reported by a ledger store adapter.
type StoreError struct {
	Driver    string
	Operation string
	Tenant    string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s for tenant %s: %v", e.Driver, e.Operation, e.Tenant, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err describes a transient condition that a
// caller may retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var popErr *PopulationError
	if errors.As(err, &popErr) {
		return popErr.Retryable()
	}
	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}
	return false
}
