/*
errors.go - Centralized error types for the availability ledger

ERROR CATEGORIES:
  1. Lifecycle errors - store used before Open or after Close
  2. Input errors - unparseable dates, invalid status, malformed snapshots
  3. Store errors - a batch transaction that failed and was rolled back

USAGE:
  if errors.Is(err, availability.ErrNormalization) {
      // tell the user which date was rejected
  }
*/
package availability

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotInitialized is returned by every store operation before Open
	// succeeds or after Close.
	ErrNotInitialized = errors.New("availability store not initialized")

	// ErrNormalization is returned when a date expression has no canonical form.
	ErrNormalization = errors.New("date normalization failed")

	// ErrTransactionFailed is returned when a batch upsert was rolled back.
	ErrTransactionFailed = errors.New("availability transaction failed")

	// ErrValidation is returned for caller input rejected before reaching the store.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidSnapshot is returned when an import payload matches no known shape.
	ErrInvalidSnapshot = errors.New("invalid availability snapshot")

	// ErrSnapshotNotFound is returned when no snapshot source could be read.
	ErrSnapshotNotFound = errors.New("availability snapshot not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NormalizationError names the expression that could not be normalized.
type NormalizationError struct {
	Input  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported date format %q (use YYYY-MM-DD or a date like \"April 1, 2025\")", e.Input)
	}
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

// TransactionError describes a rolled-back batch.
type TransactionError struct {
	ResourceID ResourceID
	BatchSize  int
	Status     Status
	Err        error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("update of %d dates to %s for %s rolled back: %v",
		e.BatchSize, e.Status, e.ResourceID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying driver error.
func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransactionFailed, e.Err}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNormalization) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidSnapshot)
}

// IsRetryable returns true if retrying the whole call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
