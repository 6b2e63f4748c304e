/*
errors.go - Centralized error types for the finance engine

PURPOSE:
  All error categories in one place. The store and the engine wrap these
  sentinels; callers branch with errors.Is/errors.As.

ERROR CATEGORIES:
  1. NotFound            - a referenced identifier does not exist
  2. IntegrityViolation  - a write would break a cardinality or FK rule
  3. Validation          - caller-supplied value out of domain
  4. TransactionFailed   - a multi-statement operation rolled back

PROPAGATION POLICY:
  No retry, ever: all operations are local and deterministic. No partial
  commit: a failed atomic operation rolls back fully before the error is
  surfaced. Presentation-layer message formatting is not this package's
  concern.
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrityViolation is returned when a write would orphan a dependent
	// record or violate a cardinality invariant.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrValidation is returned before any store mutation when a caller value
	// is out of domain (negative amount, unknown category, editing a paid
	// schedule entry).
	ErrValidation = errors.New("validation failed")

	// ErrTransactionFailed is returned when a step inside an atomic operation
	// fails after a prior step succeeded. The whole operation has been
	// rolled back by the time this surfaces.
	ErrTransactionFailed = errors.New("transaction failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string // e.g. "sale", "account", "receivable entry"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes a rejected caller value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err is due to invalid client input rather
// than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrIntegrityViolation)
}
