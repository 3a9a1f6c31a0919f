/*
errors.go - Centralized error types for the PAYE engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Calculators return these directly; outer layers wrap them with context.

ERROR CATEGORIES:
  1. Invalid reference data - missing or corrupt bands, thresholds, rates
  2. Invalid argument - inputs that contradict the calculator's configuration
  3. Invalid operation - a request the bound reference data cannot serve
  4. Conflicts - duplicate or concurrent payrun commits

  Expected terminal states (earnings below the LEL) are NOT errors. They are
  reported on the result so callers branch on them instead of catching them.

USAGE:
  if errors.Is(err, generic.ErrInvalidReferenceData) {
      // abort this employee's payrun line, do not guess
  }

SEE ALSO:
  - tax/calculator.go: regime mismatch, missing band
  - ni/calculator.go: unknown category
  - factory/: missing reference data for a pay date
  - payrun/store.go: duplicate and concurrent commits
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidReferenceData is returned when bands, thresholds or rates are
	// missing or inconsistent. A liability is never computed from a default.
	ErrInvalidReferenceData = errors.New("invalid reference data")

	// ErrInvalidArgument is returned when an input contradicts the calculator,
	// e.g. a Scottish tax code passed to a rest-of-UK calculator.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation is returned when the bound reference data cannot
	// serve the request, e.g. no director rates for an NI category.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDuplicateIdempotencyKey is returned when a payrun with the same
	// idempotency key has already been committed. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned when a year-to-date snapshot
	// changed between load and save.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidReferenceDataError names the reference data that could not be used.
type InvalidReferenceDataError struct {
	What   string // e.g. "tax bands", "ni thresholds"
	Reason string
}

func (e *InvalidReferenceDataError) Error() string {
	return fmt.Sprintf("invalid reference data: %s: %s", e.What, e.Reason)
}

func (e *InvalidReferenceDataError) Unwrap() error {
	return ErrInvalidReferenceData
}

// ArgumentError names the offending argument.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// OperationError describes a request that cannot be served.
type OperationError struct {
	Op     string
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *OperationError) Unwrap() error {
	return ErrInvalidOperation
}

// ReferenceDataErrorf builds an InvalidReferenceDataError.
func ReferenceDataErrorf(what, format string, args ...any) error {
	return &InvalidReferenceDataError{What: what, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInvalidReferenceData returns true if the reference data was at fault.
func IsInvalidReferenceData(err error) bool {
	return errors.Is(err, ErrInvalidReferenceData)
}

// IsConflict returns true if a payrun commit lost a race or was a replay.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidOperation)
}
