/*
errors.go - Centralized error types for the timesheet engine

PURPOSE:
  All shared error types in one place for consistency and discoverability.
  The timesheet package wraps these with rule-specific messages.

ERROR CATEGORIES:
  1. Calendar errors - Week anchor and year/month token failures
  2. Store errors - Document store and transaction failures
  3. Lookup errors - Missing documents or weeks

USAGE:
  if errors.Is(err, generic.ErrInvalidWeekAnchor) {
      // 400
  }
  if generic.IsNotFound(err) {
      // 404
  }

SEE ALSO:
  - time.go: Calendar rules returning these errors
  - store.go: Document store contract
  - timesheet/errors.go: Validation rule errors
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
	// ErrInvalidWeekAnchor is returned when a week start date is not a Monday
	// (or not a date at all).
	ErrInvalidWeekAnchor = errors.New("week start date must be a Monday in YYYY-MM-DD format")

	// ErrInvalidYearFormat is returned when the year token is not 4 digits.
	ErrInvalidYearFormat = errors.New("year must be 4 digits")

	// ErrInvalidMonthFormat is returned when the month token is not 2 digits.
	ErrInvalidMonthFormat = errors.New("month must be 2 digits")

	// ErrHoursOutOfRange is returned for hour literals too long or too
	// finely scaled to be a plausible quantity of hours.
	ErrHoursOutOfRange = errors.New("hours out of range")

	// ErrDocumentNotFound is returned by plain reads of an absent document.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTransactionFailed is returned when a document transaction cannot commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConcurrentModification is returned when the backing store detects
	// a conflicting write it could not serialize.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidPath is returned when a document path has an empty segment.
	ErrInvalidPath = errors.New("invalid document path")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateFormatError reports a token that is not a strict YYYY-MM-DD date.
type DateFormatError struct {
	Value string
	Cause error
}

func (e *DateFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid date %q: %v", e.Value, e.Cause)
	}
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}

func (e *DateFormatError) Unwrap() error {
	return e.Cause
}

// StoreError wraps a backend failure with the path it happened on.
type StoreError struct {
	Op   string
	Path DocumentPath
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
