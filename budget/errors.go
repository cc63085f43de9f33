/*
errors.go - Centralized error types for the budget engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Service packages wrap these with context using %w.

ERROR CATEGORIES:
  1. Validation errors - Business rule violations at save time (fail-fast)
  2. Lookup errors - Missing config, record or goal
  3. Policy errors - Start date locking, out-of-range completion
  4. Store errors - Uniqueness violations

  Input parse errors do NOT appear here: the normalizer degrades them to a
  default value and never reports them.

USAGE:
  rec, err := tracker.SaveRecord(ctx, rec)
  var verr *budget.ValidationError
  if errors.As(err, &verr) {
      // show verr.Message next to verr.Field
  }

SEE ALSO:
  - record.go: produces ValidationError
  - api/handlers.go: maps these to HTTP status codes
*/
package budget

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateDay is returned by a store when a record for the same
	// (user, date) already exists. Get-or-create treats it as a benign race.
	ErrDuplicateDay = errors.New("record already exists for this day")

	// ErrConfigNotFound is returned when a user has no financial config.
	ErrConfigNotFound = errors.New("financial config not found")

	// ErrRecordNotFound is returned when no record exists for a day.
	ErrRecordNotFound = errors.New("record not found")

	// ErrGoalNotFound is returned when a savings goal does not exist.
	ErrGoalNotFound = errors.New("savings goal not found")

	// ErrUnknownField is returned when a config default names no category.
	ErrUnknownField = errors.New("unknown field")

	// ErrStartDateLocked is returned when the start date may no longer change.
	ErrStartDateLocked = errors.New("registry start date is locked")

	// ErrStartDateInFuture is returned for a start date after today.
	ErrStartDateInFuture = errors.New("registry start date cannot be in the future")

	// ErrStartDateTooOld is returned for a start date before MinYear.
	ErrStartDateTooOld = errors.New("registry start date cannot be before year 2000")

	// ErrStartDateNotSet is returned by operations that need a tracking range.
	ErrStartDateNotSet = errors.New("registry start date not configured")

	// ErrDateOutOfRange is returned for a day outside [start date, today].
	ErrDateOutOfRange = errors.New("date outside the tracking range")

	// ErrAlreadyCompleted is returned when completing a day twice.
	ErrAlreadyCompleted = errors.New("day already completed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected save. Field is empty for cross-field
// rules such as expenses exceeding the budget.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validation codes
const (
	CodeExpensesExceedBudget = "expenses_exceed_budget"
	CodeNegativeBudget       = "negative_budget"
	CodeBudgetTooHigh        = "budget_too_high"
	CodeNonPositiveBudget    = "non_positive_budget"
	CodeNonPositiveTarget    = "non_positive_target"
	CodeNonPositiveAmount    = "non_positive_amount"
	CodeEmptyName            = "empty_name"
	CodeDefaultsExceedBudget = "defaults_exceed_budget"
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrStartDateInFuture) ||
		errors.Is(err, ErrStartDateTooOld) ||
		errors.Is(err, ErrStartDateNotSet) ||
		errors.Is(err, ErrDateOutOfRange)
}

// IsConflict returns true if the request clashes with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStartDateLocked) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrDuplicateDay)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrGoalNotFound)
}
