/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and the API layer wrap or map these; callers use errors.Is
  and errors.As, never string matching.

ERROR CATEGORIES:
  1. Validation errors - bad input (unknown kind, empty name)
  2. Domain conflicts - vacation conflicts, missing activities
  3. Store errors - concurrency and persistence failures

NOTE:
  Clamping out-of-range points is NOT an error; it is silent
  normalization (see ClampPoints).
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidKind is returned for an activity kind outside the fixed set.
	ErrInvalidKind = errors.New("invalid activity kind")

	// ErrUnknownParticipant is returned when the named participant is not
	// on the roster.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrEmptyParticipant is returned for blank participant names.
	ErrEmptyParticipant = errors.New("participant name is empty")

	// ErrDuplicateParticipant is returned when adding a name already on
	// the roster.
	ErrDuplicateParticipant = errors.New("participant already on roster")

	// ErrInvalidPeriod is returned when a vacation range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidWeekKey is returned for malformed week identifiers.
	ErrInvalidWeekKey = errors.New("invalid week key")

	// ErrActivityNotFound is returned when deleting an activity id that
	// does not exist in the committed list.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrConcurrentModification is returned when optimistic locking
	// detects a conflicting row write.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrPersistenceUnavailable is returned only when every configured
	// store fails the same operation. A single degraded store is logged,
	// not surfaced.
	ErrPersistenceUnavailable = errors.New("all persistence backends failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// VacationConflictError signals that the participant is on vacation at
// the time of the write. For activity recording it is advisory: the
// caller may retry with an override. For goal-setting it is a hard
// block.
type VacationConflictError struct {
	User   string
	Date   Date
	Reason string
}

func (e *VacationConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s is on vacation on %s (%s)", e.User, e.Date, e.Reason)
	}
	return fmt.Sprintf("%s is on vacation on %s", e.User, e.Date)
}

// UnknownParticipantError reports which name failed roster validation.
type UnknownParticipantError struct {
	User string
}

func (e *UnknownParticipantError) Error() string {
	return fmt.Sprintf("unknown participant %q", e.User)
}

func (e *UnknownParticipantError) Unwrap() error { return ErrUnknownParticipant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var vc *VacationConflictError
	return errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrUnknownParticipant) ||
		errors.Is(err, ErrEmptyParticipant) ||
		errors.Is(err, ErrDuplicateParticipant) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidWeekKey) ||
		errors.As(err, &vc)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownParticipant) ||
		errors.Is(err, ErrActivityNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
