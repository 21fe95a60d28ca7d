/*
errors.go - Centralized error types for the attendance and payroll engines

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Not found - user, wallet or attendance record is missing
  2. Conflict - a uniqueness invariant fired (one record per user per day,
     one active wallet per user, one accrual per user per day)
  3. Validation - malformed status, amount, period or batch

USAGE:
  Policy denials (weekend, holiday, too early) are NOT errors: login and
  logout report them as an Outcome. Errors are reserved for conditions the
  caller cannot fix by waiting.

    if errors.Is(err, generic.ErrDuplicateAttendance) {
        // another login won the race; report "already logged in"
    }

SEE ALSO:
  - store.go: store contracts that return these errors
  - attendance/engine.go, payroll/engine.go: callers
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
	// ErrUserNotFound is returned when the user directory has no such user.
	ErrUserNotFound = errors.New("user not found")

	// ErrWalletNotFound is returned when a user has no wallet for the request.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrAttendanceNotFound is returned when a day has no attendance record.
	ErrAttendanceNotFound = errors.New("attendance record not found")

	// ErrDuplicateAttendance enforces one attendance record per user per day.
	ErrDuplicateAttendance = errors.New("attendance already recorded for day")

	// ErrActiveWalletExists enforces at most one open wallet per user.
	ErrActiveWalletExists = errors.New("active wallet already exists")

	// ErrAccrualAlreadyApplied enforces at most one accrual per user per day.
	ErrAccrualAlreadyApplied = errors.New("accrual already applied for day")

	ErrInvalidStatus = errors.New("invalid attendance status")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrUnknownJob is returned when a job name is not in the registry.
	ErrUnknownJob = errors.New("unknown job")

	// ErrJobRunning is returned when a job is triggered while already in flight.
	ErrJobRunning = errors.New("job already running")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateDayError provides details about a day uniqueness violation.
type DuplicateDayError struct {
	UserID UserID
	Date   Day
}

func (e *DuplicateDayError) Error() string {
	return fmt.Sprintf("attendance already recorded: user %d on %s", e.UserID, e.Date)
}

func (e *DuplicateDayError) Unwrap() error {
	return ErrDuplicateAttendance
}

// JobError records a per-user failure inside a scheduled job. Jobs collect
// these and keep going.
type JobError struct {
	Job    string
	UserID UserID
	Err    error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: user %d: %v", e.Job, e.UserID, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrAttendanceNotFound) ||
		errors.Is(err, ErrUnknownJob)
}

// IsConflict returns true if a uniqueness invariant rejected the write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAttendance) ||
		errors.Is(err, ErrActiveWalletExists) ||
		errors.Is(err, ErrAccrualAlreadyApplied) ||
		errors.Is(err, ErrJobRunning)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod)
}
