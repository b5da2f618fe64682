/*
errors.go - Centralized error types for the FTL engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses; nothing else should need
  to inspect error strings.

ERROR CATEGORIES:
  1. Caller errors   - Unknown IDs, invalid intervals, lifecycle misuse.
     Surfaced immediately, never retried.
  2. Validation      - Config or plan fails basic numeric sanity.
  3. Store errors    - Persistence failures, surfaced as-is.

NOT ERRORS:
  FTL violations (FDP exceeded, rest insufficient, ...) are domain data.
  They are persisted or returned in result objects and never travel as
  Go errors. The caller decides policy (block, allow with commander
  discretion, escalate).

USAGE:
  if errors.Is(err, ftl.ErrInvalidState) { ... }

  var ie *ftl.IntervalError
  if errors.As(err, &ie) { ... ie.Start, ie.End ... }
*/
package ftl

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced duty, rest, violation or
	// config record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned when an operation does not apply to the
	// record's current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrDutyAlreadyClosed is returned when ending a duty period that
	// already has an end timestamp. Closed periods are immutable.
	ErrDutyAlreadyClosed = fmt.Errorf("%w: duty period already closed", ErrInvalidState)

	// ErrOpenDutyExists is returned by StartDuty when the pilot already has
	// an open duty period. One open duty period per pilot is a policy
	// decision, not a regulatory requirement; see Engine.StartDuty.
	ErrOpenDutyExists = fmt.Errorf("%w: pilot already has an open duty period", ErrInvalidState)

	// ErrInvalidInterval is returned when an end timestamp precedes the
	// start timestamp.
	ErrInvalidInterval = errors.New("invalid interval: end before start")

	// ErrValidationFailed is returned when a config update or plan proposal
	// fails basic numeric sanity (negative limits, extended FDP below
	// standard FDP).
	ErrValidationFailed = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IntervalError reports an end-before-start interval with both endpoints.
type IntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: end %s before start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// OpenDutyError reports which open duty period blocked a StartDuty call.
type OpenDutyError struct {
	PilotID    PilotID
	OpenDutyID string
	OpenedAt   time.Time
}

func (e *OpenDutyError) Error() string {
	return fmt.Sprintf("pilot %s already has open duty period %s (started %s)",
		e.PilotID, e.OpenDutyID, e.OpenedAt.Format(time.RFC3339))
}

func (e *OpenDutyError) Unwrap() error { return ErrOpenDutyExists }

// ConfigError reports which config field failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrValidationFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// and should not be retried.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrValidationFailed)
}
