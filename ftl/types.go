/*
Package ftl implements the flight time limitations compliance engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking pilot
  duty and rest periods and enforcing rolling-window flight/duty time limits
  under a configurable regulatory regime (EASA-style or FAA-style parameter
  sets). It answers three questions:
    1. Did this duty period breach a limit? (DetectViolations)
    2. Is this pilot currently compliant? (cumulative + rest checkers)
    3. Can this proposed duty be scheduled? (ValidatePlan)

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A fixed-point quantity of hours (decimal, never float64)
  - OrgID/PilotID: Type-safe identifiers (partition keys)
  - DutyKind: What kind of duty period (flight duty, standby, ...)
  - Issue: A single compliance finding returned by a checker

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.1h + 0.2h == 0.3h, always
  2. Source of truth: every total is recomputed from duty/rest records;
     the per-pilot summary is a discardable cache
  3. Violations are data, not errors: a breach is persisted and returned,
     never raised as a Go error

SEE ALSO:
  - config.go: RegulatoryConfig and defaults
  - duty.go: DutyPeriod and RestPeriod records
  - violation.go: FTLViolation and single-period detection
  - engine.go: The facade wiring everything to a Store
*/
package ftl

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Fixed-point quantity of hours
// =============================================================================

// Hours is a duration expressed in hours with decimal precision.
// All limits, totals and durations in this package use Hours; float64
// never enters domain logic.
type Hours struct {
	Value decimal.Decimal
}

func HoursOf(v float64) Hours {
	return Hours{Value: decimal.NewFromFloat(v)}
}

func HoursFromInt(v int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(v))}
}

// HoursBetween converts the span [start, end] to Hours at minute
// resolution. Sub-minute remainders are dropped: duty reporting systems
// feed whole minutes, and minute resolution keeps decimal arithmetic exact
// enough for limit comparison.
func HoursBetween(start, end time.Time) Hours {
	minutes := end.Sub(start) / time.Minute
	return Hours{Value: decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))}
}

func ZeroHours() Hours { return Hours{Value: decimal.Zero} }

func (h Hours) Add(o Hours) Hours           { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours           { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Mul(s decimal.Decimal) Hours { return Hours{Value: h.Value.Mul(s)} }
func (h Hours) Div(s decimal.Decimal) Hours { return Hours{Value: h.Value.Div(s)} }
func (h Hours) Neg() Hours                  { return Hours{Value: h.Value.Neg()} }
func (h Hours) IsZero() bool                { return h.Value.IsZero() }
func (h Hours) IsNegative() bool            { return h.Value.IsNegative() }
func (h Hours) GreaterThan(o Hours) bool    { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool       { return h.Value.LessThan(o.Value) }
func (h Hours) GreaterOrEqual(o Hours) bool { return h.Value.GreaterThanOrEqual(o.Value) }
func (h Hours) Equal(o Hours) bool          { return h.Value.Equal(o.Value) }

func (h Hours) Min(o Hours) Hours {
	if h.LessThan(o) {
		return h
	}
	return o
}

func (h Hours) String() string { return h.Value.String() + "h" }

// Duration converts back to a time.Duration, rounded to the minute.
func (h Hours) Duration() time.Duration {
	minutes := h.Value.Mul(decimal.NewFromInt(60)).Round(0).IntPart()
	return time.Duration(minutes) * time.Minute
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// OrgID partitions all records and configuration. No cross-organization
// query exists anywhere in the engine.
type OrgID string

// PilotID identifies a pilot within an organization.
type PilotID string

// =============================================================================
// DUTY KINDS
// =============================================================================

type DutyKind string

const (
	DutyFlight      DutyKind = "flight_duty"
	DutyGround      DutyKind = "ground_duty"
	DutyStandby     DutyKind = "standby"
	DutyReserve     DutyKind = "reserve"
	DutyTraining    DutyKind = "training"
	DutyPositioning DutyKind = "positioning"
	DutySplit       DutyKind = "split_duty"
)

func (k DutyKind) IsValid() bool {
	switch k {
	case DutyFlight, DutyGround, DutyStandby, DutyReserve, DutyTraining, DutyPositioning, DutySplit:
		return true
	}
	return false
}

// CountsTowardFdp reports whether the FDP limits apply to this kind.
// Split duty is a flight duty period with an embedded rest break.
func (k DutyKind) CountsTowardFdp() bool {
	return k == DutyFlight || k == DutySplit
}

// =============================================================================
// AVAILABILITY STATUS
// =============================================================================

// AvailabilityStatus is the derived pilot state exposed on the summary.
// Precedence (highest wins): on_duty > resting > limit_reached > available.
type AvailabilityStatus string

const (
	StatusOnDuty       AvailabilityStatus = "on_duty"
	StatusResting      AvailabilityStatus = "resting"
	StatusLimitReached AvailabilityStatus = "limit_reached"
	StatusAvailable    AvailabilityStatus = "available"
)

// =============================================================================
// COMPLIANCE ISSUES - Findings returned by checkers
// =============================================================================

// IssueSeverity splits checker findings into blocking errors and
// advisories. Warnings never block scheduling.
type IssueSeverity string

const (
	IssueError   IssueSeverity = "error"
	IssueWarning IssueSeverity = "warning"
)

// Issue is one compliance finding: which limit, how it compares, and
// whether it blocks. Issues are returned in result objects; only duty
// close persists anything, via violation records.
type Issue struct {
	Code     string
	Message  string
	Severity IssueSeverity
	Limit    Hours
	Actual   Hours
}

// Issue codes shared across checkers. Checker-specific codes live next to
// the checker that raises them.
const (
	IssueFlightTime7Days     = "flight_time_7_days"
	IssueFlightTime28Days    = "flight_time_28_days"
	IssueFlightTimeYear      = "flight_time_year"
	IssueDutyTime7Days       = "duty_time_7_days"
	IssueDutyTime14Days      = "duty_time_14_days"
	IssueDutyTime28Days      = "duty_time_28_days"
	IssueInsufficientRest    = "insufficient_rest"
	IssueInsufficientDaysOff = "insufficient_days_off"
	IssueWeeklyRestDue       = "weekly_rest_due"
	IssueFdpExceeded         = "fdp_exceeded"
)

// =============================================================================
// DATE HELPERS - Rolling windows are date-based, inclusive of endpoints
// =============================================================================

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart returns the first date of a trailing window of n calendar
// days ending at asOf (inclusive of both endpoints): n=7 covers
// [asOf-6, asOf].
func WindowStart(asOf time.Time, n int) time.Time {
	return DateOf(asOf).AddDate(0, 0, -(n - 1))
}

// StartOfYear returns Jan 1 of asOf's year (the yearly window start).
func StartOfYear(asOf time.Time) time.Time {
	return time.Date(asOf.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
