/*
violation.go - FTLViolation records and single-period detection

PURPOSE:
  A violation is an immutable point-in-time finding that a closed duty
  period (or a rolling window at duty close) breached a configured limit.
  Violations are domain data, never Go errors: they are persisted the
  moment they are found and remain on record even if later recalculation
  would no longer flag the window. Resolution is an explicit action,
  optionally under commander discretion, and is idempotent.

DETECTION:
  DetectViolations is a pure function of (closed duty period, config).
  Rules run independently; one duty period can raise several violations.

AUDIT TRAIL:
  Violations are never deleted. Resolving sets Resolved/ResolvedAt/notes
  once; resolving again is a no-op so retries cannot rewrite the audit
  trail.

SEE ALSO:
  - cumulative.go: Window evaluation that feeds duty-close cumulative violations
  - engine.go: Persists detections inside the EndDuty transaction
*/
package ftl

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// VIOLATION TYPES AND SEVERITY
// =============================================================================

type ViolationType string

const (
	ViolationFdpExceeded        ViolationType = "fdp_exceeded"
	ViolationFlightTimeExceeded ViolationType = "flight_time_exceeded"
	ViolationRestInsufficient   ViolationType = "rest_insufficient"
	ViolationDutyTimeExceeded   ViolationType = "duty_time_exceeded"
	ViolationCumulativeExceeded ViolationType = "cumulative_exceeded"
	ViolationWeeklyExceeded     ViolationType = "weekly_limit_exceeded"
	ViolationMonthlyExceeded    ViolationType = "monthly_limit_exceeded"
	ViolationYearlyExceeded     ViolationType = "yearly_limit_exceeded"
)

func (t ViolationType) IsValid() bool {
	switch t {
	case ViolationFdpExceeded, ViolationFlightTimeExceeded, ViolationRestInsufficient,
		ViolationDutyTimeExceeded, ViolationCumulativeExceeded, ViolationWeeklyExceeded,
		ViolationMonthlyExceeded, ViolationYearlyExceeded:
		return true
	}
	return false
}

type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "low"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityHigh     ViolationSeverity = "high"
	SeverityCritical ViolationSeverity = "critical"
)

func (s ViolationSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// =============================================================================
// VIOLATION RECORD
// =============================================================================

// FTLViolation is one recorded breach of a configured limit.
type FTLViolation struct {
	ID           uuid.UUID
	OrgID        OrgID
	PilotID      PilotID
	DutyPeriodID *uuid.UUID // nil for window-level findings

	Type       ViolationType
	LimitName  string
	LimitValue Hours
	Actual     Hours
	ExceededBy Hours

	// The window the finding applies to. For single-period findings this
	// is the duty period's own interval.
	PeriodStart time.Time
	PeriodEnd   time.Time

	Severity ViolationSeverity

	Resolved            bool
	ResolvedAt          *time.Time
	ResolutionNotes     string
	CommanderDiscretion bool

	CreatedAt time.Time
}

// Resolve marks the violation resolved. Idempotent: a second call leaves
// ResolvedAt and notes untouched and reports false.
func (v *FTLViolation) Resolve(at time.Time, notes string, commanderDiscretion bool) bool {
	if v.Resolved {
		return false
	}
	at = at.UTC()
	v.Resolved = true
	v.ResolvedAt = &at
	v.ResolutionNotes = notes
	v.CommanderDiscretion = commanderDiscretion
	return true
}

// =============================================================================
// DETECTOR - Pure single-period rules
// =============================================================================

// DetectViolations evaluates one closed duty period against the config.
// Rules are independent; multiple violations may be returned. The input
// period must be closed; open periods return nothing.
func DetectViolations(duty *DutyPeriod, cfg *RegulatoryConfig) []*FTLViolation {
	if duty == nil || duty.IsOpen() {
		return nil
	}

	var found []*FTLViolation
	now := time.Now().UTC()

	// Rule 1: FDP duration against the applicable (standard/extended) limit.
	if duty.Kind.CountsTowardFdp() {
		limit := cfg.FdpLimit(duty.Augmented)
		if duty.Duration.GreaterThan(limit) {
			found = append(found, &FTLViolation{
				ID:           uuid.New(),
				OrgID:        duty.OrgID,
				PilotID:      duty.PilotID,
				DutyPeriodID: &duty.ID,
				Type:         ViolationFdpExceeded,
				LimitName:    fdpLimitName(duty.Augmented),
				LimitValue:   limit,
				Actual:       duty.Duration,
				ExceededBy:   duty.Duration.Sub(limit),
				PeriodStart:  duty.Start,
				PeriodEnd:    *duty.End,
				Severity:     SeverityHigh,
				CreatedAt:    now,
			})
		}
	}

	// Rule 2: flight time within the duty against the daily limit.
	if duty.FlightTime.GreaterThan(cfg.MaxFlightTimeDaily) {
		found = append(found, &FTLViolation{
			ID:           uuid.New(),
			OrgID:        duty.OrgID,
			PilotID:      duty.PilotID,
			DutyPeriodID: &duty.ID,
			Type:         ViolationFlightTimeExceeded,
			LimitName:    "max_flight_time_daily",
			LimitValue:   cfg.MaxFlightTimeDaily,
			Actual:       duty.FlightTime,
			ExceededBy:   duty.FlightTime.Sub(cfg.MaxFlightTimeDaily),
			PeriodStart:  duty.Start,
			PeriodEnd:    *duty.End,
			Severity:     SeverityHigh,
			CreatedAt:    now,
		})
	}

	return found
}

func fdpLimitName(augmented bool) string {
	if augmented {
		return "max_fdp_extended"
	}
	return "max_fdp_standard"
}

// ViolationFromIssue lifts a window-level error issue into a stored
// violation. Used by the engine when a duty close pushes a rolling window
// over its limit.
func ViolationFromIssue(orgID OrgID, pilotID PilotID, issue Issue, windowStart, windowEnd time.Time) *FTLViolation {
	return &FTLViolation{
		ID:          uuid.New(),
		OrgID:       orgID,
		PilotID:     pilotID,
		Type:        violationTypeForIssue(issue.Code),
		LimitName:   issue.Code,
		LimitValue:  issue.Limit,
		Actual:      issue.Actual,
		ExceededBy:  issue.Actual.Sub(issue.Limit),
		PeriodStart: windowStart,
		PeriodEnd:   windowEnd,
		Severity:    SeverityCritical,
		CreatedAt:   time.Now().UTC(),
	}
}

// windowStartForIssue maps a cumulative issue code to the start of the
// window the total was computed over.
func windowStartForIssue(code string, end time.Time) time.Time {
	switch code {
	case IssueDutyTime14Days:
		return WindowStart(end, 14)
	case IssueFlightTime28Days, IssueDutyTime28Days:
		return WindowStart(end, 28)
	case IssueFlightTimeYear:
		return StartOfYear(end)
	default:
		return WindowStart(end, 7)
	}
}

func violationTypeForIssue(code string) ViolationType {
	switch code {
	case IssueFlightTime7Days, IssueDutyTime7Days:
		return ViolationWeeklyExceeded
	case IssueFlightTime28Days, IssueDutyTime28Days, IssueDutyTime14Days:
		return ViolationMonthlyExceeded
	case IssueFlightTimeYear:
		return ViolationYearlyExceeded
	default:
		return ViolationCumulativeExceeded
	}
}

// String implements a compact audit line.
func (v *FTLViolation) String() string {
	return fmt.Sprintf("%s pilot=%s %s actual=%s limit=%s over=%s",
		v.Type, v.PilotID, v.LimitName, v.Actual, v.LimitValue, v.ExceededBy)
}
