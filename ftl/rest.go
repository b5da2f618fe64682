/*
rest.go - Rest compliance: minimum rest, days off, weekly rest cadence

PURPOSE:
  Verifies the rest side of the regime: the most recent completed rest
  must meet the post-FDP minimum, the trailing week must contain enough
  duty-free days, and a weekly recurrent rest should have occurred.

DAYS OFF:
  A day off is a calendar date in the window with no duty period at all.
  Counted as 7 minus the number of distinct duty dates, clamped at zero.

WEEKLY REST:
  Advisory only. Cadence rules differ per regime (EASA counts 168h
  backwards, FAA part 117 differs again), so a missing weekly rest is a
  warning, never a blocking error.
*/
package ftl

import (
	"fmt"
	"time"
)

// RestResult is the outcome of a rest-requirement check. Compliant is
// true iff Issues is empty.
type RestResult struct {
	OrgID     OrgID
	PilotID   PilotID
	AsOf      time.Time
	Compliant bool

	LastRestEnd      *time.Time
	LastRestDuration Hours
	DaysOff7Days     int

	Issues   []Issue
	Warnings []Issue
}

// EvaluateRest is a pure function of the pilot's rest history and duty
// dates in the trailing 7-day window.
//
//	lastEnded  - most recently ended rest period, nil if none on record
//	duties     - duty periods touching the trailing 7-day window
//	rests      - rest periods ended within the trailing 7-day window
func EvaluateRest(orgID OrgID, pilotID PilotID, asOf time.Time, lastEnded *RestPeriod, duties []*DutyPeriod, rests []*RestPeriod, cfg *RegulatoryConfig) RestResult {
	result := RestResult{
		OrgID:            orgID,
		PilotID:          pilotID,
		AsOf:             DateOf(asOf),
		LastRestDuration: ZeroHours(),
	}

	// Minimum rest since the last duty.
	if lastEnded != nil {
		result.LastRestEnd = lastEnded.End
		result.LastRestDuration = lastEnded.Duration
		if lastEnded.Duration.LessThan(cfg.MinRestAfterFdp) {
			result.Issues = append(result.Issues, Issue{
				Code:     IssueInsufficientRest,
				Message:  fmt.Sprintf("last rest %s below required %s", lastEnded.Duration, cfg.MinRestAfterFdp),
				Severity: IssueError,
				Limit:    cfg.MinRestAfterFdp,
				Actual:   lastEnded.Duration,
			})
		}
	}

	// Days off in the trailing 7 days: 7 - distinct duty dates, clamped.
	from := WindowStart(asOf, 7)
	dutyDates := make(map[time.Time]bool)
	for _, d := range duties {
		for _, date := range d.DutyDates(from, asOf) {
			dutyDates[date] = true
		}
	}
	daysOff := 7 - len(dutyDates)
	if daysOff < 0 {
		daysOff = 0
	}
	result.DaysOff7Days = daysOff
	if daysOff < cfg.DaysOffPer7Days {
		result.Warnings = append(result.Warnings, Issue{
			Code:     IssueInsufficientDaysOff,
			Message:  fmt.Sprintf("%d days off in trailing 7 days, %d required", daysOff, cfg.DaysOffPer7Days),
			Severity: IssueWarning,
			Limit:    HoursFromInt(cfg.DaysOffPer7Days),
			Actual:   HoursFromInt(daysOff),
		})
	}

	// Weekly rest cadence, advisory.
	if !hasWeeklyRest(rests, cfg.MinWeeklyRest) {
		result.Warnings = append(result.Warnings, Issue{
			Code:     IssueWeeklyRestDue,
			Message:  fmt.Sprintf("no weekly rest of at least %s in trailing 7 days", cfg.MinWeeklyRest),
			Severity: IssueWarning,
			Limit:    cfg.MinWeeklyRest,
			Actual:   result.LastRestDuration,
		})
	}

	result.Compliant = len(result.Issues) == 0
	return result
}

// hasWeeklyRest reports whether any rest in the window is flagged as
// weekly rest or is long enough to count as one.
func hasWeeklyRest(rests []*RestPeriod, minWeekly Hours) bool {
	for _, r := range rests {
		if r.IsOpen() {
			continue
		}
		if r.WeeklyRest || r.Duration.GreaterOrEqual(minWeekly) {
			return true
		}
	}
	return false
}
