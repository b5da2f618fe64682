/*
cumulative.go - Rolling-window flight/duty time aggregation

PURPOSE:
  Computes trailing 7/14/28-day and calendar-year totals over closed duty
  periods and compares them against the configured limits. Used
  retrospectively (compliance check) and prospectively (plan validation
  adds a hypothetical increment to the 7-day total).

WINDOW SEMANTICS:
  Windows are date-based and inclusive of both endpoints: the 7-day window
  as of D covers duty periods whose start date falls in [D-6, D]. Totals
  are recomputed from scratch on every call - no incremental state, so the
  result never depends on call ordering and repeated calls over the same
  records give identical answers.

THRESHOLDS:
  exceeded          -> error issue (blocks, may be persisted by the engine)
  >= 90% of limit   -> warning issue (advisory only, never persisted)

SEE ALSO:
  - summary.go: Reuses CumulativeTotals for the cached summary row
  - plan.go: Hypothetical 7-day increment
*/
package ftl

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdvisoryThreshold is the fraction of a limit at which a warning (not an
// error) is raised. Advisory only; the regulatory limit itself is the only
// hard boundary.
var AdvisoryThreshold = decimal.NewFromFloat(0.9)

// =============================================================================
// TOTALS
// =============================================================================

// CumulativeTotals holds the rolling sums for one pilot as of a date.
type CumulativeTotals struct {
	AsOf time.Time

	FlightTime7Days  Hours
	FlightTime28Days Hours
	FlightTimeYear   Hours

	DutyTime7Days  Hours
	DutyTime14Days Hours
	DutyTime28Days Hours
}

// SumWindows computes all rolling totals from closed duty periods. Open
// periods contribute nothing: their duration and flight time are unknown
// until close. A duty period belongs to a window when its start date does.
func SumWindows(duties []*DutyPeriod, asOf time.Time) CumulativeTotals {
	totals := CumulativeTotals{
		AsOf:             DateOf(asOf),
		FlightTime7Days:  ZeroHours(),
		FlightTime28Days: ZeroHours(),
		FlightTimeYear:   ZeroHours(),
		DutyTime7Days:    ZeroHours(),
		DutyTime14Days:   ZeroHours(),
		DutyTime28Days:   ZeroHours(),
	}

	end := DateOf(asOf)
	from7 := WindowStart(asOf, 7)
	from14 := WindowStart(asOf, 14)
	from28 := WindowStart(asOf, 28)
	fromYear := StartOfYear(asOf)

	for _, d := range duties {
		if d.IsOpen() {
			continue
		}
		date := DateOf(d.Start)
		if date.After(end) {
			continue
		}
		if !date.Before(from7) {
			totals.FlightTime7Days = totals.FlightTime7Days.Add(d.FlightTime)
			totals.DutyTime7Days = totals.DutyTime7Days.Add(d.Duration)
		}
		if !date.Before(from14) {
			totals.DutyTime14Days = totals.DutyTime14Days.Add(d.Duration)
		}
		if !date.Before(from28) {
			totals.FlightTime28Days = totals.FlightTime28Days.Add(d.FlightTime)
			totals.DutyTime28Days = totals.DutyTime28Days.Add(d.Duration)
		}
		if !date.Before(fromYear) {
			totals.FlightTimeYear = totals.FlightTimeYear.Add(d.FlightTime)
		}
	}
	return totals
}

// =============================================================================
// COMPLIANCE RESULT
// =============================================================================

// ComplianceResult is the outcome of a cumulative-limit check. Compliant
// is true iff Issues is empty; Warnings never affect it.
type ComplianceResult struct {
	OrgID     OrgID
	PilotID   PilotID
	AsOf      time.Time
	Totals    CumulativeTotals
	Compliant bool
	Issues    []Issue
	Warnings  []Issue
}

// EvaluateCumulative compares totals against the config. Pure function:
// same inputs, same result, nothing persisted.
func EvaluateCumulative(orgID OrgID, pilotID PilotID, totals CumulativeTotals, cfg *RegulatoryConfig) ComplianceResult {
	result := ComplianceResult{
		OrgID:   orgID,
		PilotID: pilotID,
		AsOf:    totals.AsOf,
		Totals:  totals,
	}

	checks := []struct {
		code   string
		actual Hours
		limit  Hours
	}{
		{IssueFlightTime7Days, totals.FlightTime7Days, cfg.MaxFlightTime7Days},
		{IssueFlightTime28Days, totals.FlightTime28Days, cfg.MaxFlightTime28Days},
		{IssueFlightTimeYear, totals.FlightTimeYear, cfg.MaxFlightTimeYear},
		{IssueDutyTime7Days, totals.DutyTime7Days, cfg.MaxDutyTime7Days},
		{IssueDutyTime14Days, totals.DutyTime14Days, cfg.MaxDutyTime14Days},
		{IssueDutyTime28Days, totals.DutyTime28Days, cfg.MaxDutyTime28Days},
	}

	for _, ch := range checks {
		switch {
		case ch.actual.GreaterThan(ch.limit):
			result.Issues = append(result.Issues, Issue{
				Code:     ch.code,
				Message:  fmt.Sprintf("%s: %s exceeds limit %s", ch.code, ch.actual, ch.limit),
				Severity: IssueError,
				Limit:    ch.limit,
				Actual:   ch.actual,
			})
		case nearLimit(ch.actual, ch.limit):
			result.Warnings = append(result.Warnings, Issue{
				Code:     ch.code,
				Message:  fmt.Sprintf("%s: %s approaching limit %s", ch.code, ch.actual, ch.limit),
				Severity: IssueWarning,
				Limit:    ch.limit,
				Actual:   ch.actual,
			})
		}
	}

	result.Compliant = len(result.Issues) == 0
	return result
}

// nearLimit reports actual >= AdvisoryThreshold * limit. A zero limit
// never warns (the exceeded branch handles any positive actual).
func nearLimit(actual, limit Hours) bool {
	if limit.IsZero() {
		return false
	}
	return actual.Value.GreaterThanOrEqual(limit.Value.Mul(AdvisoryThreshold))
}
