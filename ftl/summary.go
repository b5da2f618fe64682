/*
summary.go - Per-pilot FTL summary (derived cache)

PURPOSE:
  One row per (organization, pilot) aggregating the checkers' outputs for
  O(1) status reads. The summary is NEVER the source of truth: every field
  is recomputed from scratch out of the duty/rest records, no field is
  incremented in place, and the row can be deleted and rebuilt at any
  time. Recomputation is deterministic and idempotent - same records in,
  same summary out, regardless of how often or in what order it runs.

AVAILABILITY PRECEDENCE (highest wins):
  on_duty        an open duty period exists
  resting        an open rest period exists
  limit_reached  a cumulative-limit error is currently active
  available      none of the above

SEE ALSO:
  - engine.go: Serializes recomputation per pilot and persists the row
  - plan.go: Shares the MaxFdpAvailable estimate
*/
package ftl

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlightTimeToFdpRatio assumes 70% of an FDP is spent airborne when
// estimating how much FDP the remaining flight-time allowance supports.
// This is a conservative planning heuristic, not a regulatory value; tune
// it here without touching the estimate logic.
var FlightTimeToFdpRatio = decimal.NewFromFloat(0.7)

// =============================================================================
// SUMMARY ROW
// =============================================================================

// PilotFtlSummary is the cached aggregate for one pilot. Always safe to
// discard and rebuild from the duty/rest records.
type PilotFtlSummary struct {
	OrgID   OrgID
	PilotID PilotID

	Totals CumulativeTotals

	LastFdpEnd       *time.Time
	LastFdpDuration  Hours
	LastRestEnd      *time.Time
	LastRestDuration Hours

	DaysOff7Days int

	Status          AvailabilityStatus
	NextAvailable   *time.Time
	MaxFdpAvailable Hours
	Compliant       bool
	Issues          []string

	ComputedAt time.Time
}

// SummaryInput carries everything BuildSummary needs. The engine loads
// these inside the same transaction that modified the records.
type SummaryInput struct {
	OrgID   OrgID
	PilotID PilotID
	AsOf    time.Time

	OpenDuties   []*DutyPeriod
	ClosedDuties []*DutyPeriod // trailing year, closed only
	OpenRests    []*RestPeriod
	RecentRests  []*RestPeriod // ended within trailing 7 days
	LastRest     *RestPeriod   // most recently ended, nil if none

	Config *RegulatoryConfig
}

// =============================================================================
// RECOMPUTATION
// =============================================================================

// BuildSummary recomputes every summary field from source records.
// Deterministic and idempotent; never reads a previous summary.
func BuildSummary(in SummaryInput) *PilotFtlSummary {
	totals := SumWindows(in.ClosedDuties, in.AsOf)
	compliance := EvaluateCumulative(in.OrgID, in.PilotID, totals, in.Config)
	rest := EvaluateRest(in.OrgID, in.PilotID, in.AsOf, in.LastRest, append(append([]*DutyPeriod{}, in.ClosedDuties...), in.OpenDuties...), in.RecentRests, in.Config)

	s := &PilotFtlSummary{
		OrgID:            in.OrgID,
		PilotID:          in.PilotID,
		Totals:           totals,
		LastRestDuration: rest.LastRestDuration,
		LastRestEnd:      rest.LastRestEnd,
		DaysOff7Days:     rest.DaysOff7Days,
		LastFdpDuration:  ZeroHours(),
		ComputedAt:       in.AsOf,
	}

	if last := lastClosedFdp(in.ClosedDuties); last != nil {
		s.LastFdpEnd = last.End
		s.LastFdpDuration = last.Duration
	}

	// Availability precedence.
	switch {
	case len(in.OpenDuties) > 0:
		s.Status = StatusOnDuty
	case len(in.OpenRests) > 0:
		s.Status = StatusResting
	case len(compliance.Issues) > 0:
		s.Status = StatusLimitReached
	default:
		s.Status = StatusAvailable
	}

	if s.LastFdpEnd != nil {
		next := s.LastFdpEnd.Add(in.Config.MinRestBetweenDuties.Duration())
		s.NextAvailable = &next
	}

	s.MaxFdpAvailable = MaxFdpAvailable(totals, in.Config)
	s.Compliant = compliance.Compliant && rest.Compliant
	for _, issue := range compliance.Issues {
		s.Issues = append(s.Issues, issue.Message)
	}
	for _, issue := range rest.Issues {
		s.Issues = append(s.Issues, issue.Message)
	}

	return s
}

// MaxFdpAvailable is the conservative FDP estimate:
// min(standard FDP, remaining 7-day flight time / ratio,
//     remaining 28-day flight time / ratio), clamped at zero.
func MaxFdpAvailable(totals CumulativeTotals, cfg *RegulatoryConfig) Hours {
	remaining7 := cfg.MaxFlightTime7Days.Sub(totals.FlightTime7Days)
	remaining28 := cfg.MaxFlightTime28Days.Sub(totals.FlightTime28Days)

	est := cfg.MaxFdpStandard
	est = est.Min(remaining7.Div(FlightTimeToFdpRatio))
	est = est.Min(remaining28.Div(FlightTimeToFdpRatio))
	if est.IsNegative() {
		return ZeroHours()
	}
	return est
}

// lastClosedFdp returns the flight duty period with the latest end, nil
// when the pilot has no closed flight duty on record.
func lastClosedFdp(duties []*DutyPeriod) *DutyPeriod {
	var last *DutyPeriod
	for _, d := range duties {
		if d.IsOpen() || !d.Kind.CountsTowardFdp() {
			continue
		}
		if last == nil || d.End.After(*last.End) {
			last = d
		}
	}
	return last
}
