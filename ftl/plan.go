/*
plan.go - Prospective duty validation ("can this be scheduled?")

PURPOSE:
  Answers whether a proposed duty can be scheduled before anything is
  committed. Composes the static FDP limit, the cumulative checker with a
  hypothetical increment, and the rest-gap rule. All checks run - issues
  are collected, not short-circuited - and no stored state is touched.

HYPOTHETICAL INCREMENT:
  This is the one place real cumulative state combines with a proposed
  value: the proposal's flight time is added to the current 7-day total in
  memory only. The store sees no write.
*/
package ftl

import (
	"fmt"
	"time"
)

// DutyProposal describes a duty the caller would like to schedule.
type DutyProposal struct {
	Start      time.Time
	Duration   Hours // estimated total duty duration
	FlightTime Hours // estimated flight time within the duty
	Augmented  bool
}

// PlanResult is the outcome of prospective validation. CanSchedule is
// defined identically to IsValid; both are exposed for API clarity, not
// because they follow different rules.
type PlanResult struct {
	IsValid         bool
	CanSchedule     bool
	MaxFdpAvailable Hours
	Issues          []Issue
	Warnings        []Issue
}

// ValidatePlan runs all prospective checks. Pure function:
//
//	totals    - current cumulative totals as of today
//	lastDuty  - most recently closed duty period, nil if none
func ValidatePlan(proposal DutyProposal, totals CumulativeTotals, lastDuty *DutyPeriod, cfg *RegulatoryConfig) PlanResult {
	var result PlanResult

	// Check 1: estimated duration against the applicable FDP limit.
	fdpLimit := cfg.FdpLimit(proposal.Augmented)
	if proposal.Duration.GreaterThan(fdpLimit) {
		result.Issues = append(result.Issues, Issue{
			Code:     IssueFdpExceeded,
			Message:  fmt.Sprintf("proposed duration %s exceeds %s limit %s", proposal.Duration, fdpLimitName(proposal.Augmented), fdpLimit),
			Severity: IssueError,
			Limit:    fdpLimit,
			Actual:   proposal.Duration,
		})
	}

	// Check 2: hypothetical 7-day flight-time total.
	hypothetical := totals.FlightTime7Days.Add(proposal.FlightTime)
	if hypothetical.GreaterThan(cfg.MaxFlightTime7Days) {
		result.Issues = append(result.Issues, Issue{
			Code:     IssueFlightTime7Days,
			Message:  fmt.Sprintf("7-day flight time would reach %s, limit %s", hypothetical, cfg.MaxFlightTime7Days),
			Severity: IssueError,
			Limit:    cfg.MaxFlightTime7Days,
			Actual:   hypothetical,
		})
	} else if nearLimit(hypothetical, cfg.MaxFlightTime7Days) {
		result.Warnings = append(result.Warnings, Issue{
			Code:     IssueFlightTime7Days,
			Message:  fmt.Sprintf("7-day flight time would reach %s, approaching limit %s", hypothetical, cfg.MaxFlightTime7Days),
			Severity: IssueWarning,
			Limit:    cfg.MaxFlightTime7Days,
			Actual:   hypothetical,
		})
	}

	// Check 3: rest gap since the last closed duty.
	if lastDuty != nil && lastDuty.End != nil {
		gap := HoursBetween(*lastDuty.End, proposal.Start)
		if gap.LessThan(cfg.MinRestBetweenDuties) {
			result.Issues = append(result.Issues, Issue{
				Code:     IssueInsufficientRest,
				Message:  fmt.Sprintf("rest before proposed start is %s, minimum %s", gap, cfg.MinRestBetweenDuties),
				Severity: IssueError,
				Limit:    cfg.MinRestBetweenDuties,
				Actual:   gap,
			})
		}
	}

	result.MaxFdpAvailable = MaxFdpAvailable(totals, cfg)
	result.IsValid = len(result.Issues) == 0
	result.CanSchedule = result.IsValid
	return result
}
