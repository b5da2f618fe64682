/*
config.go - Regulatory limits, one record per organization

PURPOSE:
  RegulatoryConfig holds every numeric limit the checkers compare against.
  It is pure data: created with defaults on first access, replaced whole
  through UpdateConfig, never deleted. Limits are regime parameters
  (EASA-style defaults below), not code - switching regimes means writing
  a different config record, not deploying different rules.

FIELD UPDATE DISCIPLINE:
  Updates replace the whole typed struct after Validate(). There is no
  per-field dynamic update path: an unknown field is a compile error, not
  a silently ignored key.

SEE ALSO:
  - cumulative.go: Rolling-window comparisons against these limits
  - violation.go: Single-period FDP / daily flight-time comparisons
*/
package ftl

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REGULATORY CONFIG
// =============================================================================

// RegulatoryConfig is the full set of FTL limits for one organization.
// All hour limits are non-negative; MaxFdpExtended >= MaxFdpStandard.
type RegulatoryConfig struct {
	OrgID OrgID

	// Flight time limits (time airborne within duty)
	MaxFlightTimeDaily  Hours
	MaxFlightTime7Days  Hours
	MaxFlightTime28Days Hours
	MaxFlightTimeYear   Hours

	// Duty time limits (total duty duration)
	MaxDutyPeriod     Hours
	MaxDutyTime7Days  Hours
	MaxDutyTime14Days Hours
	MaxDutyTime28Days Hours

	// Flight duty period limits
	MaxFdpStandard Hours // unaugmented crew
	MaxFdpExtended Hours // augmented crew with in-flight rest

	// Rest requirements
	MinRestAfterFdp      Hours
	MinRestBetweenDuties Hours
	MinWeeklyRest        Hours
	DaysOffPer7Days      int
	DaysOffPer14Days     int

	// Night duty: an FDP that overlaps [NightStartHour, NightEndHour)
	// local time has its applicable limit reduced by NightFdpReduction.
	NightStartHour    int
	NightEndHour      int
	NightFdpReduction Hours

	// Split duty: a break of at least SplitDutyMinRest at suitable
	// accommodation extends the allowable FDP by
	// SplitDutyFdpCreditPerHour for every break hour.
	SplitDutyMinRest          Hours
	SplitDutyFdpCreditPerHour decimal.Decimal

	// Airport standby counts toward duty in full beyond this cap.
	MaxAirportStandby Hours

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultConfig returns EASA-flavoured defaults for a new organization.
// These mirror ORO.FTL.210/235 orders of magnitude; operators tune them
// through UpdateConfig.
func DefaultConfig(orgID OrgID) *RegulatoryConfig {
	now := time.Now().UTC()
	return &RegulatoryConfig{
		OrgID: orgID,

		MaxFlightTimeDaily:  HoursFromInt(8),
		MaxFlightTime7Days:  HoursFromInt(30),
		MaxFlightTime28Days: HoursFromInt(100),
		MaxFlightTimeYear:   HoursFromInt(900),

		MaxDutyPeriod:     HoursFromInt(14),
		MaxDutyTime7Days:  HoursFromInt(60),
		MaxDutyTime14Days: HoursFromInt(110),
		MaxDutyTime28Days: HoursFromInt(190),

		MaxFdpStandard: HoursFromInt(13),
		MaxFdpExtended: HoursFromInt(16),

		MinRestAfterFdp:      HoursFromInt(12),
		MinRestBetweenDuties: HoursFromInt(10),
		MinWeeklyRest:        HoursFromInt(36),
		DaysOffPer7Days:      1,
		DaysOffPer14Days:     2,

		NightStartHour:    22,
		NightEndHour:      6,
		NightFdpReduction: HoursFromInt(1),

		SplitDutyMinRest:          HoursFromInt(3),
		SplitDutyFdpCreditPerHour: decimal.NewFromFloat(0.5),

		MaxAirportStandby: HoursFromInt(4),

		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate enforces the config invariants. Returns a *ConfigError
// (wrapping ErrValidationFailed) naming the first offending field.
func (c *RegulatoryConfig) Validate() error {
	limits := []struct {
		name string
		v    Hours
	}{
		{"max_flight_time_daily", c.MaxFlightTimeDaily},
		{"max_flight_time_7_days", c.MaxFlightTime7Days},
		{"max_flight_time_28_days", c.MaxFlightTime28Days},
		{"max_flight_time_year", c.MaxFlightTimeYear},
		{"max_duty_period", c.MaxDutyPeriod},
		{"max_duty_time_7_days", c.MaxDutyTime7Days},
		{"max_duty_time_14_days", c.MaxDutyTime14Days},
		{"max_duty_time_28_days", c.MaxDutyTime28Days},
		{"max_fdp_standard", c.MaxFdpStandard},
		{"max_fdp_extended", c.MaxFdpExtended},
		{"min_rest_after_fdp", c.MinRestAfterFdp},
		{"min_rest_between_duties", c.MinRestBetweenDuties},
		{"min_weekly_rest", c.MinWeeklyRest},
		{"night_fdp_reduction", c.NightFdpReduction},
		{"split_duty_min_rest", c.SplitDutyMinRest},
		{"max_airport_standby", c.MaxAirportStandby},
	}
	for _, l := range limits {
		if l.v.IsNegative() {
			return &ConfigError{Field: l.name, Reason: "must be non-negative"}
		}
	}

	if c.DaysOffPer7Days < 0 {
		return &ConfigError{Field: "days_off_per_7_days", Reason: "must be non-negative"}
	}
	if c.DaysOffPer14Days < 0 {
		return &ConfigError{Field: "days_off_per_14_days", Reason: "must be non-negative"}
	}
	if c.NightStartHour < 0 || c.NightStartHour > 23 {
		return &ConfigError{Field: "night_start_hour", Reason: "must be within 0-23"}
	}
	if c.NightEndHour < 0 || c.NightEndHour > 23 {
		return &ConfigError{Field: "night_end_hour", Reason: "must be within 0-23"}
	}
	if c.SplitDutyFdpCreditPerHour.IsNegative() {
		return &ConfigError{Field: "split_duty_fdp_credit_per_hour", Reason: "must be non-negative"}
	}
	if c.MaxFdpExtended.LessThan(c.MaxFdpStandard) {
		return &ConfigError{Field: "max_fdp_extended", Reason: "must be >= max_fdp_standard"}
	}
	return nil
}

// FdpLimit returns the applicable FDP limit: extended for augmented crew,
// standard otherwise.
func (c *RegulatoryConfig) FdpLimit(augmented bool) Hours {
	if augmented {
		return c.MaxFdpExtended
	}
	return c.MaxFdpStandard
}
