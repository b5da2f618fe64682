/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers. Hour quantities travel as decimal strings to keep the API
  lossless (float64 JSON numbers are not).

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/skyops/ftl-engine/ftl"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// StartDutyRequest opens a duty period.
type StartDutyRequest struct {
	Kind      string    `json:"kind"`
	Start     time.Time `json:"start"`
	Location  string    `json:"location,omitempty"`
	Planned   bool      `json:"planned,omitempty"`
	Augmented bool      `json:"augmented,omitempty"`
}

// EndDutyRequest closes a duty period.
type EndDutyRequest struct {
	End        time.Time `json:"end"`
	Location   string    `json:"location,omitempty"`
	FlightTime string    `json:"flight_time,omitempty"` // decimal hours
	Sectors    int       `json:"sectors,omitempty"`
	FlightIDs  []string  `json:"flight_ids,omitempty"`
}

// RecordRestRequest records a rest period, closed when end is present.
type RecordRestRequest struct {
	Start                 time.Time  `json:"start"`
	End                   *time.Time `json:"end,omitempty"`
	Location              string     `json:"location,omitempty"`
	SuitableAccommodation bool       `json:"suitable_accommodation,omitempty"`
	Reduced               bool       `json:"reduced,omitempty"`
	SplitDuty             bool       `json:"split_duty,omitempty"`
	WeeklyRest            bool       `json:"weekly_rest,omitempty"`
	FollowsDutyID         string     `json:"follows_duty_id,omitempty"`
}

// ConfigRequest replaces the org's regulatory config. All hour fields are
// decimal strings; omitted fields (empty strings, absent integers) keep
// their default values.
type ConfigRequest struct {
	MaxFlightTimeDaily        string `json:"max_flight_time_daily"`
	MaxFlightTime7Days        string `json:"max_flight_time_7_days"`
	MaxFlightTime28Days       string `json:"max_flight_time_28_days"`
	MaxFlightTimeYear         string `json:"max_flight_time_year"`
	MaxDutyPeriod             string `json:"max_duty_period"`
	MaxDutyTime7Days          string `json:"max_duty_time_7_days"`
	MaxDutyTime14Days         string `json:"max_duty_time_14_days"`
	MaxDutyTime28Days         string `json:"max_duty_time_28_days"`
	MaxFdpStandard            string `json:"max_fdp_standard"`
	MaxFdpExtended            string `json:"max_fdp_extended"`
	MinRestAfterFdp           string `json:"min_rest_after_fdp"`
	MinRestBetweenDuties      string `json:"min_rest_between_duties"`
	MinWeeklyRest             string `json:"min_weekly_rest"`
	DaysOffPer7Days           *int   `json:"days_off_per_7_days,omitempty"`
	DaysOffPer14Days          *int   `json:"days_off_per_14_days,omitempty"`
	NightStartHour            *int   `json:"night_start_hour,omitempty"`
	NightEndHour              *int   `json:"night_end_hour,omitempty"`
	NightFdpReduction         string `json:"night_fdp_reduction"`
	SplitDutyMinRest          string `json:"split_duty_min_rest"`
	SplitDutyFdpCreditPerHour string `json:"split_duty_fdp_credit_per_hour"`
	MaxAirportStandby         string `json:"max_airport_standby"`
}

// ValidateDutyRequest is a prospective duty proposal.
type ValidateDutyRequest struct {
	Start      time.Time `json:"start"`
	Duration   string    `json:"duration"`    // estimated duty hours
	FlightTime string    `json:"flight_time"` // estimated flight hours
	Augmented  bool      `json:"augmented,omitempty"`
}

// ResolveViolationRequest resolves a violation, optionally under
// commander discretion.
type ResolveViolationRequest struct {
	Notes               string `json:"notes"`
	CommanderDiscretion bool   `json:"commander_discretion,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DutyPeriodDTO mirrors ftl.DutyPeriod.
type DutyPeriodDTO struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	PilotID    string     `json:"pilot_id"`
	Kind       string     `json:"kind"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Duration   string     `json:"duration"`
	FlightTime string     `json:"flight_time"`
	Sectors    int        `json:"sectors"`
	Augmented  bool       `json:"augmented"`
	Location   string     `json:"location,omitempty"`
	Open       bool       `json:"open"`
}

// RestPeriodDTO mirrors ftl.RestPeriod.
type RestPeriodDTO struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	PilotID    string     `json:"pilot_id"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Duration   string     `json:"duration"`
	WeeklyRest bool       `json:"weekly_rest"`
	Open       bool       `json:"open"`
}

// IssueDTO is one compliance finding.
type IssueDTO struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Limit    string `json:"limit"`
	Actual   string `json:"actual"`
}

// ViolationDTO mirrors ftl.FTLViolation.
type ViolationDTO struct {
	ID                  string     `json:"id"`
	PilotID             string     `json:"pilot_id"`
	DutyPeriodID        string     `json:"duty_period_id,omitempty"`
	Type                string     `json:"type"`
	LimitName           string     `json:"limit_name"`
	LimitValue          string     `json:"limit_value"`
	Actual              string     `json:"actual"`
	ExceededBy          string     `json:"exceeded_by"`
	Severity            string     `json:"severity"`
	Resolved            bool       `json:"resolved"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes     string     `json:"resolution_notes,omitempty"`
	CommanderDiscretion bool       `json:"commander_discretion"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ComplianceDTO is the cumulative-limit check response.
type ComplianceDTO struct {
	PilotID          string     `json:"pilot_id"`
	AsOf             string     `json:"as_of"`
	Compliant        bool       `json:"compliant"`
	FlightTime7Days  string     `json:"flight_time_7_days"`
	FlightTime28Days string     `json:"flight_time_28_days"`
	FlightTimeYear   string     `json:"flight_time_year"`
	DutyTime7Days    string     `json:"duty_time_7_days"`
	DutyTime14Days   string     `json:"duty_time_14_days"`
	DutyTime28Days   string     `json:"duty_time_28_days"`
	Issues           []IssueDTO `json:"issues"`
	Warnings         []IssueDTO `json:"warnings"`
}

// RestCheckDTO is the rest-requirement check response.
type RestCheckDTO struct {
	PilotID          string     `json:"pilot_id"`
	AsOf             string     `json:"as_of"`
	Compliant        bool       `json:"compliant"`
	LastRestEnd      *time.Time `json:"last_rest_end,omitempty"`
	LastRestDuration string     `json:"last_rest_duration"`
	DaysOff7Days     int        `json:"days_off_7_days"`
	Issues           []IssueDTO `json:"issues"`
	Warnings         []IssueDTO `json:"warnings"`
}

// PlanResultDTO is the prospective validation response.
type PlanResultDTO struct {
	IsValid         bool       `json:"is_valid"`
	CanSchedule     bool       `json:"can_schedule"`
	MaxFdpAvailable string     `json:"max_fdp_available"`
	Issues          []IssueDTO `json:"issues"`
	Warnings        []IssueDTO `json:"warnings"`
}

// SummaryDTO is the cached pilot status.
type SummaryDTO struct {
	OrgID            string     `json:"org_id"`
	PilotID          string     `json:"pilot_id"`
	Status           string     `json:"status"`
	Compliant        bool       `json:"compliant"`
	FlightTime7Days  string     `json:"flight_time_7_days"`
	FlightTime28Days string     `json:"flight_time_28_days"`
	FlightTimeYear   string     `json:"flight_time_year"`
	DutyTime7Days    string     `json:"duty_time_7_days"`
	LastFdpEnd       *time.Time `json:"last_fdp_end,omitempty"`
	LastFdpDuration  string     `json:"last_fdp_duration"`
	LastRestEnd      *time.Time `json:"last_rest_end,omitempty"`
	LastRestDuration string     `json:"last_rest_duration"`
	DaysOff7Days     int        `json:"days_off_7_days"`
	NextAvailable    *time.Time `json:"next_available,omitempty"`
	MaxFdpAvailable  string     `json:"max_fdp_available"`
	Issues           []string   `json:"issues"`
	ComputedAt       time.Time  `json:"computed_at"`
}

// EndDutyResponse returns the closed period plus any violations raised.
type EndDutyResponse struct {
	Duty       DutyPeriodDTO  `json:"duty"`
	Violations []ViolationDTO `json:"violations"`
}

// ConfigDTO mirrors ftl.RegulatoryConfig. Same shape as ConfigRequest
// plus identity and timestamps.
type ConfigDTO struct {
	OrgID string `json:"org_id"`
	ConfigRequest
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func intPtr(v int) *int { return &v }

func toConfigDTO(c *ftl.RegulatoryConfig) ConfigDTO {
	return ConfigDTO{
		OrgID: string(c.OrgID),
		ConfigRequest: ConfigRequest{
			MaxFlightTimeDaily:        c.MaxFlightTimeDaily.Value.String(),
			MaxFlightTime7Days:        c.MaxFlightTime7Days.Value.String(),
			MaxFlightTime28Days:       c.MaxFlightTime28Days.Value.String(),
			MaxFlightTimeYear:         c.MaxFlightTimeYear.Value.String(),
			MaxDutyPeriod:             c.MaxDutyPeriod.Value.String(),
			MaxDutyTime7Days:          c.MaxDutyTime7Days.Value.String(),
			MaxDutyTime14Days:         c.MaxDutyTime14Days.Value.String(),
			MaxDutyTime28Days:         c.MaxDutyTime28Days.Value.String(),
			MaxFdpStandard:            c.MaxFdpStandard.Value.String(),
			MaxFdpExtended:            c.MaxFdpExtended.Value.String(),
			MinRestAfterFdp:           c.MinRestAfterFdp.Value.String(),
			MinRestBetweenDuties:      c.MinRestBetweenDuties.Value.String(),
			MinWeeklyRest:             c.MinWeeklyRest.Value.String(),
			DaysOffPer7Days:           intPtr(c.DaysOffPer7Days),
			DaysOffPer14Days:          intPtr(c.DaysOffPer14Days),
			NightStartHour:            intPtr(c.NightStartHour),
			NightEndHour:              intPtr(c.NightEndHour),
			NightFdpReduction:         c.NightFdpReduction.Value.String(),
			SplitDutyMinRest:          c.SplitDutyMinRest.Value.String(),
			SplitDutyFdpCreditPerHour: c.SplitDutyFdpCreditPerHour.String(),
			MaxAirportStandby:         c.MaxAirportStandby.Value.String(),
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toDutyDTO(d *ftl.DutyPeriod) DutyPeriodDTO {
	return DutyPeriodDTO{
		ID:         d.ID.String(),
		OrgID:      string(d.OrgID),
		PilotID:    string(d.PilotID),
		Kind:       string(d.Kind),
		Start:      d.Start,
		End:        d.End,
		Duration:   d.Duration.Value.String(),
		FlightTime: d.FlightTime.Value.String(),
		Sectors:    d.Sectors,
		Augmented:  d.Augmented,
		Location:   d.Location,
		Open:       d.IsOpen(),
	}
}

func toRestDTO(r *ftl.RestPeriod) RestPeriodDTO {
	return RestPeriodDTO{
		ID:         r.ID.String(),
		OrgID:      string(r.OrgID),
		PilotID:    string(r.PilotID),
		Start:      r.Start,
		End:        r.End,
		Duration:   r.Duration.Value.String(),
		WeeklyRest: r.WeeklyRest,
		Open:       r.IsOpen(),
	}
}

func toIssueDTOs(issues []ftl.Issue) []IssueDTO {
	dtos := make([]IssueDTO, 0, len(issues))
	for _, i := range issues {
		dtos = append(dtos, IssueDTO{
			Code:     i.Code,
			Message:  i.Message,
			Severity: string(i.Severity),
			Limit:    i.Limit.Value.String(),
			Actual:   i.Actual.Value.String(),
		})
	}
	return dtos
}

func toViolationDTO(v *ftl.FTLViolation) ViolationDTO {
	dto := ViolationDTO{
		ID:                  v.ID.String(),
		PilotID:             string(v.PilotID),
		Type:                string(v.Type),
		LimitName:           v.LimitName,
		LimitValue:          v.LimitValue.Value.String(),
		Actual:              v.Actual.Value.String(),
		ExceededBy:          v.ExceededBy.Value.String(),
		Severity:            string(v.Severity),
		Resolved:            v.Resolved,
		ResolvedAt:          v.ResolvedAt,
		ResolutionNotes:     v.ResolutionNotes,
		CommanderDiscretion: v.CommanderDiscretion,
		CreatedAt:           v.CreatedAt,
	}
	if v.DutyPeriodID != nil {
		dto.DutyPeriodID = v.DutyPeriodID.String()
	}
	return dto
}

func toViolationDTOs(vs []*ftl.FTLViolation) []ViolationDTO {
	dtos := make([]ViolationDTO, 0, len(vs))
	for _, v := range vs {
		dtos = append(dtos, toViolationDTO(v))
	}
	return dtos
}

func toComplianceDTO(r ftl.ComplianceResult) ComplianceDTO {
	return ComplianceDTO{
		PilotID:          string(r.PilotID),
		AsOf:             r.AsOf.Format("2006-01-02"),
		Compliant:        r.Compliant,
		FlightTime7Days:  r.Totals.FlightTime7Days.Value.String(),
		FlightTime28Days: r.Totals.FlightTime28Days.Value.String(),
		FlightTimeYear:   r.Totals.FlightTimeYear.Value.String(),
		DutyTime7Days:    r.Totals.DutyTime7Days.Value.String(),
		DutyTime14Days:   r.Totals.DutyTime14Days.Value.String(),
		DutyTime28Days:   r.Totals.DutyTime28Days.Value.String(),
		Issues:           toIssueDTOs(r.Issues),
		Warnings:         toIssueDTOs(r.Warnings),
	}
}

func toRestCheckDTO(r ftl.RestResult) RestCheckDTO {
	return RestCheckDTO{
		PilotID:          string(r.PilotID),
		AsOf:             r.AsOf.Format("2006-01-02"),
		Compliant:        r.Compliant,
		LastRestEnd:      r.LastRestEnd,
		LastRestDuration: r.LastRestDuration.Value.String(),
		DaysOff7Days:     r.DaysOff7Days,
		Issues:           toIssueDTOs(r.Issues),
		Warnings:         toIssueDTOs(r.Warnings),
	}
}

func toPlanResultDTO(r ftl.PlanResult) PlanResultDTO {
	return PlanResultDTO{
		IsValid:         r.IsValid,
		CanSchedule:     r.CanSchedule,
		MaxFdpAvailable: r.MaxFdpAvailable.Value.String(),
		Issues:          toIssueDTOs(r.Issues),
		Warnings:        toIssueDTOs(r.Warnings),
	}
}

func toSummaryDTO(s *ftl.PilotFtlSummary) SummaryDTO {
	issues := s.Issues
	if issues == nil {
		issues = []string{}
	}
	return SummaryDTO{
		OrgID:            string(s.OrgID),
		PilotID:          string(s.PilotID),
		Status:           string(s.Status),
		Compliant:        s.Compliant,
		FlightTime7Days:  s.Totals.FlightTime7Days.Value.String(),
		FlightTime28Days: s.Totals.FlightTime28Days.Value.String(),
		FlightTimeYear:   s.Totals.FlightTimeYear.Value.String(),
		DutyTime7Days:    s.Totals.DutyTime7Days.Value.String(),
		LastFdpEnd:       s.LastFdpEnd,
		LastFdpDuration:  s.LastFdpDuration.Value.String(),
		LastRestEnd:      s.LastRestEnd,
		LastRestDuration: s.LastRestDuration.Value.String(),
		DaysOff7Days:     s.DaysOff7Days,
		NextAvailable:    s.NextAvailable,
		MaxFdpAvailable:  s.MaxFdpAvailable.Value.String(),
		Issues:           issues,
		ComputedAt:       s.ComputedAt,
	}
}
