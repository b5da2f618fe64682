/*
handlers.go - HTTP API handlers for the FTL compliance engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the engine. No domain logic lives here.

ENDPOINTS:
  Duty/rest lifecycle:
    POST /api/orgs/{orgID}/pilots/{pilotID}/duties        Start duty
    POST /api/duties/{id}/end                             End duty
    POST /api/orgs/{orgID}/pilots/{pilotID}/rests         Record rest
    POST /api/rests/{id}/end                              End open rest

  Configuration:
    GET  /api/orgs/{orgID}/config                         Get (create default)
    PUT  /api/orgs/{orgID}/config                         Replace

  Compliance:
    GET  /api/orgs/{orgID}/pilots/{pilotID}/compliance    Cumulative limits
    GET  /api/orgs/{orgID}/pilots/{pilotID}/rest-check    Rest requirements
    POST /api/orgs/{orgID}/pilots/{pilotID}/validate-duty Prospective check
    GET  /api/orgs/{orgID}/pilots/{pilotID}/status        Cached summary
    GET  /api/orgs/{orgID}/pilots/{pilotID}/violations    Violation record
    POST /api/violations/{id}/resolve                     Resolve violation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, invalid interval, failed validation
  - 404: Unknown duty/rest/violation/config
  - 409: Lifecycle conflicts (already closed, open duty exists)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skyops/ftl-engine/ftl"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ftl.Engine
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *ftl.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// DUTY LIFECYCLE
// =============================================================================

// StartDuty opens a duty period.
// POST /api/orgs/{orgID}/pilots/{pilotID}/duties
func (h *Handler) StartDuty(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)

	var req StartDutyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required", nil)
		return
	}

	duty, err := h.Engine.StartDuty(r.Context(), ftl.StartDutyInput{
		OrgID:     orgID,
		PilotID:   pilotID,
		Kind:      ftl.DutyKind(req.Kind),
		Start:     req.Start,
		Location:  req.Location,
		Planned:   req.Planned,
		Augmented: req.Augmented,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDutyDTO(duty))
}

// EndDuty closes a duty period and returns any violations raised.
// POST /api/duties/{id}/end
func (h *Handler) EndDuty(w http.ResponseWriter, r *http.Request) {
	dutyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duty id", err)
		return
	}

	var req EndDutyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "end is required", nil)
		return
	}

	flightTime, err := parseHoursField(req.FlightTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flight_time", err)
		return
	}
	var flightIDs []uuid.UUID
	for _, raw := range req.FlightIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid flight id", err)
			return
		}
		flightIDs = append(flightIDs, id)
	}

	duty, violations, err := h.Engine.EndDuty(r.Context(), dutyID, ftl.EndDutyInput{
		End:        req.End,
		Location:   req.Location,
		FlightTime: flightTime,
		Sectors:    req.Sectors,
		FlightIDs:  flightIDs,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EndDutyResponse{
		Duty:       toDutyDTO(duty),
		Violations: toViolationDTOs(violations),
	})
}

// RecordRest records a rest period.
// POST /api/orgs/{orgID}/pilots/{pilotID}/rests
func (h *Handler) RecordRest(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)

	var req RecordRestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required", nil)
		return
	}

	var followsID *uuid.UUID
	if req.FollowsDutyID != "" {
		id, err := uuid.Parse(req.FollowsDutyID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid follows_duty_id", err)
			return
		}
		followsID = &id
	}

	rest, err := h.Engine.RecordRest(r.Context(), ftl.RecordRestInput{
		OrgID:                 orgID,
		PilotID:               pilotID,
		Start:                 req.Start,
		End:                   req.End,
		Location:              req.Location,
		SuitableAccommodation: req.SuitableAccommodation,
		Reduced:               req.Reduced,
		SplitDuty:             req.SplitDuty,
		WeeklyRest:            req.WeeklyRest,
		FollowsDutyID:         followsID,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRestDTO(rest))
}

// EndRest closes an open rest period.
// POST /api/rests/{id}/end
func (h *Handler) EndRest(w http.ResponseWriter, r *http.Request) {
	restID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rest id", err)
		return
	}

	var req struct {
		End time.Time `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "end is required", nil)
		return
	}

	rest, err := h.Engine.EndRest(r.Context(), restID, req.End)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRestDTO(rest))
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// GetConfig returns the org's config, creating defaults on first access.
// GET /api/orgs/{orgID}/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	orgID := ftl.OrgID(chi.URLParam(r, "orgID"))
	cfg, err := h.Engine.GetOrCreateConfig(r.Context(), orgID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// UpdateConfig replaces the org's config after validation.
// PUT /api/orgs/{orgID}/config
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	orgID := ftl.OrgID(chi.URLParam(r, "orgID"))

	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := configFromRequest(orgID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid config value", err)
		return
	}
	if err := h.Engine.UpdateConfig(r.Context(), cfg); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// =============================================================================
// COMPLIANCE CHECKS
// =============================================================================

// CheckCompliance runs the cumulative-limit checker.
// GET /api/orgs/{orgID}/pilots/{pilotID}/compliance?as_of=2026-03-10
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)
	asOf, err := asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	result, err := h.Engine.CheckCumulativeLimits(r.Context(), orgID, pilotID, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComplianceDTO(result))
}

// CheckRest runs the rest-requirement checker.
// GET /api/orgs/{orgID}/pilots/{pilotID}/rest-check?as_of=2026-03-10
func (h *Handler) CheckRest(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)
	asOf, err := asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	result, err := h.Engine.CheckRestRequirements(r.Context(), orgID, pilotID, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRestCheckDTO(result))
}

// ValidateDuty runs the prospective plan validator. Nothing is persisted.
// POST /api/orgs/{orgID}/pilots/{pilotID}/validate-duty
func (h *Handler) ValidateDuty(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)

	var req ValidateDutyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	duration, err := parseHoursField(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration", err)
		return
	}
	flightTime, err := parseHoursField(req.FlightTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flight_time", err)
		return
	}

	result, err := h.Engine.ValidatePlannedDuty(r.Context(), orgID, pilotID, ftl.DutyProposal{
		Start:      req.Start,
		Duration:   duration,
		FlightTime: flightTime,
		Augmented:  req.Augmented,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResultDTO(result))
}

// GetStatus returns the cached pilot summary, rebuilding on a miss.
// GET /api/orgs/{orgID}/pilots/{pilotID}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)
	summary, err := h.Engine.GetPilotStatus(r.Context(), orgID, pilotID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// VIOLATIONS
// =============================================================================

// ListViolations returns the pilot's full violation record.
// GET /api/orgs/{orgID}/pilots/{pilotID}/violations
func (h *Handler) ListViolations(w http.ResponseWriter, r *http.Request) {
	orgID, pilotID := pathIDs(r)
	violations, err := h.Engine.ListViolations(r.Context(), orgID, pilotID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViolationDTOs(violations))
}

// ResolveViolation resolves a violation. Idempotent.
// POST /api/violations/{id}/resolve
func (h *Handler) ResolveViolation(w http.ResponseWriter, r *http.Request) {
	violationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid violation id", err)
		return
	}

	var req ResolveViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	v, err := h.Engine.ResolveViolation(r.Context(), violationID, req.Notes, req.CommanderDiscretion)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViolationDTO(v))
}

// =============================================================================
// HELPERS
// =============================================================================

func pathIDs(r *http.Request) (ftl.OrgID, ftl.PilotID) {
	return ftl.OrgID(chi.URLParam(r, "orgID")), ftl.PilotID(chi.URLParam(r, "pilotID"))
}

// asOfParam reads the optional ?as_of=YYYY-MM-DD query, defaulting to now.
func asOfParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func parseHoursField(raw string) (ftl.Hours, error) {
	if raw == "" {
		return ftl.ZeroHours(), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ftl.Hours{}, err
	}
	return ftl.Hours{Value: d}, nil
}

// configFromRequest builds a full config over the defaults. Omitted
// fields, hour strings and integers alike, keep their default values.
func configFromRequest(orgID ftl.OrgID, req ConfigRequest) (*ftl.RegulatoryConfig, error) {
	cfg := ftl.DefaultConfig(orgID)

	fields := []struct {
		raw  string
		dest *ftl.Hours
	}{
		{req.MaxFlightTimeDaily, &cfg.MaxFlightTimeDaily},
		{req.MaxFlightTime7Days, &cfg.MaxFlightTime7Days},
		{req.MaxFlightTime28Days, &cfg.MaxFlightTime28Days},
		{req.MaxFlightTimeYear, &cfg.MaxFlightTimeYear},
		{req.MaxDutyPeriod, &cfg.MaxDutyPeriod},
		{req.MaxDutyTime7Days, &cfg.MaxDutyTime7Days},
		{req.MaxDutyTime14Days, &cfg.MaxDutyTime14Days},
		{req.MaxDutyTime28Days, &cfg.MaxDutyTime28Days},
		{req.MaxFdpStandard, &cfg.MaxFdpStandard},
		{req.MaxFdpExtended, &cfg.MaxFdpExtended},
		{req.MinRestAfterFdp, &cfg.MinRestAfterFdp},
		{req.MinRestBetweenDuties, &cfg.MinRestBetweenDuties},
		{req.MinWeeklyRest, &cfg.MinWeeklyRest},
		{req.NightFdpReduction, &cfg.NightFdpReduction},
		{req.SplitDutyMinRest, &cfg.SplitDutyMinRest},
		{req.MaxAirportStandby, &cfg.MaxAirportStandby},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		h, err := parseHoursField(f.raw)
		if err != nil {
			return nil, err
		}
		*f.dest = h
	}
	if req.SplitDutyFdpCreditPerHour != "" {
		d, err := decimal.NewFromString(req.SplitDutyFdpCreditPerHour)
		if err != nil {
			return nil, err
		}
		cfg.SplitDutyFdpCreditPerHour = d
	}
	ints := []struct {
		raw  *int
		dest *int
	}{
		{req.DaysOffPer7Days, &cfg.DaysOffPer7Days},
		{req.DaysOffPer14Days, &cfg.DaysOffPer14Days},
		{req.NightStartHour, &cfg.NightStartHour},
		{req.NightEndHour, &cfg.NightEndHour},
	}
	for _, f := range ints {
		if f.raw != nil {
			*f.dest = *f.raw
		}
	}
	return cfg, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case ftl.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ftl.ErrInvalidState):
		writeError(w, http.StatusConflict, "Conflict", err)
	case ftl.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
