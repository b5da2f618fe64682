/*
engine.go - The FTL engine facade

PURPOSE:
  Wires the pure checkers to a Store and exposes the engine's operations:

    StartDuty / EndDuty / RecordRest        duty and rest lifecycle
    GetOrCreateConfig / UpdateConfig        regulatory parameters
    CheckCumulativeLimits                   rolling-window compliance
    CheckRestRequirements                   rest compliance
    ValidatePlannedDuty                     prospective "can I schedule?"
    ResolveViolation                        explicit resolution
    GetPilotStatus                          cached summary (rebuilt on miss)
    RebuildSummary                          explicit cache rebuild

CONCURRENCY:
  Summary recomputation is read-then-write against the cache, so it is
  serialized per pilot with a keyed mutex. Checks are read-only and run
  concurrently; they always read source tables, never the cache.

ATOMICITY:
  EndDuty performs close + detect + recompute inside one WithTx. A partial
  failure rolls the whole sequence back so no duty period ends up closed
  but unevaluated.

POLICY:
  One open duty period per pilot. StartDuty rejects overlap with
  ErrOpenDutyExists. This keeps "on_duty" unambiguous; it is an engine
  policy, not a regulatory requirement.

HISTORY BOUND:
  Recomputation loads at most the trailing 366 days of duty periods - the
  longest rolling window is the calendar year, so older records can never
  change a result.
*/
package ftl

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// summaryLookback bounds how much history a recomputation scans. 366
// covers a leap year, the longest window any checker uses.
const summaryLookback = 366

// Engine is the FTL compliance engine. Safe for concurrent use.
type Engine struct {
	store TxStore

	mu         sync.Mutex
	pilotLocks map[pilotKey]*sync.Mutex
}

type pilotKey struct {
	Org   OrgID
	Pilot PilotID
}

func NewEngine(store TxStore) *Engine {
	return &Engine{
		store:      store,
		pilotLocks: make(map[pilotKey]*sync.Mutex),
	}
}

// lockPilot returns the mutex serializing writes for one pilot.
func (e *Engine) lockPilot(orgID OrgID, pilotID PilotID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := pilotKey{Org: orgID, Pilot: pilotID}
	if _, ok := e.pilotLocks[k]; !ok {
		e.pilotLocks[k] = &sync.Mutex{}
	}
	return e.pilotLocks[k]
}

// =============================================================================
// CONFIG
// =============================================================================

// GetOrCreateConfig returns the org's config, creating defaults on first
// access.
func (e *Engine) GetOrCreateConfig(ctx context.Context, orgID OrgID) (*RegulatoryConfig, error) {
	cfg, err := e.store.GetConfig(ctx, orgID)
	if err == nil {
		return cfg, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	cfg = DefaultConfig(orgID)
	if err := e.store.PutConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateConfig validates and replaces the org's config whole.
func (e *Engine) UpdateConfig(ctx context.Context, cfg *RegulatoryConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	existing, err := e.GetOrCreateConfig(ctx, cfg.OrgID)
	if err != nil {
		return err
	}
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()
	return e.store.PutConfig(ctx, cfg)
}

// =============================================================================
// DUTY LIFECYCLE
// =============================================================================

type StartDutyInput struct {
	OrgID     OrgID
	PilotID   PilotID
	Kind      DutyKind
	Start     time.Time
	Location  string
	Planned   bool
	Augmented bool
}

// StartDuty opens a duty period. Rejects with ErrOpenDutyExists (via
// *OpenDutyError) when the pilot already has an open duty period of any
// kind.
func (e *Engine) StartDuty(ctx context.Context, in StartDutyInput) (*DutyPeriod, error) {
	if !in.Kind.IsValid() {
		return nil, &ConfigError{Field: "kind", Reason: "unknown duty kind"}
	}

	lock := e.lockPilot(in.OrgID, in.PilotID)
	lock.Lock()
	defer lock.Unlock()

	open, err := e.store.OpenDuties(ctx, in.OrgID, in.PilotID)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, &OpenDutyError{
			PilotID:    in.PilotID,
			OpenDutyID: open[0].ID.String(),
			OpenedAt:   open[0].Start,
		}
	}

	duty := NewDutyPeriod(in.OrgID, in.PilotID, in.Kind, in.Start, in.Location, in.Planned, in.Augmented)
	if err := e.store.CreateDuty(ctx, duty); err != nil {
		return nil, err
	}

	if err := e.recomputeSummaryLocked(ctx, e.store, in.OrgID, in.PilotID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return duty, nil
}

type EndDutyInput struct {
	End        time.Time
	Location   string
	FlightTime Hours
	Sectors    int
	FlightIDs  []uuid.UUID
}

// EndDuty closes the duty period, runs violation detection and recomputes
// the pilot's summary - all inside one store transaction.
func (e *Engine) EndDuty(ctx context.Context, dutyID uuid.UUID, in EndDutyInput) (*DutyPeriod, []*FTLViolation, error) {
	// Resolve the pilot outside the transaction to take the right lock.
	duty, err := e.store.GetDuty(ctx, dutyID)
	if err != nil {
		return nil, nil, err
	}

	lock := e.lockPilot(duty.OrgID, duty.PilotID)
	lock.Lock()
	defer lock.Unlock()

	var closed *DutyPeriod
	var violations []*FTLViolation

	err = e.store.WithTx(ctx, func(s Store) error {
		d, err := s.GetDuty(ctx, dutyID)
		if err != nil {
			return err
		}
		if err := d.Close(in.End, in.Location, in.FlightTime, in.Sectors, in.FlightIDs); err != nil {
			return err
		}
		if err := s.UpdateDuty(ctx, d); err != nil {
			return err
		}

		cfg, err := e.configWithin(ctx, s, d.OrgID)
		if err != nil {
			return err
		}

		// Single-period rules.
		violations = DetectViolations(d, cfg)

		// A close can also push a rolling window over its limit; those
		// findings are stored too, at critical severity.
		closedDuties, err := s.ClosedDutiesInRange(ctx, d.OrgID, d.PilotID,
			DateOf(in.End).AddDate(0, 0, -(summaryLookback-1)), in.End)
		if err != nil {
			return err
		}
		totals := SumWindows(closedDuties, in.End)
		compliance := EvaluateCumulative(d.OrgID, d.PilotID, totals, cfg)
		for _, issue := range compliance.Issues {
			v := ViolationFromIssue(d.OrgID, d.PilotID, issue, windowStartForIssue(issue.Code, in.End), DateOf(in.End))
			v.DutyPeriodID = &d.ID
			violations = append(violations, v)
		}

		for _, v := range violations {
			if err := s.AppendViolation(ctx, v); err != nil {
				return err
			}
		}

		if err := e.recomputeSummaryLocked(ctx, s, d.OrgID, d.PilotID, in.End); err != nil {
			return err
		}

		closed = d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return closed, violations, nil
}

// =============================================================================
// REST LIFECYCLE
// =============================================================================

type RecordRestInput struct {
	OrgID                 OrgID
	PilotID               PilotID
	Start                 time.Time
	End                   *time.Time // nil keeps the rest period open
	Location              string
	SuitableAccommodation bool
	Reduced               bool
	SplitDuty             bool
	WeeklyRest            bool
	FollowsDutyID         *uuid.UUID
}

// RecordRest creates a rest period, closed immediately when End is
// supplied. While open the pilot's derived status is "resting".
func (e *Engine) RecordRest(ctx context.Context, in RecordRestInput) (*RestPeriod, error) {
	lock := e.lockPilot(in.OrgID, in.PilotID)
	lock.Lock()
	defer lock.Unlock()

	rest := NewRestPeriod(in.OrgID, in.PilotID, in.Start, in.Location)
	rest.SuitableAccommodation = in.SuitableAccommodation
	rest.Reduced = in.Reduced
	rest.SplitDuty = in.SplitDuty
	rest.WeeklyRest = in.WeeklyRest
	rest.FollowsDutyID = in.FollowsDutyID
	if in.End != nil {
		if err := rest.Close(*in.End); err != nil {
			return nil, err
		}
	}

	asOf := time.Now().UTC()
	err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.CreateRest(ctx, rest); err != nil {
			return err
		}
		return e.recomputeSummaryLocked(ctx, s, in.OrgID, in.PilotID, asOf)
	})
	if err != nil {
		return nil, err
	}
	return rest, nil
}

// EndRest closes an open rest period and recomputes the summary.
func (e *Engine) EndRest(ctx context.Context, restID uuid.UUID, end time.Time) (*RestPeriod, error) {
	rest, err := e.store.GetRest(ctx, restID)
	if err != nil {
		return nil, err
	}

	lock := e.lockPilot(rest.OrgID, rest.PilotID)
	lock.Lock()
	defer lock.Unlock()

	var closed *RestPeriod
	err = e.store.WithTx(ctx, func(s Store) error {
		r, err := s.GetRest(ctx, restID)
		if err != nil {
			return err
		}
		if err := r.Close(end); err != nil {
			return err
		}
		if err := s.UpdateRest(ctx, r); err != nil {
			return err
		}
		closed = r
		return e.recomputeSummaryLocked(ctx, s, r.OrgID, r.PilotID, end)
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// =============================================================================
// CHECKS - Read-only, always from source tables
// =============================================================================

// CheckCumulativeLimits computes the rolling-window totals and compares
// them to the org's limits. Pure read; repeated calls over the same
// records give identical results.
func (e *Engine) CheckCumulativeLimits(ctx context.Context, orgID OrgID, pilotID PilotID, asOf time.Time) (ComplianceResult, error) {
	cfg, err := e.GetOrCreateConfig(ctx, orgID)
	if err != nil {
		return ComplianceResult{}, err
	}
	duties, err := e.store.ClosedDutiesInRange(ctx, orgID, pilotID,
		DateOf(asOf).AddDate(0, 0, -(summaryLookback-1)), asOf)
	if err != nil {
		return ComplianceResult{}, err
	}
	return EvaluateCumulative(orgID, pilotID, SumWindows(duties, asOf), cfg), nil
}

// CheckRestRequirements verifies minimum rest, days off, and weekly rest
// cadence as of the given date.
func (e *Engine) CheckRestRequirements(ctx context.Context, orgID OrgID, pilotID PilotID, asOf time.Time) (RestResult, error) {
	cfg, err := e.GetOrCreateConfig(ctx, orgID)
	if err != nil {
		return RestResult{}, err
	}
	lastRest, err := e.store.LastEndedRest(ctx, orgID, pilotID)
	if err != nil && !IsNotFound(err) {
		return RestResult{}, err
	}

	from := WindowStart(asOf, 7)
	duties, err := e.store.ClosedDutiesInRange(ctx, orgID, pilotID, from, asOf)
	if err != nil {
		return RestResult{}, err
	}
	open, err := e.store.OpenDuties(ctx, orgID, pilotID)
	if err != nil {
		return RestResult{}, err
	}
	rests, err := e.store.RestsEndedInRange(ctx, orgID, pilotID, from, asOf)
	if err != nil {
		return RestResult{}, err
	}

	return EvaluateRest(orgID, pilotID, asOf, lastRest, append(duties, open...), rests, cfg), nil
}

// ValidatePlannedDuty answers whether a proposed duty could be scheduled.
// Nothing is persisted; the proposed flight time is combined with real
// cumulative state in memory only.
func (e *Engine) ValidatePlannedDuty(ctx context.Context, orgID OrgID, pilotID PilotID, proposal DutyProposal) (PlanResult, error) {
	cfg, err := e.GetOrCreateConfig(ctx, orgID)
	if err != nil {
		return PlanResult{}, err
	}

	now := time.Now().UTC()
	duties, err := e.store.ClosedDutiesInRange(ctx, orgID, pilotID,
		DateOf(now).AddDate(0, 0, -(summaryLookback-1)), now)
	if err != nil {
		return PlanResult{}, err
	}

	lastDuty, err := e.store.LastClosedDuty(ctx, orgID, pilotID)
	if err != nil {
		if !IsNotFound(err) {
			return PlanResult{}, err
		}
		lastDuty = nil
	}

	return ValidatePlan(proposal, SumWindows(duties, now), lastDuty, cfg), nil
}

// =============================================================================
// VIOLATIONS
// =============================================================================

// ResolveViolation marks a violation resolved, optionally under commander
// discretion. Idempotent: resolving twice changes nothing.
func (e *Engine) ResolveViolation(ctx context.Context, violationID uuid.UUID, notes string, commanderDiscretion bool) (*FTLViolation, error) {
	v, err := e.store.GetViolation(ctx, violationID)
	if err != nil {
		return nil, err
	}
	if !v.Resolve(time.Now().UTC(), notes, commanderDiscretion) {
		return v, nil // already resolved, no-op
	}
	if err := e.store.UpdateViolation(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListViolations returns the pilot's full violation record, resolved and
// not.
func (e *Engine) ListViolations(ctx context.Context, orgID OrgID, pilotID PilotID) ([]*FTLViolation, error) {
	return e.store.ListViolations(ctx, orgID, pilotID)
}

// =============================================================================
// SUMMARY
// =============================================================================

// GetPilotStatus returns the cached summary, rebuilding it on a miss. The
// cache is advisory; callers needing authoritative answers use the check
// operations.
func (e *Engine) GetPilotStatus(ctx context.Context, orgID OrgID, pilotID PilotID) (*PilotFtlSummary, error) {
	s, err := e.store.GetSummary(ctx, orgID, pilotID)
	if err == nil {
		return s, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	return e.RebuildSummary(ctx, orgID, pilotID, time.Now().UTC())
}

// RebuildSummary discards any cached row and recomputes it from source
// records. Always safe: the summary is derived state.
func (e *Engine) RebuildSummary(ctx context.Context, orgID OrgID, pilotID PilotID, asOf time.Time) (*PilotFtlSummary, error) {
	lock := e.lockPilot(orgID, pilotID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.recomputeSummaryLocked(ctx, e.store, orgID, pilotID, asOf); err != nil {
		return nil, err
	}
	return e.store.GetSummary(ctx, orgID, pilotID)
}

// recomputeSummaryLocked rebuilds the summary row from source records.
// Caller must hold the pilot lock (or run inside EndDuty's transaction,
// which holds it too).
func (e *Engine) recomputeSummaryLocked(ctx context.Context, s Store, orgID OrgID, pilotID PilotID, asOf time.Time) error {
	cfg, err := e.configWithin(ctx, s, orgID)
	if err != nil {
		return err
	}

	from := DateOf(asOf).AddDate(0, 0, -(summaryLookback - 1))
	closedDuties, err := s.ClosedDutiesInRange(ctx, orgID, pilotID, from, asOf)
	if err != nil {
		return err
	}
	openDuties, err := s.OpenDuties(ctx, orgID, pilotID)
	if err != nil {
		return err
	}
	openRests, err := s.OpenRests(ctx, orgID, pilotID)
	if err != nil {
		return err
	}
	recentRests, err := s.RestsEndedInRange(ctx, orgID, pilotID, WindowStart(asOf, 7), asOf)
	if err != nil {
		return err
	}
	lastRest, err := s.LastEndedRest(ctx, orgID, pilotID)
	if err != nil {
		if !IsNotFound(err) {
			return err
		}
		lastRest = nil
	}

	summary := BuildSummary(SummaryInput{
		OrgID:        orgID,
		PilotID:      pilotID,
		AsOf:         asOf,
		OpenDuties:   openDuties,
		ClosedDuties: closedDuties,
		OpenRests:    openRests,
		RecentRests:  recentRests,
		LastRest:     lastRest,
		Config:       cfg,
	})
	return s.PutSummary(ctx, summary)
}

// configWithin fetches (or defaults) the config using the given store
// view, so transactional callers stay inside their transaction.
func (e *Engine) configWithin(ctx context.Context, s Store, orgID OrgID) (*RegulatoryConfig, error) {
	cfg, err := s.GetConfig(ctx, orgID)
	if err == nil {
		return cfg, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	cfg = DefaultConfig(orgID)
	if err := s.PutConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
