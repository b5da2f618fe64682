/*
duty.go - DutyPeriod and RestPeriod records and their lifecycle

PURPOSE:
  The two source-of-truth record types. Everything the checkers compute is
  derived from these; the per-pilot summary is a discardable cache over
  them.

LIFECYCLE:
  Both records open with End == nil and close exactly once when an end
  timestamp is supplied. On close, Duration is recomputed from the
  timestamps - it is never stored independently of them being consistent.
  Closed records are immutable (corrective amendment is an authorized
  out-of-band process, not part of this engine).

SEE ALSO:
  - engine.go: StartDuty / EndDuty / RecordRest operations
  - violation.go: Detection runs on a just-closed duty period
*/
package ftl

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DUTY PERIOD
// =============================================================================

// RestFacility classifies the in-flight or ground rest facility available
// during augmented or split duty, which determines FDP extension credit.
type RestFacility string

const (
	RestFacilityNone   RestFacility = "none"
	RestFacilityClass1 RestFacility = "class_1" // bunk, flat sleeping surface
	RestFacilityClass2 RestFacility = "class_2" // reclining flat-ish seat
	RestFacilityClass3 RestFacility = "class_3" // reclining seat
)

// DutyPeriod is one reported duty interval. Open until End is set.
type DutyPeriod struct {
	ID      uuid.UUID
	OrgID   OrgID
	PilotID PilotID
	Kind    DutyKind

	Start time.Time  // UTC
	End   *time.Time // UTC, nil while open

	// Optional local-time mirror for regime rules that reference local
	// night hours. TimeZone is an IANA name; empty means unknown.
	TimeZone   string
	LocalStart *time.Time
	LocalEnd   *time.Time

	// Derived on close, always recomputed from Start/End.
	Duration Hours

	FlightTime   Hours // time airborne within this duty
	Sectors      int
	Augmented    bool
	RestFacility RestFacility
	FlightIDs    []uuid.UUID // opaque references into the flight-record system

	Planned  bool // scheduled in advance vs reported after the fact
	Location string

	CreatedAt time.Time
}

// NewDutyPeriod opens a duty period at start. End stays nil until Close.
func NewDutyPeriod(orgID OrgID, pilotID PilotID, kind DutyKind, start time.Time, location string, planned, augmented bool) *DutyPeriod {
	return &DutyPeriod{
		ID:           uuid.New(),
		OrgID:        orgID,
		PilotID:      pilotID,
		Kind:         kind,
		Start:        start.UTC(),
		Location:     location,
		Planned:      planned,
		Augmented:    augmented,
		RestFacility: RestFacilityNone,
		CreatedAt:    time.Now().UTC(),
	}
}

// IsOpen reports whether the period has no end timestamp yet.
func (d *DutyPeriod) IsOpen() bool { return d.End == nil }

// Close sets the end timestamp and recomputes Duration. Returns
// ErrDutyAlreadyClosed on a second close and *IntervalError if end
// precedes start.
func (d *DutyPeriod) Close(end time.Time, location string, flightTime Hours, sectors int, flightIDs []uuid.UUID) error {
	if !d.IsOpen() {
		return ErrDutyAlreadyClosed
	}
	end = end.UTC()
	if end.Before(d.Start) {
		return &IntervalError{Start: d.Start, End: end}
	}
	d.End = &end
	d.Duration = HoursBetween(d.Start, end)
	d.FlightTime = flightTime
	d.Sectors = sectors
	if location != "" {
		d.Location = location
	}
	if len(flightIDs) > 0 {
		d.FlightIDs = append(d.FlightIDs, flightIDs...)
	}
	return nil
}

// DutyDates returns the distinct UTC calendar dates this period touches,
// clamped to [from, to]. Used for days-off counting. An open period is
// treated as running through asOf by the caller passing to accordingly.
func (d *DutyPeriod) DutyDates(from, to time.Time) []time.Time {
	start := DateOf(d.Start)
	end := DateOf(to)
	if d.End != nil && DateOf(*d.End).Before(end) {
		end = DateOf(*d.End)
	}
	if start.Before(DateOf(from)) {
		start = DateOf(from)
	}
	var dates []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		dates = append(dates, cur)
	}
	return dates
}

// =============================================================================
// REST PERIOD
// =============================================================================

// RestPeriod is one reported rest interval. Lifecycle mirrors DutyPeriod.
type RestPeriod struct {
	ID      uuid.UUID
	OrgID   OrgID
	PilotID PilotID

	Start time.Time
	End   *time.Time

	// Derived on close.
	Duration Hours

	Reduced    bool // reduced rest under commander discretion
	SplitDuty  bool // the break inside a split duty period
	WeeklyRest bool // counts as the weekly recurrent rest

	Location              string
	SuitableAccommodation bool

	// Optional back-references into the duty timeline.
	FollowsDutyID  *uuid.UUID
	PrecedesDutyID *uuid.UUID

	CreatedAt time.Time
}

func NewRestPeriod(orgID OrgID, pilotID PilotID, start time.Time, location string) *RestPeriod {
	return &RestPeriod{
		ID:        uuid.New(),
		OrgID:     orgID,
		PilotID:   pilotID,
		Start:     start.UTC(),
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *RestPeriod) IsOpen() bool { return r.End == nil }

// Close sets the end timestamp and recomputes Duration.
func (r *RestPeriod) Close(end time.Time) error {
	if !r.IsOpen() {
		return ErrInvalidState
	}
	end = end.UTC()
	if end.Before(r.Start) {
		return &IntervalError{Start: r.Start, End: end}
	}
	r.End = &end
	r.Duration = HoursBetween(r.Start, end)
	return nil
}
