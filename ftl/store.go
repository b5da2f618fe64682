/*
store.go - Persistence interface for the four FTL tables + summary cache

PURPOSE:
  Defines the interface between the engine and the database. Four logical
  tables - config, duty periods, rest periods, violations - plus the
  derived summary cache. Implementations: store/sqlite (production) and
  ftl/store (in-memory, tests/dev).

MUTATION DISCIPLINE:
  Records are close-once, then immutable:
  - Duty/rest periods: created open, updated exactly once on close.
  - Violations: appended, updated only by resolution. Never deleted.
  - Config: created with defaults, replaced whole on update.
  - Summary: the only freely overwritten (and deletable) row, because it
    is a cache reconstructable from duty/rest records alone.

ATOMICITY:
  TxStore.WithTx wraps close-detect-recompute sequences so a crash cannot
  leave a closed duty period without its violations evaluated.

SEE ALSO:
  - ftl/store/memory.go: In-memory implementation
  - store/sqlite/sqlite.go: SQLite implementation
*/
package ftl

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// --- Config (one per org) ---

	// GetConfig returns the org's config or ErrNotFound.
	GetConfig(ctx context.Context, orgID OrgID) (*RegulatoryConfig, error)

	// PutConfig inserts or replaces the org's config.
	PutConfig(ctx context.Context, cfg *RegulatoryConfig) error

	// --- Duty periods ---

	CreateDuty(ctx context.Context, d *DutyPeriod) error

	// GetDuty returns the duty period or ErrNotFound.
	GetDuty(ctx context.Context, id uuid.UUID) (*DutyPeriod, error)

	// UpdateDuty persists the close transition (end, duration, flight
	// fields). The only legal update to a duty period.
	UpdateDuty(ctx context.Context, d *DutyPeriod) error

	// OpenDuties returns the pilot's open duty periods, oldest first.
	OpenDuties(ctx context.Context, orgID OrgID, pilotID PilotID) ([]*DutyPeriod, error)

	// ClosedDutiesInRange returns closed duty periods whose [start, end]
	// dates overlap [from, to] (date-based, inclusive of both endpoints),
	// ordered by start. A period that began before the range but ran into
	// it is included; days-off counting depends on that.
	ClosedDutiesInRange(ctx context.Context, orgID OrgID, pilotID PilotID, from, to time.Time) ([]*DutyPeriod, error)

	// LastClosedDuty returns the closed duty period with the latest end,
	// or ErrNotFound when the pilot has none.
	LastClosedDuty(ctx context.Context, orgID OrgID, pilotID PilotID) (*DutyPeriod, error)

	// --- Rest periods ---

	CreateRest(ctx context.Context, r *RestPeriod) error
	GetRest(ctx context.Context, id uuid.UUID) (*RestPeriod, error)

	// UpdateRest persists the close transition.
	UpdateRest(ctx context.Context, r *RestPeriod) error

	OpenRests(ctx context.Context, orgID OrgID, pilotID PilotID) ([]*RestPeriod, error)

	// RestsEndedInRange returns rest periods whose end falls in [from, to].
	RestsEndedInRange(ctx context.Context, orgID OrgID, pilotID PilotID, from, to time.Time) ([]*RestPeriod, error)

	// LastEndedRest returns the rest period with the latest end, or
	// ErrNotFound when the pilot has none ended.
	LastEndedRest(ctx context.Context, orgID OrgID, pilotID PilotID) (*RestPeriod, error)

	// --- Violations (append + resolve only) ---

	AppendViolation(ctx context.Context, v *FTLViolation) error
	GetViolation(ctx context.Context, id uuid.UUID) (*FTLViolation, error)
	ListViolations(ctx context.Context, orgID OrgID, pilotID PilotID) ([]*FTLViolation, error)

	// UpdateViolation persists resolution fields. No other field changes.
	UpdateViolation(ctx context.Context, v *FTLViolation) error

	// --- Summary cache ---

	GetSummary(ctx context.Context, orgID OrgID, pilotID PilotID) (*PilotFtlSummary, error)
	PutSummary(ctx context.Context, s *PilotFtlSummary) error
	DeleteSummary(ctx context.Context, orgID OrgID, pilotID PilotID) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support. EndDuty requires it so
// close, detection and summary recomputation commit or roll back together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. fn's error rolls back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
