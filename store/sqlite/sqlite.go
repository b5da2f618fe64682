/*
Package sqlite provides a SQLite-backed implementation of ftl.TxStore.

PURPOSE:
  Implements the engine's persistence interface using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  configs:       One regulatory config row per organization
  duty_periods:  Duty intervals, open (end_at NULL) or closed
  rest_periods:  Rest intervals, same lifecycle
  violations:    Append + resolve only, never deleted
  summaries:     Derived per-pilot cache, freely overwritten/deleted

MUTATION DISCIPLINE:
  duty_periods and rest_periods receive exactly one UPDATE: the close
  transition. violations receive UPDATEs only on the resolution columns.
  There is no DELETE on any table except summaries - the cache is the one
  table reconstructable from the others.

TIMESTAMPS AND AMOUNTS:
  Timestamps are stored as RFC3339 UTC text. Hour quantities are stored
  as decimal strings, never REAL, so limits survive round-trips exactly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

TRANSACTIONS:
  WithTx wraps a database/sql transaction; the callback receives a store
  view bound to the transaction, so EndDuty's close-detect-recompute
  sequence commits or rolls back as a unit.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ftl/store.go: Interface definitions
  - ftl/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/skyops/ftl-engine/ftl"
)

// Store implements ftl.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	session
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows a single writer, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, session: session{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction. fn's error rolls
// everything back.
func (s *Store) WithTx(ctx context.Context, fn func(ftl.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&session{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Regulatory configuration (one row per organization)
	CREATE TABLE IF NOT EXISTS configs (
		org_id TEXT PRIMARY KEY,
		max_flight_time_daily TEXT NOT NULL,
		max_flight_time_7_days TEXT NOT NULL,
		max_flight_time_28_days TEXT NOT NULL,
		max_flight_time_year TEXT NOT NULL,
		max_duty_period TEXT NOT NULL,
		max_duty_time_7_days TEXT NOT NULL,
		max_duty_time_14_days TEXT NOT NULL,
		max_duty_time_28_days TEXT NOT NULL,
		max_fdp_standard TEXT NOT NULL,
		max_fdp_extended TEXT NOT NULL,
		min_rest_after_fdp TEXT NOT NULL,
		min_rest_between_duties TEXT NOT NULL,
		min_weekly_rest TEXT NOT NULL,
		days_off_per_7_days INTEGER NOT NULL,
		days_off_per_14_days INTEGER NOT NULL,
		night_start_hour INTEGER NOT NULL,
		night_end_hour INTEGER NOT NULL,
		night_fdp_reduction TEXT NOT NULL,
		split_duty_min_rest TEXT NOT NULL,
		split_duty_fdp_credit_per_hour TEXT NOT NULL,
		max_airport_standby TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Duty periods (open: end_at IS NULL; closed rows immutable)
	CREATE TABLE IF NOT EXISTS duty_periods (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		pilot_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT,
		time_zone TEXT,
		local_start TEXT,
		local_end TEXT,
		duration TEXT NOT NULL DEFAULT '0',
		flight_time TEXT NOT NULL DEFAULT '0',
		sectors INTEGER NOT NULL DEFAULT 0,
		augmented BOOLEAN NOT NULL DEFAULT FALSE,
		rest_facility TEXT NOT NULL DEFAULT 'none',
		flight_ids_json TEXT,
		planned BOOLEAN NOT NULL DEFAULT FALSE,
		location TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: rolling-window aggregation per pilot
	CREATE INDEX IF NOT EXISTS idx_duty_org_pilot_start
		ON duty_periods(org_id, pilot_id, start_at);
	-- Single-open-duty policy lookup
	CREATE INDEX IF NOT EXISTS idx_duty_open
		ON duty_periods(org_id, pilot_id) WHERE end_at IS NULL;

	-- Rest periods (same lifecycle as duty periods)
	CREATE TABLE IF NOT EXISTS rest_periods (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		pilot_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT,
		duration TEXT NOT NULL DEFAULT '0',
		reduced BOOLEAN NOT NULL DEFAULT FALSE,
		split_duty BOOLEAN NOT NULL DEFAULT FALSE,
		weekly_rest BOOLEAN NOT NULL DEFAULT FALSE,
		location TEXT,
		suitable_accommodation BOOLEAN NOT NULL DEFAULT FALSE,
		follows_duty_id TEXT,
		precedes_duty_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rest_org_pilot_end
		ON rest_periods(org_id, pilot_id, end_at);
	CREATE INDEX IF NOT EXISTS idx_rest_open
		ON rest_periods(org_id, pilot_id) WHERE end_at IS NULL;

	-- Violations (append + resolve only; audit trail, never deleted)
	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		pilot_id TEXT NOT NULL,
		duty_period_id TEXT,
		type TEXT NOT NULL,
		limit_name TEXT NOT NULL,
		limit_value TEXT NOT NULL,
		actual TEXT NOT NULL,
		exceeded_by TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		severity TEXT NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TEXT,
		resolution_notes TEXT,
		commander_discretion BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_violations_org_pilot
		ON violations(org_id, pilot_id);
	CREATE INDEX IF NOT EXISTS idx_violations_unresolved
		ON violations(org_id, pilot_id) WHERE resolved = FALSE;

	-- Per-pilot summary cache (derived; reconstructable from the above)
	CREATE TABLE IF NOT EXISTS summaries (
		org_id TEXT NOT NULL,
		pilot_id TEXT NOT NULL,
		as_of TEXT NOT NULL,
		flight_time_7_days TEXT NOT NULL,
		flight_time_28_days TEXT NOT NULL,
		flight_time_year TEXT NOT NULL,
		duty_time_7_days TEXT NOT NULL,
		duty_time_14_days TEXT NOT NULL,
		duty_time_28_days TEXT NOT NULL,
		last_fdp_end TEXT,
		last_fdp_duration TEXT NOT NULL,
		last_rest_end TEXT,
		last_rest_duration TEXT NOT NULL,
		days_off_7_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		next_available TEXT,
		max_fdp_available TEXT NOT NULL,
		compliant BOOLEAN NOT NULL,
		issues_json TEXT,
		computed_at TEXT NOT NULL,
		PRIMARY KEY (org_id, pilot_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION - All data access, bound to either the DB or a transaction
// =============================================================================

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type session struct {
	db dbConn
}

// --- Config ---

func (s *session) GetConfig(ctx context.Context, orgID ftl.OrgID) (*ftl.RegulatoryConfig, error) {
	query := `
		SELECT org_id, max_flight_time_daily, max_flight_time_7_days, max_flight_time_28_days,
		       max_flight_time_year, max_duty_period, max_duty_time_7_days, max_duty_time_14_days,
		       max_duty_time_28_days, max_fdp_standard, max_fdp_extended, min_rest_after_fdp,
		       min_rest_between_duties, min_weekly_rest, days_off_per_7_days, days_off_per_14_days,
		       night_start_hour, night_end_hour, night_fdp_reduction, split_duty_min_rest,
		       split_duty_fdp_credit_per_hour, max_airport_standby, created_at, updated_at
		FROM configs WHERE org_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, orgID)

	var cfg ftl.RegulatoryConfig
	var daily, ft7, ft28, ftYear, dutyMax, dt7, dt14, dt28 string
	var fdpStd, fdpExt, restAfter, restBetween, weeklyRest string
	var nightReduction, splitMinRest, splitCredit, standby string
	var createdAt, updatedAt string

	err := row.Scan(&cfg.OrgID, &daily, &ft7, &ft28, &ftYear, &dutyMax, &dt7, &dt14, &dt28,
		&fdpStd, &fdpExt, &restAfter, &restBetween, &weeklyRest,
		&cfg.DaysOffPer7Days, &cfg.DaysOffPer14Days,
		&cfg.NightStartHour, &cfg.NightEndHour, &nightReduction, &splitMinRest,
		&splitCredit, &standby, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ftl.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.MaxFlightTimeDaily = parseHours(daily)
	cfg.MaxFlightTime7Days = parseHours(ft7)
	cfg.MaxFlightTime28Days = parseHours(ft28)
	cfg.MaxFlightTimeYear = parseHours(ftYear)
	cfg.MaxDutyPeriod = parseHours(dutyMax)
	cfg.MaxDutyTime7Days = parseHours(dt7)
	cfg.MaxDutyTime14Days = parseHours(dt14)
	cfg.MaxDutyTime28Days = parseHours(dt28)
	cfg.MaxFdpStandard = parseHours(fdpStd)
	cfg.MaxFdpExtended = parseHours(fdpExt)
	cfg.MinRestAfterFdp = parseHours(restAfter)
	cfg.MinRestBetweenDuties = parseHours(restBetween)
	cfg.MinWeeklyRest = parseHours(weeklyRest)
	cfg.NightFdpReduction = parseHours(nightReduction)
	cfg.SplitDutyMinRest = parseHours(splitMinRest)
	cfg.SplitDutyFdpCreditPerHour = parseDecimal(splitCredit)
	cfg.MaxAirportStandby = parseHours(standby)
	cfg.CreatedAt = parseTime(createdAt)
	cfg.UpdatedAt = parseTime(updatedAt)
	return &cfg, nil
}

func (s *session) PutConfig(ctx context.Context, cfg *ftl.RegulatoryConfig) error {
	query := `
		INSERT INTO configs
		(org_id, max_flight_time_daily, max_flight_time_7_days, max_flight_time_28_days,
		 max_flight_time_year, max_duty_period, max_duty_time_7_days, max_duty_time_14_days,
		 max_duty_time_28_days, max_fdp_standard, max_fdp_extended, min_rest_after_fdp,
		 min_rest_between_duties, min_weekly_rest, days_off_per_7_days, days_off_per_14_days,
		 night_start_hour, night_end_hour, night_fdp_reduction, split_duty_min_rest,
		 split_duty_fdp_credit_per_hour, max_airport_standby, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id) DO UPDATE SET
		 max_flight_time_daily=excluded.max_flight_time_daily,
		 max_flight_time_7_days=excluded.max_flight_time_7_days,
		 max_flight_time_28_days=excluded.max_flight_time_28_days,
		 max_flight_time_year=excluded.max_flight_time_year,
		 max_duty_period=excluded.max_duty_period,
		 max_duty_time_7_days=excluded.max_duty_time_7_days,
		 max_duty_time_14_days=excluded.max_duty_time_14_days,
		 max_duty_time_28_days=excluded.max_duty_time_28_days,
		 max_fdp_standard=excluded.max_fdp_standard,
		 max_fdp_extended=excluded.max_fdp_extended,
		 min_rest_after_fdp=excluded.min_rest_after_fdp,
		 min_rest_between_duties=excluded.min_rest_between_duties,
		 min_weekly_rest=excluded.min_weekly_rest,
		 days_off_per_7_days=excluded.days_off_per_7_days,
		 days_off_per_14_days=excluded.days_off_per_14_days,
		 night_start_hour=excluded.night_start_hour,
		 night_end_hour=excluded.night_end_hour,
		 night_fdp_reduction=excluded.night_fdp_reduction,
		 split_duty_min_rest=excluded.split_duty_min_rest,
		 split_duty_fdp_credit_per_hour=excluded.split_duty_fdp_credit_per_hour,
		 max_airport_standby=excluded.max_airport_standby,
		 updated_at=excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.OrgID,
		cfg.MaxFlightTimeDaily.Value.String(),
		cfg.MaxFlightTime7Days.Value.String(),
		cfg.MaxFlightTime28Days.Value.String(),
		cfg.MaxFlightTimeYear.Value.String(),
		cfg.MaxDutyPeriod.Value.String(),
		cfg.MaxDutyTime7Days.Value.String(),
		cfg.MaxDutyTime14Days.Value.String(),
		cfg.MaxDutyTime28Days.Value.String(),
		cfg.MaxFdpStandard.Value.String(),
		cfg.MaxFdpExtended.Value.String(),
		cfg.MinRestAfterFdp.Value.String(),
		cfg.MinRestBetweenDuties.Value.String(),
		cfg.MinWeeklyRest.Value.String(),
		cfg.DaysOffPer7Days,
		cfg.DaysOffPer14Days,
		cfg.NightStartHour,
		cfg.NightEndHour,
		cfg.NightFdpReduction.Value.String(),
		cfg.SplitDutyMinRest.Value.String(),
		cfg.SplitDutyFdpCreditPerHour.String(),
		cfg.MaxAirportStandby.Value.String(),
		formatTime(cfg.CreatedAt),
		formatTime(cfg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store config: %w", err)
	}
	return nil
}

// --- Duty periods ---

const dutyColumns = `id, org_id, pilot_id, kind, start_at, end_at, time_zone, local_start,
		local_end, duration, flight_time, sectors, augmented, rest_facility, flight_ids_json,
		planned, location, created_at`

func (s *session) CreateDuty(ctx context.Context, d *ftl.DutyPeriod) error {
	flightIDs, _ := json.Marshal(d.FlightIDs)
	query := `
		INSERT INTO duty_periods (` + dutyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID.String(), d.OrgID, d.PilotID, d.Kind,
		formatTime(d.Start), nullTime(d.End),
		nullString(d.TimeZone), nullTime(d.LocalStart), nullTime(d.LocalEnd),
		d.Duration.Value.String(), d.FlightTime.Value.String(), d.Sectors,
		d.Augmented, d.RestFacility, string(flightIDs),
		d.Planned, nullString(d.Location), formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create duty period: %w", err)
	}
	return nil
}

func (s *session) GetDuty(ctx context.Context, id uuid.UUID) (*ftl.DutyPeriod, error) {
	query := `SELECT ` + dutyColumns + ` FROM duty_periods WHERE id = ?`
	duties, err := s.queryDuties(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	if len(duties) == 0 {
		return nil, ftl.ErrNotFound
	}
	return duties[0], nil
}

// UpdateDuty persists the close transition. The only legal update to a
// duty period.
func (s *session) UpdateDuty(ctx context.Context, d *ftl.DutyPeriod) error {
	flightIDs, _ := json.Marshal(d.FlightIDs)
	query := `
		UPDATE duty_periods
		SET end_at = ?, local_end = ?, duration = ?, flight_time = ?, sectors = ?,
		    flight_ids_json = ?, location = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		nullTime(d.End), nullTime(d.LocalEnd),
		d.Duration.Value.String(), d.FlightTime.Value.String(), d.Sectors,
		string(flightIDs), nullString(d.Location), d.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update duty period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ftl.ErrNotFound
	}
	return nil
}

func (s *session) OpenDuties(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.DutyPeriod, error) {
	query := `
		SELECT ` + dutyColumns + ` FROM duty_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NULL
		ORDER BY start_at ASC
	`
	return s.queryDuties(ctx, query, orgID, pilotID)
}

func (s *session) ClosedDutiesInRange(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID, from, to time.Time) ([]*ftl.DutyPeriod, error) {
	// Date-based overlap, inclusive of both endpoints. An overnight
	// period that began before the range but ran into it counts.
	query := `
		SELECT ` + dutyColumns + ` FROM duty_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NOT NULL
		  AND DATE(end_at) >= DATE(?) AND DATE(start_at) <= DATE(?)
		ORDER BY start_at ASC
	`
	return s.queryDuties(ctx, query, orgID, pilotID, formatTime(from), formatTime(to))
}

func (s *session) LastClosedDuty(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.DutyPeriod, error) {
	query := `
		SELECT ` + dutyColumns + ` FROM duty_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NOT NULL
		ORDER BY end_at DESC LIMIT 1
	`
	duties, err := s.queryDuties(ctx, query, orgID, pilotID)
	if err != nil {
		return nil, err
	}
	if len(duties) == 0 {
		return nil, ftl.ErrNotFound
	}
	return duties[0], nil
}

func (s *session) queryDuties(ctx context.Context, query string, args ...any) ([]*ftl.DutyPeriod, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query duty periods: %w", err)
	}
	defer rows.Close()

	var result []*ftl.DutyPeriod
	for rows.Next() {
		var d ftl.DutyPeriod
		var id string
		var endAt, timeZone, localStart, localEnd, flightIDs, location sql.NullString
		var duration, flightTime, startAt, createdAt string

		if err := rows.Scan(&id, &d.OrgID, &d.PilotID, &d.Kind, &startAt, &endAt,
			&timeZone, &localStart, &localEnd, &duration, &flightTime, &d.Sectors,
			&d.Augmented, &d.RestFacility, &flightIDs, &d.Planned, &location, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan duty period: %w", err)
		}

		d.ID = uuid.MustParse(id)
		d.Start = parseTime(startAt)
		d.End = parseTimePtr(endAt)
		d.TimeZone = timeZone.String
		d.LocalStart = parseTimePtr(localStart)
		d.LocalEnd = parseTimePtr(localEnd)
		d.Duration = parseHours(duration)
		d.FlightTime = parseHours(flightTime)
		d.Location = location.String
		d.CreatedAt = parseTime(createdAt)
		if flightIDs.Valid && flightIDs.String != "" && flightIDs.String != "null" {
			json.Unmarshal([]byte(flightIDs.String), &d.FlightIDs)
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

// --- Rest periods ---

const restColumns = `id, org_id, pilot_id, start_at, end_at, duration, reduced, split_duty,
		weekly_rest, location, suitable_accommodation, follows_duty_id, precedes_duty_id, created_at`

func (s *session) CreateRest(ctx context.Context, r *ftl.RestPeriod) error {
	query := `
		INSERT INTO rest_periods (` + restColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID.String(), r.OrgID, r.PilotID,
		formatTime(r.Start), nullTime(r.End), r.Duration.Value.String(),
		r.Reduced, r.SplitDuty, r.WeeklyRest,
		nullString(r.Location), r.SuitableAccommodation,
		nullUUID(r.FollowsDutyID), nullUUID(r.PrecedesDutyID),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create rest period: %w", err)
	}
	return nil
}

func (s *session) GetRest(ctx context.Context, id uuid.UUID) (*ftl.RestPeriod, error) {
	query := `SELECT ` + restColumns + ` FROM rest_periods WHERE id = ?`
	rests, err := s.queryRests(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	if len(rests) == 0 {
		return nil, ftl.ErrNotFound
	}
	return rests[0], nil
}

func (s *session) UpdateRest(ctx context.Context, r *ftl.RestPeriod) error {
	query := `
		UPDATE rest_periods
		SET end_at = ?, duration = ?, precedes_duty_id = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		nullTime(r.End), r.Duration.Value.String(), nullUUID(r.PrecedesDutyID), r.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update rest period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ftl.ErrNotFound
	}
	return nil
}

func (s *session) OpenRests(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.RestPeriod, error) {
	query := `
		SELECT ` + restColumns + ` FROM rest_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NULL
		ORDER BY start_at ASC
	`
	return s.queryRests(ctx, query, orgID, pilotID)
}

func (s *session) RestsEndedInRange(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID, from, to time.Time) ([]*ftl.RestPeriod, error) {
	query := `
		SELECT ` + restColumns + ` FROM rest_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NOT NULL
		  AND DATE(end_at) >= DATE(?) AND DATE(end_at) <= DATE(?)
		ORDER BY end_at ASC
	`
	return s.queryRests(ctx, query, orgID, pilotID, formatTime(from), formatTime(to))
}

func (s *session) LastEndedRest(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.RestPeriod, error) {
	query := `
		SELECT ` + restColumns + ` FROM rest_periods
		WHERE org_id = ? AND pilot_id = ? AND end_at IS NOT NULL
		ORDER BY end_at DESC LIMIT 1
	`
	rests, err := s.queryRests(ctx, query, orgID, pilotID)
	if err != nil {
		return nil, err
	}
	if len(rests) == 0 {
		return nil, ftl.ErrNotFound
	}
	return rests[0], nil
}

func (s *session) queryRests(ctx context.Context, query string, args ...any) ([]*ftl.RestPeriod, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rest periods: %w", err)
	}
	defer rows.Close()

	var result []*ftl.RestPeriod
	for rows.Next() {
		var r ftl.RestPeriod
		var id string
		var endAt, location, followsID, precedesID sql.NullString
		var startAt, duration, createdAt string

		if err := rows.Scan(&id, &r.OrgID, &r.PilotID, &startAt, &endAt, &duration,
			&r.Reduced, &r.SplitDuty, &r.WeeklyRest, &location,
			&r.SuitableAccommodation, &followsID, &precedesID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rest period: %w", err)
		}

		r.ID = uuid.MustParse(id)
		r.Start = parseTime(startAt)
		r.End = parseTimePtr(endAt)
		r.Duration = parseHours(duration)
		r.Location = location.String
		r.FollowsDutyID = parseUUIDPtr(followsID)
		r.PrecedesDutyID = parseUUIDPtr(precedesID)
		r.CreatedAt = parseTime(createdAt)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// --- Violations ---

const violationColumns = `id, org_id, pilot_id, duty_period_id, type, limit_name, limit_value,
		actual, exceeded_by, period_start, period_end, severity, resolved, resolved_at,
		resolution_notes, commander_discretion, created_at`

func (s *session) AppendViolation(ctx context.Context, v *ftl.FTLViolation) error {
	query := `
		INSERT INTO violations (` + violationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID.String(), v.OrgID, v.PilotID, nullUUID(v.DutyPeriodID),
		v.Type, v.LimitName, v.LimitValue.Value.String(),
		v.Actual.Value.String(), v.ExceededBy.Value.String(),
		formatTime(v.PeriodStart), formatTime(v.PeriodEnd), v.Severity,
		v.Resolved, nullTime(v.ResolvedAt), nullString(v.ResolutionNotes),
		v.CommanderDiscretion, formatTime(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append violation: %w", err)
	}
	return nil
}

func (s *session) GetViolation(ctx context.Context, id uuid.UUID) (*ftl.FTLViolation, error) {
	query := `SELECT ` + violationColumns + ` FROM violations WHERE id = ?`
	violations, err := s.queryViolations(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	if len(violations) == 0 {
		return nil, ftl.ErrNotFound
	}
	return violations[0], nil
}

func (s *session) ListViolations(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.FTLViolation, error) {
	query := `
		SELECT ` + violationColumns + ` FROM violations
		WHERE org_id = ? AND pilot_id = ?
		ORDER BY created_at ASC
	`
	return s.queryViolations(ctx, query, orgID, pilotID)
}

// UpdateViolation persists resolution fields only. The breach itself is
// immutable.
func (s *session) UpdateViolation(ctx context.Context, v *ftl.FTLViolation) error {
	query := `
		UPDATE violations
		SET resolved = ?, resolved_at = ?, resolution_notes = ?, commander_discretion = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		v.Resolved, nullTime(v.ResolvedAt), nullString(v.ResolutionNotes),
		v.CommanderDiscretion, v.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update violation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ftl.ErrNotFound
	}
	return nil
}

func (s *session) queryViolations(ctx context.Context, query string, args ...any) ([]*ftl.FTLViolation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var result []*ftl.FTLViolation
	for rows.Next() {
		var v ftl.FTLViolation
		var id string
		var dutyID, resolvedAt, notes sql.NullString
		var limitValue, actual, exceededBy, periodStart, periodEnd, createdAt string

		if err := rows.Scan(&id, &v.OrgID, &v.PilotID, &dutyID, &v.Type, &v.LimitName,
			&limitValue, &actual, &exceededBy, &periodStart, &periodEnd, &v.Severity,
			&v.Resolved, &resolvedAt, &notes, &v.CommanderDiscretion, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}

		v.ID = uuid.MustParse(id)
		v.DutyPeriodID = parseUUIDPtr(dutyID)
		v.LimitValue = parseHours(limitValue)
		v.Actual = parseHours(actual)
		v.ExceededBy = parseHours(exceededBy)
		v.PeriodStart = parseTime(periodStart)
		v.PeriodEnd = parseTime(periodEnd)
		v.ResolvedAt = parseTimePtr(resolvedAt)
		v.ResolutionNotes = notes.String
		v.CreatedAt = parseTime(createdAt)
		result = append(result, &v)
	}
	return result, rows.Err()
}

// --- Summary cache ---

func (s *session) GetSummary(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.PilotFtlSummary, error) {
	query := `
		SELECT org_id, pilot_id, as_of, flight_time_7_days, flight_time_28_days,
		       flight_time_year, duty_time_7_days, duty_time_14_days, duty_time_28_days,
		       last_fdp_end, last_fdp_duration, last_rest_end, last_rest_duration,
		       days_off_7_days, status, next_available, max_fdp_available, compliant,
		       issues_json, computed_at
		FROM summaries WHERE org_id = ? AND pilot_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, orgID, pilotID)

	var sum ftl.PilotFtlSummary
	var asOf, ft7, ft28, ftYear, dt7, dt14, dt28 string
	var lastFdpEnd, lastRestEnd, nextAvailable, issuesJSON sql.NullString
	var lastFdpDur, lastRestDur, maxFdp, computedAt string

	err := row.Scan(&sum.OrgID, &sum.PilotID, &asOf, &ft7, &ft28, &ftYear, &dt7, &dt14, &dt28,
		&lastFdpEnd, &lastFdpDur, &lastRestEnd, &lastRestDur, &sum.DaysOff7Days,
		&sum.Status, &nextAvailable, &maxFdp, &sum.Compliant, &issuesJSON, &computedAt)
	if err == sql.ErrNoRows {
		return nil, ftl.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}

	sum.Totals = ftl.CumulativeTotals{
		AsOf:             parseTime(asOf),
		FlightTime7Days:  parseHours(ft7),
		FlightTime28Days: parseHours(ft28),
		FlightTimeYear:   parseHours(ftYear),
		DutyTime7Days:    parseHours(dt7),
		DutyTime14Days:   parseHours(dt14),
		DutyTime28Days:   parseHours(dt28),
	}
	sum.LastFdpEnd = parseTimePtr(lastFdpEnd)
	sum.LastFdpDuration = parseHours(lastFdpDur)
	sum.LastRestEnd = parseTimePtr(lastRestEnd)
	sum.LastRestDuration = parseHours(lastRestDur)
	sum.NextAvailable = parseTimePtr(nextAvailable)
	sum.MaxFdpAvailable = parseHours(maxFdp)
	sum.ComputedAt = parseTime(computedAt)
	if issuesJSON.Valid && issuesJSON.String != "" && issuesJSON.String != "null" {
		json.Unmarshal([]byte(issuesJSON.String), &sum.Issues)
	}
	return &sum, nil
}

func (s *session) PutSummary(ctx context.Context, sum *ftl.PilotFtlSummary) error {
	issuesJSON, _ := json.Marshal(sum.Issues)
	query := `
		INSERT INTO summaries
		(org_id, pilot_id, as_of, flight_time_7_days, flight_time_28_days, flight_time_year,
		 duty_time_7_days, duty_time_14_days, duty_time_28_days, last_fdp_end,
		 last_fdp_duration, last_rest_end, last_rest_duration, days_off_7_days, status,
		 next_available, max_fdp_available, compliant, issues_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, pilot_id) DO UPDATE SET
		 as_of=excluded.as_of,
		 flight_time_7_days=excluded.flight_time_7_days,
		 flight_time_28_days=excluded.flight_time_28_days,
		 flight_time_year=excluded.flight_time_year,
		 duty_time_7_days=excluded.duty_time_7_days,
		 duty_time_14_days=excluded.duty_time_14_days,
		 duty_time_28_days=excluded.duty_time_28_days,
		 last_fdp_end=excluded.last_fdp_end,
		 last_fdp_duration=excluded.last_fdp_duration,
		 last_rest_end=excluded.last_rest_end,
		 last_rest_duration=excluded.last_rest_duration,
		 days_off_7_days=excluded.days_off_7_days,
		 status=excluded.status,
		 next_available=excluded.next_available,
		 max_fdp_available=excluded.max_fdp_available,
		 compliant=excluded.compliant,
		 issues_json=excluded.issues_json,
		 computed_at=excluded.computed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		sum.OrgID, sum.PilotID, formatTime(sum.Totals.AsOf),
		sum.Totals.FlightTime7Days.Value.String(),
		sum.Totals.FlightTime28Days.Value.String(),
		sum.Totals.FlightTimeYear.Value.String(),
		sum.Totals.DutyTime7Days.Value.String(),
		sum.Totals.DutyTime14Days.Value.String(),
		sum.Totals.DutyTime28Days.Value.String(),
		nullTime(sum.LastFdpEnd), sum.LastFdpDuration.Value.String(),
		nullTime(sum.LastRestEnd), sum.LastRestDuration.Value.String(),
		sum.DaysOff7Days, sum.Status, nullTime(sum.NextAvailable),
		sum.MaxFdpAvailable.Value.String(), sum.Compliant,
		string(issuesJSON), formatTime(sum.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

func (s *session) DeleteSummary(ctx context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM summaries WHERE org_id = ? AND pilot_id = ?", orgID, pilotID)
	return err
}

// =============================================================================
// SCAN/FORMAT HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseUUIDPtr(ns sql.NullString) *uuid.UUID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &id
}

func parseHours(s string) ftl.Hours {
	return ftl.Hours{Value: parseDecimal(s)}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
