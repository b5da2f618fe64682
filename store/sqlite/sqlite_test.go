package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyops/ftl-engine/ftl"
)

const (
	testOrg   = ftl.OrgID("org-1")
	testPilot = ftl.PilotID("pilot-1")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func utc(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func closedDuty(t *testing.T, start time.Time, durationHours, flightHours float64) *ftl.DutyPeriod {
	t.Helper()
	d := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyFlight, start, "LHR", false, false)
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))
	require.NoError(t, d.Close(end, "JFK", ftl.HoursOf(flightHours), 2, nil))
	return d
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetConfig(ctx, testOrg)
	assert.True(t, ftl.IsNotFound(err))

	cfg := ftl.DefaultConfig(testOrg)
	cfg.MaxFdpStandard = ftl.HoursOf(13.25) // fractional hours must survive exactly
	require.NoError(t, store.PutConfig(ctx, cfg))

	loaded, err := store.GetConfig(ctx, testOrg)
	require.NoError(t, err)
	assert.True(t, loaded.MaxFdpStandard.Equal(ftl.HoursOf(13.25)),
		"expected 13.25, got %s", loaded.MaxFdpStandard)
	assert.True(t, loaded.MaxFlightTime7Days.Equal(cfg.MaxFlightTime7Days))
	assert.Equal(t, cfg.DaysOffPer7Days, loaded.DaysOffPer7Days)
	assert.Equal(t, cfg.NightStartHour, loaded.NightStartHour)

	// Upsert replaces whole.
	cfg.MaxFlightTime7Days = ftl.HoursOf(55)
	require.NoError(t, store.PutConfig(ctx, cfg))
	loaded, err = store.GetConfig(ctx, testOrg)
	require.NoError(t, err)
	assert.True(t, loaded.MaxFlightTime7Days.Equal(ftl.HoursOf(55)))
}

// =============================================================================
// DUTY PERIODS
// =============================================================================

func TestDutyLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	duty := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyFlight, utc(2026, time.March, 10, 6), "LHR", true, false)
	require.NoError(t, store.CreateDuty(ctx, duty))

	open, err := store.OpenDuties(ctx, testOrg, testPilot)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, duty.ID, open[0].ID)
	assert.True(t, open[0].IsOpen())
	assert.True(t, open[0].Planned)

	// Close and persist.
	flightIDs := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, duty.Close(utc(2026, time.March, 10, 18), "JFK", ftl.HoursOf(7.5), 3, flightIDs))
	require.NoError(t, store.UpdateDuty(ctx, duty))

	open, err = store.OpenDuties(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Empty(t, open)

	loaded, err := store.GetDuty(ctx, duty.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.End)
	assert.True(t, loaded.Duration.Equal(ftl.HoursOf(12)))
	assert.True(t, loaded.FlightTime.Equal(ftl.HoursOf(7.5)))
	assert.Equal(t, 3, loaded.Sectors)
	assert.Equal(t, "JFK", loaded.Location)
	assert.Equal(t, flightIDs, loaded.FlightIDs)
}

func TestClosedDutiesInRange_DateBasedInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boundary := closedDuty(t, utc(2026, time.March, 4, 23), 4, 2)  // starts on the first window date
	overnight := closedDuty(t, utc(2026, time.March, 3, 22), 4, 2) // starts before, runs into the window
	outside := closedDuty(t, utc(2026, time.March, 3, 6), 8, 5)    // starts and ends before the window
	inside := closedDuty(t, utc(2026, time.March, 8, 6), 8, 5)
	for _, d := range []*ftl.DutyPeriod{boundary, overnight, outside, inside} {
		require.NoError(t, store.CreateDuty(ctx, d))
	}
	// An open duty in range must not appear.
	openDuty := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyFlight, utc(2026, time.March, 9, 6), "", false, false)
	require.NoError(t, store.CreateDuty(ctx, openDuty))

	got, err := store.ClosedDutiesInRange(ctx, testOrg, testPilot, utc(2026, time.March, 4, 0), utc(2026, time.March, 10, 0))
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ordered by start.
	assert.Equal(t, overnight.ID, got[0].ID)
	assert.Equal(t, boundary.ID, got[1].ID)
	assert.Equal(t, inside.ID, got[2].ID)
}

func TestLastClosedDuty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LastClosedDuty(ctx, testOrg, testPilot)
	assert.True(t, ftl.IsNotFound(err))

	early := closedDuty(t, utc(2026, time.March, 8, 6), 8, 5)
	late := closedDuty(t, utc(2026, time.March, 9, 6), 10, 6)
	require.NoError(t, store.CreateDuty(ctx, early))
	require.NoError(t, store.CreateDuty(ctx, late))

	got, err := store.LastClosedDuty(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Equal(t, late.ID, got.ID)
}

func TestGetDuty_UnknownIDIsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDuty(context.Background(), uuid.New())
	assert.True(t, ftl.IsNotFound(err))

	err = store.UpdateDuty(context.Background(), closedDuty(t, utc(2026, time.March, 10, 6), 8, 5))
	assert.True(t, ftl.IsNotFound(err), "updating a never-created duty must be not-found")
}

// =============================================================================
// REST PERIODS
// =============================================================================

func TestRestLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	followsID := uuid.New()
	rest := ftl.NewRestPeriod(testOrg, testPilot, utc(2026, time.March, 10, 20), "hotel")
	rest.WeeklyRest = true
	rest.SuitableAccommodation = true
	rest.FollowsDutyID = &followsID
	require.NoError(t, store.CreateRest(ctx, rest))

	open, err := store.OpenRests(ctx, testOrg, testPilot)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, rest.Close(utc(2026, time.March, 11, 9)))
	require.NoError(t, store.UpdateRest(ctx, rest))

	loaded, err := store.GetRest(ctx, rest.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Duration.Equal(ftl.HoursOf(13)))
	assert.True(t, loaded.WeeklyRest)
	assert.True(t, loaded.SuitableAccommodation)
	require.NotNil(t, loaded.FollowsDutyID)
	assert.Equal(t, followsID, *loaded.FollowsDutyID)

	last, err := store.LastEndedRest(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Equal(t, rest.ID, last.ID)

	inRange, err := store.RestsEndedInRange(ctx, testOrg, testPilot, utc(2026, time.March, 5, 0), utc(2026, time.March, 11, 0))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	outOfRange, err := store.RestsEndedInRange(ctx, testOrg, testPilot, utc(2026, time.March, 1, 0), utc(2026, time.March, 9, 0))
	require.NoError(t, err)
	assert.Empty(t, outOfRange)
}

// =============================================================================
// VIOLATIONS
// =============================================================================

func TestViolationAppendAndResolve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := ftl.DefaultConfig(testOrg)
	duty := closedDuty(t, utc(2026, time.March, 10, 6), 14, 7)
	require.NoError(t, store.CreateDuty(ctx, duty))

	found := ftl.DetectViolations(duty, cfg)
	require.Len(t, found, 1)
	require.NoError(t, store.AppendViolation(ctx, found[0]))

	listed, err := store.ListViolations(ctx, testOrg, testPilot)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	v := listed[0]
	assert.Equal(t, ftl.ViolationFdpExceeded, v.Type)
	assert.True(t, v.ExceededBy.Equal(ftl.HoursOf(1)))
	assert.False(t, v.Resolved)
	require.NotNil(t, v.DutyPeriodID)
	assert.Equal(t, duty.ID, *v.DutyPeriodID)

	// Resolve and persist.
	require.True(t, v.Resolve(utc(2026, time.March, 11, 9), "commander discretion", true))
	require.NoError(t, store.UpdateViolation(ctx, v))

	reloaded, err := store.GetViolation(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Resolved)
	assert.True(t, reloaded.CommanderDiscretion)
	assert.Equal(t, "commander discretion", reloaded.ResolutionNotes)
	require.NotNil(t, reloaded.ResolvedAt)
	assert.True(t, reloaded.ResolvedAt.Equal(utc(2026, time.March, 11, 9)))
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestSummaryUpsertAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetSummary(ctx, testOrg, testPilot)
	assert.True(t, ftl.IsNotFound(err))

	summary := ftl.BuildSummary(ftl.SummaryInput{
		OrgID:   testOrg,
		PilotID: testPilot,
		AsOf:    utc(2026, time.March, 10, 12),
		ClosedDuties: []*ftl.DutyPeriod{
			closedDuty(t, utc(2026, time.March, 9, 6), 10, 7),
		},
		Config: ftl.DefaultConfig(testOrg),
	})
	require.NoError(t, store.PutSummary(ctx, summary))

	loaded, err := store.GetSummary(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Equal(t, summary.Status, loaded.Status)
	assert.True(t, loaded.Totals.FlightTime7Days.Equal(ftl.HoursOf(7)))
	assert.True(t, loaded.MaxFdpAvailable.Equal(summary.MaxFdpAvailable))
	assert.Equal(t, summary.DaysOff7Days, loaded.DaysOff7Days)

	// Overwrite is free.
	summary.DaysOff7Days = 3
	require.NoError(t, store.PutSummary(ctx, summary))
	loaded, err = store.GetSummary(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.DaysOff7Days)

	require.NoError(t, store.DeleteSummary(ctx, testOrg, testPilot))
	_, err = store.GetSummary(ctx, testOrg, testPilot)
	assert.True(t, ftl.IsNotFound(err))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_ErrorRollsBackAllWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	duty := closedDuty(t, utc(2026, time.March, 10, 6), 14, 7)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(s ftl.Store) error {
		if err := s.CreateDuty(ctx, duty); err != nil {
			return err
		}
		if err := s.AppendViolation(ctx, ftl.DetectViolations(duty, ftl.DefaultConfig(testOrg))[0]); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetDuty(ctx, duty.ID)
	assert.True(t, ftl.IsNotFound(err), "rolled-back duty must not exist")
	listed, err := store.ListViolations(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestWithTx_CommitPersistsAllWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	duty := closedDuty(t, utc(2026, time.March, 10, 6), 10, 6)
	require.NoError(t, store.WithTx(ctx, func(s ftl.Store) error {
		return s.CreateDuty(ctx, duty)
	}))

	loaded, err := store.GetDuty(ctx, duty.ID)
	require.NoError(t, err)
	assert.Equal(t, duty.ID, loaded.ID)
}

// Engine-over-SQLite smoke test: the full close-detect-recompute sequence
// against the real database.
func TestEngineOverSqlite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	engine := ftl.NewEngine(store)

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 6),
	})
	require.NoError(t, err)

	_, violations, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
		End: utc(2026, time.March, 10, 20), FlightTime: ftl.HoursOf(7), Sectors: 2,
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, ftl.ViolationFdpExceeded, violations[0].Type)

	status, err := engine.GetPilotStatus(ctx, testOrg, testPilot)
	require.NoError(t, err)
	assert.True(t, status.Totals.DutyTime7Days.Equal(ftl.HoursOf(14)))
}
