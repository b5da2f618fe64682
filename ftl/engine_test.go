package ftl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skyops/ftl-engine/ftl"
	ftlstore "github.com/skyops/ftl-engine/ftl/store"
)

func newTestEngine() (*ftl.Engine, *ftlstore.TxMemory) {
	mem := ftlstore.NewTxMemory()
	return ftl.NewEngine(mem), mem
}

func TestEngine_DutyLifecycleRaisesFdpViolation(t *testing.T) {
	// GIVEN: A pilot starting a flight duty at 06:00
	// WHEN: Ending it 14h later (13h standard FDP)
	// THEN: The close succeeds, one fdp_exceeded violation is persisted,
	//       and the pilot's status reflects the closed duty

	ctx := context.Background()
	engine, _ := newTestEngine()

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 6), Location: "LHR",
	})
	if err != nil {
		t.Fatal(err)
	}

	closed, violations, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
		End: utc(2026, time.March, 10, 20), FlightTime: hours(7), Sectors: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if closed.IsOpen() {
		t.Fatal("duty should be closed")
	}
	if len(violations) != 1 || violations[0].Type != ftl.ViolationFdpExceeded {
		t.Fatalf("expected one fdp_exceeded violation, got %+v", violations)
	}

	// Persisted, not just returned.
	stored, err := engine.ListViolations(ctx, testOrg, testPilot)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored violation, got %d", len(stored))
	}

	status, err := engine.GetPilotStatus(ctx, testOrg, testPilot)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status == ftl.StatusOnDuty {
		t.Error("pilot should no longer be on duty")
	}
	if !status.Totals.DutyTime7Days.Equal(hours(14)) {
		t.Errorf("expected 14h duty time in window, got %s", status.Totals.DutyTime7Days)
	}
}

func TestEngine_SecondOpenDutyIsRejected(t *testing.T) {
	// GIVEN: A pilot with an open duty
	// WHEN: Starting another
	// THEN: ErrOpenDutyExists naming the existing duty

	ctx := context.Background()
	engine, _ := newTestEngine()

	first, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 6),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyStandby, Start: utc(2026, time.March, 10, 8),
	})

	if !errors.Is(err, ftl.ErrOpenDutyExists) {
		t.Fatalf("expected ErrOpenDutyExists, got %v", err)
	}
	var ode *ftl.OpenDutyError
	if !errors.As(err, &ode) {
		t.Fatal("expected *OpenDutyError")
	}
	if ode.OpenDutyID != first.ID.String() {
		t.Errorf("error should name the open duty %s, got %s", first.ID, ode.OpenDutyID)
	}

	// A different pilot is unaffected.
	if _, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: "pilot-2",
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 8),
	}); err != nil {
		t.Errorf("other pilot should start freely, got %v", err)
	}
}

func TestEngine_EndDutyFailuresRollBackEverything(t *testing.T) {
	// GIVEN: An open duty
	// WHEN: Ending with end-before-start, then ending a closed duty again,
	//       then ending an unknown id
	// THEN: Each fails with its own error and nothing is persisted partway

	ctx := context.Background()
	engine, mem := newTestEngine()

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 6),
	})
	if err != nil {
		t.Fatal(err)
	}

	// End before start.
	_, _, err = engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{End: utc(2026, time.March, 10, 5)})
	var ie *ftl.IntervalError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntervalError, got %v", err)
	}
	reloaded, err := mem.GetDuty(ctx, duty.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsOpen() {
		t.Fatal("failed close must roll back - duty should still be open")
	}

	// Proper close, then a second close.
	if _, _, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{End: utc(2026, time.March, 10, 16)}); err != nil {
		t.Fatal(err)
	}
	_, _, err = engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{End: utc(2026, time.March, 10, 18)})
	if !errors.Is(err, ftl.ErrDutyAlreadyClosed) {
		t.Fatalf("expected ErrDutyAlreadyClosed, got %v", err)
	}

	// Unknown id.
	_, _, err = engine.EndDuty(ctx, uuid.New(), ftl.EndDutyInput{End: utc(2026, time.March, 10, 18)})
	if !ftl.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestEngine_RestLifecycleDrivesAvailability(t *testing.T) {
	// GIVEN: A pilot with an open rest
	// WHEN: Reading status, then ending the rest
	// THEN: Status moves resting -> available

	ctx := context.Background()
	engine, _ := newTestEngine()

	rest, err := engine.RecordRest(ctx, ftl.RecordRestInput{
		OrgID: testOrg, PilotID: testPilot,
		Start: utc(2026, time.March, 10, 20), Location: "hotel",
	})
	if err != nil {
		t.Fatal(err)
	}

	status, err := engine.GetPilotStatus(ctx, testOrg, testPilot)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != ftl.StatusResting {
		t.Fatalf("expected resting, got %s", status.Status)
	}

	if _, err := engine.EndRest(ctx, rest.ID, utc(2026, time.March, 11, 9)); err != nil {
		t.Fatal(err)
	}
	status, err = engine.GetPilotStatus(ctx, testOrg, testPilot)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != ftl.StatusAvailable {
		t.Fatalf("expected available after rest ends, got %s", status.Status)
	}
	if !status.LastRestDuration.Equal(hours(13)) {
		t.Errorf("expected 13h last rest, got %s", status.LastRestDuration)
	}
}

func TestEngine_SummaryRebuildMatchesOriginal(t *testing.T) {
	// GIVEN: A pilot with history and a cached summary
	// WHEN: Deleting the cache and rebuilding at the same as-of time
	// THEN: The rebuilt summary matches the original field for field

	ctx := context.Background()
	engine, mem := newTestEngine()

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 9, 6),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
		End: utc(2026, time.March, 9, 16), FlightTime: hours(6), Sectors: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.RecordRest(ctx, ftl.RecordRestInput{
		OrgID: testOrg, PilotID: testPilot,
		Start: utc(2026, time.March, 9, 16),
		End:   timePtr(utc(2026, time.March, 10, 6)),
	}); err != nil {
		t.Fatal(err)
	}

	asOf := utc(2026, time.March, 10, 12)
	original, err := engine.RebuildSummary(ctx, testOrg, testPilot, asOf)
	if err != nil {
		t.Fatal(err)
	}

	if err := mem.DeleteSummary(ctx, testOrg, testPilot); err != nil {
		t.Fatal(err)
	}
	rebuilt, err := engine.RebuildSummary(ctx, testOrg, testPilot, asOf)
	if err != nil {
		t.Fatal(err)
	}

	if original.Status != rebuilt.Status ||
		original.Compliant != rebuilt.Compliant ||
		original.DaysOff7Days != rebuilt.DaysOff7Days ||
		!original.Totals.FlightTime7Days.Equal(rebuilt.Totals.FlightTime7Days) ||
		!original.Totals.DutyTime28Days.Equal(rebuilt.Totals.DutyTime28Days) ||
		!original.MaxFdpAvailable.Equal(rebuilt.MaxFdpAvailable) {
		t.Errorf("rebuilt summary differs:\noriginal: %+v\nrebuilt:  %+v", original, rebuilt)
	}
}

func TestEngine_ResolveViolationIsIdempotent(t *testing.T) {
	// GIVEN: A persisted violation
	// WHEN: Resolving it twice
	// THEN: The second call is a no-op and the audit trail is unchanged

	ctx := context.Background()
	engine, _ := newTestEngine()

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 10, 6),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, violations, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
		End: utc(2026, time.March, 10, 20), FlightTime: hours(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) == 0 {
		t.Fatal("expected a violation to resolve")
	}

	first, err := engine.ResolveViolation(ctx, violations[0].ID, "commander discretion applied", true)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Resolved || first.ResolvedAt == nil {
		t.Fatal("violation should be resolved")
	}
	firstAt := *first.ResolvedAt

	second, err := engine.ResolveViolation(ctx, violations[0].ID, "attempted overwrite", false)
	if err != nil {
		t.Fatal(err)
	}
	if second.ResolutionNotes != "commander discretion applied" || !second.CommanderDiscretion {
		t.Error("second resolve must not rewrite the audit trail")
	}
	if !second.ResolvedAt.Equal(firstAt) {
		t.Error("second resolve must not move the resolution time")
	}
}

func TestEngine_UpdateConfigValidatesAndPreservesCreatedAt(t *testing.T) {
	// GIVEN: An org with a default config
	// WHEN: Updating with a tighter valid limit, then with an invalid one
	// THEN: The valid update keeps CreatedAt; the invalid one is rejected

	ctx := context.Background()
	engine, _ := newTestEngine()

	original, err := engine.GetOrCreateConfig(ctx, testOrg)
	if err != nil {
		t.Fatal(err)
	}

	updated := ftl.DefaultConfig(testOrg)
	updated.MaxFlightTime7Days = hours(55)
	if err := engine.UpdateConfig(ctx, updated); err != nil {
		t.Fatal(err)
	}
	reloaded, err := engine.GetOrCreateConfig(ctx, testOrg)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.MaxFlightTime7Days.Equal(hours(55)) {
		t.Errorf("update did not stick: %s", reloaded.MaxFlightTime7Days)
	}
	if !reloaded.CreatedAt.Equal(original.CreatedAt) {
		t.Error("update must preserve CreatedAt")
	}

	bad := ftl.DefaultConfig(testOrg)
	bad.MaxFdpExtended = hours(5)
	var ce *ftl.ConfigError
	if err := engine.UpdateConfig(ctx, bad); !errors.As(err, &ce) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestEngine_OvernightDutyCountsTowardDaysOff(t *testing.T) {
	// GIVEN: A duty running March 3 22:00 through March 4 08:00
	// WHEN: Checking rest requirements as of March 10 (window March 4-10)
	// THEN: March 4 counts as a duty date, leaving 6 days off

	ctx := context.Background()
	engine, _ := newTestEngine()

	duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
		OrgID: testOrg, PilotID: testPilot,
		Kind: ftl.DutyFlight, Start: utc(2026, time.March, 3, 22),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
		End: utc(2026, time.March, 4, 8), FlightTime: hours(5),
	}); err != nil {
		t.Fatal(err)
	}

	result, err := engine.CheckRestRequirements(ctx, testOrg, testPilot, utc(2026, time.March, 10, 12))
	if err != nil {
		t.Fatal(err)
	}
	if result.DaysOff7Days != 6 {
		t.Errorf("duty ran into March 4, expected 6 days off, got %d", result.DaysOff7Days)
	}
}

func TestEngine_CumulativeViolationCarriesItsOwnWindow(t *testing.T) {
	// GIVEN: 14 duty days across four weeks, 7.5h flight each - over the
	//        28-day flight-time limit but under every 7-day limit
	// WHEN: The last duty closes
	// THEN: The persisted violation is the 28-day breach and its period
	//       covers the 28-day window, not the trailing week

	ctx := context.Background()
	engine, _ := newTestEngine()

	var violations []*ftl.FTLViolation
	for day := 2; day <= 28; day += 2 {
		duty, err := engine.StartDuty(ctx, ftl.StartDutyInput{
			OrgID: testOrg, PilotID: testPilot,
			Kind: ftl.DutyFlight, Start: utc(2026, time.March, day, 6),
		})
		if err != nil {
			t.Fatal(err)
		}
		_, violations, err = engine.EndDuty(ctx, duty.ID, ftl.EndDutyInput{
			End: utc(2026, time.March, day, 16), FlightTime: hours(7.5),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if len(violations) != 1 || violations[0].Type != ftl.ViolationMonthlyExceeded {
		t.Fatalf("expected one 28-day violation on the final close, got %+v", violations)
	}
	v := violations[0]
	if !v.Actual.Equal(hours(105)) {
		t.Errorf("expected 105h of flight time in the window, got %s", v.Actual)
	}
	if !v.PeriodStart.Equal(utc(2026, time.March, 1, 0)) {
		t.Errorf("28-day breach must start its window March 1, got %s", v.PeriodStart)
	}
	if !v.PeriodEnd.Equal(utc(2026, time.March, 28, 0)) {
		t.Errorf("expected window end March 28, got %s", v.PeriodEnd)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
