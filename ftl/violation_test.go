package ftl_test

import (
	"testing"
	"time"

	"github.com/skyops/ftl-engine/ftl"
)

// =============================================================================
// DETECTION TESTS
// =============================================================================

func TestDetectViolations_FourteenHourDutyBreachesStandardFdp(t *testing.T) {
	// GIVEN: A 14h closed flight duty against a 13h standard FDP limit
	// WHEN: Running detection
	// THEN: One fdp_exceeded violation, exceeded by exactly 1h

	cfg := ftl.DefaultConfig(testOrg) // MaxFdpStandard = 13
	duty := closedDuty(utc(2026, time.March, 10, 6), 14, 7)

	found := ftl.DetectViolations(duty, cfg)

	if len(found) != 1 {
		t.Fatalf("expected 1 violation, got %d: %+v", len(found), found)
	}
	v := found[0]
	if v.Type != ftl.ViolationFdpExceeded {
		t.Errorf("expected %s, got %s", ftl.ViolationFdpExceeded, v.Type)
	}
	if !v.ExceededBy.Equal(hours(1)) {
		t.Errorf("expected exceeded by 1h, got %s", v.ExceededBy)
	}
	if v.DutyPeriodID == nil || *v.DutyPeriodID != duty.ID {
		t.Error("violation should reference the duty period")
	}
	if v.Severity != ftl.SeverityHigh {
		t.Errorf("expected high severity, got %s", v.Severity)
	}
}

func TestDetectViolations_AugmentedCrewUsesExtendedLimit(t *testing.T) {
	// GIVEN: A 15h duty with augmented crew (16h extended limit)
	// WHEN: Running detection
	// THEN: No FDP violation

	cfg := ftl.DefaultConfig(testOrg) // MaxFdpExtended = 16
	duty := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyFlight, utc(2026, time.March, 10, 6), "", false, true)
	if err := duty.Close(utc(2026, time.March, 10, 21), "", hours(9), 2, nil); err != nil {
		t.Fatal(err)
	}

	found := ftl.DetectViolations(duty, cfg)

	for _, v := range found {
		if v.Type == ftl.ViolationFdpExceeded {
			t.Errorf("augmented 15h duty should pass the 16h extended limit, got %s", v)
		}
	}
}

func TestDetectViolations_GroundDutyNeverRaisesFdpViolation(t *testing.T) {
	// GIVEN: A 15h ground duty
	// WHEN: Running detection
	// THEN: No fdp_exceeded - only flight and split duty count toward FDP

	cfg := ftl.DefaultConfig(testOrg)
	duty := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyGround, utc(2026, time.March, 10, 6), "", false, false)
	if err := duty.Close(utc(2026, time.March, 10, 21), "", ftl.ZeroHours(), 0, nil); err != nil {
		t.Fatal(err)
	}

	if found := ftl.DetectViolations(duty, cfg); len(found) != 0 {
		t.Errorf("expected no violations for ground duty, got %+v", found)
	}
}

func TestDetectViolations_DailyFlightTimeRuleIsIndependent(t *testing.T) {
	// GIVEN: A 14h duty with 9h flight time (both limits breached)
	// WHEN: Running detection
	// THEN: Both violations are reported

	cfg := ftl.DefaultConfig(testOrg) // MaxFlightTimeDaily = 8
	duty := closedDuty(utc(2026, time.March, 10, 6), 14, 9)

	found := ftl.DetectViolations(duty, cfg)

	if len(found) != 2 {
		t.Fatalf("expected 2 violations, got %d: %+v", len(found), found)
	}
	types := map[ftl.ViolationType]bool{}
	for _, v := range found {
		types[v.Type] = true
	}
	if !types[ftl.ViolationFdpExceeded] || !types[ftl.ViolationFlightTimeExceeded] {
		t.Errorf("expected fdp_exceeded and flight_time_exceeded, got %+v", types)
	}
}

func TestDetectViolations_OpenDutyReturnsNothing(t *testing.T) {
	// GIVEN: A still-open duty period
	// WHEN: Running detection
	// THEN: No violations - duration is unknown until close

	cfg := ftl.DefaultConfig(testOrg)
	duty := ftl.NewDutyPeriod(testOrg, testPilot, ftl.DutyFlight, utc(2026, time.March, 10, 6), "", false, false)

	if found := ftl.DetectViolations(duty, cfg); found != nil {
		t.Errorf("expected nil for open duty, got %+v", found)
	}
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestResolve_SecondResolveLeavesAuditTrailUntouched(t *testing.T) {
	// GIVEN: A violation resolved once with commander discretion
	// WHEN: Resolving again with different notes
	// THEN: The second call reports false and changes nothing

	cfg := ftl.DefaultConfig(testOrg)
	duty := closedDuty(utc(2026, time.March, 10, 6), 14, 7)
	v := ftl.DetectViolations(duty, cfg)[0]

	first := utc(2026, time.March, 11, 9)
	if !v.Resolve(first, "commander extended under discretion", true) {
		t.Fatal("first resolve should report true")
	}
	if v.Resolve(utc(2026, time.March, 12, 9), "overwrite attempt", false) {
		t.Error("second resolve should report false")
	}

	if v.ResolutionNotes != "commander extended under discretion" {
		t.Errorf("notes were rewritten: %q", v.ResolutionNotes)
	}
	if !v.CommanderDiscretion {
		t.Error("commander discretion flag was rewritten")
	}
	if v.ResolvedAt == nil || !v.ResolvedAt.Equal(first) {
		t.Errorf("resolved-at was rewritten: %v", v.ResolvedAt)
	}
}

func TestViolationFromIssue_WindowFindingIsCritical(t *testing.T) {
	// GIVEN: A 7-day flight-time error issue
	// WHEN: Lifting it into a stored violation
	// THEN: Severity is critical and the type maps to the weekly limit

	issue := ftl.Issue{
		Code:     ftl.IssueFlightTime7Days,
		Severity: ftl.IssueError,
		Limit:    hours(60),
		Actual:   hours(63),
	}
	v := ftl.ViolationFromIssue(testOrg, testPilot, issue, utc(2026, time.March, 4, 0), utc(2026, time.March, 10, 0))

	if v.Severity != ftl.SeverityCritical {
		t.Errorf("expected critical severity, got %s", v.Severity)
	}
	if v.Type != ftl.ViolationWeeklyExceeded {
		t.Errorf("expected weekly_limit_exceeded, got %s", v.Type)
	}
	if !v.ExceededBy.Equal(hours(3)) {
		t.Errorf("expected exceeded by 3h, got %s", v.ExceededBy)
	}
	if v.DutyPeriodID != nil {
		t.Error("window-level finding should not reference a single duty")
	}
}
