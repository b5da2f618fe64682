package ftl_test

import (
	"testing"
	"time"

	"github.com/skyops/ftl-engine/ftl"
)

func closedRest(start time.Time, durationHours float64) *ftl.RestPeriod {
	r := ftl.NewRestPeriod(testOrg, testPilot, start, "hotel")
	if err := r.Close(start.Add(time.Duration(durationHours * float64(time.Hour)))); err != nil {
		panic(err)
	}
	return r
}

func TestEvaluateRest_ShortLastRestIsAnError(t *testing.T) {
	// GIVEN: Last rest of 9h against a 12h post-FDP minimum
	// WHEN: Evaluating rest requirements
	// THEN: insufficient_rest error, result non-compliant

	cfg := ftl.DefaultConfig(testOrg) // MinRestAfterFdp = 12
	last := closedRest(utc(2026, time.March, 9, 20), 9)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 12), last, nil, nil, cfg)

	if result.Compliant {
		t.Fatal("expected non-compliant result")
	}
	if len(result.Issues) != 1 || result.Issues[0].Code != ftl.IssueInsufficientRest {
		t.Fatalf("expected single insufficient_rest issue, got %+v", result.Issues)
	}
	if !result.Issues[0].Actual.Equal(hours(9)) {
		t.Errorf("expected actual 9h, got %s", result.Issues[0].Actual)
	}
}

func TestEvaluateRest_NoRestOnRecordSkipsMinimumCheck(t *testing.T) {
	// GIVEN: A pilot with no rest periods at all
	// WHEN: Evaluating
	// THEN: No insufficient_rest error (nothing to measure yet)

	cfg := ftl.DefaultConfig(testOrg)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 12), nil, nil, nil, cfg)

	for _, issue := range result.Issues {
		if issue.Code == ftl.IssueInsufficientRest {
			t.Errorf("unexpected insufficient_rest with no rest on record")
		}
	}
}

func TestEvaluateRest_DutyEveryDayLeavesNoDaysOff(t *testing.T) {
	// GIVEN: A duty on each of the trailing 7 dates
	// WHEN: Evaluating
	// THEN: 0 days off and an advisory warning (1 required)

	cfg := ftl.DefaultConfig(testOrg) // DaysOffPer7Days = 1
	var duties []*ftl.DutyPeriod
	for day := 4; day <= 10; day++ {
		duties = append(duties, closedDuty(utc(2026, time.March, day, 6), 8, 5))
	}
	rest := closedRest(utc(2026, time.March, 9, 18), 12)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 23), rest, duties, []*ftl.RestPeriod{rest}, cfg)

	if result.DaysOff7Days != 0 {
		t.Errorf("expected 0 days off, got %d", result.DaysOff7Days)
	}
	warned := false
	for _, w := range result.Warnings {
		if w.Code == ftl.IssueInsufficientDaysOff {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected insufficient_days_off warning, got %+v", result.Warnings)
	}
	// Days off never block: minimum rest was met, so still compliant.
	if !result.Compliant {
		t.Errorf("days-off shortfall should be advisory, got issues %+v", result.Issues)
	}
}

func TestEvaluateRest_MultiDayDutyCountsEachDateOnce(t *testing.T) {
	// GIVEN: One duty spanning midnight March 8 -> March 9
	// WHEN: Evaluating as of March 10
	// THEN: 2 duty dates, 5 days off

	cfg := ftl.DefaultConfig(testOrg)
	overnight := closedDuty(utc(2026, time.March, 8, 20), 10, 6) // ends 06:00 March 9
	rest := closedRest(utc(2026, time.March, 9, 6), 14)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 12), rest, []*ftl.DutyPeriod{overnight}, []*ftl.RestPeriod{rest}, cfg)

	if result.DaysOff7Days != 5 {
		t.Errorf("expected 5 days off, got %d", result.DaysOff7Days)
	}
}

func TestEvaluateRest_LongRestSatisfiesWeeklyCadence(t *testing.T) {
	// GIVEN: A 40h rest in the window (36h weekly minimum)
	// WHEN: Evaluating
	// THEN: No weekly_rest_due warning

	cfg := ftl.DefaultConfig(testOrg) // MinWeeklyRest = 36
	long := closedRest(utc(2026, time.March, 7, 8), 40)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 12), long, nil, []*ftl.RestPeriod{long}, cfg)

	for _, w := range result.Warnings {
		if w.Code == ftl.IssueWeeklyRestDue {
			t.Errorf("40h rest should satisfy the weekly cadence, got %+v", w)
		}
	}
}

func TestEvaluateRest_MissingWeeklyRestIsAdvisoryOnly(t *testing.T) {
	// GIVEN: Only short rests in the window
	// WHEN: Evaluating
	// THEN: weekly_rest_due appears as a warning, never as an error

	cfg := ftl.DefaultConfig(testOrg)
	short := closedRest(utc(2026, time.March, 8, 20), 12)

	result := ftl.EvaluateRest(testOrg, testPilot, utc(2026, time.March, 10, 12), short, nil, []*ftl.RestPeriod{short}, cfg)

	for _, issue := range result.Issues {
		if issue.Code == ftl.IssueWeeklyRestDue {
			t.Fatal("weekly rest cadence must never be a blocking error")
		}
	}
	warned := false
	for _, w := range result.Warnings {
		if w.Code == ftl.IssueWeeklyRestDue {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected weekly_rest_due warning, got %+v", result.Warnings)
	}
}
