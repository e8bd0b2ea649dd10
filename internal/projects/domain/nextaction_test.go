package domain

import (
	"testing"
	"time"
)

var actionToday = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestNextActionsFreshProjectUsesBaseline(t *testing.T) {
	got := NextActions(nil, false, actionToday)
	if got.NextAction != "Attendance: enter a scheduled date" {
		t.Fatalf("next action = %q", got.NextAction)
	}
	if got.NextStep != "Site survey: enter a scheduled date" {
		t.Fatalf("next step = %q", got.NextStep)
	}
}

func TestNextActionsDatePrompts(t *testing.T) {
	steps := []StepState{
		dateStep(StepAttendance, "", "", true),
		dateStep(StepConstructionStart, "2026-03-20", "", false),
		dateStep(StepCompletion, "", "", false),
	}

	got := NextActions(steps, false, actionToday)
	if got.NextAction != "Construction start: check off completion" {
		t.Fatalf("next action = %q", got.NextAction)
	}
	if got.NextStep != "Completion: enter a scheduled date" {
		t.Fatalf("next step = %q", got.NextStep)
	}
}

func TestNextActionsEstimateExemption(t *testing.T) {
	steps := []StepState{
		dateStep(StepEstimate, "", "", false),
		dateStep(StepConstructionStart, "", "", false),
	}

	got := NextActions(steps, true, actionToday)
	if got.NextAction != "Estimate issued: not required" {
		t.Fatalf("next action = %q", got.NextAction)
	}

	got = NextActions(steps, false, actionToday)
	if got.NextAction != "Estimate issued: enter the issue date" {
		t.Fatalf("next action = %q", got.NextAction)
	}
}

func TestNextActionsAllDone(t *testing.T) {
	steps := []StepState{
		dateStep(StepEstimate, "", "", true),
		dateStep(StepConstructionStart, "2026-03-01", "", false), // past scheduled counts as done
	}

	got := NextActions(steps, false, actionToday)
	if got.NextAction != "complete" {
		t.Fatalf("next action = %q, want complete", got.NextAction)
	}
	if got.NextStep != "" {
		t.Fatalf("next step = %q, want empty", got.NextStep)
	}
}

func TestNextActionsRespectsProjectOrder(t *testing.T) {
	// Project-defined order reverses the catalog order; the walker must
	// follow the project's.
	completion := dateStep(StepCompletion, "", "", false)
	completion.Order = 1
	attendance := dateStep(StepAttendance, "", "", false)
	attendance.Order = 2

	got := NextActions([]StepState{attendance, completion}, false, actionToday)
	if got.NextAction != "Completion: enter a scheduled date" {
		t.Fatalf("next action = %q", got.NextAction)
	}
}

func TestNextActionsCustomStepFieldTypes(t *testing.T) {
	custom := StepState{
		Name:      "Handover checklist",
		FieldType: FieldTypeCheckbox,
		Order:     1,
		Active:    true,
	}

	got := NextActions([]StepState{custom}, false, actionToday)
	if got.NextAction != "Handover checklist: mark this step complete" {
		t.Fatalf("next action = %q", got.NextAction)
	}
}
