package domain

import "time"

// Color is the fixed color tier vocabulary for stage rendering.
type Color string

const (
	// ColorSecondary marks not-started or rejected projects.
	ColorSecondary Color = "secondary"
	// ColorWarning marks projects waiting on a future date.
	ColorWarning Color = "warning"
	// ColorSuccess marks projects whose date passed or event was recorded.
	ColorSuccess Color = "success"
	// ColorVerified marks explicitly completed steps.
	ColorVerified Color = "verified"
)

// Stage labels shared with list views and dashboards.
const (
	StageNotStarted = "not started"
	StageRejected   = "NG"
)

// Stage is the discrete phase answer for a project.
type Stage struct {
	Label string
	Color Color
}

// stageRule binds a step key to its stage labels. Done is used when the step
// is explicitly completed or an actual date was recorded; Presumed when only
// a past scheduled date implies the event happened; Waiting when the
// scheduled date is still ahead.
type stageRule struct {
	Key      StepKey
	Done     string
	Presumed string
	Waiting  string
}

// stagePriority lists steps most-advanced first. The first step with any
// signal decides the stage; earlier lifecycle steps are moot once a later
// one shows evidence, because steps are many-to-optional.
var stagePriority = []stageRule{
	{Key: StepCompletion, Done: "completed", Presumed: "likely completed", Waiting: "awaiting completion"},
	{Key: StepConstructionStart, Done: "in construction", Presumed: "likely in construction", Waiting: "awaiting construction start"},
	{Key: StepEstimate, Done: "estimate under review", Presumed: "estimate likely issued", Waiting: "awaiting estimate issue"},
	{Key: StepSurvey, Done: "surveyed", Presumed: "likely surveyed", Waiting: "awaiting survey"},
	{Key: StepAttendance, Done: "attended", Presumed: "likely attended", Waiting: "awaiting attendance"},
}

// CurrentStage computes the discrete stage and color tier for a project from
// its own status and its active steps. Rejection overrides all step data.
func CurrentStage(status ProjectStatus, steps []StepState, today time.Time) Stage {
	if status == StatusRejected {
		return Stage{Label: StageRejected, Color: ColorSecondary}
	}

	byKey := make(map[StepKey]StepState, len(steps))
	for _, step := range steps {
		if !step.Active || step.Key == "" {
			continue
		}
		byKey[step.Key] = step
	}

	todayDate := dateOnly(today)
	for _, rule := range stagePriority {
		step, ok := byKey[rule.Key]
		if !ok {
			continue
		}
		if step.Completed {
			return Stage{Label: rule.Done, Color: ColorVerified}
		}
		if _, ok := step.Value.Actual(); ok {
			return Stage{Label: rule.Done, Color: ColorSuccess}
		}
		scheduled, ok := step.Value.Scheduled()
		if !ok {
			continue
		}
		if scheduled.Before(todayDate) {
			return Stage{Label: rule.Presumed, Color: ColorSuccess}
		}
		return Stage{Label: rule.Waiting, Color: ColorWarning}
	}

	return Stage{Label: StageNotStarted, Color: ColorSecondary}
}
