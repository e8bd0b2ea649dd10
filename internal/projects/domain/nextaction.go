package domain

import (
	"sort"
	"time"
)

// NextAction describes the pending work surfaced on dashboards: the action
// for the first unfinished step and a preview of the one after it.
type NextAction struct {
	NextAction string
	NextStep   string
}

// nextActionComplete is the terminal action once every step is done.
const nextActionComplete = "complete"

// NextActions walks the active steps in project-defined order and templates
// an action prompt for the first and second unfinished ones. A project with
// no configured steps is walked over the default baseline so fresh projects
// still get a concrete prompt.
func NextActions(steps []StepState, estimateNotRequired bool, today time.Time) NextAction {
	active := make([]StepState, 0, len(steps))
	for _, step := range steps {
		if step.Active {
			active = append(active, step)
		}
	}
	if len(active) == 0 {
		for _, key := range DefaultBaseline() {
			spec, _ := SpecForKey(key)
			active = append(active, StepState{
				Key:       spec.Key,
				Name:      spec.Name,
				FieldType: spec.FieldType,
				Order:     spec.Order,
				Active:    true,
			})
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order < active[j].Order
	})

	var pending []StepState
	for _, step := range active {
		if !step.Done(today) {
			pending = append(pending, step)
			if len(pending) == 2 {
				break
			}
		}
	}

	if len(pending) == 0 {
		return NextAction{NextAction: nextActionComplete}
	}

	result := NextAction{NextAction: actionText(pending[0], estimateNotRequired)}
	if len(pending) > 1 {
		result.NextStep = actionText(pending[1], estimateNotRequired)
	}
	return result
}

// actionText templates the prompt for one unfinished step by its field type.
func actionText(step StepState, estimateNotRequired bool) string {
	name := step.Name
	if name == "" {
		if spec, ok := SpecForKey(step.Key); ok {
			name = spec.Name
		} else {
			name = string(step.Key)
		}
	}

	if step.Key == StepEstimate {
		if estimateNotRequired {
			return name + ": not required"
		}
		return name + ": enter the issue date"
	}

	switch step.FieldType {
	case FieldTypeDate, "":
		if _, ok := step.Value.Scheduled(); !ok {
			return name + ": enter a scheduled date"
		}
		return name + ": check off completion"
	default:
		return name + ": mark this step complete"
	}
}
