package domain

import (
	"math"
	"time"
)

// ProgressPercentage computes how far along a project is over its active
// steps: a step counts as done when it is explicitly completed or its
// scheduled date is strictly in the past. Projects with no active steps
// report 0.
func ProgressPercentage(steps []StepState, today time.Time) int {
	total := 0
	done := 0
	for _, step := range steps {
		if !step.Active {
			continue
		}
		total++
		if step.Done(today) {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
