package domain

import "time"

// StepState is the in-memory view of one step instance, joined with its
// template, as the derivation engine consumes it.
type StepState struct {
	Key       StepKey // empty for custom (non-catalog) templates
	Name      string
	FieldType FieldType
	Order     int
	Active    bool
	Completed bool
	Value     StepValue
}

// Done reports whether a step counts as finished for progress purposes:
// explicitly completed, or scheduled strictly in the past.
func (s StepState) Done(today time.Time) bool {
	if s.Completed {
		return true
	}
	if scheduled, ok := s.Value.Scheduled(); ok {
		return scheduled.Before(dateOnly(today))
	}
	return false
}

// HasSignal reports whether the step carries any progress evidence at all.
func (s StepState) HasSignal() bool {
	if s.Completed {
		return true
	}
	if _, ok := s.Value.Actual(); ok {
		return true
	}
	_, ok := s.Value.Scheduled()
	return ok
}

// StepProgress is the unified 3-way derived status for a single step.
type StepProgress string

const (
	// StepProgressCompleted means the completion flag is set.
	StepProgressCompleted StepProgress = "completed"
	// StepProgressInProgress means an actual date was recorded.
	StepProgressInProgress StepProgress = "in_progress"
	// StepProgressWaiting means only a scheduled date exists.
	StepProgressWaiting StepProgress = "waiting"
	// StepProgressNotStarted means the step carries no signal.
	StepProgressNotStarted StepProgress = "not_started"
)

// DeriveStatus applies the single status rule shared by every legacy
// "*_status" adapter: completed wins, then actual date, then scheduled date.
func DeriveStatus(s StepState) StepProgress {
	if s.Completed {
		return StepProgressCompleted
	}
	if _, ok := s.Value.Actual(); ok {
		return StepProgressInProgress
	}
	if _, ok := s.Value.Scheduled(); ok {
		return StepProgressWaiting
	}
	return StepProgressNotStarted
}

// dateOnly truncates a timestamp to its calendar date, pinned to UTC
// midnight to match UTC-parsed step dates.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
