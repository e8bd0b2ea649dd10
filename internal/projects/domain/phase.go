package domain

import "time"

// Phase is the coarse 5-bucket work-phase label derived from progress.
type Phase string

const (
	// PhaseNotStarted means no step has been finished yet.
	PhaseNotStarted Phase = "not started"
	// PhaseEarly covers preparation before construction is underway.
	PhaseEarly Phase = "early stage"
	// PhaseConstruction covers the main construction window.
	PhaseConstruction Phase = "in construction"
	// PhaseNearCompletion covers wrap-up work and billing.
	PhaseNearCompletion Phase = "near completion"
	// PhaseComplete means every active step is finished.
	PhaseComplete Phase = "complete"
)

// WorkPhase buckets the progress percentage, with one override: a finished
// invoice or completion step forces near-completion regardless of how few of
// the other steps are done.
func WorkPhase(steps []StepState, today time.Time) Phase {
	percentage := ProgressPercentage(steps, today)
	if percentage == 0 {
		return PhaseNotStarted
	}
	if percentage == 100 {
		return PhaseComplete
	}

	for _, step := range steps {
		if !step.Active {
			continue
		}
		if (step.Key == StepInvoice || step.Key == StepCompletion) && step.Done(today) {
			return PhaseNearCompletion
		}
	}

	switch {
	case percentage < 30:
		return PhaseEarly
	case percentage < 80:
		return PhaseConstruction
	default:
		return PhaseNearCompletion
	}
}
