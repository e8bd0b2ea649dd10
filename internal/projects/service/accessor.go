package service

import (
	"context"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
)

// DateField selects which date a step accessor reads or derives from.
type DateField string

const (
	// DateScheduled is the planned date of a step.
	DateScheduled DateField = "scheduled"
	// DateActual is the recorded date the step actually happened.
	DateActual DateField = "actual"
)

// StepDate reads one date field off a step's value. A missing step, a missing
// field, and a malformed payload all read as empty: accessors feed list
// renders and must never fail on one bad record.
func (s *Service) StepDate(ctx context.Context, projectID string, key domain.StepKey, field DateField) string {
	step, err := s.GetStep(ctx, projectID, key)
	if err != nil {
		return ""
	}
	value := domain.ParseStepValue(step.Value)
	if field == DateActual {
		return value.ActualDate
	}
	return value.ScheduledDate
}

// StepAssignees reads the assignee list off a step's value, empty when the
// step or field is absent.
func (s *Service) StepAssignees(ctx context.Context, projectID string, key domain.StepKey) []string {
	step, err := s.GetStep(ctx, projectID, key)
	if err != nil {
		return nil
	}
	return domain.ParseStepValue(step.Value).Assignees
}

// StepStatus derives the unified 3-way status of one step. A missing step is
// not started.
func (s *Service) StepStatus(ctx context.Context, projectID string, key domain.StepKey) domain.StepProgress {
	step, err := s.GetStep(ctx, projectID, key)
	if err != nil {
		return domain.StepProgressNotStarted
	}
	return domain.DeriveStatus(domain.StepState{
		Key:       key,
		Completed: step.IsCompleted,
		Value:     domain.ParseStepValue(step.Value),
	})
}
