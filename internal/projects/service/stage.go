package service

import (
	"context"
	"fmt"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
)

// stepStates loads the project's steps and joins them into the in-memory view
// the derivation engine consumes. Non-catalog templates keep an empty key;
// they count for progress but never decide the stage.
func (s *Service) stepStates(ctx context.Context, projectID string) ([]domain.StepState, error) {
	steps, err := s.store.ListSteps(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}

	states := make([]domain.StepState, 0, len(steps))
	for _, step := range steps {
		key, _ := domain.KeyForName(step.TemplateName)
		states = append(states, domain.StepState{
			Key:       key,
			Name:      step.TemplateName,
			FieldType: domain.FieldType(step.TemplateFieldType),
			Order:     step.DisplayOrder,
			Active:    step.IsActive,
			Completed: step.IsCompleted,
			Value:     domain.ParseStepValue(step.Value),
		})
	}
	return states, nil
}

// CalculateCurrentStage derives the discrete stage for a project from its
// status and steps, without touching the persisted cache.
func (s *Service) CalculateCurrentStage(ctx context.Context, projectID string) (domain.Stage, error) {
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Stage{}, fmt.Errorf("calculate stage: %w", err)
	}
	states, err := s.stepStates(ctx, projectID)
	if err != nil {
		return domain.Stage{}, fmt.Errorf("calculate stage: %w", err)
	}
	return domain.CurrentStage(domain.ProjectStatus(record.Status), states, s.now()), nil
}

// GetProgressPercentage derives the 0-100 completion ratio over active steps.
func (s *Service) GetProgressPercentage(ctx context.Context, projectID string) (int, error) {
	states, err := s.stepStates(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("progress percentage: %w", err)
	}
	return domain.ProgressPercentage(states, s.now()), nil
}

// GetNextActionAndStep derives the dashboard prompt for the first unfinished
// step and a preview of the one after it.
func (s *Service) GetNextActionAndStep(ctx context.Context, projectID string) (domain.NextAction, error) {
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.NextAction{}, fmt.Errorf("next action: %w", err)
	}
	states, err := s.stepStates(ctx, projectID)
	if err != nil {
		return domain.NextAction{}, fmt.Errorf("next action: %w", err)
	}
	return domain.NextActions(states, record.EstimateNotRequired, s.now()), nil
}

// GetWorkPhase derives the coarse 5-bucket phase label.
func (s *Service) GetWorkPhase(ctx context.Context, projectID string) (domain.Phase, error) {
	states, err := s.stepStates(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("work phase: %w", err)
	}
	return domain.WorkPhase(states, s.now()), nil
}
