package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// GetStep returns the project's step for a logical key, if one exists.
func (s *Service) GetStep(ctx context.Context, projectID string, key domain.StepKey) (storage.Step, error) {
	spec, ok := domain.SpecForKey(key)
	if !ok {
		return storage.Step{}, fmt.Errorf("get step %q: %w", key, domain.ErrUnknownStepKey)
	}
	return s.store.GetStep(ctx, projectID, spec.Name)
}

// findOrCreateStep resolves a logical key to the project's step instance,
// creating an active empty one on first touch.
func (s *Service) findOrCreateStep(ctx context.Context, projectID string, key domain.StepKey) (storage.Step, error) {
	spec, ok := domain.SpecForKey(key)
	if !ok {
		return storage.Step{}, fmt.Errorf("step %q: %w", key, domain.ErrUnknownStepKey)
	}
	template, err := s.store.GetTemplateByName(ctx, spec.Name)
	if err != nil {
		return storage.Step{}, fmt.Errorf("step %q: resolve template: %w", key, err)
	}
	step, err := s.store.FindOrCreateStep(ctx, projectID, template.ID, spec.Order)
	if err != nil {
		return storage.Step{}, fmt.Errorf("step %q: %w", key, err)
	}
	return step, nil
}

// mutateStepValue applies a field update to the step's value payload. The
// stored JSON is merged, not replaced: keys this model does not know about
// survive the write untouched.
func (s *Service) mutateStepValue(ctx context.Context, projectID string, key domain.StepKey, mutate func(*domain.StepValue)) error {
	step, err := s.findOrCreateStep(ctx, projectID, key)
	if err != nil {
		return err
	}
	value := domain.ParseStepValue(step.Value)
	mutate(&value)
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("step %q: encode value: %w", key, err)
	}
	if err := s.store.UpdateStepValue(ctx, step.ID, raw); err != nil {
		return fmt.Errorf("step %q: %w", key, err)
	}
	return nil
}

// SetScheduledDate writes the scheduled date of a step. An empty date clears
// the field; anything else must be YYYY-MM-DD.
func (s *Service) SetScheduledDate(ctx context.Context, projectID string, key domain.StepKey, date string) error {
	if _, ok := domain.ParseDate(date); date != "" && !ok {
		return fmt.Errorf("step %q: invalid scheduled date %q", key, date)
	}
	return s.mutateStepValue(ctx, projectID, key, func(v *domain.StepValue) {
		v.ScheduledDate = date
	})
}

// SetActualDate writes the actual date of a step. An empty date clears the
// field; anything else must be YYYY-MM-DD.
func (s *Service) SetActualDate(ctx context.Context, projectID string, key domain.StepKey, date string) error {
	if _, ok := domain.ParseDate(date); date != "" && !ok {
		return fmt.Errorf("step %q: invalid actual date %q", key, date)
	}
	return s.mutateStepValue(ctx, projectID, key, func(v *domain.StepValue) {
		v.ActualDate = date
	})
}

// SetAssignees replaces the assignee list of a step. Entries are trimmed and
// blank ones dropped; an all-blank list clears the field.
func (s *Service) SetAssignees(ctx context.Context, projectID string, key domain.StepKey, assignees []string) error {
	var cleaned []string
	for _, assignee := range assignees {
		assignee = strings.TrimSpace(assignee)
		if assignee == "" {
			continue
		}
		cleaned = append(cleaned, assignee)
	}
	return s.mutateStepValue(ctx, projectID, key, func(v *domain.StepValue) {
		v.Assignees = cleaned
	})
}

// CompleteStep sets or clears the explicit completion flag. The first
// transition to completed stamps the current time; repeat calls keep the
// original stamp. Un-completing clears it.
func (s *Service) CompleteStep(ctx context.Context, projectID string, key domain.StepKey, completed bool) error {
	step, err := s.findOrCreateStep(ctx, projectID, key)
	if err != nil {
		return err
	}
	if completed {
		at := s.now().UTC()
		if step.CompletedAt != nil {
			at = *step.CompletedAt
		}
		return s.store.UpdateStepCompletion(ctx, step.ID, true, &at)
	}
	return s.store.UpdateStepCompletion(ctx, step.ID, false, nil)
}

// IsStepCompleted reports the explicit completion flag. A missing step is
// simply not completed.
func (s *Service) IsStepCompleted(ctx context.Context, projectID string, key domain.StepKey) (bool, error) {
	step, err := s.GetStep(ctx, projectID, key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return step.IsCompleted, nil
}

// StepSpec configures one step in a bulk replace: which logical step, where
// it sits, and any initial state.
type StepSpec struct {
	Key           domain.StepKey `yaml:"key"`
	Order         int            `yaml:"order"`
	ScheduledDate string         `yaml:"scheduled_date"`
	Completed     bool           `yaml:"completed"`
}

// ReplaceAllSteps swaps the project's whole step configuration for the given
// list in one transaction. Specs with unknown keys are skipped with a log
// line rather than failing the batch.
func (s *Service) ReplaceAllSteps(ctx context.Context, projectID string, specs []StepSpec) error {
	steps := make([]storage.Step, 0, len(specs))
	for _, spec := range specs {
		catalogSpec, ok := domain.SpecForKey(spec.Key)
		if !ok {
			log.Printf("replace steps: skipping unknown step key %q for project %s", spec.Key, projectID)
			continue
		}
		template, err := s.store.GetTemplateByName(ctx, catalogSpec.Name)
		if err != nil {
			return fmt.Errorf("replace steps: resolve template %q: %w", catalogSpec.Name, err)
		}

		order := spec.Order
		if order == 0 {
			order = catalogSpec.Order
		}
		value := domain.StepValue{ScheduledDate: spec.ScheduledDate}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("replace steps: encode value for %q: %w", spec.Key, err)
		}
		step := storage.Step{
			TemplateID:   template.ID,
			DisplayOrder: order,
			IsActive:     true,
			IsCompleted:  spec.Completed,
			Value:        raw,
		}
		if spec.Completed {
			at := s.now().UTC()
			step.CompletedAt = &at
		}
		steps = append(steps, step)
	}
	if err := s.store.ReplaceProjectSteps(ctx, projectID, steps); err != nil {
		return fmt.Errorf("replace steps: %w", err)
	}
	return nil
}

// LoadStepSpecs reads the project's active steps back in the same ordered
// shape ReplaceAllSteps accepts, so a bulk editor can round-trip the
// configuration. Steps bound to non-catalog templates are left out.
func (s *Service) LoadStepSpecs(ctx context.Context, projectID string) ([]StepSpec, error) {
	steps, err := s.store.ListSteps(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load step specs: %w", err)
	}

	specs := make([]StepSpec, 0, len(steps))
	for _, step := range steps {
		if !step.IsActive {
			continue
		}
		key, ok := domain.KeyForName(step.TemplateName)
		if !ok {
			continue
		}
		specs = append(specs, StepSpec{
			Key:           key,
			Order:         step.DisplayOrder,
			ScheduledDate: domain.ParseStepValue(step.Value).ScheduledDate,
			Completed:     step.IsCompleted,
		})
	}
	return specs, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
