package service

import (
	"context"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
)

// Legacy field adapters. Old call sites read flat date columns that no longer
// exist; each reader below is the step-store-backed stand-in for one of them.
// Writes go the other way: SaveProject pushes any Legacy fields set on the
// aggregate into the step store.

// WitnessDate reads the attendance scheduled date.
func (s *Service) WitnessDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepAttendance, DateScheduled)
}

// WitnessActualDate reads the attendance actual date.
func (s *Service) WitnessActualDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepAttendance, DateActual)
}

// SurveyDate reads the site survey scheduled date.
func (s *Service) SurveyDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepSurvey, DateScheduled)
}

// EstimateIssuedDate reads the estimate scheduled (issue) date.
func (s *Service) EstimateIssuedDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepEstimate, DateScheduled)
}

// WorkStartDate reads the construction start scheduled date.
func (s *Service) WorkStartDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepConstructionStart, DateScheduled)
}

// WorkStartCompleted reads the construction start completion flag.
func (s *Service) WorkStartCompleted(ctx context.Context, projectID string) (bool, error) {
	return s.IsStepCompleted(ctx, projectID, domain.StepConstructionStart)
}

// WorkEndDate reads the completion scheduled date.
func (s *Service) WorkEndDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepCompletion, DateScheduled)
}

// WorkEndCompleted reads the completion step's completion flag.
func (s *Service) WorkEndCompleted(ctx context.Context, projectID string) (bool, error) {
	return s.IsStepCompleted(ctx, projectID, domain.StepCompletion)
}

// ContractDate reads the contract scheduled date.
func (s *Service) ContractDate(ctx context.Context, projectID string) string {
	return s.StepDate(ctx, projectID, domain.StepContract, DateScheduled)
}

// WitnessStatus derives the attendance step status.
func (s *Service) WitnessStatus(ctx context.Context, projectID string) domain.StepProgress {
	return s.StepStatus(ctx, projectID, domain.StepAttendance)
}

// SurveyStatus derives the site survey step status.
func (s *Service) SurveyStatus(ctx context.Context, projectID string) domain.StepProgress {
	return s.StepStatus(ctx, projectID, domain.StepSurvey)
}

// EstimateStatus derives the estimate step status.
func (s *Service) EstimateStatus(ctx context.Context, projectID string) domain.StepProgress {
	return s.StepStatus(ctx, projectID, domain.StepEstimate)
}

// ConstructionStatus derives the construction start step status.
func (s *Service) ConstructionStatus(ctx context.Context, projectID string) domain.StepProgress {
	return s.StepStatus(ctx, projectID, domain.StepConstructionStart)
}

// legacyPush binds one legacy flat field to its target step and date field.
type legacyPush struct {
	value *string
	key   domain.StepKey
	field DateField
}

// pushLegacyWrites copies flat-field writes into the step store. Failures are
// reported but the remaining fields are still pushed; legacy writes are best
// effort by contract.
func (s *Service) pushLegacyWrites(ctx context.Context, projectID string, writes domain.LegacyWrites) []error {
	pushes := []legacyPush{
		{writes.WitnessDate, domain.StepAttendance, DateScheduled},
		{writes.SurveyDate, domain.StepSurvey, DateScheduled},
		{writes.EstimateIssuedDate, domain.StepEstimate, DateScheduled},
		{writes.WorkStartDate, domain.StepConstructionStart, DateScheduled},
		{writes.WorkEndDate, domain.StepCompletion, DateScheduled},
		{writes.ContractDate, domain.StepContract, DateScheduled},
	}

	var errs []error
	for _, push := range pushes {
		if push.value == nil {
			continue
		}
		var err error
		if push.field == DateActual {
			err = s.SetActualDate(ctx, projectID, push.key, *push.value)
		} else {
			err = s.SetScheduledDate(ctx, projectID, push.key, *push.value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
