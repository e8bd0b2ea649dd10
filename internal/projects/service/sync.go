package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kensetsu-cloud/anken/internal/platform/id"
	"github.com/kensetsu-cloud/anken/internal/projects/domain"
	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// SaveProject persists a project aggregate: it normalizes, assigns identity
// on first save, recomputes the billing total, pushes any legacy flat-field
// writes into the step store, and refreshes the derivation cache. The
// returned aggregate carries the refreshed identity and cache values.
func (s *Service) SaveProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p, err := domain.NormalizeProject(p)
	if err != nil {
		return domain.Project{}, err
	}

	now := s.now().UTC()
	if p.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return domain.Project{}, fmt.Errorf("save project: %w", err)
		}
		p.ID = newID
		p.CreatedAt = now
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if p.ManagementNo == "" {
		no, err := s.nextManagementNo(ctx, now)
		if err != nil {
			return domain.Project{}, fmt.Errorf("save project: %w", err)
		}
		p.ManagementNo = no
	}

	p.BillingAmount = p.ComputeBillingAmount()

	record, err := toRecord(p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	if err := s.store.PutProject(ctx, record); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}

	// Legacy flat-field writes are best effort: a bad date in an old caller
	// must not lose the project save itself.
	if !p.Legacy.Empty() {
		for _, pushErr := range s.pushLegacyWrites(ctx, p.ID, p.Legacy) {
			log.Printf("save project %s: legacy write: %v", p.ID, pushErr)
		}
		p.Legacy = domain.LegacyWrites{}
	}

	// The cache refresh is best effort relative to the committed save: the
	// cached stage can be momentarily stale but the caller still gets the
	// persisted aggregate.
	stage, score, err := s.RecomputeAndCacheStage(ctx, p.ID)
	if err != nil {
		log.Printf("save project %s: refresh stage cache: %v", p.ID, err)
		return p, nil
	}
	p.CurrentStage = stage.Label
	p.CurrentStageColor = stage.Color
	p.PriorityScore = score
	return p, nil
}

// nextManagementNo allocates the next P<yy><seq> management number for the
// current year.
func (s *Service) nextManagementNo(ctx context.Context, now time.Time) (string, error) {
	prefix := "P" + now.Format("06")
	seq, err := s.store.NextManagementSequence(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("next management no: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// DeriveStageAndScore re-derives the stage, color, and priority score from
// the project's current status and steps, without touching the cache.
func (s *Service) DeriveStageAndScore(ctx context.Context, projectID string) (domain.Stage, int, error) {
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Stage{}, 0, fmt.Errorf("derive stage: %w", err)
	}
	states, err := s.stepStates(ctx, projectID)
	if err != nil {
		return domain.Stage{}, 0, fmt.Errorf("derive stage: %w", err)
	}

	now := s.now()
	stage := domain.CurrentStage(domain.ProjectStatus(record.Status), states, now)

	var workStart time.Time
	hasWorkStart := false
	for _, state := range states {
		if state.Key != domain.StepConstructionStart || !state.Active {
			continue
		}
		if scheduled, ok := state.Value.Scheduled(); ok {
			workStart = scheduled
			hasWorkStart = true
		}
		break
	}
	score := domain.PriorityScore(toProject(record), workStart, hasWorkStart, now)
	return stage, score, nil
}

// RecomputeAndCacheStage re-derives the stage, color, and priority score and
// writes them to the cache columns. It is the only writer of those columns,
// and it never calls back into SaveProject.
func (s *Service) RecomputeAndCacheStage(ctx context.Context, projectID string) (domain.Stage, int, error) {
	stage, score, err := s.DeriveStageAndScore(ctx, projectID)
	if err != nil {
		return domain.Stage{}, 0, err
	}
	if err := s.store.UpdateStageCache(ctx, projectID, stage.Label, string(stage.Color), score); err != nil {
		return domain.Stage{}, 0, fmt.Errorf("recompute stage: %w", err)
	}
	return stage, score, nil
}

// GetProject loads a project aggregate, including its cached derivations.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	return toProject(record), nil
}

// ListProjectIDs returns every stored project id, oldest first.
func (s *Service) ListProjectIDs(ctx context.Context) ([]string, error) {
	return s.store.ListProjectIDs(ctx)
}

func toRecord(p domain.Project) (storage.ProjectRecord, error) {
	additionalItems := []byte("{}")
	if len(p.AdditionalItems) > 0 {
		raw, err := json.Marshal(p.AdditionalItems)
		if err != nil {
			return storage.ProjectRecord{}, fmt.Errorf("encode additional items: %w", err)
		}
		additionalItems = raw
	}
	return storage.ProjectRecord{
		ID:                  p.ID,
		ManagementNo:        p.ManagementNo,
		SiteName:            p.SiteName,
		SiteAddress:         p.SiteAddress,
		WorkType:            p.WorkType,
		ClientName:          p.ClientName,
		ProjectManager:      p.ProjectManager,
		Status:              string(p.Status),
		EstimateNotRequired: p.EstimateNotRequired,
		ApprovalPending:     p.ApprovalPending,
		OrderAmount:         p.OrderAmount,
		ParkingFee:          p.ParkingFee,
		ExpenseAmount1:      p.ExpenseAmount1,
		ExpenseAmount2:      p.ExpenseAmount2,
		BillingAmount:       p.BillingAmount,
		AdditionalItems:     additionalItems,
		CurrentStage:        p.CurrentStage,
		CurrentStageColor:   string(p.CurrentStageColor),
		PriorityScore:       p.PriorityScore,
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}, nil
}

func toProject(record storage.ProjectRecord) domain.Project {
	var additionalItems map[string]json.RawMessage
	if len(record.AdditionalItems) > 0 {
		// A malformed legacy bag reads as empty rather than failing the load.
		_ = json.Unmarshal(record.AdditionalItems, &additionalItems)
	}
	return domain.Project{
		ID:                  record.ID,
		ManagementNo:        record.ManagementNo,
		SiteName:            record.SiteName,
		SiteAddress:         record.SiteAddress,
		WorkType:            record.WorkType,
		ClientName:          record.ClientName,
		ProjectManager:      record.ProjectManager,
		Status:              domain.ProjectStatus(record.Status),
		EstimateNotRequired: record.EstimateNotRequired,
		ApprovalPending:     record.ApprovalPending,
		OrderAmount:         record.OrderAmount,
		ParkingFee:          record.ParkingFee,
		ExpenseAmount1:      record.ExpenseAmount1,
		ExpenseAmount2:      record.ExpenseAmount2,
		BillingAmount:       record.BillingAmount,
		AdditionalItems:     additionalItems,
		CurrentStage:        record.CurrentStage,
		CurrentStageColor:   domain.Color(record.CurrentStageColor),
		PriorityScore:       record.PriorityScore,
		Notes:               record.Notes,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
}
