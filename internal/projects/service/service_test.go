package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
	"github.com/kensetsu-cloud/anken/internal/projects/storage"
	"github.com/kensetsu-cloud/anken/internal/projects/storage/sqlite"
)

var testNow = time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/projects.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := NewWithClock(store, func() time.Time { return testNow })
	if err := svc.EnsureTemplates(context.Background()); err != nil {
		t.Fatalf("ensure templates: %v", err)
	}
	return svc
}

func saveTestProject(t *testing.T, svc *Service, p domain.Project) domain.Project {
	t.Helper()
	saved, err := svc.SaveProject(context.Background(), p)
	if err != nil {
		t.Fatalf("save project: %v", err)
	}
	return saved
}

func TestSaveProjectAssignsIdentity(t *testing.T) {
	svc := newTestService(t)

	saved := saveTestProject(t, svc, domain.Project{
		SiteName:    "  Sakura Heights 203  ",
		OrderAmount: 1_000_000,
		ParkingFee:  20_000,
	})

	if len(saved.ID) != 26 {
		t.Fatalf("id = %q, want 26 chars", saved.ID)
	}
	if saved.ManagementNo != "P260001" {
		t.Fatalf("management no = %q, want P260001", saved.ManagementNo)
	}
	if saved.SiteName != "Sakura Heights 203" {
		t.Fatalf("site name = %q", saved.SiteName)
	}
	if saved.Status != domain.StatusLead {
		t.Fatalf("status = %q, want lead default", saved.Status)
	}
	if saved.BillingAmount != 1_020_000 {
		t.Fatalf("billing amount = %d", saved.BillingAmount)
	}
	if saved.CurrentStage != domain.StageNotStarted || saved.CurrentStageColor != domain.ColorSecondary {
		t.Fatalf("stage = %q/%q", saved.CurrentStage, saved.CurrentStageColor)
	}
}

func TestSaveProjectRequiresSiteName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SaveProject(context.Background(), domain.Project{SiteName: "   "})
	if !errors.Is(err, domain.ErrEmptySiteName) {
		t.Fatalf("err = %v, want ErrEmptySiteName", err)
	}
}

func TestManagementNumbersIncrement(t *testing.T) {
	svc := newTestService(t)

	first := saveTestProject(t, svc, domain.Project{SiteName: "site one"})
	second := saveTestProject(t, svc, domain.Project{SiteName: "site two"})

	if first.ManagementNo != "P260001" || second.ManagementNo != "P260002" {
		t.Fatalf("management nos = %q, %q", first.ManagementNo, second.ManagementNo)
	}

	// Resaving keeps the assigned number.
	resaved := saveTestProject(t, svc, first)
	if resaved.ManagementNo != "P260001" {
		t.Fatalf("management no changed on resave: %q", resaved.ManagementNo)
	}
}

func TestLegacyWriteRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	workStart := "2026-03-01"
	saved := saveTestProject(t, svc, domain.Project{
		SiteName: "roundtrip site",
		Legacy:   domain.LegacyWrites{WorkStartDate: &workStart},
	})

	if got := svc.WorkStartDate(ctx, saved.ID); got != workStart {
		t.Fatalf("work start date = %q, want %q", got, workStart)
	}
	// The step store is the source of truth the accessor reads from.
	step, err := svc.GetStep(ctx, saved.ID, domain.StepConstructionStart)
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if domain.ParseStepValue(step.Value).ScheduledDate != workStart {
		t.Fatalf("stored value = %s", step.Value)
	}

	// A future scheduled start shows up in the refreshed stage cache.
	if saved.CurrentStage != "awaiting construction start" || saved.CurrentStageColor != domain.ColorWarning {
		t.Fatalf("stage = %q/%q", saved.CurrentStage, saved.CurrentStageColor)
	}
}

func TestLegacyStatusReaders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved := saveTestProject(t, svc, domain.Project{SiteName: "status site"})

	if got := svc.SurveyStatus(ctx, saved.ID); got != domain.StepProgressNotStarted {
		t.Fatalf("survey status = %q", got)
	}
	if err := svc.SetScheduledDate(ctx, saved.ID, domain.StepSurvey, "2026-02-20"); err != nil {
		t.Fatalf("set scheduled date: %v", err)
	}
	if got := svc.SurveyStatus(ctx, saved.ID); got != domain.StepProgressWaiting {
		t.Fatalf("survey status = %q, want waiting", got)
	}
	if err := svc.SetActualDate(ctx, saved.ID, domain.StepSurvey, "2026-02-09"); err != nil {
		t.Fatalf("set actual date: %v", err)
	}
	if got := svc.SurveyStatus(ctx, saved.ID); got != domain.StepProgressInProgress {
		t.Fatalf("survey status = %q, want in_progress", got)
	}
	if err := svc.CompleteStep(ctx, saved.ID, domain.StepSurvey, true); err != nil {
		t.Fatalf("complete step: %v", err)
	}
	if got := svc.SurveyStatus(ctx, saved.ID); got != domain.StepProgressCompleted {
		t.Fatalf("survey status = %q, want completed", got)
	}
}

func TestStepValueMergePreservesUnknownKeys(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved := saveTestProject(t, svc, domain.Project{SiteName: "merge site"})
	if err := svc.SetAssignees(ctx, saved.ID, domain.StepSurvey, []string{"tanaka"}); err != nil {
		t.Fatalf("set assignees: %v", err)
	}
	// A foreign writer adds a key this model does not know.
	step, err := svc.GetStep(ctx, saved.ID, domain.StepSurvey)
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	value := domain.ParseStepValue(step.Value)
	value.Extra = map[string]json.RawMessage{"memo": json.RawMessage(`"bring ladder"`)}
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := svc.store.UpdateStepValue(ctx, step.ID, raw); err != nil {
		t.Fatalf("update value: %v", err)
	}

	if err := svc.SetScheduledDate(ctx, saved.ID, domain.StepSurvey, "2026-02-20"); err != nil {
		t.Fatalf("set scheduled date: %v", err)
	}

	step, err = svc.GetStep(ctx, saved.ID, domain.StepSurvey)
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	merged := domain.ParseStepValue(step.Value)
	if merged.ScheduledDate != "2026-02-20" {
		t.Fatalf("scheduled date = %q", merged.ScheduledDate)
	}
	if len(merged.Assignees) != 1 || merged.Assignees[0] != "tanaka" {
		t.Fatalf("assignees = %v", merged.Assignees)
	}
	if string(merged.Extra["memo"]) != `"bring ladder"` {
		t.Fatalf("memo lost: %v", merged.Extra)
	}
}

func TestSetScheduledDateRejectsBadFormat(t *testing.T) {
	svc := newTestService(t)
	saved := saveTestProject(t, svc, domain.Project{SiteName: "format site"})

	err := svc.SetScheduledDate(context.Background(), saved.ID, domain.StepSurvey, "02/20/2026")
	if err == nil || !strings.Contains(err.Error(), "invalid scheduled date") {
		t.Fatalf("err = %v", err)
	}
}

func TestCompleteStepStampsAndClears(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "stamp site"})

	if err := svc.CompleteStep(ctx, saved.ID, domain.StepEstimate, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	step, err := svc.GetStep(ctx, saved.ID, domain.StepEstimate)
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if !step.IsCompleted || step.CompletedAt == nil || !step.CompletedAt.Equal(testNow) {
		t.Fatalf("completed = %v at %v", step.IsCompleted, step.CompletedAt)
	}

	if err := svc.CompleteStep(ctx, saved.ID, domain.StepEstimate, false); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	step, err = svc.GetStep(ctx, saved.ID, domain.StepEstimate)
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if step.IsCompleted || step.CompletedAt != nil {
		t.Fatalf("completion not cleared: %v at %v", step.IsCompleted, step.CompletedAt)
	}
}

func TestReplaceAllStepsSkipsUnknownKeys(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "bulk site"})

	err := svc.ReplaceAllSteps(ctx, saved.ID, []StepSpec{
		{Key: domain.StepSurvey, ScheduledDate: "2026-02-15"},
		{Key: "demolition", ScheduledDate: "2026-02-16"},
		{Key: domain.StepCompletion, Completed: true},
	})
	if err != nil {
		t.Fatalf("replace steps: %v", err)
	}

	steps, err := svc.store.ListSteps(ctx, saved.ID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want 2 after skipping unknown key", len(steps))
	}
	if steps[0].TemplateName != "Site survey" || steps[1].TemplateName != "Completion" {
		t.Fatalf("step names = %q, %q", steps[0].TemplateName, steps[1].TemplateName)
	}
	if !steps[1].IsCompleted {
		t.Fatal("completion flag lost in bulk replace")
	}
}

func TestLoadStepSpecsRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "roundtrip config"})

	in := []StepSpec{
		{Key: domain.StepSurvey, Order: 1, ScheduledDate: "2026-02-15"},
		{Key: domain.StepConstructionStart, Order: 2},
		{Key: domain.StepCompletion, Order: 3, Completed: true},
	}
	if err := svc.ReplaceAllSteps(ctx, saved.ID, in); err != nil {
		t.Fatalf("replace steps: %v", err)
	}

	out, err := svc.LoadStepSpecs(ctx, saved.ID)
	if err != nil {
		t.Fatalf("load step specs: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("specs = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("spec %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestStageCacheFollowsStepWrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{
		SiteName:    "cache site",
		Status:      domain.StatusConfirmed,
		OrderAmount: 2_500_000,
	})

	// Construction start scheduled yesterday: presumed in construction, and
	// the overdue start dominates the priority score.
	if err := svc.SetScheduledDate(ctx, saved.ID, domain.StepConstructionStart, "2026-02-09"); err != nil {
		t.Fatalf("set scheduled date: %v", err)
	}
	stage, score, err := svc.RecomputeAndCacheStage(ctx, saved.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stage.Label != "likely in construction" || stage.Color != domain.ColorSuccess {
		t.Fatalf("stage = %+v", stage)
	}
	// 2 * 10 for amount, 100 overdue, 40 confirmed.
	if score != 160 {
		t.Fatalf("score = %d, want 160", score)
	}

	got, err := svc.GetProject(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.CurrentStage != stage.Label || got.CurrentStageColor != stage.Color || got.PriorityScore != score {
		t.Fatalf("cache = %q/%q/%d", got.CurrentStage, got.CurrentStageColor, got.PriorityScore)
	}
}

// stageCacheDownStore fails every cache write while the rest of the store
// keeps working.
type stageCacheDownStore struct {
	storage.Store
}

func (s stageCacheDownStore) UpdateStageCache(ctx context.Context, projectID string, stage string, color string, priorityScore int) error {
	return errors.New("stage cache unavailable")
}

func TestSaveProjectSurvivesCacheRefreshFailure(t *testing.T) {
	base, err := sqlite.Open(t.TempDir() + "/projects.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = base.Close() })

	ctx := context.Background()
	svc := NewWithClock(stageCacheDownStore{base}, func() time.Time { return testNow })
	if err := svc.EnsureTemplates(ctx); err != nil {
		t.Fatalf("ensure templates: %v", err)
	}

	saved, err := svc.SaveProject(ctx, domain.Project{SiteName: "best effort site"})
	if err != nil {
		t.Fatalf("save project: %v", err)
	}
	if len(saved.ID) != 26 || saved.ManagementNo != "P260001" {
		t.Fatalf("identity lost: id %q, management no %q", saved.ID, saved.ManagementNo)
	}

	// The primary row committed; only the cache columns are stale.
	got, err := svc.GetProject(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.SiteName != "best effort site" {
		t.Fatalf("site name = %q", got.SiteName)
	}
	if got.CurrentStage != "" || got.PriorityScore != 0 {
		t.Fatalf("cache unexpectedly written: %q/%d", got.CurrentStage, got.PriorityScore)
	}
}

func TestSetAssigneesNormalizesEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "assignee site"})

	if err := svc.SetAssignees(ctx, saved.ID, domain.StepSurvey, []string{" tanaka ", "", "sato"}); err != nil {
		t.Fatalf("set assignees: %v", err)
	}
	got := svc.StepAssignees(ctx, saved.ID, domain.StepSurvey)
	if len(got) != 2 || got[0] != "tanaka" || got[1] != "sato" {
		t.Fatalf("assignees = %v, want [tanaka sato]", got)
	}

	// An all-blank list clears the field entirely.
	if err := svc.SetAssignees(ctx, saved.ID, domain.StepSurvey, []string{"  ", ""}); err != nil {
		t.Fatalf("clear assignees: %v", err)
	}
	if got := svc.StepAssignees(ctx, saved.ID, domain.StepSurvey); got != nil {
		t.Fatalf("assignees = %v, want nil", got)
	}
}

func TestRejectionOverridesStage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "rejected site"})

	if err := svc.CompleteStep(ctx, saved.ID, domain.StepCompletion, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	saved.Status = domain.StatusRejected
	saved = saveTestProject(t, svc, saved)

	if saved.CurrentStage != domain.StageRejected || saved.CurrentStageColor != domain.ColorSecondary {
		t.Fatalf("stage = %q/%q, want NG/secondary", saved.CurrentStage, saved.CurrentStageColor)
	}
}

func TestNextActionOnFreshProject(t *testing.T) {
	svc := newTestService(t)
	saved := saveTestProject(t, svc, domain.Project{SiteName: "fresh site"})

	action, err := svc.GetNextActionAndStep(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("next action: %v", err)
	}
	// No configured steps: the default baseline supplies the prompts.
	if action.NextAction != "Attendance: enter a scheduled date" {
		t.Fatalf("next action = %q", action.NextAction)
	}
	if action.NextStep != "Site survey: enter a scheduled date" {
		t.Fatalf("next step = %q", action.NextStep)
	}
}

func TestProgressAndPhase(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "phase site"})

	err := svc.ReplaceAllSteps(ctx, saved.ID, []StepSpec{
		{Key: domain.StepAttendance, Completed: true},
		{Key: domain.StepSurvey, Completed: true},
		{Key: domain.StepEstimate, ScheduledDate: "2026-02-01"},
		{Key: domain.StepConstructionStart, ScheduledDate: "2026-03-01"},
		{Key: domain.StepCompletion},
	})
	if err != nil {
		t.Fatalf("replace steps: %v", err)
	}

	percent, err := svc.GetProgressPercentage(ctx, saved.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if percent != 60 {
		t.Fatalf("progress = %d, want 60", percent)
	}

	phase, err := svc.GetWorkPhase(ctx, saved.ID)
	if err != nil {
		t.Fatalf("phase: %v", err)
	}
	if phase != domain.PhaseConstruction {
		t.Fatalf("phase = %q, want in construction", phase)
	}
}

func TestCustomTemplateSeeding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	templates, err := LoadCustomTemplates(strings.NewReader(`
templates:
  - name: Keys handover
    icon: fas fa-key
    display_order: 11
    field_type: checkbox
  - name: Flooring choice
    icon: fas fa-layer-group
    display_order: 12
    field_type: select
    field_options: [vinyl, hardwood, tile]
`))
	if err != nil {
		t.Fatalf("load custom templates: %v", err)
	}
	if err := svc.EnsureCustomTemplates(ctx, templates); err != nil {
		t.Fatalf("ensure custom templates: %v", err)
	}
	// Rerun is a no-op.
	if err := svc.EnsureCustomTemplates(ctx, templates); err != nil {
		t.Fatalf("re-ensure custom templates: %v", err)
	}

	all, err := svc.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(all) != len(domain.Catalog())+2 {
		t.Fatalf("templates = %d, want %d", len(all), len(domain.Catalog())+2)
	}
	last := all[len(all)-1]
	if last.Name != "Flooring choice" || last.IsSystem {
		t.Fatalf("last template = %+v", last)
	}
	if string(last.FieldOptions) != `["vinyl","hardwood","tile"]` {
		t.Fatalf("field options = %s", last.FieldOptions)
	}
}

func TestLoadCustomTemplatesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "reserved name",
			yaml: "templates:\n  - name: Completion\n    field_type: date\n",
			want: "reserved",
		},
		{
			name: "unknown field type",
			yaml: "templates:\n  - name: Custom\n    field_type: slider\n",
			want: "unknown field type",
		},
		{
			name: "select without options",
			yaml: "templates:\n  - name: Custom\n    field_type: select\n",
			want: "field options",
		},
		{
			name: "duplicate name",
			yaml: "templates:\n  - name: Custom\n    field_type: date\n  - name: Custom\n    field_type: date\n",
			want: "duplicate",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCustomTemplates(strings.NewReader(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestAccessorsSwallowMissingSteps(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saved := saveTestProject(t, svc, domain.Project{SiteName: "missing site"})

	if got := svc.WitnessDate(ctx, saved.ID); got != "" {
		t.Fatalf("witness date = %q, want empty", got)
	}
	if got := svc.StepAssignees(ctx, saved.ID, domain.StepSurvey); got != nil {
		t.Fatalf("assignees = %v, want nil", got)
	}
	completed, err := svc.WorkEndCompleted(ctx, saved.ID)
	if err != nil {
		t.Fatalf("work end completed: %v", err)
	}
	if completed {
		t.Fatal("missing step reported completed")
	}
}
