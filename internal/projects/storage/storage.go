// Package storage defines persistence contracts for project progress state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Template stores one step template catalog entry.
type Template struct {
	ID           int64
	Name         string
	Icon         string
	DisplayOrder int
	IsDefault    bool
	IsSystem     bool
	FieldType    string
	FieldOptions []byte
}

// Step stores one project's binding to a template. TemplateName,
// TemplateFieldType, and TemplateOrder are read-side joins.
type Step struct {
	ID                int64
	ProjectID         string
	TemplateID        int64
	TemplateName      string
	TemplateFieldType string
	TemplateOrder     int
	DisplayOrder      int
	IsActive          bool
	IsCompleted       bool
	Value             []byte
	CompletedAt       *time.Time
}

// ProjectRecord stores the progress-relevant surface of a project.
// CurrentStage and CurrentStageColor are derivation caches, written only
// through UpdateStageCache.
type ProjectRecord struct {
	ID                  string
	ManagementNo        string
	SiteName            string
	SiteAddress         string
	WorkType            string
	ClientName          string
	ProjectManager      string
	Status              string
	EstimateNotRequired bool
	ApprovalPending     bool
	OrderAmount         int64
	ParkingFee          int64
	ExpenseAmount1      int64
	ExpenseAmount2      int64
	BillingAmount       int64
	AdditionalItems     []byte
	CurrentStage        string
	CurrentStageColor   string
	PriorityScore       int
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TemplateStore persists the step template catalog.
type TemplateStore interface {
	// EnsureTemplate inserts the template if its unique name is new and
	// returns the stored row either way. Repeated calls never duplicate.
	EnsureTemplate(ctx context.Context, template Template) (Template, error)
	GetTemplateByName(ctx context.Context, name string) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}

// StepStore persists per-project step instances. At most one step exists per
// (project, template) pair.
type StepStore interface {
	GetStep(ctx context.Context, projectID string, templateName string) (Step, error)
	ListSteps(ctx context.Context, projectID string) ([]Step, error)
	// FindOrCreateStep returns the existing (project, template) step or
	// creates one with the given display order and an empty value.
	FindOrCreateStep(ctx context.Context, projectID string, templateID int64, displayOrder int) (Step, error)
	UpdateStepValue(ctx context.Context, stepID int64, value []byte) error
	UpdateStepCompletion(ctx context.Context, stepID int64, completed bool, completedAt *time.Time) error
	// ReplaceProjectSteps atomically deletes every step of the project and
	// inserts the given ones. A failure leaves the old set untouched.
	ReplaceProjectSteps(ctx context.Context, projectID string, steps []Step) error
}

// ProjectStore persists project aggregates and their derivation caches.
type ProjectStore interface {
	PutProject(ctx context.Context, record ProjectRecord) error
	GetProject(ctx context.Context, projectID string) (ProjectRecord, error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	// UpdateStageCache writes only the cached derivation columns so a cache
	// refresh can never re-trigger the save path.
	UpdateStageCache(ctx context.Context, projectID string, stage string, color string, priorityScore int) error
	// NextManagementSequence returns one plus the highest numeric suffix
	// among management numbers starting with prefix.
	NextManagementSequence(ctx context.Context, prefix string) (int, error)
}

// Store bundles every persistence contract the progress service needs.
type Store interface {
	TemplateStore
	StepStore
	ProjectStore
}
