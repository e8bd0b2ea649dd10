package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ProjectStatus is the sales-forecast status of a project.
type ProjectStatus string

const (
	// StatusLead is a prospective project with no commitment yet.
	StatusLead ProjectStatus = "lead"
	// StatusTentativeA is a high-confidence prospect.
	StatusTentativeA ProjectStatus = "tentative_a"
	// StatusTentativeB is a medium-confidence prospect.
	StatusTentativeB ProjectStatus = "tentative_b"
	// StatusConfirmed is a won order.
	StatusConfirmed ProjectStatus = "confirmed"
	// StatusRejected is a lost order. It overrides all step-derived state.
	StatusRejected ProjectStatus = "rejected"
)

// ErrEmptySiteName indicates a project without a site name.
var ErrEmptySiteName = errors.New("site name is required")

// LegacyWrites holds flat date fields set by pre-migration callers. They are
// pushed into the step store when the project is saved, one-directionally;
// reads always come from the step store.
type LegacyWrites struct {
	WitnessDate        *string
	SurveyDate         *string
	EstimateIssuedDate *string
	WorkStartDate      *string
	WorkEndDate        *string
	ContractDate       *string
}

// Empty reports whether no legacy field was written.
func (w LegacyWrites) Empty() bool {
	return w.WitnessDate == nil && w.SurveyDate == nil && w.EstimateIssuedDate == nil &&
		w.WorkStartDate == nil && w.WorkEndDate == nil && w.ContractDate == nil
}

// Project is the progress-relevant surface of the project aggregate.
// CurrentStage and CurrentStageColor are caches of the derivation engine
// applied to the project's steps at last save; they are never authoritative.
type Project struct {
	ID             string
	ManagementNo   string
	SiteName       string
	SiteAddress    string
	WorkType       string
	ClientName     string
	ProjectManager string
	Status         ProjectStatus

	EstimateNotRequired bool
	// ApprovalPending marks a project waiting on an internal sign-off.
	ApprovalPending bool

	// Amounts are tax-included yen.
	OrderAmount    int64
	ParkingFee     int64
	ExpenseAmount1 int64
	ExpenseAmount2 int64
	BillingAmount  int64 // cached sum, recomputed on save

	// AdditionalItems is the legacy free-form bag kept for backward read
	// compatibility with pre-migration payloads.
	AdditionalItems map[string]json.RawMessage

	CurrentStage      string
	CurrentStageColor Color
	PriorityScore     int

	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Legacy collects flat-field writes from old callers until the next save.
	Legacy LegacyWrites
}

// NormalizeProject trims identity fields and validates required ones.
func NormalizeProject(p Project) (Project, error) {
	p.SiteName = strings.TrimSpace(p.SiteName)
	if p.SiteName == "" {
		return Project{}, ErrEmptySiteName
	}
	p.ClientName = strings.TrimSpace(p.ClientName)
	p.ProjectManager = strings.TrimSpace(p.ProjectManager)
	if p.Status == "" {
		p.Status = StatusLead
	}
	return p, nil
}

// ComputeBillingAmount returns the cached billing total: order amount plus
// parking and itemized expenses.
func (p Project) ComputeBillingAmount() int64 {
	return p.OrderAmount + p.ParkingFee + p.ExpenseAmount1 + p.ExpenseAmount2
}
