package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// PutProject upserts one project record. Stage cache columns are written as
// given; callers refresh them separately through UpdateStageCache.
func (s *Store) PutProject(ctx context.Context, record storage.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID := strings.TrimSpace(record.ID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	if strings.TrimSpace(record.ManagementNo) == "" {
		return fmt.Errorf("management no is required")
	}
	additionalItems := record.AdditionalItems
	if len(additionalItems) == 0 {
		additionalItems = []byte("{}")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO projects (
		   id, management_no, site_name, site_address, work_type, client_name, project_manager,
		   status, estimate_not_required, approval_pending, order_amount, parking_fee, expense_amount_1,
		   expense_amount_2, billing_amount, additional_items, current_stage, current_stage_color,
		   priority_score, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   management_no = excluded.management_no,
		   site_name = excluded.site_name,
		   site_address = excluded.site_address,
		   work_type = excluded.work_type,
		   client_name = excluded.client_name,
		   project_manager = excluded.project_manager,
		   status = excluded.status,
		   estimate_not_required = excluded.estimate_not_required,
		   approval_pending = excluded.approval_pending,
		   order_amount = excluded.order_amount,
		   parking_fee = excluded.parking_fee,
		   expense_amount_1 = excluded.expense_amount_1,
		   expense_amount_2 = excluded.expense_amount_2,
		   billing_amount = excluded.billing_amount,
		   additional_items = excluded.additional_items,
		   notes = excluded.notes,
		   updated_at = excluded.updated_at`,
		projectID,
		record.ManagementNo,
		record.SiteName,
		record.SiteAddress,
		record.WorkType,
		record.ClientName,
		record.ProjectManager,
		record.Status,
		boolToInt(record.EstimateNotRequired),
		boolToInt(record.ApprovalPending),
		record.OrderAmount,
		record.ParkingFee,
		record.ExpenseAmount1,
		record.ExpenseAmount2,
		record.BillingAmount,
		string(additionalItems),
		record.CurrentStage,
		record.CurrentStageColor,
		record.PriorityScore,
		record.Notes,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put project: %w", err)
	}
	return nil
}

// GetProject returns one project record.
func (s *Store) GetProject(ctx context.Context, projectID string) (storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProjectRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProjectRecord{}, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return storage.ProjectRecord{}, fmt.Errorf("project id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, management_no, site_name, site_address, work_type, client_name, project_manager,
		        status, estimate_not_required, approval_pending, order_amount, parking_fee,
		        expense_amount_1, expense_amount_2, billing_amount, additional_items, current_stage,
		        current_stage_color, priority_score, notes, created_at, updated_at
		 FROM projects
		 WHERE id = ?`,
		projectID,
	)

	var (
		record              storage.ProjectRecord
		estimateNotRequired int64
		approvalPending     int64
		additionalItems     string
		createdAt           int64
		updatedAt           int64
	)
	err := row.Scan(
		&record.ID,
		&record.ManagementNo,
		&record.SiteName,
		&record.SiteAddress,
		&record.WorkType,
		&record.ClientName,
		&record.ProjectManager,
		&record.Status,
		&estimateNotRequired,
		&approvalPending,
		&record.OrderAmount,
		&record.ParkingFee,
		&record.ExpenseAmount1,
		&record.ExpenseAmount2,
		&record.BillingAmount,
		&additionalItems,
		&record.CurrentStage,
		&record.CurrentStageColor,
		&record.PriorityScore,
		&record.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ProjectRecord{}, storage.ErrNotFound
		}
		return storage.ProjectRecord{}, fmt.Errorf("get project: %w", err)
	}
	record.EstimateNotRequired = estimateNotRequired != 0
	record.ApprovalPending = approvalPending != 0
	record.AdditionalItems = []byte(additionalItems)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// ListProjectIDs returns every project id, oldest first.
func (s *Store) ListProjectIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list project ids: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	return ids, nil
}

// UpdateStageCache writes only the cached derivation columns. Keeping this a
// column-targeted update is what prevents the save path from re-entering
// itself when the cache is refreshed after a save.
func (s *Store) UpdateStageCache(ctx context.Context, projectID string, stage string, color string, priorityScore int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE projects SET current_stage = ?, current_stage_color = ?, priority_score = ? WHERE id = ?`,
		stage,
		color,
		priorityScore,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("update stage cache: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stage cache: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// NextManagementSequence returns one plus the highest numeric suffix among
// management numbers starting with prefix.
func (s *Store) NextManagementSequence(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return 0, fmt.Errorf("prefix is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT management_no FROM projects
		 WHERE management_no LIKE ? || '%'
		 ORDER BY management_no DESC
		 LIMIT 1`,
		prefix,
	)
	var latest string
	err := row.Scan(&latest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 1, nil
		}
		return 0, fmt.Errorf("next management sequence: %w", err)
	}

	suffix := strings.TrimPrefix(latest, prefix)
	sequence, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("next management sequence: parse %q: %w", latest, err)
	}
	return sequence + 1, nil
}
