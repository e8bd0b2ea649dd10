package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

const stepColumns = `ps.id, ps.project_id, ps.template_id, st.name, st.field_type, st.display_order,
	 ps.display_order, ps.is_active, ps.is_completed, ps.value, ps.completed_at`

// GetStep returns the project's step bound to the named template.
func (s *Store) GetStep(ctx context.Context, projectID string, templateName string) (storage.Step, error) {
	if err := ctx.Err(); err != nil {
		return storage.Step{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Step{}, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return storage.Step{}, fmt.Errorf("project id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+stepColumns+`
		 FROM project_steps ps
		 JOIN step_templates st ON st.id = ps.template_id
		 WHERE ps.project_id = ? AND st.name = ?`,
		projectID,
		strings.TrimSpace(templateName),
	)
	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Step{}, storage.ErrNotFound
		}
		return storage.Step{}, fmt.Errorf("get step: %w", err)
	}
	return step, nil
}

// ListSteps returns all steps of a project in display order.
func (s *Store) ListSteps(ctx context.Context, projectID string) ([]storage.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+stepColumns+`
		 FROM project_steps ps
		 JOIN step_templates st ON st.id = ps.template_id
		 WHERE ps.project_id = ?
		 ORDER BY ps.display_order ASC, st.display_order ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []storage.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("list steps: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}

// FindOrCreateStep returns the existing (project, template) step or creates
// one with an empty value. The unique index makes concurrent creates collapse
// to a single row.
func (s *Store) FindOrCreateStep(ctx context.Context, projectID string, templateID int64, displayOrder int) (storage.Step, error) {
	if err := ctx.Err(); err != nil {
		return storage.Step{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Step{}, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return storage.Step{}, fmt.Errorf("project id is required")
	}
	if templateID <= 0 {
		return storage.Step{}, fmt.Errorf("template id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO project_steps (project_id, template_id, display_order, is_active, is_completed, value)
		 VALUES (?, ?, ?, 1, 0, '{}')
		 ON CONFLICT(project_id, template_id) DO NOTHING`,
		projectID,
		templateID,
		displayOrder,
	)
	if err != nil {
		return storage.Step{}, fmt.Errorf("find or create step: %w", err)
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+stepColumns+`
		 FROM project_steps ps
		 JOIN step_templates st ON st.id = ps.template_id
		 WHERE ps.project_id = ? AND ps.template_id = ?`,
		projectID,
		templateID,
	)
	step, err := scanStep(row)
	if err != nil {
		return storage.Step{}, fmt.Errorf("find or create step: %w", err)
	}
	return step, nil
}

// UpdateStepValue replaces the value payload of one step.
func (s *Store) UpdateStepValue(ctx context.Context, stepID int64, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(value) == 0 {
		value = []byte("{}")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE project_steps SET value = ? WHERE id = ?`,
		string(value),
		stepID,
	)
	if err != nil {
		return fmt.Errorf("update step value: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update step value: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateStepCompletion sets the completion flag and timestamp of one step.
func (s *Store) UpdateStepCompletion(ctx context.Context, stepID int64, completed bool, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	var completedAtMillis any
	if completedAt != nil {
		completedAtMillis = toMillis(*completedAt)
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE project_steps SET is_completed = ?, completed_at = ? WHERE id = ?`,
		boolToInt(completed),
		completedAtMillis,
		stepID,
	)
	if err != nil {
		return fmt.Errorf("update step completion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update step completion: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ReplaceProjectSteps atomically deletes every step of the project and
// inserts the given ones. A concurrent reader never observes a mixed set.
func (s *Store) ReplaceProjectSteps(ctx context.Context, projectID string, steps []storage.Step) error {
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

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace steps: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_steps WHERE project_id = ?`, projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("replace steps: delete old set: %w", err)
	}

	for _, step := range steps {
		value := step.Value
		if len(value) == 0 {
			value = []byte("{}")
		}
		var completedAtMillis any
		if step.CompletedAt != nil {
			completedAtMillis = toMillis(*step.CompletedAt)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO project_steps (project_id, template_id, display_order, is_active, is_completed, value, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			projectID,
			step.TemplateID,
			step.DisplayOrder,
			boolToInt(step.IsActive),
			boolToInt(step.IsCompleted),
			string(value),
			completedAtMillis,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("replace steps: insert template %d: %w", step.TemplateID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace steps: %w", err)
	}
	return nil
}

func scanStep(row rowScanner) (storage.Step, error) {
	var (
		step        storage.Step
		isActive    int64
		isCompleted int64
		value       sql.NullString
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&step.ID,
		&step.ProjectID,
		&step.TemplateID,
		&step.TemplateName,
		&step.TemplateFieldType,
		&step.TemplateOrder,
		&step.DisplayOrder,
		&isActive,
		&isCompleted,
		&value,
		&completedAt,
	)
	if err != nil {
		return storage.Step{}, err
	}
	step.IsActive = isActive != 0
	step.IsCompleted = isCompleted != 0
	if value.Valid {
		step.Value = []byte(value.String)
	}
	if completedAt.Valid {
		at := fromMillis(completedAt.Int64)
		step.CompletedAt = &at
	}
	return step, nil
}
