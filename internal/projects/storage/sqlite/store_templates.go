package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// EnsureTemplate inserts a template if its unique name is new and returns
// the stored row. The insert is a no-op on repeated calls.
func (s *Store) EnsureTemplate(ctx context.Context, template storage.Template) (storage.Template, error) {
	if err := ctx.Err(); err != nil {
		return storage.Template{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Template{}, fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(template.Name)
	if name == "" {
		return storage.Template{}, fmt.Errorf("template name is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO step_templates (name, icon, display_order, is_default, is_system, field_type, field_options)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name,
		template.Icon,
		template.DisplayOrder,
		boolToInt(template.IsDefault),
		boolToInt(template.IsSystem),
		template.FieldType,
		nullableBytes(template.FieldOptions),
	)
	if err != nil {
		return storage.Template{}, fmt.Errorf("ensure template: %w", err)
	}

	return s.GetTemplateByName(ctx, name)
}

// GetTemplateByName returns the template with the given unique display name.
func (s *Store) GetTemplateByName(ctx context.Context, name string) (storage.Template, error) {
	if err := ctx.Err(); err != nil {
		return storage.Template{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Template{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, icon, display_order, is_default, is_system, field_type, field_options
		 FROM step_templates
		 WHERE name = ?`,
		strings.TrimSpace(name),
	)
	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Template{}, storage.ErrNotFound
		}
		return storage.Template{}, fmt.Errorf("get template: %w", err)
	}
	return template, nil
}

// ListTemplates returns the full catalog ordered for display.
func (s *Store) ListTemplates(ctx context.Context) ([]storage.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, icon, display_order, is_default, is_system, field_type, field_options
		 FROM step_templates
		 ORDER BY display_order ASC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []storage.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (storage.Template, error) {
	var (
		template     storage.Template
		isDefault    int64
		isSystem     int64
		fieldOptions sql.NullString
	)
	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Icon,
		&template.DisplayOrder,
		&isDefault,
		&isSystem,
		&template.FieldType,
		&fieldOptions,
	)
	if err != nil {
		return storage.Template{}, err
	}
	template.IsDefault = isDefault != 0
	template.IsSystem = isSystem != 0
	if fieldOptions.Valid {
		template.FieldOptions = []byte(fieldOptions.String)
	}
	return template, nil
}

func nullableBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}
