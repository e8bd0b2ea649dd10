package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// EnsureTemplates seeds the fixed step template catalog. Existing rows are
// left untouched, so operator edits to icons or ordering survive reruns.
func (s *Service) EnsureTemplates(ctx context.Context) error {
	for _, spec := range domain.Catalog() {
		_, err := s.store.EnsureTemplate(ctx, storage.Template{
			Name:         spec.Name,
			Icon:         spec.Icon,
			DisplayOrder: spec.Order,
			IsDefault:    spec.IsDefault,
			IsSystem:     true,
			FieldType:    string(spec.FieldType),
		})
		if err != nil {
			return fmt.Errorf("ensure template %q: %w", spec.Name, err)
		}
	}
	return nil
}

// CustomTemplate is one operator-defined step template, loaded from a seed
// file. Custom templates extend the catalog; they can never shadow a system
// template name.
type CustomTemplate struct {
	Name         string   `yaml:"name"`
	Icon         string   `yaml:"icon"`
	DisplayOrder int      `yaml:"display_order"`
	IsDefault    bool     `yaml:"is_default"`
	FieldType    string   `yaml:"field_type"`
	FieldOptions []string `yaml:"field_options"`
}

type customTemplateFile struct {
	Templates []CustomTemplate `yaml:"templates"`
}

// LoadCustomTemplates parses a YAML seed file of operator-defined templates.
func LoadCustomTemplates(r io.Reader) ([]CustomTemplate, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var file customTemplateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}

	seen := make(map[string]bool, len(file.Templates))
	for i, template := range file.Templates {
		if template.Name == "" {
			return nil, fmt.Errorf("template %d: name is required", i+1)
		}
		if seen[template.Name] {
			return nil, fmt.Errorf("template %q: duplicate name", template.Name)
		}
		seen[template.Name] = true
		if _, ok := domain.KeyForName(template.Name); ok {
			return nil, fmt.Errorf("template %q: name is reserved by the system catalog", template.Name)
		}
		switch domain.FieldType(template.FieldType) {
		case domain.FieldTypeDate, domain.FieldTypeCheckbox, domain.FieldTypeText:
		case domain.FieldTypeSelect:
			if len(template.FieldOptions) == 0 {
				return nil, fmt.Errorf("template %q: select type needs field options", template.Name)
			}
		default:
			return nil, fmt.Errorf("template %q: unknown field type %q", template.Name, template.FieldType)
		}
	}
	return file.Templates, nil
}

// LoadCustomTemplatesFile reads and parses a YAML seed file by path.
func LoadCustomTemplatesFile(path string) ([]CustomTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates file: %w", err)
	}
	defer f.Close()
	return LoadCustomTemplates(f)
}

// EnsureCustomTemplates seeds operator-defined templates alongside the fixed
// catalog. Like EnsureTemplates, reruns never duplicate or overwrite.
func (s *Service) EnsureCustomTemplates(ctx context.Context, templates []CustomTemplate) error {
	for _, template := range templates {
		var fieldOptions []byte
		if len(template.FieldOptions) > 0 {
			raw, err := json.Marshal(template.FieldOptions)
			if err != nil {
				return fmt.Errorf("ensure custom template %q: %w", template.Name, err)
			}
			fieldOptions = raw
		}
		_, err := s.store.EnsureTemplate(ctx, storage.Template{
			Name:         template.Name,
			Icon:         template.Icon,
			DisplayOrder: template.DisplayOrder,
			IsDefault:    template.IsDefault,
			IsSystem:     false,
			FieldType:    template.FieldType,
			FieldOptions: fieldOptions,
		})
		if err != nil {
			return fmt.Errorf("ensure custom template %q: %w", template.Name, err)
		}
	}
	return nil
}

// ListTemplates returns the full template catalog in display order.
func (s *Service) ListTemplates(ctx context.Context) ([]storage.Template, error) {
	return s.store.ListTemplates(ctx)
}
