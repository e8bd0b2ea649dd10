// Package seed provisions the step template catalog in a projects database.
// Seeding is idempotent: system templates are inserted once and operator
// edits to existing rows survive reruns.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kensetsu-cloud/anken/internal/platform/config"
	"github.com/kensetsu-cloud/anken/internal/projects/service"
	"github.com/kensetsu-cloud/anken/internal/projects/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath        string
	TemplatesPath string
	Verbose       bool
}

type envConfig struct {
	DBPath        string `env:"ANKEN_DB_PATH"`
	TemplatesPath string `env:"ANKEN_CUSTOM_TEMPLATES_PATH"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := config.ParseEnv(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:        envCfg.DBPath,
		TemplatesPath: envCfg.TemplatesPath,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "projects.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to projects sqlite database (default: ANKEN_DB_PATH or data/projects.db)")
	fs.StringVar(&cfg.TemplatesPath, "templates", cfg.TemplatesPath, "optional YAML file of custom step templates")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the template catalog, plus any custom templates from the
// configured YAML file.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	svc := service.New(store)
	if err := svc.EnsureTemplates(ctx); err != nil {
		return fmt.Errorf("seed system templates: %w", err)
	}

	custom := 0
	if cfg.TemplatesPath != "" {
		templates, err := service.LoadCustomTemplatesFile(cfg.TemplatesPath)
		if err != nil {
			return err
		}
		if err := svc.EnsureCustomTemplates(ctx, templates); err != nil {
			return err
		}
		custom = len(templates)
	}

	if cfg.Verbose {
		all, err := svc.ListTemplates(ctx)
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		for _, template := range all {
			kind := "custom"
			if template.IsSystem {
				kind = "system"
			}
			fmt.Fprintf(out, "  %2d %-24s %s (%s)\n", template.DisplayOrder, template.Name, template.FieldType, kind)
		}
	}
	fmt.Fprintf(out, "seeded template catalog (%d custom)\n", custom)
	return nil
}
