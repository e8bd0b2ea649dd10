package seed

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kensetsu-cloud/anken/internal/projects/domain"
	"github.com/kensetsu-cloud/anken/internal/projects/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("ANKEN_DB_PATH", "")
	t.Setenv("ANKEN_CUSTOM_TEMPLATES_PATH", "")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/projects.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.TemplatesPath != "" || cfg.Verbose {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("ANKEN_DB_PATH", "/env/projects.db")
	t.Setenv("ANKEN_CUSTOM_TEMPLATES_PATH", "/env/templates.yaml")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-templates", "/flag/templates.yaml", "-v"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "/env/projects.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.TemplatesPath != "/flag/templates.yaml" || !cfg.Verbose {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestRunSeedsCatalog(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "projects.db")
	templatesPath := filepath.Join(dir, "templates.yaml")
	yaml := "templates:\n  - name: Keys handover\n    icon: fas fa-key\n    display_order: 11\n    field_type: checkbox\n"
	if err := os.WriteFile(templatesPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}

	cfg := Config{DBPath: dbPath, TemplatesPath: templatesPath}
	var out strings.Builder
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "seeded template catalog (1 custom)") {
		t.Fatalf("output = %q", out.String())
	}

	// Reruns never duplicate.
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("rerun: %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	templates, err := store.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != len(domain.Catalog())+1 {
		t.Fatalf("templates = %d, want %d", len(templates), len(domain.Catalog())+1)
	}
}

func TestRunRejectsBadTemplatesFile(t *testing.T) {
	dir := t.TempDir()
	templatesPath := filepath.Join(dir, "templates.yaml")
	yaml := "templates:\n  - name: Completion\n    field_type: date\n"
	if err := os.WriteFile(templatesPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}

	err := Run(context.Background(), Config{
		DBPath:        filepath.Join(dir, "projects.db"),
		TemplatesPath: templatesPath,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "reserved") {
		t.Fatalf("err = %v", err)
	}
}
