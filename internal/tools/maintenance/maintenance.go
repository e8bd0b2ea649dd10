// Package maintenance recomputes the derived stage caches of stored
// projects. Cached stages drift as calendar days pass, because a scheduled
// date crossing "today" changes the derivation without any write happening.
package maintenance

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/kensetsu-cloud/anken/internal/platform/config"
	"github.com/kensetsu-cloud/anken/internal/projects/service"
	"github.com/kensetsu-cloud/anken/internal/projects/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath     string
	ProjectID  string
	DryRun     bool
	JSONOutput bool
	Timeout    time.Duration
}

type envConfig struct {
	DBPath  string        `env:"ANKEN_DB_PATH"`
	Timeout time.Duration `env:"ANKEN_MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := config.ParseEnv(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:  envCfg.DBPath,
		Timeout: envCfg.Timeout,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "projects.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to projects sqlite database (default: ANKEN_DB_PATH or data/projects.db)")
	fs.StringVar(&cfg.ProjectID, "project-id", "", "recompute a single project (default: all)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "derive stages without writing the cache")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output a JSON report")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// reportRow records one project's recompute outcome.
type reportRow struct {
	ProjectID     string `json:"project_id"`
	OldStage      string `json:"old_stage"`
	NewStage      string `json:"new_stage"`
	NewColor      string `json:"new_color"`
	PriorityScore int    `json:"priority_score"`
	Changed       bool   `json:"changed"`
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close store: %v\n", closeErr)
		}
	}()

	svc := service.New(store)

	var projectIDs []string
	if strings.TrimSpace(cfg.ProjectID) != "" {
		projectIDs = []string{strings.TrimSpace(cfg.ProjectID)}
	} else {
		projectIDs, err = svc.ListProjectIDs(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
	}

	rows, err := recomputeStages(ctx, svc, projectIDs, cfg.DryRun)
	if err != nil {
		return err
	}

	if cfg.JSONOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}
	changed := 0
	for _, row := range rows {
		if !row.Changed {
			continue
		}
		changed++
		fmt.Fprintf(out, "%s: %q -> %q (%s, score %d)\n",
			row.ProjectID, row.OldStage, row.NewStage, row.NewColor, row.PriorityScore)
	}
	verb := "updated"
	if cfg.DryRun {
		verb = "would update"
	}
	fmt.Fprintf(out, "%d of %d projects %s\n", changed, len(rows), verb)
	return nil
}

// recomputeStages derives each project's stage and, unless dryRun, writes the
// cache columns.
func recomputeStages(ctx context.Context, svc *service.Service, projectIDs []string, dryRun bool) ([]reportRow, error) {
	rows := make([]reportRow, 0, len(projectIDs))
	for _, projectID := range projectIDs {
		old, err := svc.GetProject(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", projectID, err)
		}

		derive := svc.RecomputeAndCacheStage
		if dryRun {
			derive = svc.DeriveStageAndScore
		}
		stage, score, err := derive(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", projectID, err)
		}

		rows = append(rows, reportRow{
			ProjectID:     projectID,
			OldStage:      old.CurrentStage,
			NewStage:      stage.Label,
			NewColor:      string(stage.Color),
			PriorityScore: score,
			Changed:       stage.Label != old.CurrentStage || score != old.PriorityScore,
		})
	}
	return rows, nil
}
