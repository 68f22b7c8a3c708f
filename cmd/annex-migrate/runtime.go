package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rpattn/annex-migrate/internal/audit"
	"github.com/rpattn/annex-migrate/internal/config"
	"github.com/rpattn/annex-migrate/internal/db"
	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/fixture"
	"github.com/rpattn/annex-migrate/internal/loader"
	"github.com/rpattn/annex-migrate/internal/pipeline"
	"github.com/rpattn/annex-migrate/internal/report"
	"github.com/rpattn/annex-migrate/internal/repository"
	"github.com/rpattn/annex-migrate/internal/snapshot"
	"github.com/rpattn/annex-migrate/internal/transform"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runtime bundles the shared wiring every database-touching subcommand needs.
// Every log line carries the run id so interleaved runs stay attributable.
type runtime struct {
	cfg       config.Config
	runID     string
	log       logrus.FieldLogger
	conn      *db.Connection
	runner    *audit.Runner
	index     *domain.Index
	collector *report.Collector
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(configPath)
}

func openRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	runID := uuid.NewString()
	return &runtime{
		cfg:       cfg,
		runID:     runID,
		log:       newLogger().WithField("run_id", runID),
		conn:      conn,
		runner:    audit.NewRunner(conn, cfg.ServiceIdentity),
		index:     domain.NewIndex(),
		collector: report.NewCollector(),
	}, nil
}

func (r *runtime) close() {
	r.conn.Close()
}

// buildPipeline loads the fixture set and assembles the staged pipeline on
// top of the runtime's shared index and collector.
func (r *runtime) buildPipeline() (*pipeline.Pipeline, *fixture.Set, error) {
	fixtures, err := fixture.Load(r.cfg.FixtureDir)
	if err != nil {
		return nil, nil, err
	}

	reader := snapshot.NewReader(r.cfg.SnapshotDir)
	registry := transform.NewRegistry(fixtures.Capacities())
	writer := repository.NewEntityWriter(r.runner, r.index)
	ldr := loader.New(writer, r.index, r.collector, r.cfg.BatchSize, r.log)

	p := pipeline.New(reader, fixtures, registry, ldr, r.index, r.collector,
		r.cfg.ReportDir, r.cfg.Workers, r.log)
	return p, fixtures, nil
}

func printSummaries(log logrus.FieldLogger, summaries []pipeline.StageSummary) {
	for _, summary := range summaries {
		fields := logrus.Fields{
			"rows":     summary.Rows,
			"inserted": summary.Inserted,
			"skipped":  summary.Skipped,
			"failed":   summary.Failed,
			"errors":   summary.Errors,
			"status":   string(summary.Status),
		}
		if summary.ReportPath != "" {
			fields["report"] = summary.ReportPath
		}
		log.WithField("stage", string(summary.EntityType)).WithFields(fields).Info("stage summary")
	}
}
