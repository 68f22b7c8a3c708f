package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/fixture"
	"github.com/rpattn/annex-migrate/internal/loader"
	"github.com/rpattn/annex-migrate/internal/report"
	"github.com/rpattn/annex-migrate/internal/snapshot"
	"github.com/rpattn/annex-migrate/internal/transform"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// StageSummary records the outcome of one stage for logging and for the run
// summary the CLI prints.
type StageSummary struct {
	EntityType domain.EntityType
	Status     domain.StageStatus
	Rows       int
	Inserted   int
	Skipped    int
	Failed     int
	Errors     int
	ReportPath string
}

// Pipeline drives the staged migration: fixture stages first, then the
// snapshot stages in foreign key order. Each stage finishes, registers its
// ids in the resolution index, and flushes its error report before the next
// stage starts.
type Pipeline struct {
	reader    *snapshot.Reader
	fixtures  *fixture.Set
	registry  *transform.Registry
	loader    *loader.Loader
	index     *domain.Index
	collector *report.Collector
	reportDir string
	workers   int
	log       logrus.FieldLogger

	statuses     map[domain.EntityType]domain.StageStatus
	tokenizeSeen map[string]bool
}

func New(reader *snapshot.Reader, fixtures *fixture.Set, registry *transform.Registry,
	ldr *loader.Loader, index *domain.Index, collector *report.Collector,
	reportDir string, workers int, log logrus.FieldLogger) *Pipeline {
	if workers < 1 {
		workers = 4
	}
	statuses := make(map[domain.EntityType]domain.StageStatus, len(domain.LoadOrder))
	for _, entityType := range domain.LoadOrder {
		statuses[entityType] = domain.StagePending
	}
	return &Pipeline{
		reader:       reader,
		fixtures:     fixtures,
		registry:     registry,
		loader:       ldr,
		index:        index,
		collector:    collector,
		reportDir:    reportDir,
		workers:      workers,
		log:          log,
		statuses:     statuses,
		tokenizeSeen: make(map[string]bool),
	}
}

// Status reports the stage's current lifecycle state.
func (p *Pipeline) Status(entityType domain.EntityType) domain.StageStatus {
	return p.statuses[entityType]
}

// Run executes every stage in load order. All three snapshot files are
// verified up front; a missing file aborts before any write. Stage errors do
// not stop the run, but a stage that cannot read its input or reach the
// database does.
func (p *Pipeline) Run(ctx context.Context) ([]StageSummary, error) {
	if err := p.reader.Verify(snapshot.ExpectedFiles); err != nil {
		return nil, err
	}

	summaries := make([]StageSummary, 0, len(domain.LoadOrder))
	for _, entityType := range domain.LoadOrder {
		summary, err := p.RunStage(ctx, entityType)
		if err != nil {
			return summaries, fmt.Errorf("stage %s: %w", entityType, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RunStage executes a single stage. Callers invoking a stage in isolation
// must have hydrated the resolution index with the ids its dependencies
// assigned, otherwise every row fails foreign key resolution.
func (p *Pipeline) RunStage(ctx context.Context, entityType domain.EntityType) (StageSummary, error) {
	p.statuses[entityType] = domain.StageLoading
	log := p.log.WithField("stage", string(entityType))
	log.Info("stage started")

	records, rows, err := p.stageRecords(ctx, entityType)
	if err != nil {
		return StageSummary{EntityType: entityType}, err
	}
	if rows == 0 && isSnapshotSourced(entityType) {
		log.Warn("snapshot file contains no rows")
	}

	stats, err := p.loader.Load(ctx, entityType, records)
	if err != nil {
		return StageSummary{EntityType: entityType}, err
	}

	reportPath, err := p.collector.FlushStage(p.reportDir, entityType)
	if err != nil {
		return StageSummary{EntityType: entityType}, err
	}

	summary := StageSummary{
		EntityType: entityType,
		Rows:       rows,
		Inserted:   stats.Inserted,
		Skipped:    stats.Skipped,
		Failed:     stats.Failed,
		Errors:     p.collector.Count(entityType),
		ReportPath: reportPath,
	}
	if summary.Errors > 0 {
		summary.Status = domain.StagePartiallyLoaded
	} else {
		summary.Status = domain.StageLoaded
	}
	p.statuses[entityType] = summary.Status

	log.WithFields(logrus.Fields{
		"rows":     summary.Rows,
		"inserted": summary.Inserted,
		"skipped":  summary.Skipped,
		"errors":   summary.Errors,
		"status":   string(summary.Status),
	}).Info("stage finished")
	return summary, nil
}

func (p *Pipeline) stageRecords(ctx context.Context, entityType domain.EntityType) ([]domain.Record, int, error) {
	if spec, ok := specFor(entityType); ok {
		return p.transformSnapshot(ctx, entityType, spec)
	}
	records, err := p.fixtures.Records(entityType, p.index)
	if err != nil {
		return nil, 0, err
	}
	return records, len(records), nil
}

// transformSnapshot reads the stage's file and maps every row concurrently.
// Results are collected by row position so record order, and therefore id
// assignment, stays deterministic regardless of worker scheduling.
func (p *Pipeline) transformSnapshot(ctx context.Context, entityType domain.EntityType, spec snapshot.FileSpec) ([]domain.Record, int, error) {
	fn, err := p.registry.For(entityType)
	if err != nil {
		return nil, 0, err
	}

	// loc.txt feeds four stages; a line that fails tokenization is reported
	// once, against the first stage that reads the file.
	firstScan := !p.tokenizeSeen[spec.Name]

	var rows []domain.SnapshotRow
	scanErr := p.reader.Scan(spec, func(row domain.SnapshotRow, tokenizeErr error) {
		if tokenizeErr != nil {
			if firstScan {
				p.collector.Add(domain.NewStageError(entityType, row, domain.ReasonUnparseableRow, tokenizeErr.Error()))
			}
			return
		}
		rows = append(rows, row)
	})
	if scanErr != nil {
		return nil, 0, scanErr
	}
	p.tokenizeSeen[spec.Name] = true

	results := make([]transform.Result, len(rows))
	var next atomic.Int64
	group, _ := errgroup.WithContext(ctx)
	for w := 0; w < p.workers; w++ {
		group.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= len(rows) {
					return nil
				}
				results[i] = fn(rows[i], p.index)
			}
		})
	}
	if err := group.Wait(); err != nil {
		return nil, len(rows), err
	}

	var records []domain.Record
	for _, result := range results {
		switch {
		case result.Err != nil:
			p.collector.Add(result.Err)
		case result.Skip:
		default:
			records = append(records, result.Records...)
		}
	}
	return records, len(rows), nil
}

func specFor(entityType domain.EntityType) (snapshot.FileSpec, bool) {
	switch entityType {
	case domain.EntitySide, domain.EntityLadder, domain.EntityShelf, domain.EntityShelfPosition:
		return snapshot.LocationFile, true
	case domain.EntityTray, domain.EntityNonTrayItem:
		return snapshot.TrayFile, true
	case domain.EntityItem:
		return snapshot.ItemFile, true
	}
	return snapshot.FileSpec{}, false
}

func isSnapshotSourced(entityType domain.EntityType) bool {
	_, ok := specFor(entityType)
	return ok
}
