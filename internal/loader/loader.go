package loader

import (
	"context"
	"fmt"

	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/report"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/sirupsen/logrus"
)

// Stats summarizes one stage's load.
type Stats struct {
	Inserted int
	Skipped  int
	Failed   int
}

// Loader performs ordered, batched insertion for one run. Newly assigned ids
// are registered in the resolution index before the next stage starts, which
// is the barrier later stages rely on for foreign key resolution.
type Loader struct {
	writer    repository.EntityWriter
	index     *domain.Index
	collector *report.Collector
	batchSize int
	log       logrus.FieldLogger
}

func New(writer repository.EntityWriter, index *domain.Index, collector *report.Collector, batchSize int, log logrus.FieldLogger) *Loader {
	if batchSize < 1 {
		batchSize = 1000
	}
	return &Loader{
		writer:    writer,
		index:     index,
		collector: collector,
		batchSize: batchSize,
		log:       log,
	}
}

// Load inserts the stage's records in batches. A batch-level failure degrades
// to per-row retry so one bad row does not void an otherwise valid batch; a
// row that fails in isolation becomes a constraint_violation stage error and
// never enters the resolution index. Records whose legacy key is already
// registered are skipped, which makes restarted runs idempotent and collapses
// the heavy key repetition in the location export.
func (l *Loader) Load(ctx context.Context, entityType domain.EntityType, records []domain.Record) (Stats, error) {
	var stats Stats

	batch := make([]domain.Record, 0, l.batchSize)
	pending := make(map[string]bool, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		l.loadBatch(ctx, entityType, batch, &stats)
		batch = batch[:0]
		clear(pending)
		return ctx.Err()
	}

	for _, record := range records {
		if record.Entity() != entityType {
			return stats, fmt.Errorf("record %s routed to %s stage", record.Entity(), entityType)
		}
		key := record.LegacyKey()
		if _, ok := l.index.Resolve(entityType, key); ok {
			stats.Skipped++
			continue
		}
		if pending[key] {
			stats.Skipped++
			continue
		}
		pending[key] = true
		batch = append(batch, record)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (l *Loader) loadBatch(ctx context.Context, entityType domain.EntityType, batch []domain.Record, stats *Stats) {
	results, err := l.writer.InsertBatch(ctx, batch)
	if err == nil {
		for _, result := range results {
			l.index.Register(entityType, result.LegacyKey, result.ID)
		}
		stats.Inserted += len(results)
		return
	}

	l.log.WithError(err).WithField("stage", entityType).
		Warnf("batch of %d degraded to per-row retry", len(batch))

	for _, record := range batch {
		result, err := l.writer.InsertOne(ctx, record)
		if err != nil {
			stats.Failed++
			l.collector.Add(l.rowError(entityType, record, err))
			continue
		}
		l.index.Register(entityType, result.LegacyKey, result.ID)
		stats.Inserted++
	}
}

func (l *Loader) rowError(entityType domain.EntityType, record domain.Record, cause error) *domain.StageError {
	src := record.Origin()
	return &domain.StageError{
		EntityType: entityType,
		File:       src.File,
		Line:       src.Line,
		Reason:     domain.ReasonConstraintViolation,
		Detail:     cause.Error(),
		Raw:        map[string]string{"legacy_key": record.LegacyKey()},
	}
}
