package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/report"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/sirupsen/logrus"
)

type stubWriter struct {
	nextID    int64
	failBatch bool
	failKeys  map[string]bool
	batches   int
	singles   int
}

func (w *stubWriter) InsertBatch(ctx context.Context, records []domain.Record) ([]repository.InsertResult, error) {
	w.batches++
	if w.failBatch {
		return nil, errors.New("batch rejected")
	}
	for _, record := range records {
		if w.failKeys[record.LegacyKey()] {
			return nil, errors.New("batch rejected")
		}
	}
	results := make([]repository.InsertResult, 0, len(records))
	for _, record := range records {
		w.nextID++
		results = append(results, repository.InsertResult{LegacyKey: record.LegacyKey(), ID: w.nextID})
	}
	return results, nil
}

func (w *stubWriter) InsertOne(ctx context.Context, record domain.Record) (repository.InsertResult, error) {
	w.singles++
	if w.failKeys[record.LegacyKey()] {
		return repository.InsertResult{}, errors.New("value too long")
	}
	w.nextID++
	return repository.InsertResult{LegacyKey: record.LegacyKey(), ID: w.nextID}, nil
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func owners(names ...string) []domain.Record {
	records := make([]domain.Record, 0, len(names))
	for i, name := range names {
		records = append(records, domain.Owner{Name: name, Src: domain.Source{File: "owners.json", Line: i + 1}})
	}
	return records
}

func TestLoadRegistersIDs(t *testing.T) {
	writer := &stubWriter{}
	index := domain.NewIndex()
	collector := report.NewCollector()
	l := New(writer, index, collector, 10, quietLogger())

	stats, err := l.Load(context.Background(), domain.EntityOwner, owners("LC", "UC", "Annex"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Inserted != 3 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, ok := index.Resolve(domain.EntityOwner, "UC"); !ok {
		t.Fatalf("expected UC to be registered")
	}
}

func TestLoadSkipsAlreadyRegisteredAndDuplicateKeys(t *testing.T) {
	writer := &stubWriter{}
	index := domain.NewIndex()
	index.Register(domain.EntityOwner, "LC", 42)
	l := New(writer, index, report.NewCollector(), 10, quietLogger())

	stats, err := l.Load(context.Background(), domain.EntityOwner, owners("LC", "UC", "UC"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Inserted != 1 || stats.Skipped != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if id, _ := index.Resolve(domain.EntityOwner, "LC"); id != 42 {
		t.Fatalf("existing id must not be reassigned, got %d", id)
	}
}

func TestLoadDegradesFailedBatchToRows(t *testing.T) {
	writer := &stubWriter{failKeys: map[string]bool{"UC": true}}
	index := domain.NewIndex()
	collector := report.NewCollector()
	l := New(writer, index, collector, 10, quietLogger())

	stats, err := l.Load(context.Background(), domain.EntityOwner, owners("LC", "UC", "Annex"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Inserted != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if writer.singles != 3 {
		t.Fatalf("expected per-row retry of the whole batch, got %d singles", writer.singles)
	}
	if _, ok := index.Resolve(domain.EntityOwner, "UC"); ok {
		t.Fatalf("failed row must not enter the index")
	}

	errs := collector.Errors(domain.EntityOwner)
	if len(errs) != 1 {
		t.Fatalf("expected 1 collected error, got %d", len(errs))
	}
	if errs[0].Reason != domain.ReasonConstraintViolation {
		t.Fatalf("expected constraint_violation, got %s", errs[0].Reason)
	}
	if errs[0].Raw["legacy_key"] != "UC" {
		t.Fatalf("expected legacy key attribution, got %+v", errs[0].Raw)
	}
}

func TestLoadBatchBoundaries(t *testing.T) {
	writer := &stubWriter{}
	l := New(writer, domain.NewIndex(), report.NewCollector(), 2, quietLogger())

	stats, err := l.Load(context.Background(), domain.EntityOwner, owners("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Inserted != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if writer.batches != 3 {
		t.Fatalf("expected 3 batches at size 2, got %d", writer.batches)
	}
}

func TestLoadRejectsMisroutedRecord(t *testing.T) {
	l := New(&stubWriter{}, domain.NewIndex(), report.NewCollector(), 10, quietLogger())
	_, err := l.Load(context.Background(), domain.EntityTray, owners("LC"))
	if err == nil {
		t.Fatalf("expected routing error")
	}
}
