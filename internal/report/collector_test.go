package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpattn/annex-migrate/internal/domain"
)

func stageError(file string, line int, reason domain.ErrorReason) *domain.StageError {
	return &domain.StageError{
		EntityType: domain.EntitySide,
		File:       file,
		Line:       line,
		Reason:     reason,
		Detail:     "detail",
		Raw:        map[string]string{"aisle_number": "14", "legacy_00": ""},
	}
}

func TestFlushStageWritesNothingWithoutErrors(t *testing.T) {
	dir := t.TempDir()
	collector := NewCollector()

	path, err := collector.FlushStage(dir, domain.EntitySide)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no report path, got %q", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "side_errors.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no report file to exist")
	}
}

func TestFlushStageWritesSourceOrderedRows(t *testing.T) {
	dir := t.TempDir()
	collector := NewCollector()
	collector.Add(stageError("loc.txt", 9, domain.ReasonForeignKeyUnresolved))
	collector.Add(stageError("loc.txt", 2, domain.ReasonTypeCoercionFailed))

	path, err := collector.FlushStage(dir, domain.EntitySide)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if filepath.Base(path) != "side_errors.csv" {
		t.Fatalf("unexpected report name %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "file" || rows[0][4] != "row" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "2" || rows[2][1] != "9" {
		t.Fatalf("expected source order, got lines %s then %s", rows[1][1], rows[2][1])
	}
	if rows[1][4] != "aisle_number=14" {
		t.Fatalf("expected empty raw values dropped, got %q", rows[1][4])
	}
}

func TestFlushAllSkipsEmptyBuckets(t *testing.T) {
	dir := t.TempDir()
	collector := NewCollector()
	collector.Add(stageError("loc.txt", 1, domain.ReasonUnparseableRow))
	collector.Add(&domain.StageError{EntityType: domain.EntityItem, File: "item.txt", Line: 3, Reason: domain.ReasonRequiredFieldMissing})

	paths, err := collector.FlushAll(dir)
	if err != nil {
		t.Fatalf("flush all: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 reports, got %v", paths)
	}
}

func TestWriteValues(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteValues(dir, "orphaned_barcodes.csv", "barcode", nil)
	if err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no artifact for empty list")
	}

	path, err = WriteValues(dir, "orphaned_barcodes.csv", "barcode", []string{"39001", "T12345"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "39001" {
		t.Fatalf("unexpected artifact rows: %v", rows)
	}
}
