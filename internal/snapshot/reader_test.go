package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpattn/annex-migrate/internal/domain"

	"github.com/xuri/excelize/v2"
)

func writeSnapshot(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

func collectRows(t *testing.T, reader *Reader, spec FileSpec) ([]domain.SnapshotRow, []int) {
	t.Helper()
	var rows []domain.SnapshotRow
	var badLines []int
	err := reader.Scan(spec, func(row domain.SnapshotRow, tokenizeErr error) {
		if tokenizeErr != nil {
			badLines = append(badLines, row.Line)
			return
		}
		rows = append(rows, row)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return rows, badLines
}

func TestVerifyMissingFile(t *testing.T) {
	reader := NewReader(t.TempDir())
	err := reader.Verify(ExpectedFiles)
	if !errors.Is(err, domain.ErrSnapshotFileMissing) {
		t.Fatalf("expected ErrSnapshotFileMissing, got %v", err)
	}
}

func TestScanPositionalColumns(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "LC,31000001,39002,2019-03-07\n")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode", "container_barcode", "accession_date"}}
	rows, bad := collectRows(t, NewReader(dir), spec)
	if len(bad) != 0 {
		t.Fatalf("unexpected tokenize failures on lines %v", bad)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Value("item_barcode") != "31000001" || rows[0].Value("owner") != "LC" {
		t.Fatalf("unexpected values: %+v", rows[0].Values)
	}
}

func TestScanPadsShortRowsAndIgnoresExtras(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "LC,31000001\nLC,31000002,39002,2019-03-07,extra,extra2\n")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode", "container_barcode", "accession_date"}}
	rows, _ := collectRows(t, NewReader(dir), spec)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Value("container_barcode") != "" {
		t.Fatalf("expected short row to pad missing columns")
	}
	if got := len(rows[1].Values); got != len(spec.Columns) {
		t.Fatalf("expected extra fields to be dropped, got %d values", got)
	}
}

func TestScanMixedLineEndingsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "a,1\r\nb,2\rc,3\n\n   \nd,4")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode"}}
	rows, _ := collectRows(t, NewReader(dir), spec)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[3].Value("owner") != "d" {
		t.Fatalf("expected final unterminated line to parse, got %+v", rows[3].Values)
	}
}

func TestScanStripsByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "\xEF\xBB\xBFLC,31000001\n")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode"}}
	rows, _ := collectRows(t, NewReader(dir), spec)
	if len(rows) != 1 || rows[0].Value("owner") != "LC" {
		t.Fatalf("expected BOM to be stripped, got %+v", rows)
	}
}

func TestScanReportsBadRowWithoutAbortingFile(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "LC,31000001\nLC,31\"0002,39002\nLC,31000003\n")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode", "container_barcode"}}
	rows, bad := collectRows(t, NewReader(dir), spec)
	if len(rows) != 2 {
		t.Fatalf("expected the 2 good rows to survive, got %d", len(rows))
	}
	if len(bad) != 1 || bad[0] != 2 {
		t.Fatalf("expected line 2 to fail tokenizing, got %v", bad)
	}
}

func TestLocateFallsBackToCSVVariant(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "loc.csv", "A,3\n")

	spec := FileSpec{Name: "loc.txt", Columns: []string{"side_orientation", "ladder_number"}}
	reader := NewReader(dir)
	if err := reader.Verify([]FileSpec{spec}); err != nil {
		t.Fatalf("expected csv variant to satisfy verify: %v", err)
	}
	rows, _ := collectRows(t, reader, spec)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row from csv variant, got %d", len(rows))
	}
	// Attribution keeps the canonical name so reports stay stable.
	if rows[0].File != "loc.txt" {
		t.Fatalf("expected canonical file attribution, got %s", rows[0].File)
	}
}

func TestScanReadsXLSXVariant(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"LC", "31000001", "39002"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A3", &[]any{"LC", "31000002"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SaveAs(filepath.Join(dir, "items.xlsx")); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode", "container_barcode"}}
	reader := NewReader(dir)
	if err := reader.Verify([]FileSpec{spec}); err != nil {
		t.Fatalf("expected xlsx variant to satisfy verify: %v", err)
	}

	rows, bad := collectRows(t, reader, spec)
	if len(bad) != 0 {
		t.Fatalf("unexpected tokenize failures on lines %v", bad)
	}
	if len(rows) != 2 {
		t.Fatalf("expected the blank sheet row to drop, got %d rows", len(rows))
	}
	if rows[0].Value("item_barcode") != "31000001" || rows[0].Value("container_barcode") != "39002" {
		t.Fatalf("unexpected first row: %+v", rows[0].Values)
	}
	if rows[1].Line != 3 {
		t.Fatalf("expected sheet row attribution, got line %d", rows[1].Line)
	}
	if rows[1].Value("container_barcode") != "" {
		t.Fatalf("expected short sheet row to pad missing columns")
	}
	if rows[0].File != "items.txt" {
		t.Fatalf("expected canonical file attribution, got %s", rows[0].File)
	}
}

func TestScanRestartsFromTheTop(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "items.txt", "a,1\nb,2\n")

	spec := FileSpec{Name: "items.txt", Columns: []string{"owner", "item_barcode"}}
	reader := NewReader(dir)
	first, _ := collectRows(t, reader, spec)
	second, _ := collectRows(t, reader, spec)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both scans to see every row, got %d then %d", len(first), len(second))
	}
}
