package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpattn/annex-migrate/internal/domain"

	"github.com/xuri/excelize/v2"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// FileSpec describes one expected legacy export file. Legacy snapshots carry
// no header row; Columns names the fields positionally. Extra trailing fields
// are ignored and short rows are padded with empty values.
type FileSpec struct {
	Name    string
	Columns []string
	Comma   rune
}

// RowFunc receives each tokenized row in file order. tokenizeErr is non-nil
// when the physical line could not be parsed; the row then carries only file
// and line attribution and the caller is expected to record an
// unparseable_row stage error rather than skip silently.
type RowFunc func(row domain.SnapshotRow, tokenizeErr error)

// Reader locates and parses delimited legacy export files from a drop
// directory.
type Reader struct {
	dir string
}

func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Verify resolves every expected file up front so a missing input surfaces as
// a configuration error at startup, not mid-run.
func (r *Reader) Verify(specs []FileSpec) error {
	for _, spec := range specs {
		if _, err := r.locate(spec); err != nil {
			return err
		}
	}
	return nil
}

// Scan streams the file's rows through fn. Each call re-opens the file, so a
// restarted run re-reads from the beginning.
func (r *Reader) Scan(spec FileSpec, fn RowFunc) error {
	path, err := r.locate(spec)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return r.scanExcel(path, spec, fn)
	}
	return r.scanDelimited(path, spec, fn)
}

// locate tries the configured name first, then csv and xlsx variants of the
// same base name. Operators sometimes hand-correct a snapshot in a
// spreadsheet and drop the result back with a new extension.
func (r *Reader) locate(spec FileSpec) (string, error) {
	base := strings.TrimSuffix(spec.Name, filepath.Ext(spec.Name))
	candidates := []string{spec.Name, base + ".csv", base + ".xlsx"}
	for _, name := range candidates {
		path := filepath.Join(r.dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", domain.ErrSnapshotFileMissing, spec.Name, r.dir)
}

func (r *Reader) scanDelimited(path string, spec FileSpec, fn RowFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLegacyLines)

	comma := spec.Comma
	if comma == 0 {
		comma = ','
	}

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields, err := tokenizeLine(text, comma)
		if err != nil {
			fn(domain.SnapshotRow{File: spec.Name, Line: line, Values: map[string]string{"raw": text}}, err)
			continue
		}
		fn(makeRow(spec, line, fields), nil)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return nil
}

func (r *Reader) scanExcel(path string, spec FileSpec, fn RowFunc) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open xlsx snapshot %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx snapshot %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read rows from %s: %w", path, err)
	}

	for idx, fields := range rows {
		empty := true
		for _, cell := range fields {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		fn(makeRow(spec, idx+1, fields), nil)
	}
	return nil
}

// tokenizeLine parses one physical line in isolation so a single badly quoted
// row cannot poison the rest of the file. Legacy exports write one record per
// line; embedded newlines inside quotes do not occur.
func tokenizeLine(text string, comma rune) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	fields, err := reader.Read()
	if err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

func makeRow(spec FileSpec, line int, fields []string) domain.SnapshotRow {
	values := make(map[string]string, len(spec.Columns))
	for i, column := range spec.Columns {
		if i < len(fields) {
			values[column] = strings.TrimSpace(fields[i])
		} else {
			values[column] = ""
		}
	}
	return domain.SnapshotRow{File: spec.Name, Line: line, Values: values}
}

// scanLegacyLines splits on \n, \r\n, or a lone \r so exports with mixed line
// endings parse without dropped rows.
func scanLegacyLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// Need one more byte to decide between \r and \r\n.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
