package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rpattn/annex-migrate/internal/domain"
)

// Collector accumulates stage errors keyed by entity type for the duration of
// a run. Reports are purely diagnostic: they document unprocessable rows and
// say nothing about whether the migration as a whole succeeded.
type Collector struct {
	mu      sync.Mutex
	buckets map[domain.EntityType][]*domain.StageError
}

func NewCollector() *Collector {
	return &Collector{buckets: make(map[domain.EntityType][]*domain.StageError)}
}

// Add appends one stage error to its entity type's bucket. Safe for
// concurrent use by transform workers.
func (c *Collector) Add(stageErr *domain.StageError) {
	if stageErr == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[stageErr.EntityType] = append(c.buckets[stageErr.EntityType], stageErr)
}

// Count reports how many errors an entity type accumulated.
func (c *Collector) Count(entityType domain.EntityType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets[entityType])
}

// Errors returns the entity type's errors in source order.
func (c *Collector) Errors(entityType domain.EntityType) []*domain.StageError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.StageError, len(c.buckets[entityType]))
	copy(out, c.buckets[entityType])
	sortBySource(out)
	return out
}

// FlushStage writes the entity type's report file into dir and returns its
// path. A type with zero errors produces no file: absence, not an empty file,
// signals success. Rows are written in source order.
func (c *Collector) FlushStage(dir string, entityType domain.EntityType) (string, error) {
	errs := c.Errors(entityType)
	if len(errs) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_errors.csv", entityType))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"file", "line", "reason", "detail", "row"}); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, stageErr := range errs {
		record := []string{
			stageErr.File,
			strconv.Itoa(stageErr.Line),
			string(stageErr.Reason),
			stageErr.Detail,
			flattenRaw(stageErr.Raw),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report %s: %w", path, err)
	}
	return path, nil
}

// FlushAll writes one report per non-empty bucket and returns the paths.
func (c *Collector) FlushAll(dir string) ([]string, error) {
	c.mu.Lock()
	types := make([]domain.EntityType, 0, len(c.buckets))
	for entityType := range c.buckets {
		types = append(types, entityType)
	}
	c.mu.Unlock()

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var paths []string
	for _, entityType := range types {
		path, err := c.FlushStage(dir, entityType)
		if err != nil {
			return paths, err
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func sortBySource(errs []*domain.StageError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].File != errs[j].File {
			return errs[i].File < errs[j].File
		}
		return errs[i].Line < errs[j].Line
	})
}

// flattenRaw renders the raw row payload deterministically so investigators
// can diff reports across runs.
func flattenRaw(raw map[string]string) string {
	keys := make([]string, 0, len(raw))
	for key, value := range raw {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+raw[key])
	}
	return strings.Join(parts, "; ")
}

// WriteValues writes a single-column artifact file (used by the derivation
// jobs, e.g. removed barcode values). Nothing is written for an empty list.
func WriteValues(dir, filename, header string, values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{header}); err != nil {
		return "", fmt.Errorf("failed to write artifact header: %w", err)
	}
	for _, value := range values {
		if err := w.Write([]string{value}); err != nil {
			return "", fmt.Errorf("failed to write artifact row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush artifact %s: %w", path, err)
	}
	return path, nil
}
