package domain

import "sync"

// IndexView is the read side of the resolution index handed to transformers.
// A lookup miss for a required foreign key routes the row to the error
// collector; it never produces a null reference in the target store.
type IndexView interface {
	Resolve(entityType EntityType, legacyKey string) (int64, bool)
}

// Index maps legacy identifiers to newly assigned target identifiers, scoped
// per entity type and per run. It is passed explicitly through the pipeline
// rather than held as process state so runs stay deterministic and tests can
// run in parallel.
type Index struct {
	mu      sync.RWMutex
	entries map[EntityType]map[string]int64
}

func NewIndex() *Index {
	return &Index{entries: make(map[EntityType]map[string]int64)}
}

// Register records the target id assigned to a legacy key. Called by the
// loader only after the row is durably inserted.
func (i *Index) Register(entityType EntityType, legacyKey string, id int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	byKey, ok := i.entries[entityType]
	if !ok {
		byKey = make(map[string]int64)
		i.entries[entityType] = byKey
	}
	byKey[legacyKey] = id
}

// Resolve looks up the target id for a legacy key.
func (i *Index) Resolve(entityType EntityType, legacyKey string) (int64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.entries[entityType][legacyKey]
	return id, ok
}

// Count reports how many legacy keys are registered for an entity type.
func (i *Index) Count(entityType EntityType) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries[entityType])
}
