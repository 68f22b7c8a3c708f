package repository

import (
	"context"

	"github.com/rpattn/annex-migrate/internal/domain"
)

// InsertResult pairs a record's legacy key with the target id the store
// assigned (or already held, on an idempotent re-run).
type InsertResult struct {
	LegacyKey string
	ID        int64
}

// EntityWriter persists transformed records. Both methods run inside audited
// transactions; InsertBatch is all-or-nothing so the loader can degrade a
// failed batch to per-row retries.
type EntityWriter interface {
	InsertBatch(ctx context.Context, records []domain.Record) ([]InsertResult, error)
	InsertOne(ctx context.Context, record domain.Record) (InsertResult, error)
}

// ShelfSpace is one shelf's capacity picture used by the space derivation.
type ShelfSpace struct {
	ShelfID     int64
	MaxCapacity int
	Occupied    int
	Available   int
}

// ShelfAddress is the ancestry chain a shelf's location string derives from.
type ShelfAddress struct {
	ShelfID     int64
	Building    string
	Module      string
	Aisle       int
	Orientation string
	Ladder      int
	Shelf       int
	Location    string
}

// PositionAddress pairs a shelf position with its current location string.
type PositionAddress struct {
	PositionID int64
	ShelfID    int64
	Number     int
	Location   string
}

// DerivationRepository exposes the reads and audited writes the post-load
// derivation jobs need.
type DerivationRepository interface {
	ShelfSpaces(ctx context.Context) ([]ShelfSpace, error)
	SetAvailableSpace(ctx context.Context, shelfID int64, available int) error

	ShelfAddresses(ctx context.Context) ([]ShelfAddress, error)
	PositionAddresses(ctx context.Context) ([]PositionAddress, error)
	SetShelfLocation(ctx context.Context, shelfID int64, location string) error
	SetPositionLocation(ctx context.Context, positionID int64, location string) error

	OrphanedBarcodes(ctx context.Context) (ids []int64, values []string, err error)
	DeleteBarcodes(ctx context.Context, ids []int64) (int64, error)
}
