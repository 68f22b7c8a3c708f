package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/annex-migrate/internal/audit"
	"github.com/rpattn/annex-migrate/internal/domain"

	"github.com/jackc/pgx/v5"
)

// Barcode type vocabulary, seeded from the barcode_types fixture.
const (
	barcodeTypeShelf   = "Shelf"
	barcodeTypeTray    = "Tray"
	barcodeTypeItem    = "Item"
	barcodeTypeNonTray = "Non-Tray"
)

// entityWriter persists records through the audit mutation boundary, one
// transaction per batch. Every insert is idempotent: a natural-key conflict
// resolves to the existing row's id instead of a duplicate.
type entityWriter struct {
	mutator audit.Mutator
	idx     domain.IndexView
}

// NewEntityWriter creates the writer. idx resolves reference vocabulary ids
// (barcode types) that the insert statements need.
func NewEntityWriter(mutator audit.Mutator, idx domain.IndexView) EntityWriter {
	return &entityWriter{mutator: mutator, idx: idx}
}

func (w *entityWriter) InsertBatch(ctx context.Context, records []domain.Record) ([]InsertResult, error) {
	results := make([]InsertResult, 0, len(records))
	err := w.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		for _, record := range records {
			id, err := w.insert(ctx, tx, record)
			if err != nil {
				return fmt.Errorf("insert %s %s: %w", record.Entity(), record.LegacyKey(), err)
			}
			results = append(results, InsertResult{LegacyKey: record.LegacyKey(), ID: id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (w *entityWriter) InsertOne(ctx context.Context, record domain.Record) (InsertResult, error) {
	var result InsertResult
	err := w.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		id, err := w.insert(ctx, tx, record)
		if err != nil {
			return err
		}
		result = InsertResult{LegacyKey: record.LegacyKey(), ID: id}
		return nil
	})
	return result, err
}

// upsert runs an ON CONFLICT DO NOTHING insert and falls back to the natural
// key select when the row already exists.
func upsert(ctx context.Context, tx pgx.Tx, insertSQL string, insertArgs []any, selectSQL string, selectArgs []any) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err := tx.QueryRow(ctx, selectSQL, selectArgs...).Scan(&id); err != nil {
		return 0, fmt.Errorf("conflict row lookup failed: %w", err)
	}
	return id, nil
}

// ensureBarcode creates (or finds) the barcode row an entity references.
func (w *entityWriter) ensureBarcode(ctx context.Context, tx pgx.Tx, value, typeName string) (int64, error) {
	typeID, ok := w.idx.Resolve(domain.EntityBarcodeType, typeName)
	if !ok {
		return 0, fmt.Errorf("barcode type %s not in resolution index", typeName)
	}
	return upsert(ctx, tx,
		`INSERT INTO barcodes (value, type_id) VALUES ($1, $2)
		 ON CONFLICT (value) DO NOTHING RETURNING id`,
		[]any{value, typeID},
		`SELECT id FROM barcodes WHERE value = $1`,
		[]any{value},
	)
}

func (w *entityWriter) insert(ctx context.Context, tx pgx.Tx, record domain.Record) (int64, error) {
	switch r := record.(type) {
	case domain.Owner:
		return upsert(ctx, tx,
			`INSERT INTO owners (name, tier) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING RETURNING id`,
			[]any{r.Name, r.Tier},
			`SELECT id FROM owners WHERE name = $1`, []any{r.Name})

	case domain.BarcodeType:
		return upsert(ctx, tx,
			`INSERT INTO barcode_types (name) VALUES ($1)
			 ON CONFLICT (name) DO NOTHING RETURNING id`,
			[]any{r.Name},
			`SELECT id FROM barcode_types WHERE name = $1`, []any{r.Name})

	case domain.ContainerType:
		return upsert(ctx, tx,
			`INSERT INTO container_types (type) VALUES ($1)
			 ON CONFLICT (type) DO NOTHING RETURNING id`,
			[]any{r.Type},
			`SELECT id FROM container_types WHERE type = $1`, []any{r.Type})

	case domain.SizeClass:
		return upsert(ctx, tx,
			`INSERT INTO size_classes (name, short_name, height, width, depth) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (short_name) DO NOTHING RETURNING id`,
			[]any{r.Name, r.ShortName, r.Height, r.Width, r.Depth},
			`SELECT id FROM size_classes WHERE short_name = $1`, []any{r.ShortName})

	case domain.ShelfType:
		return upsert(ctx, tx,
			`INSERT INTO shelf_types (type, max_capacity) VALUES ($1, $2)
			 ON CONFLICT (type) DO NOTHING RETURNING id`,
			[]any{r.Type, r.MaxCapacity},
			`SELECT id FROM shelf_types WHERE type = $1`, []any{r.Type})

	case domain.MediaType:
		return upsert(ctx, tx,
			`INSERT INTO media_types (name) VALUES ($1)
			 ON CONFLICT (name) DO NOTHING RETURNING id`,
			[]any{r.Name},
			`SELECT id FROM media_types WHERE name = $1`, []any{r.Name})

	case domain.Building:
		return upsert(ctx, tx,
			`INSERT INTO buildings (name) VALUES ($1)
			 ON CONFLICT (name) DO NOTHING RETURNING id`,
			[]any{r.Name},
			`SELECT id FROM buildings WHERE name = $1`, []any{r.Name})

	case domain.Module:
		return upsert(ctx, tx,
			`INSERT INTO modules (building_id, module_number) VALUES ($1, $2)
			 ON CONFLICT (building_id, module_number) DO NOTHING RETURNING id`,
			[]any{r.BuildingID, r.Number},
			`SELECT id FROM modules WHERE building_id = $1 AND module_number = $2`,
			[]any{r.BuildingID, r.Number})

	case domain.Aisle:
		return upsert(ctx, tx,
			`INSERT INTO aisles (module_id, number) VALUES ($1, $2)
			 ON CONFLICT (number) DO NOTHING RETURNING id`,
			[]any{r.ModuleID, r.Number},
			`SELECT id FROM aisles WHERE number = $1`, []any{r.Number})

	case domain.SideOrientation:
		return upsert(ctx, tx,
			`INSERT INTO side_orientations (name) VALUES ($1)
			 ON CONFLICT (name) DO NOTHING RETURNING id`,
			[]any{r.Name},
			`SELECT id FROM side_orientations WHERE name = $1`, []any{r.Name})

	case domain.Side:
		return upsert(ctx, tx,
			`INSERT INTO sides (aisle_id, side_orientation_id) VALUES ($1, $2)
			 ON CONFLICT (aisle_id, side_orientation_id) DO NOTHING RETURNING id`,
			[]any{r.AisleID, r.OrientationID},
			`SELECT id FROM sides WHERE aisle_id = $1 AND side_orientation_id = $2`,
			[]any{r.AisleID, r.OrientationID})

	case domain.Ladder:
		return upsert(ctx, tx,
			`INSERT INTO ladders (side_id, number) VALUES ($1, $2)
			 ON CONFLICT (side_id, number) DO NOTHING RETURNING id`,
			[]any{r.SideID, r.Number},
			`SELECT id FROM ladders WHERE side_id = $1 AND number = $2`,
			[]any{r.SideID, r.Number})

	case domain.Shelf:
		barcodeID, err := w.ensureBarcode(ctx, tx, r.Barcode, barcodeTypeShelf)
		if err != nil {
			return 0, err
		}
		return upsert(ctx, tx,
			`INSERT INTO shelves (ladder_id, owner_id, shelf_type_id, container_type_id, barcode_id, number, height, width, depth)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (barcode_id) DO NOTHING RETURNING id`,
			[]any{r.LadderID, r.OwnerID, r.ShelfTypeID, r.ContainerTypeID, barcodeID, r.Number, r.Height, r.Width, r.Depth},
			`SELECT id FROM shelves WHERE barcode_id = $1`, []any{barcodeID})

	case domain.ShelfPosition:
		return upsert(ctx, tx,
			`INSERT INTO shelf_positions (shelf_id, number) VALUES ($1, $2)
			 ON CONFLICT (shelf_id, number) DO NOTHING RETURNING id`,
			[]any{r.ShelfID, r.Number},
			`SELECT id FROM shelf_positions WHERE shelf_id = $1 AND number = $2`,
			[]any{r.ShelfID, r.Number})

	case domain.Tray:
		barcodeID, err := w.ensureBarcode(ctx, tx, r.Barcode, barcodeTypeTray)
		if err != nil {
			return 0, err
		}
		return upsert(ctx, tx,
			`INSERT INTO trays (barcode_id, owner_id, size_class_id, media_type_id, shelf_position_id, accession_dt, shelved_dt)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (barcode_id) DO NOTHING RETURNING id`,
			[]any{barcodeID, r.OwnerID, r.SizeClassID, r.MediaTypeID, r.ShelfPositionID, r.AccessionDate, r.ShelvedDate},
			`SELECT id FROM trays WHERE barcode_id = $1`, []any{barcodeID})

	case domain.NonTrayItem:
		// Non-tray barcodes carry item barcode form and take the Item type.
		barcodeID, err := w.ensureBarcode(ctx, tx, r.Barcode, barcodeTypeItem)
		if err != nil {
			return 0, err
		}
		return upsert(ctx, tx,
			`INSERT INTO non_tray_items (barcode_id, owner_id, size_class_id, media_type_id, shelf_position_id, accession_dt, shelved_dt)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (barcode_id) DO NOTHING RETURNING id`,
			[]any{barcodeID, r.OwnerID, r.SizeClassID, r.MediaTypeID, r.ShelfPositionID, r.AccessionDate, r.ShelvedDate},
			`SELECT id FROM non_tray_items WHERE barcode_id = $1`, []any{barcodeID})

	case domain.Item:
		barcodeID, err := w.ensureBarcode(ctx, tx, r.Barcode, barcodeTypeItem)
		if err != nil {
			return 0, err
		}
		return upsert(ctx, tx,
			`INSERT INTO items (barcode_id, tray_id, owner_id, status, accession_dt)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (barcode_id) DO NOTHING RETURNING id`,
			[]any{barcodeID, r.TrayID, r.OwnerID, r.Status, r.AccessionDate},
			`SELECT id FROM items WHERE barcode_id = $1`, []any{barcodeID})

	default:
		return 0, fmt.Errorf("%w: %T", domain.ErrUnknownEntityType, record)
	}
}
