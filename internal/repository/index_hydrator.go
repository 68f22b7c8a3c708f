package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/annex-migrate/internal/domain"
	"github.com/rpattn/annex-migrate/internal/fixture"
	"github.com/rpattn/annex-migrate/internal/transform"
)

// IndexHydrator rebuilds the resolution index from rows already in the target
// database. A full run starts from an empty index and never needs it; a
// single-stage invocation does, because the ids its dependencies assigned
// live only in the database by then.
type IndexHydrator struct {
	pool *pgxpool.Pool
}

func NewIndexHydrator(pool *pgxpool.Pool) *IndexHydrator {
	return &IndexHydrator{pool: pool}
}

// Hydrate registers the legacy key of every loaded row for the given entity
// types.
func (h *IndexHydrator) Hydrate(ctx context.Context, idx *domain.Index, entityTypes []domain.EntityType) error {
	for _, entityType := range entityTypes {
		if err := h.hydrateOne(ctx, idx, entityType); err != nil {
			return fmt.Errorf("hydrate %s: %w", entityType, err)
		}
	}
	return nil
}

func (h *IndexHydrator) hydrateOne(ctx context.Context, idx *domain.Index, entityType domain.EntityType) error {
	switch entityType {
	case domain.EntityOwner:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, name FROM owners`)
	case domain.EntityBarcodeType:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, name FROM barcode_types`)
	case domain.EntityContainerType:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, type FROM container_types`)
	case domain.EntitySizeClass:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, short_name FROM size_classes`)
	case domain.EntityShelfType:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, type FROM shelf_types`)
	case domain.EntityMediaType:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, name FROM media_types`)
	case domain.EntitySideOrientation:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, name FROM side_orientations`)
	case domain.EntityBuilding:
		return h.scanKeyed(ctx, idx, entityType, `SELECT id, name FROM buildings`)
	case domain.EntityModule:
		return h.scan(ctx, entityType, `
			SELECT m.id, b.name, m.module_number
			FROM modules m
			JOIN buildings b ON b.id = m.building_id`,
			func(id int64, cols []string) {
				idx.Register(entityType, fixture.ModuleKey(cols[0], cols[1]), id)
			})
	case domain.EntityAisle:
		return h.scan(ctx, entityType, `SELECT id, number::text FROM aisles`,
			func(id int64, cols []string) {
				idx.Register(entityType, cols[0], id)
			})
	case domain.EntitySide:
		return h.scan(ctx, entityType, `
			SELECT s.id, a.number::text, so.name
			FROM sides s
			JOIN aisles a ON a.id = s.aisle_id
			JOIN side_orientations so ON so.id = s.side_orientation_id`,
			func(id int64, cols []string) {
				aisle, _ := strconv.Atoi(cols[0])
				idx.Register(entityType, transform.SideKey(aisle, cols[1]), id)
			})
	case domain.EntityLadder:
		return h.scan(ctx, entityType, `
			SELECT l.id, a.number::text, so.name, l.number::text
			FROM ladders l
			JOIN sides s ON s.id = l.side_id
			JOIN aisles a ON a.id = s.aisle_id
			JOIN side_orientations so ON so.id = s.side_orientation_id`,
			func(id int64, cols []string) {
				aisle, _ := strconv.Atoi(cols[0])
				ladder, _ := strconv.Atoi(cols[2])
				idx.Register(entityType, transform.LadderKey(aisle, cols[1], ladder), id)
			})
	case domain.EntityShelf:
		return h.scan(ctx, entityType, `
			SELECT sh.id, b.value
			FROM shelves sh
			JOIN barcodes b ON b.id = sh.barcode_id`,
			func(id int64, cols []string) {
				idx.Register(entityType, cols[0], id)
			})
	case domain.EntityShelfPosition:
		return h.scan(ctx, entityType, `
			SELECT sp.id, b.value, sp.number::text
			FROM shelf_positions sp
			JOIN shelves sh ON sh.id = sp.shelf_id
			JOIN barcodes b ON b.id = sh.barcode_id`,
			func(id int64, cols []string) {
				number, _ := strconv.Atoi(cols[1])
				idx.Register(entityType, transform.PositionKey(cols[0], number), id)
			})
	case domain.EntityTray:
		return h.scan(ctx, entityType, `
			SELECT t.id, b.value
			FROM trays t
			JOIN barcodes b ON b.id = t.barcode_id`,
			func(id int64, cols []string) {
				idx.Register(entityType, cols[0], id)
			})
	case domain.EntityNonTrayItem:
		return h.scan(ctx, entityType, `
			SELECT n.id, b.value
			FROM non_tray_items n
			JOIN barcodes b ON b.id = n.barcode_id`,
			func(id int64, cols []string) {
				idx.Register(entityType, cols[0], id)
			})
	case domain.EntityItem:
		return h.scan(ctx, entityType, `
			SELECT i.id, b.value
			FROM items i
			JOIN barcodes b ON b.id = i.barcode_id`,
			func(id int64, cols []string) {
				idx.Register(entityType, cols[0], id)
			})
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownEntityType, entityType)
}

func (h *IndexHydrator) scanKeyed(ctx context.Context, idx *domain.Index, entityType domain.EntityType, query string) error {
	return h.scan(ctx, entityType, query, func(id int64, cols []string) {
		idx.Register(entityType, cols[0], id)
	})
}

func (h *IndexHydrator) scan(ctx context.Context, entityType domain.EntityType, query string, register func(id int64, cols []string)) error {
	rows, err := h.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s keys: %w", entityType, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	for rows.Next() {
		values := make([]any, len(fields))
		var id int64
		values[0] = &id
		cols := make([]string, len(fields)-1)
		for i := range cols {
			values[i+1] = &cols[i]
		}
		if err := rows.Scan(values...); err != nil {
			return fmt.Errorf("scan %s key row: %w", entityType, err)
		}
		register(id, cols)
	}
	return rows.Err()
}
