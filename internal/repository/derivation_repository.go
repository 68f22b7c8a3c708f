package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/annex-migrate/internal/audit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// derivationRepository serves the post-load derivation jobs. Reads go to the
// pool directly; every write passes through the audit mutation boundary.
type derivationRepository struct {
	pool    *pgxpool.Pool
	mutator audit.Mutator
}

func NewDerivationRepository(pool *pgxpool.Pool, mutator audit.Mutator) DerivationRepository {
	return &derivationRepository{pool: pool, mutator: mutator}
}

func (r *derivationRepository) ShelfSpaces(ctx context.Context) ([]ShelfSpace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id,
		       st.max_capacity,
		       COUNT(DISTINCT t.id) + COUNT(DISTINCT nt.id) AS occupied,
		       s.available_space
		FROM shelves s
		JOIN shelf_types st ON st.id = s.shelf_type_id
		LEFT JOIN shelf_positions sp ON sp.shelf_id = s.id
		LEFT JOIN trays t ON t.shelf_position_id = sp.id
		LEFT JOIN non_tray_items nt ON nt.shelf_position_id = sp.id
		GROUP BY s.id, st.max_capacity, s.available_space
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shelf spaces: %w", err)
	}
	defer rows.Close()

	var spaces []ShelfSpace
	for rows.Next() {
		var space ShelfSpace
		if err := rows.Scan(&space.ShelfID, &space.MaxCapacity, &space.Occupied, &space.Available); err != nil {
			return nil, fmt.Errorf("failed to scan shelf space: %w", err)
		}
		spaces = append(spaces, space)
	}
	return spaces, rows.Err()
}

func (r *derivationRepository) SetAvailableSpace(ctx context.Context, shelfID int64, available int) error {
	return r.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE shelves SET available_space = $2, updated_at = now()
			 WHERE id = $1 AND available_space IS DISTINCT FROM $2`,
			shelfID, available)
		if err != nil {
			return fmt.Errorf("failed to update available space for shelf %d: %w", shelfID, err)
		}
		return nil
	})
}

func (r *derivationRepository) ShelfAddresses(ctx context.Context) ([]ShelfAddress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, b.name, m.module_number, a.number, so.name, l.number, s.number, COALESCE(s.location, '')
		FROM shelves s
		JOIN ladders l ON l.id = s.ladder_id
		JOIN sides sd ON sd.id = l.side_id
		JOIN side_orientations so ON so.id = sd.side_orientation_id
		JOIN aisles a ON a.id = sd.aisle_id
		JOIN modules m ON m.id = a.module_id
		JOIN buildings b ON b.id = m.building_id
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shelf addresses: %w", err)
	}
	defer rows.Close()

	var addresses []ShelfAddress
	for rows.Next() {
		var addr ShelfAddress
		if err := rows.Scan(&addr.ShelfID, &addr.Building, &addr.Module, &addr.Aisle,
			&addr.Orientation, &addr.Ladder, &addr.Shelf, &addr.Location); err != nil {
			return nil, fmt.Errorf("failed to scan shelf address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

func (r *derivationRepository) PositionAddresses(ctx context.Context) ([]PositionAddress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sp.id, sp.shelf_id, sp.number, COALESCE(sp.location, '')
		FROM shelf_positions sp
		ORDER BY sp.shelf_id, sp.number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query position addresses: %w", err)
	}
	defer rows.Close()

	var positions []PositionAddress
	for rows.Next() {
		var pos PositionAddress
		if err := rows.Scan(&pos.PositionID, &pos.ShelfID, &pos.Number, &pos.Location); err != nil {
			return nil, fmt.Errorf("failed to scan position address: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (r *derivationRepository) SetShelfLocation(ctx context.Context, shelfID int64, location string) error {
	return r.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE shelves SET location = $2, updated_at = now()
			 WHERE id = $1 AND location IS DISTINCT FROM $2`,
			shelfID, location)
		if err != nil {
			return fmt.Errorf("failed to update location for shelf %d: %w", shelfID, err)
		}
		return nil
	})
}

func (r *derivationRepository) SetPositionLocation(ctx context.Context, positionID int64, location string) error {
	return r.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE shelf_positions SET location = $2
			 WHERE id = $1 AND location IS DISTINCT FROM $2`,
			positionID, location)
		if err != nil {
			return fmt.Errorf("failed to update location for position %d: %w", positionID, err)
		}
		return nil
	})
}

func (r *derivationRepository) OrphanedBarcodes(ctx context.Context) ([]int64, []string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bc.id, bc.value
		FROM barcodes bc
		LEFT JOIN shelves s ON s.barcode_id = bc.id
		LEFT JOIN trays t ON t.barcode_id = bc.id
		LEFT JOIN items i ON i.barcode_id = bc.id
		LEFT JOIN non_tray_items nt ON nt.barcode_id = bc.id
		WHERE s.id IS NULL AND t.id IS NULL AND i.id IS NULL AND nt.id IS NULL
		ORDER BY bc.value`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query orphaned barcodes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var values []string
	for rows.Next() {
		var id int64
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, nil, fmt.Errorf("failed to scan orphaned barcode: %w", err)
		}
		ids = append(ids, id)
		values = append(values, value)
	}
	return ids, values, rows.Err()
}

func (r *derivationRepository) DeleteBarcodes(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.mutator.Mutate(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM barcodes WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("failed to delete barcodes: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}
