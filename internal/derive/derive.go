package derive

import (
	"context"
	"fmt"

	"github.com/rpattn/annex-migrate/internal/report"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/sirupsen/logrus"
)

// Jobs are the post-load derivations. Each job is idempotent and reads the
// database rather than migration state, so any job can be re-run on its own
// after the load finished.
type Jobs struct {
	repo      repository.DerivationRepository
	reportDir string
	log       logrus.FieldLogger
}

func NewJobs(repo repository.DerivationRepository, reportDir string, log logrus.FieldLogger) *Jobs {
	return &Jobs{repo: repo, reportDir: reportDir, log: log}
}

// Names of the invocable jobs, in their conventional run order.
const (
	JobSpace          = "space"
	JobAddressing     = "addressing"
	JobBarcodeCleanup = "barcode-cleanup"
)

// Run dispatches one job by name.
func (j *Jobs) Run(ctx context.Context, name string) error {
	switch name {
	case JobSpace:
		return j.Space(ctx)
	case JobAddressing:
		return j.Addressing(ctx)
	case JobBarcodeCleanup:
		return j.BarcodeCleanup(ctx)
	}
	return fmt.Errorf("unknown derivation job %q", name)
}

// RunAll executes every job in order.
func (j *Jobs) RunAll(ctx context.Context) error {
	for _, name := range []string{JobSpace, JobAddressing, JobBarcodeCleanup} {
		if err := j.Run(ctx, name); err != nil {
			return fmt.Errorf("derivation %s: %w", name, err)
		}
	}
	return nil
}

// Space recomputes each shelf's available space from its type capacity and
// the containers occupying its positions. Only shelves whose stored value
// drifted are written.
func (j *Jobs) Space(ctx context.Context) error {
	spaces, err := j.repo.ShelfSpaces(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for _, space := range spaces {
		available := space.MaxCapacity - space.Occupied
		if available < 0 {
			// Over-capacity means the legacy data placed more containers on a
			// shelf than its type allows; record zero rather than negative.
			j.log.WithFields(logrus.Fields{
				"shelf_id": space.ShelfID,
				"occupied": space.Occupied,
				"capacity": space.MaxCapacity,
			}).Warn("shelf occupied beyond type capacity")
			available = 0
		}
		if available == space.Available {
			continue
		}
		if err := j.repo.SetAvailableSpace(ctx, space.ShelfID, available); err != nil {
			return fmt.Errorf("shelf %d: %w", space.ShelfID, err)
		}
		updated++
	}

	j.log.WithFields(logrus.Fields{"shelves": len(spaces), "updated": updated}).Info("space derivation finished")
	return nil
}

// Addressing renders each shelf's human-readable location from its ancestry
// chain, then each position's from its shelf, e.g.
// "Annex B, Module 2, Aisle 14, Side R, Ladder 3, Shelf 5".
func (j *Jobs) Addressing(ctx context.Context) error {
	shelves, err := j.repo.ShelfAddresses(ctx)
	if err != nil {
		return err
	}

	locations := make(map[int64]string, len(shelves))
	shelfUpdates := 0
	for _, shelf := range shelves {
		location := shelfLocation(shelf)
		locations[shelf.ShelfID] = location
		if location == shelf.Location {
			continue
		}
		if err := j.repo.SetShelfLocation(ctx, shelf.ShelfID, location); err != nil {
			return fmt.Errorf("shelf %d: %w", shelf.ShelfID, err)
		}
		shelfUpdates++
	}

	positions, err := j.repo.PositionAddresses(ctx)
	if err != nil {
		return err
	}
	positionUpdates := 0
	for _, position := range positions {
		base, ok := locations[position.ShelfID]
		if !ok {
			continue
		}
		location := fmt.Sprintf("%s, Position %d", base, position.Number)
		if location == position.Location {
			continue
		}
		if err := j.repo.SetPositionLocation(ctx, position.PositionID, location); err != nil {
			return fmt.Errorf("position %d: %w", position.PositionID, err)
		}
		positionUpdates++
	}

	j.log.WithFields(logrus.Fields{
		"shelves":   shelfUpdates,
		"positions": positionUpdates,
	}).Info("addressing derivation finished")
	return nil
}

func shelfLocation(shelf repository.ShelfAddress) string {
	return fmt.Sprintf("%s, Module %s, Aisle %d, Side %s, Ladder %d, Shelf %d",
		shelf.Building, shelf.Module, shelf.Aisle, shelf.Orientation, shelf.Ladder, shelf.Shelf)
}

// BarcodeCleanup deletes barcode rows no shelf, tray, item, or non-tray item
// references and writes the removed values to a report for review. Running it
// again with nothing orphaned produces no report.
func (j *Jobs) BarcodeCleanup(ctx context.Context) error {
	ids, values, err := j.repo.OrphanedBarcodes(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		j.log.Info("no orphaned barcodes")
		return nil
	}

	deleted, err := j.repo.DeleteBarcodes(ctx, ids)
	if err != nil {
		return err
	}

	path, err := report.WriteValues(j.reportDir, "orphaned_barcodes.csv", "barcode", values)
	if err != nil {
		return err
	}
	j.log.WithFields(logrus.Fields{"deleted": deleted, "report": path}).Info("barcode cleanup finished")
	return nil
}
