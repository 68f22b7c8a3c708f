package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/annex-migrate/internal/domain"
)

// Result is the outcome of transforming one snapshot row for one entity type.
// Exactly one of Records, Err, or Skip applies. Skip marks rows excluded by
// legacy business rules; they are not data errors and produce no report row.
type Result struct {
	Records []domain.Record
	Err     *domain.StageError
	Skip    bool
}

// Func maps one snapshot row to target records using only the resolution
// index for foreign key lookups. Implementations are pure: no stored state,
// no second read of the source.
type Func func(row domain.SnapshotRow, idx domain.IndexView) Result

// Registry holds the explicit per-entity-type mapping table. Reference
// vocabularies that the mapping itself needs (shelf type capacities) are
// captured at construction from fixture data.
type Registry struct {
	capacities map[string]int
	funcs      map[domain.EntityType]Func
}

// NewRegistry builds the mapping table. capacities maps a shelf type name to
// the number of shelf positions that type exposes.
func NewRegistry(capacities map[string]int) *Registry {
	r := &Registry{capacities: capacities}
	r.funcs = map[domain.EntityType]Func{
		domain.EntitySide:          r.side,
		domain.EntityLadder:        r.ladder,
		domain.EntityShelf:         r.shelf,
		domain.EntityShelfPosition: r.shelfPosition,
		domain.EntityTray:          r.tray,
		domain.EntityNonTrayItem:   r.nonTrayItem,
		domain.EntityItem:          r.item,
	}
	return r
}

// For returns the mapping for an entity type. An unknown type is a defect in
// the pipeline's configuration, not a data-quality condition.
func (r *Registry) For(entityType domain.EntityType) (Func, error) {
	fn, ok := r.funcs[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntityType, entityType)
	}
	return fn, nil
}

func errResult(entityType domain.EntityType, row domain.SnapshotRow, reason domain.ErrorReason, detail string) Result {
	return Result{Err: domain.NewStageError(entityType, row, reason, detail)}
}

func one(record domain.Record) Result {
	return Result{Records: []domain.Record{record}}
}

func src(row domain.SnapshotRow) domain.Source {
	return domain.Source{File: row.File, Line: row.Line}
}

// skipLocRow applies the legacy exclusions for loc.txt: aisle 99 and 370 are
// staging fictions, 500-599 is the decommissioned annex wing.
func skipLocRow(row domain.SnapshotRow) bool {
	aisle, err := coerceInt(row.Value("aisle_number"))
	if err != nil {
		return false
	}
	if aisle == 99 || aisle == 370 {
		return true
	}
	return aisle > 499 && aisle < 600
}

// skipLadder excludes ladders 81 and 96, which the legacy system used as
// overflow markers rather than physical ladders.
func skipLadder(row domain.SnapshotRow) bool {
	ladder, err := coerceInt(row.Value("ladder_number"))
	if err != nil {
		return false
	}
	return ladder == 81 || ladder == 96
}

// SideKey is the resolution-index key for one aisle side.
func SideKey(aisle int, orientation string) string {
	return fmt.Sprintf("%d|%s", aisle, orientation)
}

// LadderKey is the resolution-index key for one ladder on a side.
func LadderKey(aisle int, orientation string, ladder int) string {
	return fmt.Sprintf("%d|%s|%d", aisle, orientation, ladder)
}

// PositionKey is the resolution-index key for one shelf position, shared by
// the position stage and the container stages that resolve placements.
func PositionKey(shelfBarcode string, number int) string {
	return fmt.Sprintf("%s|%d", shelfBarcode, number)
}

func (r *Registry) side(row domain.SnapshotRow, idx domain.IndexView) Result {
	if skipLocRow(row) {
		return Result{Skip: true}
	}

	orientation := normalizeOrientation(row.Value("side_orientation"))
	if orientation == "" {
		return errResult(domain.EntitySide, row, domain.ReasonRequiredFieldMissing, "side_orientation is empty")
	}
	rawAisle := row.Value("aisle_number")
	if rawAisle == "" {
		return errResult(domain.EntitySide, row, domain.ReasonRequiredFieldMissing, "aisle_number is empty")
	}
	aisle, err := coerceInt(rawAisle)
	if err != nil {
		return errResult(domain.EntitySide, row, domain.ReasonTypeCoercionFailed, err.Error())
	}

	aisleID, ok := idx.Resolve(domain.EntityAisle, strconv.Itoa(aisle))
	if !ok {
		return errResult(domain.EntitySide, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("aisle %d not in resolution index", aisle))
	}
	orientationID, ok := idx.Resolve(domain.EntitySideOrientation, orientation)
	if !ok {
		return errResult(domain.EntitySide, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("side orientation %s not in resolution index", orientation))
	}

	return one(domain.Side{
		Key:           SideKey(aisle, orientation),
		AisleID:       aisleID,
		OrientationID: orientationID,
		Src:           src(row),
	})
}

func (r *Registry) ladder(row domain.SnapshotRow, idx domain.IndexView) Result {
	if skipLocRow(row) || skipLadder(row) {
		return Result{Skip: true}
	}

	rawLadder := row.Value("ladder_number")
	if rawLadder == "" {
		return errResult(domain.EntityLadder, row, domain.ReasonRequiredFieldMissing, "ladder_number is empty")
	}
	ladder, err := coerceInt(rawLadder)
	if err != nil {
		return errResult(domain.EntityLadder, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	aisle, err := coerceInt(row.Value("aisle_number"))
	if err != nil {
		return errResult(domain.EntityLadder, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	orientation := normalizeOrientation(row.Value("side_orientation"))

	sideID, ok := idx.Resolve(domain.EntitySide, SideKey(aisle, orientation))
	if !ok {
		return errResult(domain.EntityLadder, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("side %s not in resolution index", SideKey(aisle, orientation)))
	}

	return one(domain.Ladder{
		Key:    LadderKey(aisle, orientation, ladder),
		SideID: sideID,
		Number: ladder,
		Src:    src(row),
	})
}

func (r *Registry) shelf(row domain.SnapshotRow, idx domain.IndexView) Result {
	if skipLocRow(row) || skipLadder(row) {
		return Result{Skip: true}
	}

	barcode := row.Value("shelf_barcode")
	if barcode == "" {
		return errResult(domain.EntityShelf, row, domain.ReasonRequiredFieldMissing, "shelf_barcode is empty")
	}
	// Shelf barcodes are five or six digits; shorter tokens lost leading
	// zeroes in the export.
	barcode = padBarcode(barcode, 5)

	number, err := coerceInt(row.Value("shelf_number"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	if number < 1 {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, fmt.Sprintf("shelf_number %d is invalid", number))
	}

	height, err := coerceFloat(row.Value("shelf_height"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	width, err := coerceFloat(row.Value("shelf_width"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	depth, err := coerceFloat(row.Value("shelf_depth"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}

	aisle, err := coerceInt(row.Value("aisle_number"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	ladder, err := coerceInt(row.Value("ladder_number"))
	if err != nil {
		return errResult(domain.EntityShelf, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	orientation := normalizeOrientation(row.Value("side_orientation"))

	ladderID, ok := idx.Resolve(domain.EntityLadder, LadderKey(aisle, orientation, ladder))
	if !ok {
		return errResult(domain.EntityShelf, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("ladder %s not in resolution index", LadderKey(aisle, orientation, ladder)))
	}

	owner := normalizeOwner(row.Value("owner"))
	if owner == "" {
		return errResult(domain.EntityShelf, row, domain.ReasonRequiredFieldMissing, "owner is empty")
	}
	ownerID, ok := idx.Resolve(domain.EntityOwner, owner)
	if !ok {
		return errResult(domain.EntityShelf, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("owner %s not in resolution index", owner))
	}

	shelfType := row.Value("shelf_type")
	if shelfType == "" {
		return errResult(domain.EntityShelf, row, domain.ReasonRequiredFieldMissing, "shelf_type is empty")
	}
	shelfTypeID, ok := idx.Resolve(domain.EntityShelfType, shelfType)
	if !ok {
		return errResult(domain.EntityShelf, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("shelf type %s not in resolution index", shelfType))
	}

	containerType := row.Value("container_type")
	if containerType == "" {
		return errResult(domain.EntityShelf, row, domain.ReasonRequiredFieldMissing, "container_type is empty")
	}
	containerTypeID, ok := idx.Resolve(domain.EntityContainerType, containerType)
	if !ok {
		return errResult(domain.EntityShelf, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("container type %s not in resolution index", containerType))
	}

	return one(domain.Shelf{
		Barcode:         barcode,
		LadderID:        ladderID,
		OwnerID:         ownerID,
		ShelfTypeID:     shelfTypeID,
		ContainerTypeID: containerTypeID,
		Number:          number,
		Height:          height,
		Width:           width,
		Depth:           depth,
		Src:             src(row),
	})
}

func (r *Registry) shelfPosition(row domain.SnapshotRow, idx domain.IndexView) Result {
	if skipLocRow(row) || skipLadder(row) {
		return Result{Skip: true}
	}

	barcode := row.Value("shelf_barcode")
	if barcode == "" {
		return errResult(domain.EntityShelfPosition, row, domain.ReasonRequiredFieldMissing, "shelf_barcode is empty")
	}
	barcode = padBarcode(barcode, 5)
	shelfID, ok := idx.Resolve(domain.EntityShelf, barcode)
	if !ok {
		return errResult(domain.EntityShelfPosition, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("shelf %s not in resolution index", barcode))
	}

	shelfType := row.Value("shelf_type")
	capacity, ok := r.capacities[shelfType]
	if !ok {
		return errResult(domain.EntityShelfPosition, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("no capacity known for shelf type %q", shelfType))
	}

	records := make([]domain.Record, 0, capacity)
	for n := 1; n <= capacity; n++ {
		records = append(records, domain.ShelfPosition{
			Key:     PositionKey(barcode, n),
			ShelfID: shelfID,
			Number:  n,
			Src:     src(row),
		})
	}
	return Result{Records: records}
}

// containerDates pulls the optional accession and shelved dates from a
// tray.txt row. Bad values fail the row; empty and ? values stay null.
func containerDates(row domain.SnapshotRow) (*time.Time, *time.Time, error) {
	accession, err := optionalDate(row.Value("accession_date"))
	if err != nil {
		return nil, nil, err
	}
	shelved, err := optionalDate(row.Value("shelved_date"))
	if err != nil {
		return nil, nil, err
	}
	return accession, shelved, nil
}

func (r *Registry) resolvePlacement(entityType domain.EntityType, row domain.SnapshotRow, idx domain.IndexView) (int64, *domain.StageError) {
	shelfBarcode := row.Value("shelf_barcode")
	if shelfBarcode == "" {
		return 0, domain.NewStageError(entityType, row, domain.ReasonRequiredFieldMissing, "shelf_barcode is empty")
	}
	// The container export pads shelf references to six digits.
	shelfBarcode = padBarcode(shelfBarcode, 6)
	position, err := coerceInt(row.Value("shelf_position_number"))
	if err != nil {
		return 0, domain.NewStageError(entityType, row, domain.ReasonTypeCoercionFailed, err.Error())
	}
	positionID, ok := idx.Resolve(domain.EntityShelfPosition, PositionKey(shelfBarcode, position))
	if !ok {
		return 0, domain.NewStageError(entityType, row, domain.ReasonForeignKeyUnresolved,
			fmt.Sprintf("shelf position %s not in resolution index", PositionKey(shelfBarcode, position)))
	}
	return positionID, nil
}

func (r *Registry) containerCommon(entityType domain.EntityType, row domain.SnapshotRow, idx domain.IndexView) (ownerID, sizeClassID, mediaTypeID int64, stageErr *domain.StageError) {
	owner := normalizeOwner(row.Value("owner"))
	if owner == "" {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonRequiredFieldMissing, "owner is empty")
	}
	ownerID, ok := idx.Resolve(domain.EntityOwner, owner)
	if !ok {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("owner %s not in resolution index", owner))
	}

	sizeClass := row.Value("size_class")
	if entityType == domain.EntityNonTrayItem {
		// The legacy export does not size non-tray items; the NT class is a
		// placeholder pending measurement.
		sizeClass = "NT"
	}
	if sizeClass == "" {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonRequiredFieldMissing, "size_class is empty")
	}
	sizeClassID, ok = idx.Resolve(domain.EntitySizeClass, sizeClass)
	if !ok {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("size class %s not in resolution index", sizeClass))
	}

	mediaType := normalizeMediaType(row.Value("media_type"))
	if mediaType == "" {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonRequiredFieldMissing, "media_type is empty")
	}
	mediaTypeID, ok = idx.Resolve(domain.EntityMediaType, mediaType)
	if !ok {
		return 0, 0, 0, domain.NewStageError(entityType, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("media type %s not in resolution index", mediaType))
	}

	return ownerID, sizeClassID, mediaTypeID, nil
}

func (r *Registry) tray(row domain.SnapshotRow, idx domain.IndexView) Result {
	barcode := row.Value("tray_barcode")
	if barcode == "" {
		return errResult(domain.EntityTray, row, domain.ReasonRequiredFieldMissing, "tray_barcode is empty")
	}
	// A leading T marks a non-tray entry in the same export.
	if strings.HasPrefix(barcode, "T") {
		return Result{Skip: true}
	}

	ownerID, sizeClassID, mediaTypeID, stageErr := r.containerCommon(domain.EntityTray, row, idx)
	if stageErr != nil {
		return Result{Err: stageErr}
	}
	positionID, stageErr := r.resolvePlacement(domain.EntityTray, row, idx)
	if stageErr != nil {
		return Result{Err: stageErr}
	}
	accession, shelved, err := containerDates(row)
	if err != nil {
		return errResult(domain.EntityTray, row, domain.ReasonTypeCoercionFailed, err.Error())
	}

	return one(domain.Tray{
		Barcode:         barcode,
		OwnerID:         ownerID,
		SizeClassID:     sizeClassID,
		MediaTypeID:     mediaTypeID,
		ShelfPositionID: positionID,
		AccessionDate:   accession,
		ShelvedDate:     shelved,
		Src:             src(row),
	})
}

func (r *Registry) nonTrayItem(row domain.SnapshotRow, idx domain.IndexView) Result {
	barcode := row.Value("tray_barcode")
	if barcode == "" {
		return errResult(domain.EntityNonTrayItem, row, domain.ReasonRequiredFieldMissing, "tray_barcode is empty")
	}
	if !strings.HasPrefix(barcode, "T") {
		return Result{Skip: true}
	}
	// T0000000 is the legacy placeholder for "no container", not a real item.
	if barcode == "T0000000" {
		return Result{Skip: true}
	}
	// Non-tray items store under item barcode rules: the leading T moves to
	// the end and the digits left-pad to ten.
	barcode = padBarcode(strings.TrimPrefix(barcode, "T"), 10) + "T"

	ownerID, sizeClassID, mediaTypeID, stageErr := r.containerCommon(domain.EntityNonTrayItem, row, idx)
	if stageErr != nil {
		return Result{Err: stageErr}
	}
	positionID, stageErr := r.resolvePlacement(domain.EntityNonTrayItem, row, idx)
	if stageErr != nil {
		return Result{Err: stageErr}
	}
	accession, shelved, err := containerDates(row)
	if err != nil {
		return errResult(domain.EntityNonTrayItem, row, domain.ReasonTypeCoercionFailed, err.Error())
	}

	return one(domain.NonTrayItem{
		Barcode:         barcode,
		OwnerID:         ownerID,
		SizeClassID:     sizeClassID,
		MediaTypeID:     mediaTypeID,
		ShelfPositionID: positionID,
		AccessionDate:   accession,
		ShelvedDate:     shelved,
		Src:             src(row),
	})
}

var nonAlnum = func(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

func (r *Registry) item(row domain.SnapshotRow, idx domain.IndexView) Result {
	barcode := row.Value("item_barcode")
	if barcode == "" {
		return errResult(domain.EntityItem, row, domain.ReasonRequiredFieldMissing, "item_barcode is empty")
	}
	if strings.IndexFunc(barcode, nonAlnum) >= 0 {
		return errResult(domain.EntityItem, row, domain.ReasonTypeCoercionFailed, "non alphanumeric characters in barcode")
	}

	container := row.Value("container_barcode")
	if container == "" {
		return errResult(domain.EntityItem, row, domain.ReasonRequiredFieldMissing, "container_barcode is empty")
	}
	// Non-tray entries were already migrated from the container export.
	if strings.HasPrefix(container, "T") {
		return Result{Skip: true}
	}

	trayID, ok := idx.Resolve(domain.EntityTray, container)
	if !ok {
		return errResult(domain.EntityItem, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("tray %s not in resolution index", container))
	}

	owner := normalizeOwner(row.Value("owner"))
	if owner == "" {
		return errResult(domain.EntityItem, row, domain.ReasonRequiredFieldMissing, "owner is empty")
	}
	ownerID, ok := idx.Resolve(domain.EntityOwner, owner)
	if !ok {
		return errResult(domain.EntityItem, row, domain.ReasonForeignKeyUnresolved, fmt.Sprintf("owner %s not in resolution index", owner))
	}

	accession, err := optionalDate(row.Value("accession_date"))
	if err != nil {
		return errResult(domain.EntityItem, row, domain.ReasonTypeCoercionFailed, err.Error())
	}

	return one(domain.Item{
		Barcode:       barcode,
		TrayID:        trayID,
		OwnerID:       ownerID,
		Status:        "In",
		AccessionDate: accession,
		Src:           src(row),
	})
}
