package transform

import (
	"testing"

	"github.com/rpattn/annex-migrate/internal/domain"
)

func locRow(line int, values map[string]string) domain.SnapshotRow {
	return domain.SnapshotRow{File: "loc.txt", Line: line, Values: values}
}

func preparedIndex() *domain.Index {
	idx := domain.NewIndex()
	idx.Register(domain.EntityAisle, "14", 100)
	idx.Register(domain.EntitySideOrientation, "R", 5)
	idx.Register(domain.EntitySide, SideKey(14, "R"), 200)
	idx.Register(domain.EntityLadder, LadderKey(14, "R", 3), 300)
	idx.Register(domain.EntityOwner, "LC", 1)
	idx.Register(domain.EntityShelfType, "Standard", 7)
	idx.Register(domain.EntityContainerType, "Tray", 8)
	idx.Register(domain.EntityShelf, "SH0001", 400)
	idx.Register(domain.EntitySizeClass, "B", 9)
	idx.Register(domain.EntitySizeClass, "NT", 10)
	idx.Register(domain.EntityMediaType, "Book", 11)
	idx.Register(domain.EntityShelfPosition, PositionKey("SH0001", 2), 500)
	idx.Register(domain.EntityTray, "39002", 600)
	return idx
}

func TestSideTransform(t *testing.T) {
	registry := NewRegistry(nil)
	fn, err := registry.For(domain.EntitySide)
	if err != nil {
		t.Fatalf("side mapping missing: %v", err)
	}

	result := fn(locRow(4, map[string]string{
		"aisle_number":     "14",
		"side_orientation": "r",
	}), preparedIndex())
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}

	side, ok := result.Records[0].(domain.Side)
	if !ok {
		t.Fatalf("expected Side record, got %T", result.Records[0])
	}
	if side.AisleID != 100 || side.OrientationID != 5 {
		t.Fatalf("unexpected foreign keys: %+v", side)
	}
	if side.LegacyKey() != "14|R" {
		t.Fatalf("expected orientation upper-cased in key, got %q", side.LegacyKey())
	}
}

func TestSideTransformUnresolvedAisle(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntitySide)

	result := fn(locRow(9, map[string]string{
		"aisle_number":     "77",
		"side_orientation": "L",
	}), preparedIndex())
	if result.Err == nil {
		t.Fatalf("expected foreign key error")
	}
	if result.Err.Reason != domain.ReasonForeignKeyUnresolved {
		t.Fatalf("expected foreign_key_unresolved, got %s", result.Err.Reason)
	}
	if result.Err.Line != 9 {
		t.Fatalf("expected line 9 attribution, got %d", result.Err.Line)
	}
}

func TestSideTransformFoldsLegacyMarkers(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntitySide)

	for _, marker := range []string{"M", "W", "m"} {
		result := fn(locRow(4, map[string]string{
			"aisle_number":     "14",
			"side_orientation": marker,
		}), preparedIndex())
		if result.Err != nil {
			t.Fatalf("marker %s: unexpected error %+v", marker, result.Err)
		}
		side := result.Records[0].(domain.Side)
		if side.OrientationID != 5 || side.LegacyKey() != "14|R" {
			t.Fatalf("marker %s did not fold to R: %+v", marker, side)
		}
	}
}

func TestLocSkipRules(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntitySide)

	for _, aisle := range []string{"99", "370", "500", "542", "599"} {
		result := fn(locRow(1, map[string]string{
			"aisle_number":     aisle,
			"side_orientation": "L",
		}), preparedIndex())
		if !result.Skip {
			t.Fatalf("expected aisle %s to be skipped", aisle)
		}
	}

	ladderFn, _ := registry.For(domain.EntityLadder)
	for _, ladder := range []string{"81", "96"} {
		result := ladderFn(locRow(1, map[string]string{
			"aisle_number":     "14",
			"side_orientation": "R",
			"ladder_number":    ladder,
		}), preparedIndex())
		if !result.Skip {
			t.Fatalf("expected ladder %s to be skipped", ladder)
		}
	}
}

func TestShelfTransformNormalizesOwner(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntityShelf)

	result := fn(locRow(2, map[string]string{
		"aisle_number":     "14",
		"side_orientation": "R",
		"ladder_number":    "3",
		"shelf_number":     "5",
		"shelf_barcode":    "SH0001",
		"shelf_height":     "12.5",
		"shelf_width":      "30",
		"shelf_depth":      "18",
		"owner":            "lc",
		"shelf_type":       "Standard",
		"container_type":   "Tray",
	}), preparedIndex())
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}

	shelf := result.Records[0].(domain.Shelf)
	if shelf.OwnerID != 1 {
		t.Fatalf("expected lc to normalize to LC (owner 1), got %d", shelf.OwnerID)
	}
	if shelf.LadderID != 300 || shelf.Number != 5 {
		t.Fatalf("unexpected shelf: %+v", shelf)
	}
}

func TestShelfPositionEmitsCapacityRecords(t *testing.T) {
	registry := NewRegistry(map[string]int{"Standard": 3})
	fn, _ := registry.For(domain.EntityShelfPosition)

	result := fn(locRow(2, map[string]string{
		"shelf_barcode": "SH0001",
		"shelf_type":    "Standard",
	}), preparedIndex())
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 position records, got %d", len(result.Records))
	}
	for i, record := range result.Records {
		position := record.(domain.ShelfPosition)
		if position.Number != i+1 || position.ShelfID != 400 {
			t.Fatalf("unexpected position %d: %+v", i, position)
		}
		if position.LegacyKey() != PositionKey("SH0001", i+1) {
			t.Fatalf("unexpected key %q", position.LegacyKey())
		}
	}
}

func TestTraySplitOnBarcodePrefix(t *testing.T) {
	registry := NewRegistry(nil)
	trayFn, _ := registry.For(domain.EntityTray)
	nonTrayFn, _ := registry.For(domain.EntityNonTrayItem)
	idx := preparedIndex()

	trayValues := map[string]string{
		"tray_barcode":          "39001",
		"owner":                 "LC",
		"size_class":            "B",
		"media_type":            "Book",
		"shelf_barcode":         "SH0001",
		"shelf_position_number": "2",
		"accession_date":        "2019-03-07",
	}
	row := domain.SnapshotRow{File: "tray.txt", Line: 3, Values: trayValues}

	result := trayFn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected tray error: %+v", result.Err)
	}
	tray := result.Records[0].(domain.Tray)
	if tray.ShelfPositionID != 500 || tray.SizeClassID != 9 {
		t.Fatalf("unexpected tray: %+v", tray)
	}
	if tray.AccessionDate == nil {
		t.Fatalf("expected accession date to parse")
	}
	if result := nonTrayFn(row, idx); !result.Skip {
		t.Fatalf("numeric barcode should skip the non-tray stage")
	}

	nonTrayValues := map[string]string{
		"tray_barcode":          "T12345",
		"owner":                 "LC",
		"media_type":            "Book",
		"shelf_barcode":         "SH0001",
		"shelf_position_number": "2",
	}
	row = domain.SnapshotRow{File: "tray.txt", Line: 4, Values: nonTrayValues}

	if result := trayFn(row, idx); !result.Skip {
		t.Fatalf("T-prefixed barcode should skip the tray stage")
	}
	result = nonTrayFn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected non-tray error: %+v", result.Err)
	}
	nonTray := result.Records[0].(domain.NonTrayItem)
	if nonTray.SizeClassID != 10 {
		t.Fatalf("expected NT placeholder size class, got %d", nonTray.SizeClassID)
	}
}

func TestContainerMediaCodesExpand(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntityTray)
	idx := preparedIndex()
	idx.Register(domain.EntityMediaType, "Book/Volume", 12)
	idx.Register(domain.EntityMediaType, "Microfilm", 13)

	values := map[string]string{
		"tray_barcode":          "39001",
		"owner":                 "LC",
		"size_class":            "B",
		"media_type":            "A",
		"shelf_barcode":         "SH0001",
		"shelf_position_number": "2",
	}
	row := domain.SnapshotRow{File: "tray.txt", Line: 5, Values: values}
	result := fn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if tray := result.Records[0].(domain.Tray); tray.MediaTypeID != 12 {
		t.Fatalf("expected code A to resolve as Book/Volume, got %+v", tray)
	}

	values["media_type"] = "m"
	result = fn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if tray := result.Records[0].(domain.Tray); tray.MediaTypeID != 13 {
		t.Fatalf("expected code m to resolve as Microfilm, got %+v", tray)
	}
}

func TestUnknownDatesMapToNull(t *testing.T) {
	registry := NewRegistry(nil)
	trayFn, _ := registry.For(domain.EntityTray)
	idx := preparedIndex()

	row := domain.SnapshotRow{File: "tray.txt", Line: 6, Values: map[string]string{
		"tray_barcode":          "39001",
		"owner":                 "LC",
		"size_class":            "B",
		"media_type":            "Book",
		"shelf_barcode":         "SH0001",
		"shelf_position_number": "2",
		"accession_date":        "?",
		"shelved_date":          "?",
	}}
	result := trayFn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	tray := result.Records[0].(domain.Tray)
	if tray.AccessionDate != nil || tray.ShelvedDate != nil {
		t.Fatalf("expected unknown dates to stay null: %+v", tray)
	}

	itemFn, _ := registry.For(domain.EntityItem)
	itemRow := domain.SnapshotRow{File: "item.txt", Line: 3, Values: map[string]string{
		"item_barcode":      "31000002",
		"container_barcode": "39002",
		"owner":             "LC",
		"accession_date":    "?",
	}}
	result = itemFn(itemRow, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if item := result.Records[0].(domain.Item); item.AccessionDate != nil {
		t.Fatalf("expected unknown accession date to stay null: %+v", item)
	}
}

func TestShelfBarcodePadding(t *testing.T) {
	registry := NewRegistry(map[string]int{"Standard": 1})
	shelfFn, _ := registry.For(domain.EntityShelf)
	idx := preparedIndex()

	values := map[string]string{
		"aisle_number":     "14",
		"side_orientation": "R",
		"ladder_number":    "3",
		"shelf_number":     "5",
		"shelf_barcode":    "123",
		"shelf_height":     "12.5",
		"shelf_width":      "30",
		"shelf_depth":      "18",
		"owner":            "LC",
		"shelf_type":       "Standard",
		"container_type":   "Tray",
	}
	result := shelfFn(locRow(3, values), idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if key := result.Records[0].LegacyKey(); key != "00123" {
		t.Fatalf("expected five digit shelf barcode, got %q", key)
	}

	positionFn, _ := registry.For(domain.EntityShelfPosition)
	idx.Register(domain.EntityShelf, "00123", 410)
	result = positionFn(locRow(3, values), idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if position := result.Records[0].(domain.ShelfPosition); position.ShelfID != 410 {
		t.Fatalf("expected padded barcode to resolve the shelf, got %+v", position)
	}

	trayFn, _ := registry.For(domain.EntityTray)
	idx.Register(domain.EntityShelfPosition, PositionKey("001234", 1), 510)
	trayRow := domain.SnapshotRow{File: "tray.txt", Line: 7, Values: map[string]string{
		"tray_barcode":          "39003",
		"owner":                 "LC",
		"size_class":            "B",
		"media_type":            "Book",
		"shelf_barcode":         "1234",
		"shelf_position_number": "1",
	}}
	result = trayFn(trayRow, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	if tray := result.Records[0].(domain.Tray); tray.ShelfPositionID != 510 {
		t.Fatalf("expected six digit padding to resolve the placement, got %+v", tray)
	}
}

func TestNonTrayBarcodeRewrite(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntityNonTrayItem)

	row := domain.SnapshotRow{File: "tray.txt", Line: 9, Values: map[string]string{
		"tray_barcode":          "T12345",
		"owner":                 "LC",
		"media_type":            "Book",
		"shelf_barcode":         "SH0001",
		"shelf_position_number": "2",
	}}
	result := fn(row, preparedIndex())
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	nonTray := result.Records[0].(domain.NonTrayItem)
	if nonTray.Barcode != "0000012345T" {
		t.Fatalf("expected item-form barcode, got %q", nonTray.Barcode)
	}
	if nonTray.LegacyKey() != "0000012345T" {
		t.Fatalf("expected rewritten barcode as key, got %q", nonTray.LegacyKey())
	}
}

func TestNonTrayPlaceholderBarcodeSkipped(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntityNonTrayItem)

	row := domain.SnapshotRow{File: "tray.txt", Line: 8, Values: map[string]string{
		"tray_barcode": "T0000000",
	}}
	if result := fn(row, preparedIndex()); !result.Skip {
		t.Fatalf("placeholder barcode should be skipped")
	}
}

func TestItemTransform(t *testing.T) {
	registry := NewRegistry(nil)
	fn, _ := registry.For(domain.EntityItem)
	idx := preparedIndex()

	row := domain.SnapshotRow{File: "item.txt", Line: 2, Values: map[string]string{
		"item_barcode":      "31000001",
		"container_barcode": "39002",
		"owner":             "LC",
		"accession_date":    "03/07/2019",
	}}
	result := fn(row, idx)
	if result.Err != nil {
		t.Fatalf("unexpected error: %+v", result.Err)
	}
	item := result.Records[0].(domain.Item)
	if item.TrayID != 600 || item.Status != "In" {
		t.Fatalf("unexpected item: %+v", item)
	}

	row.Values["item_barcode"] = "31-000-001"
	result = fn(row, idx)
	if result.Err == nil || result.Err.Reason != domain.ReasonTypeCoercionFailed {
		t.Fatalf("expected coercion error for punctuated barcode, got %+v", result)
	}

	row.Values["item_barcode"] = "31000001"
	row.Values["container_barcode"] = "T12345"
	if result := fn(row, idx); !result.Skip {
		t.Fatalf("item in a non-tray container should be skipped")
	}

	row.Values["container_barcode"] = "39999"
	result = fn(row, idx)
	if result.Err == nil || result.Err.Reason != domain.ReasonForeignKeyUnresolved {
		t.Fatalf("expected unresolved tray, got %+v", result)
	}
}

func TestUnknownEntityType(t *testing.T) {
	registry := NewRegistry(nil)
	if _, err := registry.For(domain.EntityType("carton")); err == nil {
		t.Fatalf("expected error for unknown entity type")
	}
}

func TestCoerceInt(t *testing.T) {
	if v, err := coerceInt(" 14 "); err != nil || v != 14 {
		t.Fatalf("expected 14, got %d (%v)", v, err)
	}
	if v, err := coerceInt("14.0"); err != nil || v != 14 {
		t.Fatalf("expected float-rendered 14 to coerce, got %d (%v)", v, err)
	}
	if _, err := coerceInt("14.5"); err == nil {
		t.Fatalf("expected fractional value to fail")
	}
	if _, err := coerceInt("abc"); err == nil {
		t.Fatalf("expected non-numeric value to fail")
	}
}

func TestCoerceDateLayouts(t *testing.T) {
	for _, raw := range []string{"2019-03-07", "03/07/2019", "3/7/19", "2019-03-07 10:30:00"} {
		if _, err := coerceDate(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := coerceDate("7th March 2019"); err == nil {
		t.Fatalf("expected prose date to fail")
	}
}
