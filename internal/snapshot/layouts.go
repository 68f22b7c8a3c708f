package snapshot

// Column layouts for the LAS legacy exports. The files carry no header row;
// positions are fixed by the predecessor system's export job. Columns the
// migration does not consume keep a legacy_NN placeholder name so raw rows
// round-trip into error reports without losing data.

func placeholder(n int) string {
	const names = "legacy_"
	digits := []byte{byte('0' + n/10), byte('0' + n%10)}
	return names + string(digits)
}

func locColumns() []string {
	cols := make([]string, 26)
	for i := range cols {
		cols[i] = placeholder(i)
	}
	cols[1] = "side_orientation"
	cols[2] = "ladder_number"
	cols[4] = "owner"
	cols[6] = "size_class"
	cols[7] = "shelf_number"
	cols[9] = "shelf_height"
	cols[10] = "shelf_barcode"
	cols[11] = "aisle_number"
	cols[12] = "shelf_depth"
	cols[13] = "shelf_width"
	cols[24] = "shelf_type"
	cols[25] = "container_type"
	return cols
}

func trayColumns() []string {
	cols := make([]string, 19)
	for i := range cols {
		cols[i] = placeholder(i)
	}
	cols[0] = "tray_barcode"
	cols[2] = "media_type"
	cols[4] = "shelf_barcode"
	cols[7] = "owner"
	cols[8] = "accession_date"
	cols[9] = "shelved_date"
	cols[10] = "size_class"
	cols[18] = "shelf_position_number"
	return cols
}

func itemColumns() []string {
	cols := make([]string, 11)
	for i := range cols {
		cols[i] = placeholder(i)
	}
	cols[0] = "owner"
	cols[1] = "item_barcode"
	cols[2] = "container_barcode"
	cols[3] = "accession_date"
	cols[8] = "arrival_date"
	cols[10] = "shelf_position_number"
	return cols
}

// Expected snapshot files, by the documented drop-directory naming convention.
var (
	LocationFile = FileSpec{Name: "loc.txt", Columns: locColumns()}
	TrayFile     = FileSpec{Name: "tray.txt", Columns: trayColumns()}
	ItemFile     = FileSpec{Name: "item.txt", Columns: itemColumns()}

	ExpectedFiles = []FileSpec{LocationFile, TrayFile, ItemFile}
)
