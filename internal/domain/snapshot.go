package domain

// SnapshotRow is one tokenized line from a legacy snapshot file. Values are
// keyed by the column names declared for that file's layout. The source file
// and 1-based line number travel with the row for error attribution. Rows are
// never mutated after the reader produces them.
type SnapshotRow struct {
	File   string
	Line   int
	Values map[string]string
}

// Value returns the named column's raw value, empty when the column is absent.
func (r SnapshotRow) Value(column string) string {
	return r.Values[column]
}
