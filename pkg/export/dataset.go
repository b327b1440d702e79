// Package export renders a placed timetable into the delivery formats.
// Every renderer consumes the same Dataset: one header row plus one map
// per row, in the weekly-grid shape the service builds (a Period column
// followed by Monday through Friday).
package export

// Dataset is the tabular content shared by all renderers.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// CellFills keys "header:rowIndex" to a hex colour. Only renderers
	// with cell styling honour it.
	CellFills map[string]string
}
