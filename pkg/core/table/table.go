// Package table holds the in-memory tabular model shared by every pipeline
// stage: raw rows with arbitrary headers, header normalization, logical
// column resolution and cell coercion.
package table

// RawTable is a header row plus string cells. Rows carry no implied order
// beyond the one they were read in.
type RawTable struct {
	Name    string
	Headers []string
	Rows    [][]string

	index map[string]int
}

// NewRawTable builds a table and indexes its headers as given.
func NewRawTable(name string, headers []string, rows [][]string) *RawTable {
	t := &RawTable{Name: name, Headers: headers, Rows: rows}
	t.reindex()
	return t
}

func (t *RawTable) reindex() {
	t.index = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, ok := t.index[h]; !ok {
			t.index[h] = i
		}
	}
}

// Normalized returns a copy whose headers went through NormalizeHeader and
// DedupeHeaders. Rows are shared, not copied.
func (t *RawTable) Normalized() *RawTable {
	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = NormalizeHeader(h)
	}
	return NewRawTable(t.Name, DedupeHeaders(headers), t.Rows)
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether a header with exactly this name exists.
func (t *RawTable) HasColumn(name string) bool {
	if t.index == nil {
		t.reindex()
	}
	_, ok := t.index[name]
	return ok
}

// Value returns the raw cell at (row, column), or "" when the
// column is unknown or the row is short.
func (t *RawTable) Value(row int, column string) string {
	if t.index == nil {
		t.reindex()
	}
	idx, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if idx >= len(cells) {
		return ""
	}
	return cells[idx]
}
