package models

// Table is a column-addressed table of string cells. It is the hand-off
// format between the extractor and the normalizer, whether the rows come
// straight from Extract or from a parsed CSV file.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table with the given header. Rows are appended with Append.
func NewTable(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

// TableFromRaw builds a raw table from extractor output.
func TableFromRaw(listings []RawListing) *Table {
	t := NewTable(RawColumns)
	for _, l := range listings {
		t.Append(l.Values())
	}
	return t
}

// Append adds a row. Short rows are padded with empty cells.
func (t *Table) Append(row []string) {
	cells := make([]string, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.lookup(column)
	return ok
}

// Missing returns the columns from want that the table lacks, in want order.
func (t *Table) Missing(want ...string) []string {
	var missing []string
	for _, c := range want {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Cell returns the value of column in row i, and false if the column is absent.
func (t *Table) Cell(i int, column string) (string, bool) {
	idx, ok := t.lookup(column)
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	row := t.Rows[i]
	if idx >= len(row) {
		return "", true
	}
	return row[idx], true
}

func (t *Table) lookup(column string) (int, bool) {
	if t == nil {
		return 0, false
	}
	if t.index == nil {
		t.reindex()
	}
	idx, ok := t.index[column]
	return idx, ok
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}
