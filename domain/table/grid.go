package table

// RawSheet is the resolved 2-D cell grid for one sheet as delivered by the
// inbound file collaborator. Formulas are already evaluated to their last
// computed value, so every cell arrives as a plain string.
type RawSheet struct {
	Name  string     `json:"name"`
	Cells [][]string `json:"cells"`
}

// CleanSheet is the output of the cleaning pipeline: a rectangular grid with
// an identified header row and normalized, deduplicated column names. Cells
// stay raw strings with null sentinels collapsed to ""; typing happens during
// profiling so one column gets one consistent interpretation.
type CleanSheet struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Cells   [][]string `json:"cells"`
}

// RowCount returns the number of data rows
func (s *CleanSheet) RowCount() int {
	return len(s.Cells)
}

// ColumnIndex returns the position of a column by name, or -1 if absent
func (s *CleanSheet) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// FileMeta describes an uploaded source file
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"` // declared extension: .xlsx, .xls, .csv
}
