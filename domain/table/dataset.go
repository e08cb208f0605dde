package table

import (
	"sheetsense/domain/core"
)

// ColumnType is the inferred canonical type of a column
type ColumnType string

const (
	TypeInteger     ColumnType = "integer"
	TypeFloat       ColumnType = "float"
	TypeString      ColumnType = "string"
	TypeBoolean     ColumnType = "boolean"
	TypeDatetime    ColumnType = "datetime"
	TypeCategorical ColumnType = "categorical"
)

// IsNumeric reports whether the column type carries numeric cells
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// IsGroupable reports whether the column type can serve as a grouping key
func (t ColumnType) IsGroupable() bool {
	return t == TypeCategorical || t == TypeString || t == TypeBoolean
}

// ColumnProfile is the per-column type and statistics summary. It is the sole
// contract the classifier and compiler consume; they never see raw cells.
type ColumnProfile struct {
	Name         string     `json:"name"`
	InferredType ColumnType `json:"inferred_type"`
	NullCount    int        `json:"null_count"`
	UniqueCount  int        `json:"unique_count"`
	SampleValues []string   `json:"sample_values"`

	// Populated for numeric and datetime columns only
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`

	// Populated for datetime columns only
	MinTime *core.Timestamp `json:"min_time,omitempty"`
	MaxTime *core.Timestamp `json:"max_time,omitempty"`
}

// Dataset is the canonical typed representation of one cleaned sheet.
// Immutable once built; rebuilt wholesale when the source file changes.
type Dataset struct {
	ID        core.DatasetID  `json:"id"`
	FileID    core.FileID     `json:"file_id"`
	SheetName string          `json:"sheet_name"`
	Columns   []ColumnProfile `json:"columns"`
	RowCount  int             `json:"row_count"`
	Rows      [][]Value       `json:"rows"`
	CreatedAt core.Timestamp  `json:"created_at"`
}

// Column returns the profile for a named column, or nil if absent
func (d *Dataset) Column(name string) *ColumnProfile {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// ColumnIndex returns the position of a column by name, or -1 if absent
func (d *Dataset) ColumnIndex(name string) int {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the ordered column names
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnsOfType returns columns whose inferred type satisfies pred, in order
func (d *Dataset) ColumnsOfType(pred func(ColumnType) bool) []ColumnProfile {
	var out []ColumnProfile
	for _, c := range d.Columns {
		if pred(c.InferredType) {
			out = append(out, c)
		}
	}
	return out
}

// FileStatus tracks the ingestion lifecycle of an uploaded file
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// File is the metadata record for one uploaded spreadsheet
type File struct {
	ID               core.FileID     `json:"id"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	Path             string          `json:"path"`
	Size             int64           `json:"size"`
	Type             string          `json:"type"`
	Status           FileStatus      `json:"status"`
	ProcessingError  string          `json:"processing_error,omitempty"`
	// Sheets that cleaned down to nothing; recorded but never profiled.
	EmptySheets []string        `json:"empty_sheets,omitempty"`
	CreatedAt   core.Timestamp  `json:"created_at"`
	ProcessedAt *core.Timestamp `json:"processed_at,omitempty"`
}
