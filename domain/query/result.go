package query

import (
	"sheetsense/domain/table"
)

// ChartType labels the visualization a result should render as
type ChartType string

const (
	ChartBar   ChartType = "bar"
	ChartLine  ChartType = "line"
	ChartPie   ChartType = "pie"
	ChartTable ChartType = "table"
)

// DataResult is the shaped output of executing a plan, ready for charting.
// Produced fresh per query; immutable once returned. This shape is the
// stable contract toward the presentation collaborator.
type DataResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]table.Value `json:"rows"`
	RowCount int             `json:"row_count"`

	QueryType IntentKind `json:"query_type"`
	ChartType ChartType  `json:"chart_type,omitempty"`

	// Per-metric aggregate summary for plain aggregation results
	Aggregations map[string]map[string]float64 `json:"aggregations,omitempty"`

	// Explanatory note for degenerate results (e.g. empty dataset)
	Message string `json:"message,omitempty"`
}

// NumericColumnCount reports how many result columns hold numeric cells,
// judged by the first non-null cell per column.
func (r *DataResult) NumericColumnCount() int {
	count := 0
	for col := range r.Columns {
		for _, row := range r.Rows {
			if col >= len(row) || row[col].IsNull {
				continue
			}
			if row[col].IsNumeric() {
				count++
			}
			break
		}
	}
	return count
}
