package chart

import (
	"sheetsense/domain/query"
)

// MaxCategories is the display threshold above which bar and pie charts
// degrade to a table
const MaxCategories = 20

// Select maps an intent kind and result shape to exactly one chart type.
// The mapping is total and deterministic: any combination yields one of
// bar, line, pie, or table.
func Select(kind query.IntentKind, rowCount, numericCols int) query.ChartType {
	// A result with nothing numeric to plot is always a table
	if numericCols == 0 {
		return query.ChartTable
	}

	switch kind {
	case query.IntentTrend:
		return query.ChartLine
	case query.IntentRanking, query.IntentComparison:
		if rowCount > MaxCategories {
			return query.ChartTable
		}
		return query.ChartBar
	case query.IntentDistribution:
		if rowCount > MaxCategories {
			return query.ChartTable
		}
		return query.ChartPie
	case query.IntentAggregation:
		if rowCount > MaxCategories {
			return query.ChartTable
		}
		return query.ChartBar
	default:
		return query.ChartTable
	}
}

// Apply stamps the selected chart type onto a result
func Apply(res *query.DataResult) {
	res.ChartType = Select(res.QueryType, res.RowCount, res.NumericColumnCount())
}
