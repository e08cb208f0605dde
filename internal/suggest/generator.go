package suggest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"sheetsense/domain/table"
)

// MaxSuggestions bounds how many candidate questions one dataset yields
const MaxSuggestions = 5

// Suggestion is one proposed question with the intent it would classify to
type Suggestion struct {
	Question string `json:"question"`
	Kind     string `json:"kind"`
}

// Generate proposes candidate questions from the dataset's column profiles.
// Templates are only instantiated for intents whose structural requirements
// the dataset can satisfy: an aggregation template needs a numeric column, a
// trend template needs a datetime column, and so on.
func Generate(ds *table.Dataset) []Suggestion {
	numeric := rankNumericByVariance(ds)
	categorical := moderateCardinality(ds)
	datetime := ds.ColumnsOfType(func(t table.ColumnType) bool { return t == table.TypeDatetime })

	var out []Suggestion
	add := func(kind, question string) {
		if len(out) < MaxSuggestions {
			out = append(out, Suggestion{Question: question, Kind: kind})
		}
	}

	if len(numeric) > 0 {
		add("aggregation", fmt.Sprintf("What is the total %s?", numeric[0]))
	}
	if len(numeric) > 0 && len(categorical) > 0 {
		add("comparison", fmt.Sprintf("Compare %s across %s", numeric[0], categorical[0]))
		add("ranking", fmt.Sprintf("Show the top 10 %s by %s", categorical[0], numeric[0]))
	}
	if len(numeric) > 0 && len(datetime) > 0 {
		add("trend", fmt.Sprintf("How does %s change over time?", numeric[0]))
	}
	if len(categorical) > 0 {
		add("distribution", fmt.Sprintf("What is the distribution of %s?", categorical[0]))
	}
	if len(numeric) > 1 {
		add("aggregation", fmt.Sprintf("What is the average %s?", numeric[1]))
	}
	return out
}

// rankNumericByVariance orders numeric columns by the variance of their
// cells, highest first. High-variance metrics make the most interesting
// aggregation targets.
func rankNumericByVariance(ds *table.Dataset) []string {
	type scored struct {
		name     string
		variance float64
	}

	var cols []scored
	for _, profile := range ds.Columns {
		if !profile.InferredType.IsNumeric() {
			continue
		}
		idx := ds.ColumnIndex(profile.Name)
		var cells []float64
		for _, row := range ds.Rows {
			if idx < len(row) && row[idx].IsNumeric() {
				cells = append(cells, row[idx].AsFloat64())
			}
		}
		variance := 0.0
		if len(cells) > 1 {
			variance = stat.Variance(cells, nil)
		}
		cols = append(cols, scored{name: profile.Name, variance: variance})
	}

	sort.SliceStable(cols, func(i, j int) bool { return cols[i].variance > cols[j].variance })
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// moderateCardinality returns categorical/string columns with between 2 and
// 20 distinct values, the range that groups and pies read well at.
func moderateCardinality(ds *table.Dataset) []string {
	var names []string
	for _, profile := range ds.Columns {
		if !profile.InferredType.IsGroupable() {
			continue
		}
		if profile.UniqueCount >= 2 && profile.UniqueCount <= 20 {
			names = append(names, profile.Name)
		}
	}
	return names
}
