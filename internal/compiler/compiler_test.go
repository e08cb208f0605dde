package compiler

import (
	"bytes"
	"testing"
	"time"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

func salesDataset() *table.Dataset {
	minT := core.NewTimestamp(time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC))
	maxT := core.NewTimestamp(time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC))
	return &table.Dataset{
		ID:        core.DatasetID("ds-1"),
		SheetName: "Sales",
		Columns: []table.ColumnProfile{
			{Name: "region", InferredType: table.TypeCategorical, UniqueCount: 4},
			{Name: "sales", InferredType: table.TypeFloat},
			{Name: "units", InferredType: table.TypeInteger},
			{Name: "order_date", InferredType: table.TypeDatetime, MinTime: &minT, MaxTime: &maxT},
			{Name: "notes", InferredType: table.TypeString, UniqueCount: 90},
		},
		RowCount: 100,
	}
}

func TestCompile_UnknownColumn(t *testing.T) {
	_, err := Compile(query.Intent{
		Kind:    query.IntentAggregation,
		Metrics: []string{"revenue"},
	}, salesDataset())
	if !core.IsCompilationError(err) {
		t.Fatalf("expected compilation error, got %v", err)
	}
}

func TestCompile_AggregationDefaults(t *testing.T) {
	plan, err := Compile(query.Intent{Kind: query.IntentAggregation}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(plan.Ops) != 1 || plan.Ops[0].Kind != query.OpGroupAggregate {
		t.Fatalf("expected single group_aggregate op, got %+v", plan.Ops)
	}
	// No metric named: every numeric column aggregates, sum by default
	aggs := plan.Ops[0].Aggregations
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregations over numeric columns, got %d", len(aggs))
	}
	if aggs[0].Column != "sales" || aggs[0].Func != query.AggSum {
		t.Errorf("unexpected first aggregation %+v", aggs[0])
	}
}

func TestCompile_AggregateOverTextColumn(t *testing.T) {
	_, err := Compile(query.Intent{
		Kind:    query.IntentAggregation,
		Metrics: []string{"notes"},
	}, salesDataset())
	if !core.IsCompilationError(err) {
		t.Fatalf("expected compilation error for text metric, got %v", err)
	}
}

func TestCompile_ComparisonNeedsGroup(t *testing.T) {
	_, err := Compile(query.Intent{
		Kind:    query.IntentComparison,
		Metrics: []string{"sales"},
	}, salesDataset())
	if !core.IsCompilationError(err) {
		t.Fatalf("expected compilation error without group column, got %v", err)
	}
}

func TestCompile_RankingShape(t *testing.T) {
	plan, err := Compile(query.Intent{
		Kind:      query.IntentRanking,
		Metrics:   []string{"sales"},
		GroupBy:   "region",
		Direction: query.RankBottom,
		Limit:     5,
	}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	kinds := []query.OpKind{query.OpGroupAggregate, query.OpSort, query.OpLimit}
	if len(plan.Ops) != len(kinds) {
		t.Fatalf("expected %d ops, got %d", len(kinds), len(plan.Ops))
	}
	for i, k := range kinds {
		if plan.Ops[i].Kind != k {
			t.Errorf("op %d = %s, want %s", i, plan.Ops[i].Kind, k)
		}
	}
	if plan.Ops[1].SortOrder != query.SortAsc {
		t.Error("bottom ranking should sort ascending")
	}
	if plan.Ops[2].Limit != 5 {
		t.Errorf("Limit = %d, want 5", plan.Ops[2].Limit)
	}
}

func TestCompile_RankingDefaultLimit(t *testing.T) {
	plan, err := Compile(query.Intent{
		Kind:    query.IntentRanking,
		Metrics: []string{"sales"},
		GroupBy: "region",
	}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	last := plan.Ops[len(plan.Ops)-1]
	if last.Kind != query.OpLimit || last.Limit != DefaultRankLimit {
		t.Errorf("expected default limit %d, got %+v", DefaultRankLimit, last)
	}
}

func TestCompile_TrendGranularity(t *testing.T) {
	// The dataset spans ~3 years: 3 yearly buckets clear the minimum, so
	// the coarsest granularity wins.
	plan, err := Compile(query.Intent{
		Kind:    query.IntentTrend,
		Metrics: []string{"sales"},
	}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	agg := plan.Ops[0]
	if agg.Kind != query.OpGroupAggregate || agg.GroupBy != "order_date" {
		t.Fatalf("trend should bucket the datetime column, got %+v", agg)
	}
	if agg.TimeBucket != query.GranularityYear {
		t.Errorf("TimeBucket = %s, want year", agg.TimeBucket)
	}
}

func TestCompile_TrendWithoutDatetime(t *testing.T) {
	ds := salesDataset()
	ds.Columns = ds.Columns[:3] // drop order_date and notes
	_, err := Compile(query.Intent{Kind: query.IntentTrend, Metrics: []string{"sales"}}, ds)
	if !core.IsCompilationError(err) {
		t.Fatalf("expected compilation error without datetime column, got %v", err)
	}
}

func TestEstimateBuckets(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		g    query.Granularity
		want int
	}{
		{query.GranularityYear, 1},
		{query.GranularityQuarter, 2},
		{query.GranularityMonth, 6},
	}
	for _, tc := range cases {
		if got := EstimateBuckets(start, end, tc.g); got != tc.want {
			t.Errorf("EstimateBuckets(%s) = %d, want %d", tc.g, got, tc.want)
		}
	}
}

func TestCompile_DistributionShape(t *testing.T) {
	plan, err := Compile(query.Intent{Kind: query.IntentDistribution}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if plan.Ops[0].GroupBy != "region" {
		t.Errorf("distribution should fall back to the first categorical column, got %q", plan.Ops[0].GroupBy)
	}
	if plan.Ops[1].Kind != query.OpCollapseRare {
		t.Errorf("distribution should collapse rare groups, got %+v", plan.Ops[1])
	}
}

func TestCompile_DistributionFallsBackToStringColumn(t *testing.T) {
	ds := &table.Dataset{
		ID:        core.DatasetID("ds-2"),
		SheetName: "Log",
		Columns: []table.ColumnProfile{
			{Name: "amount", InferredType: table.TypeFloat},
			{Name: "message", InferredType: table.TypeString, UniqueCount: 90},
		},
		RowCount: 100,
	}

	plan, err := Compile(query.Intent{Kind: query.IntentDistribution}, ds)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if plan.Ops[0].GroupBy != "message" {
		t.Errorf("distribution should fall back to any groupable column, got %q", plan.Ops[0].GroupBy)
	}
}

func TestCompile_PredicateTypeChecks(t *testing.T) {
	cases := []struct {
		name string
		pred query.Predicate
	}{
		{"contains on numeric", query.Predicate{Column: "sales", Op: query.OpContains, Value: "10"}},
		{"text literal on numeric", query.Predicate{Column: "sales", Op: query.OpGt, Value: "lots"}},
		{"ordering on text", query.Predicate{Column: "notes", Op: query.OpGt, Value: "abc"}},
		{"bad date literal", query.Predicate{Column: "order_date", Op: query.OpGte, Value: "yesterday"}},
	}
	for _, tc := range cases {
		_, err := Compile(query.Intent{
			Kind:       query.IntentFilter,
			Predicates: []query.Predicate{tc.pred},
		}, salesDataset())
		if !core.IsCompilationError(err) {
			t.Errorf("%s: expected compilation error, got %v", tc.name, err)
		}
	}

	// Valid predicates pass
	plan, err := Compile(query.Intent{
		Kind: query.IntentFilter,
		Predicates: []query.Predicate{
			{Column: "sales", Op: query.OpGte, Value: "100"},
			{Column: "region", Op: query.OpEq, Value: "North"},
		},
	}, salesDataset())
	if err != nil {
		t.Fatalf("valid predicates rejected: %v", err)
	}
	if plan.Ops[0].Kind != query.OpFilter {
		t.Errorf("filter op should come first, got %+v", plan.Ops[0])
	}
}

func TestCompile_WindowFoldsIntoPredicates(t *testing.T) {
	plan, err := Compile(query.Intent{
		Kind:    query.IntentAggregation,
		Metrics: []string{"sales"},
		Window:  &query.TimeWindow{Start: "2024-01-01T00:00:00Z", End: "2024-03-31T23:59:59Z"},
	}, salesDataset())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if plan.Ops[0].Kind != query.OpFilter {
		t.Fatalf("window should compile to a leading filter, got %+v", plan.Ops[0])
	}
	preds := plan.Ops[0].Predicates
	if len(preds) != 2 || preds[0].Column != "order_date" || preds[0].Op != query.OpGte {
		t.Errorf("unexpected window predicates %+v", preds)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	in := query.Intent{
		Kind:    query.IntentComparison,
		Metrics: []string{"sales"},
		GroupBy: "region",
	}
	ds := salesDataset()

	first, err := Compile(in, ds)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := Compile(in, ds)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	a, _ := first.Canonical()
	b, _ := second.Canonical()
	if !bytes.Equal(a, b) {
		t.Errorf("identical inputs produced different plans:\n%s\n%s", a, b)
	}
}
