package executor

import (
	"testing"
	"time"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

func salesDataset() *table.Dataset {
	day := func(d int) table.Value {
		return table.NewDatetimeValue(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
	}
	return &table.Dataset{
		ID:        core.DatasetID("ds-1"),
		SheetName: "Sales",
		Columns: []table.ColumnProfile{
			{Name: "region", InferredType: table.TypeCategorical},
			{Name: "sales", InferredType: table.TypeFloat},
			{Name: "order_date", InferredType: table.TypeDatetime},
		},
		RowCount: 6,
		Rows: [][]table.Value{
			{table.NewStringValue("North"), table.NewFloatValue(100), day(5)},
			{table.NewStringValue("South"), table.NewFloatValue(200), day(10)},
			{table.NewStringValue("North"), table.NewFloatValue(50), day(15)},
			{table.NewStringValue("East"), table.NewFloatValue(300), day(20)},
			{table.NewStringValue("South"), table.NullValue(), day(25)},
			{table.NullValue(), table.NewFloatValue(999), day(28)},
		},
	}
}

func cellFloat(t *testing.T, v table.Value) float64 {
	t.Helper()
	if v.IsNull {
		t.Fatal("unexpected null cell")
	}
	return v.AsFloat64()
}

func TestExecute_TotalSalesByRegion(t *testing.T) {
	plan := &query.Plan{
		Intent: query.IntentComparison,
		Ops: []query.Operation{
			{
				Kind:    query.OpGroupAggregate,
				GroupBy: "region",
				Aggregations: []query.Aggregation{
					{Column: "sales", Func: query.AggSum, As: "sum_sales"},
				},
			},
			{Kind: query.OpSort, SortColumn: "sum_sales", SortOrder: query.SortDesc},
		},
	}

	res, err := Execute(plan, salesDataset())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// The null-region row drops out of grouping entirely
	if res.RowCount != 3 {
		t.Fatalf("expected 3 groups, got %d", res.RowCount)
	}
	if res.Columns[0] != "region" || res.Columns[1] != "sum_sales" {
		t.Fatalf("unexpected columns %v", res.Columns)
	}

	wantOrder := []string{"East", "South", "North"}
	wantSums := []float64{300, 200, 150}
	for i, row := range res.Rows {
		if row[0].AsString() != wantOrder[i] {
			t.Errorf("row %d group = %q, want %q", i, row[0].AsString(), wantOrder[i])
		}
		if got := cellFloat(t, row[1]); got != wantSums[i] {
			t.Errorf("row %d sum = %v, want %v", i, got, wantSums[i])
		}
	}
}

func TestExecute_FilterNullsNeverMatch(t *testing.T) {
	plan := &query.Plan{
		Intent: query.IntentFilter,
		Ops: []query.Operation{
			{Kind: query.OpFilter, Predicates: []query.Predicate{
				{Column: "sales", Op: query.OpLte, Value: "999"},
			}},
		},
	}

	res, err := Execute(plan, salesDataset())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// All non-null sales are <= 999; the null sales row must not match
	if res.RowCount != 5 {
		t.Errorf("expected 5 rows, got %d", res.RowCount)
	}
}

func TestExecute_FilterOperators(t *testing.T) {
	cases := []struct {
		pred query.Predicate
		want int
	}{
		{query.Predicate{Column: "region", Op: query.OpEq, Value: "north"}, 2}, // case-insensitive
		{query.Predicate{Column: "region", Op: query.OpNeq, Value: "North"}, 3},
		{query.Predicate{Column: "region", Op: query.OpContains, Value: "out"}, 2},
		{query.Predicate{Column: "sales", Op: query.OpGt, Value: "150"}, 3},
		{query.Predicate{Column: "order_date", Op: query.OpGte, Value: "2024-01-15"}, 4},
	}
	for _, tc := range cases {
		plan := &query.Plan{
			Intent: query.IntentFilter,
			Ops:    []query.Operation{{Kind: query.OpFilter, Predicates: []query.Predicate{tc.pred}}},
		}
		res, err := Execute(plan, salesDataset())
		if err != nil {
			t.Fatalf("Execute failed for %+v: %v", tc.pred, err)
		}
		if res.RowCount != tc.want {
			t.Errorf("predicate %+v matched %d rows, want %d", tc.pred, res.RowCount, tc.want)
		}
	}
}

func TestExecute_WholeTableAggregation(t *testing.T) {
	plan := &query.Plan{
		Intent: query.IntentAggregation,
		Ops: []query.Operation{
			{
				Kind: query.OpGroupAggregate,
				Aggregations: []query.Aggregation{
					{Column: "sales", Func: query.AggSum, As: "sum_sales"},
				},
			},
		},
	}

	res, err := Execute(plan, salesDataset())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.RowCount != 1 {
		t.Fatalf("whole-table aggregation should yield one row, got %d", res.RowCount)
	}
	if got := cellFloat(t, res.Rows[0][0]); got != 1649 {
		t.Errorf("sum = %v, want 1649", got)
	}

	// The summary map carries the full aggregate set for the metric
	summary := res.Aggregations["sales"]
	if summary == nil {
		t.Fatal("expected aggregations summary for sales")
	}
	if summary["count"] != 5 || summary["min"] != 50 || summary["max"] != 999 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestExecute_TrendBucketsByMonth(t *testing.T) {
	ds := salesDataset()
	// Spread rows across two months
	ds.Rows[3][2] = table.NewDatetimeValue(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))
	ds.Rows[5][2] = table.NewDatetimeValue(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))

	plan := &query.Plan{
		Intent: query.IntentTrend,
		Ops: []query.Operation{
			{
				Kind:       query.OpGroupAggregate,
				GroupBy:    "order_date",
				TimeBucket: query.GranularityMonth,
				Aggregations: []query.Aggregation{
					{Column: "sales", Func: query.AggSum, As: "sum_sales"},
				},
			},
			{Kind: query.OpSort, SortColumn: "order_date", SortOrder: query.SortAsc},
		},
	}

	res, err := Execute(plan, ds)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.RowCount != 2 {
		t.Fatalf("expected 2 month buckets, got %d", res.RowCount)
	}
	jan := res.Rows[0]
	if jan[0].AsTime().Month() != time.January {
		t.Errorf("first bucket = %v, want January", jan[0].AsTime())
	}
	if got := cellFloat(t, jan[1]); got != 350 {
		t.Errorf("January sum = %v, want 350", got)
	}
	if got := cellFloat(t, res.Rows[1][1]); got != 1299 {
		t.Errorf("February sum = %v, want 1299", got)
	}
}

func TestExecute_DistributionWithCollapse(t *testing.T) {
	rows := make([][]table.Value, 0, 100)
	for i := 0; i < 60; i++ {
		rows = append(rows, []table.Value{table.NewStringValue("big")})
	}
	for i := 0; i < 39; i++ {
		rows = append(rows, []table.Value{table.NewStringValue("medium")})
	}
	rows = append(rows, []table.Value{table.NewStringValue("tiny")})

	ds := &table.Dataset{
		Columns:  []table.ColumnProfile{{Name: "size", InferredType: table.TypeCategorical}},
		RowCount: len(rows),
		Rows:     rows,
	}

	plan := &query.Plan{
		Intent: query.IntentDistribution,
		Ops: []query.Operation{
			{
				Kind:    query.OpGroupAggregate,
				GroupBy: "size",
				Aggregations: []query.Aggregation{
					{Column: "size", Func: query.AggCount, As: "count"},
				},
			},
			{Kind: query.OpCollapseRare, MinShare: 0.02},
			{Kind: query.OpSort, SortColumn: "count", SortOrder: query.SortDesc},
		},
	}

	res, err := Execute(plan, ds)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.RowCount != 3 {
		t.Fatalf("expected big, medium, Other, got %d rows", res.RowCount)
	}
	last := res.Rows[2]
	if last[0].AsString() != "Other" {
		t.Errorf("rare group should collapse into Other, got %q", last[0].AsString())
	}
	if last[1].IsNull || last[1].AsFloat64() != 1 {
		t.Errorf("Other count = %v, want 1", last[1])
	}
}

func TestExecute_EmptyDataset(t *testing.T) {
	ds := &table.Dataset{
		Columns: []table.ColumnProfile{{Name: "a", InferredType: table.TypeString}},
	}
	plan := &query.Plan{Intent: query.IntentAggregation, Ops: []query.Operation{
		{Kind: query.OpGroupAggregate, Aggregations: []query.Aggregation{
			{Column: "a", Func: query.AggCount, As: "count"},
		}},
	}}

	res, err := Execute(plan, ds)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.RowCount != 0 || res.Message == "" {
		t.Errorf("empty dataset should yield zero rows with a message, got %+v", res)
	}
}

func TestExecute_SourceRowsUntouched(t *testing.T) {
	ds := salesDataset()
	plan := &query.Plan{
		Intent: query.IntentRanking,
		Ops: []query.Operation{
			{
				Kind:    query.OpGroupAggregate,
				GroupBy: "region",
				Aggregations: []query.Aggregation{
					{Column: "sales", Func: query.AggSum, As: "sum_sales"},
				},
			},
			{Kind: query.OpSort, SortColumn: "sum_sales", SortOrder: query.SortDesc},
			{Kind: query.OpLimit, Limit: 2},
		},
	}

	if _, err := Execute(plan, ds); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(ds.Rows) != 6 {
		t.Fatalf("dataset rows mutated: %d remain", len(ds.Rows))
	}
	if ds.Rows[0][0].AsString() != "North" {
		t.Error("dataset row order changed")
	}
}

func TestValueLess_NullsLast(t *testing.T) {
	null := table.NullValue()
	v := table.NewFloatValue(1)
	if valueLess(null, v) {
		t.Error("null should not sort before a value")
	}
	if !valueLess(v, null) {
		t.Error("value should sort before null")
	}
}
