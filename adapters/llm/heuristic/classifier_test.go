package heuristic

import (
	"context"
	"testing"
	"time"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

func salesDataset() *table.Dataset {
	minT := core.NewTimestamp(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	maxT := core.NewTimestamp(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	return &table.Dataset{
		Columns: []table.ColumnProfile{
			{Name: "region", InferredType: table.TypeCategorical, UniqueCount: 4},
			{Name: "product", InferredType: table.TypeCategorical, UniqueCount: 12},
			{Name: "sales", InferredType: table.TypeFloat},
			{Name: "order_date", InferredType: table.TypeDatetime, MinTime: &minT, MaxTime: &maxT},
		},
	}
}

func classify(t *testing.T, question string) query.Intent {
	t.Helper()
	got, err := New().Classify(context.Background(), question, salesDataset())
	if err != nil {
		t.Fatalf("Classify(%q) failed: %v", question, err)
	}
	if !got.Degraded {
		t.Errorf("rule-based classification should report Degraded")
	}
	return got.Intent
}

func TestClassify_Kinds(t *testing.T) {
	cases := []struct {
		question string
		want     query.IntentKind
	}{
		{"what is the total sales", query.IntentAggregation},
		{"average sales per region", query.IntentAggregation},
		{"compare sales across region", query.IntentComparison},
		{"top 5 products by sales", query.IntentRanking},
		{"how does sales trend over time", query.IntentTrend},
		{"breakdown of products", query.IntentDistribution},
		{"show orders from the north", query.IntentFilter},
	}
	for _, tc := range cases {
		if got := classify(t, tc.question).Kind; got != tc.want {
			t.Errorf("%q classified as %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestClassify_RankingDetails(t *testing.T) {
	in := classify(t, "show the bottom 3 products by sales")
	if in.Kind != query.IntentRanking {
		t.Fatalf("Kind = %s, want ranking", in.Kind)
	}
	if in.Direction != query.RankBottom {
		t.Errorf("Direction = %s, want bottom", in.Direction)
	}
	if in.Limit != 3 {
		t.Errorf("Limit = %d, want 3", in.Limit)
	}
	if in.GroupBy != "product" {
		t.Errorf("GroupBy = %q, want product", in.GroupBy)
	}
	if len(in.Metrics) != 1 || in.Metrics[0] != "sales" {
		t.Errorf("Metrics = %v, want [sales]", in.Metrics)
	}
}

func TestClassify_AggregateVerbs(t *testing.T) {
	cases := []struct {
		question string
		want     query.AggregateFunc
	}{
		{"average sales", query.AggAvg},
		{"how many orders", query.AggCount},
		{"total sales", query.AggSum},
		{"maximum sales", query.AggMax},
	}
	for _, tc := range cases {
		if got := classify(t, tc.question).Aggregate; got != tc.want {
			t.Errorf("%q aggregate = %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestClassify_ColumnMentions(t *testing.T) {
	in := classify(t, "total sales by region")
	if len(in.Metrics) != 1 || in.Metrics[0] != "sales" {
		t.Errorf("Metrics = %v, want [sales]", in.Metrics)
	}
	if in.GroupBy != "region" {
		t.Errorf("GroupBy = %q, want region", in.GroupBy)
	}
}

func TestClassify_SingularMention(t *testing.T) {
	// A plural column name matches its singular form in the question
	ds := salesDataset()
	ds.Columns[1].Name = "products"
	got, err := New().Classify(context.Background(), "breakdown of product", ds)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Intent.GroupBy != "products" {
		t.Errorf("GroupBy = %q, want products", got.Intent.GroupBy)
	}
}

func TestClassify_TimeWindowResolved(t *testing.T) {
	in := classify(t, "total sales last quarter")
	if in.Window == nil {
		t.Fatal("expected a resolved time window")
	}
	// Dataset max is June 2024, so last quarter is Q1 2024
	if in.Window.Start != "2024-01-01T00:00:00Z" {
		t.Errorf("Window.Start = %s, want 2024-01-01T00:00:00Z", in.Window.Start)
	}
}

func TestClassify_FallbackGroupColumn(t *testing.T) {
	// No column mentioned: comparison falls back to the first categorical
	in := classify(t, "compare the figures")
	if in.Kind != query.IntentComparison {
		t.Fatalf("Kind = %s, want comparison", in.Kind)
	}
	if in.GroupBy != "region" {
		t.Errorf("GroupBy = %q, want region", in.GroupBy)
	}
}
