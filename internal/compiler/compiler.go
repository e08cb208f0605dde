package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// Limits applied when an intent leaves them unspecified
const (
	DefaultRankLimit  = 10
	DefaultTableLimit = 50
	MinTrendBuckets   = 3
	MaxTrendBuckets   = 50
	RareGroupShare    = 0.02
)

// Compile turns an intent plus a dataset into an executable plan, or a
// compilation error naming the unsatisfiable requirement. Compilation is
// pure: identical (Intent, Dataset) inputs always yield byte-identical plans.
func Compile(in query.Intent, ds *table.Dataset) (*query.Plan, error) {
	for _, col := range in.ReferencedColumns() {
		if ds.Column(col) == nil {
			return nil, core.NewCompilationError(
				fmt.Sprintf("column %q does not exist in this sheet", col))
		}
	}

	predicates, err := resolvePredicates(in, ds)
	if err != nil {
		return nil, err
	}

	plan := &query.Plan{Intent: in.Kind}
	if len(predicates) > 0 {
		plan.Ops = append(plan.Ops, query.Operation{Kind: query.OpFilter, Predicates: predicates})
	}

	switch in.Kind {
	case query.IntentAggregation:
		err = compileAggregation(in, ds, plan)
	case query.IntentComparison:
		err = compileComparison(in, ds, plan)
	case query.IntentRanking:
		err = compileRanking(in, ds, plan)
	case query.IntentTrend:
		err = compileTrend(in, ds, plan)
	case query.IntentDistribution:
		err = compileDistribution(in, ds, plan)
	case query.IntentFilter:
		err = compileFilter(in, ds, plan)
	default:
		err = core.NewCompilationError(fmt.Sprintf("unknown intent kind %q", in.Kind))
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// resolvePredicates validates each predicate against the target column's
// inferred type and folds a resolved time window into datetime predicates.
func resolvePredicates(in query.Intent, ds *table.Dataset) ([]query.Predicate, error) {
	out := make([]query.Predicate, 0, len(in.Predicates)+2)
	for _, p := range in.Predicates {
		col := ds.Column(p.Column)
		if err := checkPredicate(p, col); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if in.Window != nil {
		timeCol := in.TimeColumn
		if timeCol == "" {
			// Fall back to the first datetime column for windowed non-trend intents
			for _, c := range ds.Columns {
				if c.InferredType == table.TypeDatetime {
					timeCol = c.Name
					break
				}
			}
		}
		if timeCol == "" {
			return nil, core.NewCompilationError("question names a time range but the sheet has no datetime column")
		}
		out = append(out,
			query.Predicate{Column: timeCol, Op: query.OpGte, Value: in.Window.Start},
			query.Predicate{Column: timeCol, Op: query.OpLte, Value: in.Window.End},
		)
	}
	return out, nil
}

func checkPredicate(p query.Predicate, col *table.ColumnProfile) error {
	switch col.InferredType {
	case table.TypeInteger, table.TypeFloat:
		if p.Op == query.OpContains {
			return core.NewCompilationError(fmt.Sprintf(
				"operator %q cannot apply to numeric column %q", p.Op, col.Name))
		}
		if !isNumericLiteral(p.Value) {
			return core.NewCompilationError(fmt.Sprintf(
				"value %q is not numeric but column %q holds numbers", p.Value, col.Name))
		}
	case table.TypeDatetime:
		if p.Op == query.OpContains {
			return core.NewCompilationError(fmt.Sprintf(
				"operator %q cannot apply to datetime column %q", p.Op, col.Name))
		}
		if !isDatetimeLiteral(p.Value) {
			return core.NewCompilationError(fmt.Sprintf(
				"value %q is not a date but column %q holds dates", p.Value, col.Name))
		}
	case table.TypeBoolean:
		if p.Op != query.OpEq && p.Op != query.OpNeq {
			return core.NewCompilationError(fmt.Sprintf(
				"operator %q cannot apply to boolean column %q", p.Op, col.Name))
		}
	default:
		if p.Op == query.OpGt || p.Op == query.OpGte || p.Op == query.OpLt || p.Op == query.OpLte {
			return core.NewCompilationError(fmt.Sprintf(
				"ordering comparison needs a numeric or datetime column, but %q holds text", col.Name))
		}
	}
	return nil
}

func compileAggregation(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	metrics, err := numericMetrics(in, ds)
	if err != nil {
		return err
	}
	agg := in.Aggregate
	if agg == "" {
		agg = query.AggSum
	}

	op := query.Operation{Kind: query.OpGroupAggregate}
	for _, m := range metrics {
		op.Aggregations = append(op.Aggregations, query.Aggregation{
			Column: m, Func: agg, As: fmt.Sprintf("%s_%s", agg, m),
		})
	}

	if in.GroupBy != "" {
		if err := checkGroupable(ds, in.GroupBy); err != nil {
			return err
		}
		op.GroupBy = in.GroupBy
		plan.Ops = append(plan.Ops, op,
			query.Operation{Kind: query.OpSort, SortColumn: in.GroupBy, SortOrder: query.SortAsc})
		return nil
	}
	plan.Ops = append(plan.Ops, op)
	return nil
}

func compileComparison(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	if in.GroupBy == "" {
		return core.NewCompilationError("comparison needs a category column to compare across")
	}
	if err := checkGroupable(ds, in.GroupBy); err != nil {
		return err
	}
	metrics, err := numericMetrics(in, ds)
	if err != nil {
		return err
	}
	agg := in.Aggregate
	if agg == "" {
		agg = query.AggSum
	}

	as := fmt.Sprintf("%s_%s", agg, metrics[0])
	plan.Ops = append(plan.Ops,
		query.Operation{
			Kind:    query.OpGroupAggregate,
			GroupBy: in.GroupBy,
			Aggregations: []query.Aggregation{
				{Column: metrics[0], Func: agg, As: as},
			},
		},
		query.Operation{Kind: query.OpSort, SortColumn: as, SortOrder: query.SortDesc},
	)
	return nil
}

func compileRanking(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	if in.GroupBy == "" {
		return core.NewCompilationError("ranking needs a category column to rank")
	}
	if err := checkGroupable(ds, in.GroupBy); err != nil {
		return err
	}
	metrics, err := numericMetrics(in, ds)
	if err != nil {
		return err
	}
	agg := in.Aggregate
	if agg == "" {
		agg = query.AggSum
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	order := query.SortDesc
	if in.Direction == query.RankBottom {
		order = query.SortAsc
	}

	as := fmt.Sprintf("%s_%s", agg, metrics[0])
	plan.Ops = append(plan.Ops,
		query.Operation{
			Kind:    query.OpGroupAggregate,
			GroupBy: in.GroupBy,
			Aggregations: []query.Aggregation{
				{Column: metrics[0], Func: agg, As: as},
			},
		},
		query.Operation{Kind: query.OpSort, SortColumn: as, SortOrder: order},
		query.Operation{Kind: query.OpLimit, Limit: limit},
	)
	return nil
}

func compileTrend(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	timeCol := in.TimeColumn
	if timeCol == "" {
		for _, c := range ds.Columns {
			if c.InferredType == table.TypeDatetime {
				timeCol = c.Name
				break
			}
		}
	}
	if timeCol == "" {
		return core.NewCompilationError("trend needs a datetime column, but the sheet has none")
	}
	col := ds.Column(timeCol)
	if col.InferredType != table.TypeDatetime {
		return core.NewCompilationError(fmt.Sprintf(
			"trend needs a datetime column, but %q holds %s values", timeCol, col.InferredType))
	}
	metrics, err := numericMetrics(in, ds)
	if err != nil {
		return err
	}
	agg := in.Aggregate
	if agg == "" {
		agg = query.AggSum
	}

	gran := in.Granularity
	if gran == "" {
		gran = chooseGranularity(col)
	}

	plan.Ops = append(plan.Ops,
		query.Operation{
			Kind:       query.OpGroupAggregate,
			GroupBy:    timeCol,
			TimeBucket: gran,
			Aggregations: []query.Aggregation{
				{Column: metrics[0], Func: agg, As: fmt.Sprintf("%s_%s", agg, metrics[0])},
			},
		},
		query.Operation{Kind: query.OpSort, SortColumn: timeCol, SortOrder: query.SortAsc},
	)
	return nil
}

func compileDistribution(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	col := in.GroupBy
	if col == "" {
		// Prefer a categorical column, then any groupable one
		for _, c := range ds.Columns {
			if c.InferredType == table.TypeCategorical {
				col = c.Name
				break
			}
		}
		if col == "" {
			for _, c := range ds.Columns {
				if c.InferredType.IsGroupable() {
					col = c.Name
					break
				}
			}
		}
	}
	if col == "" {
		return core.NewCompilationError("distribution needs a category or text column, but the sheet has none")
	}
	if err := checkGroupable(ds, col); err != nil {
		return err
	}

	plan.Ops = append(plan.Ops,
		query.Operation{
			Kind:    query.OpGroupAggregate,
			GroupBy: col,
			Aggregations: []query.Aggregation{
				{Column: col, Func: query.AggCount, As: "count"},
			},
		},
		query.Operation{Kind: query.OpCollapseRare, MinShare: RareGroupShare},
		query.Operation{Kind: query.OpSort, SortColumn: "count", SortOrder: query.SortDesc},
	)
	return nil
}

func compileFilter(in query.Intent, ds *table.Dataset, plan *query.Plan) error {
	// A filter with no predicates degrades to a bounded table preview
	plan.Ops = append(plan.Ops,
		query.Operation{Kind: query.OpSelect, Columns: ds.ColumnNames()},
		query.Operation{Kind: query.OpLimit, Limit: DefaultTableLimit},
	)
	return nil
}

// chooseGranularity picks the coarsest granularity whose estimated bucket
// count over the column's datetime span lands in [MinTrendBuckets,
// MaxTrendBuckets]. Degenerate spans fall through to daily bucketing.
func chooseGranularity(col *table.ColumnProfile) query.Granularity {
	if col.MinTime == nil || col.MaxTime == nil {
		return query.GranularityMonth
	}
	start, end := col.MinTime.Time(), col.MaxTime.Time()

	for _, g := range []query.Granularity{
		query.GranularityYear, query.GranularityQuarter,
		query.GranularityMonth, query.GranularityDay,
	} {
		n := EstimateBuckets(start, end, g)
		if n >= MinTrendBuckets && n <= MaxTrendBuckets {
			return g
		}
	}
	return query.GranularityDay
}

// EstimateBuckets counts how many buckets of granularity g the span covers
func EstimateBuckets(start, end time.Time, g query.Granularity) int {
	if end.Before(start) {
		start, end = end, start
	}
	switch g {
	case query.GranularityYear:
		return end.Year() - start.Year() + 1
	case query.GranularityQuarter:
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		return months/3 + 1
	case query.GranularityMonth:
		return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	default:
		return int(end.Sub(start).Hours()/24) + 1
	}
}

// numericMetrics resolves the intent's metric columns, defaulting to the
// dataset's numeric columns when the question names none.
func numericMetrics(in query.Intent, ds *table.Dataset) ([]string, error) {
	if len(in.Metrics) > 0 {
		for _, m := range in.Metrics {
			col := ds.Column(m)
			if !col.InferredType.IsNumeric() {
				return nil, core.NewCompilationError(fmt.Sprintf(
					"cannot compute a numeric aggregate over column %q, which holds %s values",
					m, col.InferredType))
			}
		}
		return in.Metrics, nil
	}

	var metrics []string
	for _, c := range ds.Columns {
		if c.InferredType.IsNumeric() {
			metrics = append(metrics, c.Name)
		}
	}
	if len(metrics) == 0 {
		return nil, core.NewCompilationError("the sheet has no numeric column to aggregate")
	}
	return metrics, nil
}

func checkGroupable(ds *table.Dataset, name string) error {
	col := ds.Column(name)
	if !col.InferredType.IsGroupable() {
		return core.NewCompilationError(fmt.Sprintf(
			"column %q holds %s values and cannot group rows", name, col.InferredType))
	}
	return nil
}

func isNumericLiteral(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isDatetimeLiteral(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
