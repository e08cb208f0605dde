package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// Execute runs a compiled plan against the dataset's materialized rows.
// Operations apply in the fixed order filter, group/aggregate, sort, limit.
// Execution only reads the dataset, so concurrent calls need no locking.
func Execute(plan *query.Plan, ds *table.Dataset) (*query.DataResult, error) {
	if ds.RowCount == 0 {
		return &query.DataResult{
			Columns:   ds.ColumnNames(),
			Rows:      nil,
			RowCount:  0,
			QueryType: plan.Intent,
			Message:   "the sheet has no data rows to analyze",
		}, nil
	}

	frame := &frame{columns: ds.ColumnNames(), rows: ds.Rows, source: ds}
	for _, op := range plan.Ops {
		var err error
		switch op.Kind {
		case query.OpFilter:
			err = frame.filter(op.Predicates)
		case query.OpSelect:
			err = frame.selectColumns(op.Columns)
		case query.OpGroupAggregate:
			err = frame.groupAggregate(op)
		case query.OpCollapseRare:
			frame.collapseRare(op.MinShare)
		case query.OpSort:
			err = frame.sortBy(op.SortColumn, op.SortOrder)
		case query.OpLimit:
			frame.limit(op.Limit)
		default:
			err = fmt.Errorf("%w: unsupported operation %q", core.ErrExecutionFailed, op.Kind)
		}
		if err != nil {
			return nil, err
		}
	}

	res := &query.DataResult{
		Columns:   frame.columns,
		Rows:      frame.rows,
		RowCount:  len(frame.rows),
		QueryType: plan.Intent,
	}
	if plan.Intent == query.IntentAggregation && frame.aggregations != nil {
		res.Aggregations = frame.aggregations
	}
	return res, nil
}

// frame is the mutable working set a plan executes over. The source dataset
// rows are never modified; every operation builds fresh slices.
type frame struct {
	columns      []string
	rows         [][]table.Value
	source       *table.Dataset
	aggregations map[string]map[string]float64
}

func (f *frame) columnIndex(name string) (int, error) {
	for i, c := range f.columns {
		if c == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: column %q missing from working set", core.ErrExecutionFailed, name)
}

func (f *frame) filter(preds []query.Predicate) error {
	kept := make([][]table.Value, 0, len(f.rows))
	for _, row := range f.rows {
		match := true
		for _, p := range preds {
			idx, err := f.columnIndex(p.Column)
			if err != nil {
				return err
			}
			ok, err := matches(row[idx], p)
			if err != nil {
				return err
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func matches(v table.Value, p query.Predicate) (bool, error) {
	// Null cells never satisfy a predicate
	if v.IsNull {
		return false, nil
	}

	switch {
	case v.IsNumeric():
		want, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return false, fmt.Errorf("%w: predicate value %q is not numeric", core.ErrExecutionFailed, p.Value)
		}
		return compareOrdered(v.AsFloat64(), want, p.Op)
	case v.IsDatetime():
		want, ok := parseTimeLiteral(p.Value)
		if !ok {
			return false, fmt.Errorf("%w: predicate value %q is not a date", core.ErrExecutionFailed, p.Value)
		}
		got := v.AsTime()
		switch p.Op {
		case query.OpEq:
			return got.Equal(want), nil
		case query.OpNeq:
			return !got.Equal(want), nil
		case query.OpGt:
			return got.After(want), nil
		case query.OpGte:
			return !got.Before(want), nil
		case query.OpLt:
			return got.Before(want), nil
		case query.OpLte:
			return !got.After(want), nil
		}
		return false, fmt.Errorf("%w: operator %q on datetime", core.ErrExecutionFailed, p.Op)
	case v.Type == table.ValueTypeBoolean:
		want := strings.EqualFold(strings.TrimSpace(p.Value), "true")
		if p.Op == query.OpNeq {
			return v.AsBool() != want, nil
		}
		return v.AsBool() == want, nil
	default:
		got := v.AsString()
		want := p.Value
		switch p.Op {
		case query.OpEq:
			return strings.EqualFold(got, want), nil
		case query.OpNeq:
			return !strings.EqualFold(got, want), nil
		case query.OpContains:
			return strings.Contains(strings.ToLower(got), strings.ToLower(want)), nil
		}
		return false, fmt.Errorf("%w: operator %q on text", core.ErrExecutionFailed, p.Op)
	}
}

func compareOrdered(got, want float64, op query.PredicateOp) (bool, error) {
	switch op {
	case query.OpEq:
		return got == want, nil
	case query.OpNeq:
		return got != want, nil
	case query.OpGt:
		return got > want, nil
	case query.OpGte:
		return got >= want, nil
	case query.OpLt:
		return got < want, nil
	case query.OpLte:
		return got <= want, nil
	}
	return false, fmt.Errorf("%w: operator %q on numeric", core.ErrExecutionFailed, op)
}

func parseTimeLiteral(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f *frame) selectColumns(columns []string) error {
	indices := make([]int, len(columns))
	for i, c := range columns {
		idx, err := f.columnIndex(c)
		if err != nil {
			return err
		}
		indices[i] = idx
	}
	rows := make([][]table.Value, len(f.rows))
	for r, row := range f.rows {
		projected := make([]table.Value, len(indices))
		for i, idx := range indices {
			projected[i] = row[idx]
		}
		rows[r] = projected
	}
	f.columns = columns
	f.rows = rows
	return nil
}

// groupAggregate groups rows by the group key (optionally time-bucketed) and
// computes each aggregate. Null cells are ignored per aggregate; a group with
// no contributing rows for an aggregate is omitted from output rather than
// emitted as zero. With no group key the whole frame is one group.
func (f *frame) groupAggregate(op query.Operation) error {
	type group struct {
		key    table.Value
		label  string
		values map[string][]float64 // aggregate alias -> contributing cells
		count  int
	}

	groupIdx := -1
	if op.GroupBy != "" {
		idx, err := f.columnIndex(op.GroupBy)
		if err != nil {
			return err
		}
		groupIdx = idx
	}

	aggIdx := make([]int, len(op.Aggregations))
	for i, agg := range op.Aggregations {
		idx, err := f.columnIndex(agg.Column)
		if err != nil {
			return err
		}
		aggIdx[i] = idx
	}

	groups := map[string]*group{}
	var order []string
	for _, row := range f.rows {
		key := table.NullValue()
		label := ""
		if groupIdx >= 0 {
			key = row[groupIdx]
			if key.IsNull {
				continue
			}
			if op.TimeBucket != "" {
				if !key.IsDatetime() {
					continue
				}
				key = bucketTime(key.AsTime(), op.TimeBucket)
			}
			label = key.String()
		}

		g, ok := groups[label]
		if !ok {
			g = &group{key: key, label: label, values: map[string][]float64{}}
			groups[label] = g
			order = append(order, label)
		}
		g.count++
		for i, agg := range op.Aggregations {
			cell := row[aggIdx[i]]
			if agg.Func == query.AggCount {
				g.values[agg.As] = append(g.values[agg.As], 1)
				continue
			}
			if cell.IsNull || !cell.IsNumeric() {
				continue
			}
			g.values[agg.As] = append(g.values[agg.As], cell.AsFloat64())
		}
	}

	columns := make([]string, 0, len(op.Aggregations)+1)
	if groupIdx >= 0 {
		columns = append(columns, op.GroupBy)
	}
	for _, agg := range op.Aggregations {
		columns = append(columns, agg.As)
	}

	sort.Strings(order)
	rows := make([][]table.Value, 0, len(order))
	aggregations := map[string]map[string]float64{}
	for _, label := range order {
		g := groups[label]
		row := make([]table.Value, 0, len(columns))
		if groupIdx >= 0 {
			row = append(row, g.key)
		}
		empty := true
		for _, agg := range op.Aggregations {
			cells := g.values[agg.As]
			if len(cells) == 0 {
				row = append(row, table.NullValue())
				continue
			}
			empty = false
			total := aggregate(cells, agg.Func)
			if agg.Func == query.AggCount {
				row = append(row, table.NewIntegerValue(int64(total)))
			} else {
				row = append(row, table.NewFloatValue(total))
			}
			if groupIdx < 0 {
				// Whole-table aggregation also reports the standard summary
				// per metric so the caller need not re-query for avg/min/max.
				aggregations[agg.Column] = map[string]float64{
					"sum":   aggregate(cells, query.AggSum),
					"avg":   aggregate(cells, query.AggAvg),
					"min":   aggregate(cells, query.AggMin),
					"max":   aggregate(cells, query.AggMax),
					"count": float64(len(cells)),
				}
			}
		}
		// Groups with zero contributing cells across every aggregate vanish
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	f.columns = columns
	f.rows = rows
	if len(aggregations) > 0 {
		f.aggregations = aggregations
	}
	return nil
}

func aggregate(cells []float64, fn query.AggregateFunc) float64 {
	switch fn {
	case query.AggCount:
		return float64(len(cells))
	case query.AggAvg:
		sum := 0.0
		for _, c := range cells {
			sum += c
		}
		return sum / float64(len(cells))
	case query.AggMin:
		min := cells[0]
		for _, c := range cells[1:] {
			if c < min {
				min = c
			}
		}
		return min
	case query.AggMax:
		max := cells[0]
		for _, c := range cells[1:] {
			if c > max {
				max = c
			}
		}
		return max
	default: // sum
		sum := 0.0
		for _, c := range cells {
			sum += c
		}
		return sum
	}
}

// bucketTime truncates a timestamp to its granularity bucket start
func bucketTime(t time.Time, g query.Granularity) table.Value {
	t = t.UTC()
	switch g {
	case query.GranularityYear:
		t = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case query.GranularityQuarter:
		q := (int(t.Month()) - 1) / 3
		t = time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	case query.GranularityMonth:
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return table.NewDatetimeValue(t)
}

// collapseRare merges groups holding less than minShare of the counted rows
// into a single "Other" bucket. Expects the frame shape produced by a count
// group-aggregate: group key first, count last.
func (f *frame) collapseRare(minShare float64) {
	if len(f.columns) < 2 || len(f.rows) == 0 {
		return
	}
	countIdx := len(f.columns) - 1

	total := 0.0
	for _, row := range f.rows {
		total += row[countIdx].AsFloat64()
	}
	if total == 0 {
		return
	}

	kept := make([][]table.Value, 0, len(f.rows))
	otherCount := 0.0
	for _, row := range f.rows {
		c := row[countIdx].AsFloat64()
		if c/total < minShare {
			otherCount += c
			continue
		}
		kept = append(kept, row)
	}
	if otherCount > 0 {
		other := make([]table.Value, len(f.columns))
		other[0] = table.NewStringValue("Other")
		for i := 1; i < countIdx; i++ {
			other[i] = table.NullValue()
		}
		other[countIdx] = table.NewIntegerValue(int64(otherCount))
		kept = append(kept, other)
	}
	f.rows = kept
}

func (f *frame) sortBy(column string, order query.SortOrder) error {
	idx, err := f.columnIndex(column)
	if err != nil {
		return err
	}
	sort.SliceStable(f.rows, func(i, j int) bool {
		less := valueLess(f.rows[i][idx], f.rows[j][idx])
		if order == query.SortDesc {
			return valueLess(f.rows[j][idx], f.rows[i][idx])
		}
		return less
	})
	return nil
}

// valueLess orders nulls last, then compares by native type
func valueLess(a, b table.Value) bool {
	if a.IsNull {
		return false
	}
	if b.IsNull {
		return true
	}
	switch {
	case a.IsNumeric() && b.IsNumeric():
		return a.AsFloat64() < b.AsFloat64()
	case a.IsDatetime() && b.IsDatetime():
		return a.AsTime().Before(b.AsTime())
	default:
		return a.String() < b.String()
	}
}

func (f *frame) limit(n int) {
	if n >= 0 && len(f.rows) > n {
		f.rows = f.rows[:n]
	}
}
