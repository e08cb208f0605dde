package query

// IntentKind is the classified shape of a natural-language question
type IntentKind string

const (
	IntentAggregation  IntentKind = "aggregation"
	IntentComparison   IntentKind = "comparison"
	IntentFilter       IntentKind = "filter"
	IntentTrend        IntentKind = "trend"
	IntentDistribution IntentKind = "distribution"
	IntentRanking      IntentKind = "ranking"
)

// AllIntentKinds lists every kind the classifier may produce
var AllIntentKinds = []IntentKind{
	IntentAggregation, IntentComparison, IntentFilter,
	IntentTrend, IntentDistribution, IntentRanking,
}

// AggregateFunc names the aggregate applied to a metric column
type AggregateFunc string

const (
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggCount AggregateFunc = "count"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// RankDirection orders ranking results
type RankDirection string

const (
	RankTop    RankDirection = "top"
	RankBottom RankDirection = "bottom"
)

// Granularity buckets a datetime axis for trend queries
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// PredicateOp is a filter comparison operator
type PredicateOp string

const (
	OpEq       PredicateOp = "eq"
	OpNeq      PredicateOp = "neq"
	OpGt       PredicateOp = "gt"
	OpGte      PredicateOp = "gte"
	OpLt       PredicateOp = "lt"
	OpLte      PredicateOp = "lte"
	OpContains PredicateOp = "contains"
)

// Predicate is one raw filter condition extracted from the question. The
// value stays a string until the compiler validates it against the target
// column's inferred type.
type Predicate struct {
	Column string      `json:"column"`
	Op     PredicateOp `json:"op"`
	Value  string      `json:"value"`
}

// TimeWindow is a resolved absolute time range. Relative references in the
// question ("last quarter") are resolved against the dataset's datetime
// bounds before an intent is returned, never against wall-clock now.
type TimeWindow struct {
	Start string `json:"start"` // RFC3339
	End   string `json:"end"`
}

// Intent is the tagged variant describing what the question asks for. Kind
// selects the variant; only the fields that variant carries are populated.
type Intent struct {
	Kind IntentKind `json:"kind"`

	// Aggregation / Comparison / Trend / Ranking
	Metrics   []string      `json:"metrics,omitempty"`
	Aggregate AggregateFunc `json:"aggregate,omitempty"`

	// Comparison / Ranking / Distribution: grouping column
	GroupBy string `json:"group_by,omitempty"`

	// Ranking
	Direction RankDirection `json:"direction,omitempty"`
	Limit     int           `json:"limit,omitempty"`

	// Trend
	TimeColumn  string      `json:"time_column,omitempty"`
	Granularity Granularity `json:"granularity,omitempty"`

	// Any kind may carry row filters; Filter carries only these
	Predicates []Predicate `json:"predicates,omitempty"`
	Window     *TimeWindow `json:"window,omitempty"`
}

// ReferencedColumns returns every column name the intent mentions, in order
// of appearance. Used to validate classifier output against the dataset.
func (in Intent) ReferencedColumns() []string {
	var cols []string
	seen := map[string]bool{}
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, m := range in.Metrics {
		add(m)
	}
	add(in.GroupBy)
	add(in.TimeColumn)
	for _, p := range in.Predicates {
		add(p.Column)
	}
	return cols
}
