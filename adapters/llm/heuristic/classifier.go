// Package heuristic is the deterministic rule-based intent classifier. It is
// the always-available degradation path when the language-understanding
// service is unreachable or returns something unparseable, and it covers all
// six intent kinds so a question never dead-ends.
package heuristic

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"sheetsense/domain/query"
	"sheetsense/domain/table"
	"sheetsense/internal/timeref"
	"sheetsense/ports"
)

// Classifier maps questions to intents with keyword rules
type Classifier struct{}

// New creates a rule-based classifier
func New() *Classifier {
	return &Classifier{}
}

var rankPattern = regexp.MustCompile(`(top|bottom|best|worst)\s+(\d+)`)

// Classify derives an intent from keywords in the question plus the
// dataset's column profiles. It always succeeds: a question matching no
// rule degrades to a bounded table preview via the filter intent.
func (c *Classifier) Classify(ctx context.Context, question string, ds *table.Dataset) (*ports.ClassifiedIntent, error) {
	q := strings.ToLower(question)

	intent := query.Intent{
		Kind:      c.kindOf(q),
		Aggregate: aggregateVerb(q),
		Window:    timeref.Resolve(question, ds),
	}

	mentioned := mentionedColumns(q, ds)
	for _, col := range mentioned {
		profile := ds.Column(col)
		switch {
		case profile.InferredType.IsNumeric():
			intent.Metrics = append(intent.Metrics, col)
		case profile.InferredType == table.TypeDatetime:
			if intent.TimeColumn == "" {
				intent.TimeColumn = col
			}
		default:
			if intent.GroupBy == "" {
				intent.GroupBy = col
			}
		}
	}

	switch intent.Kind {
	case query.IntentRanking:
		intent.Direction = query.RankTop
		if strings.Contains(q, "bottom") || strings.Contains(q, "worst") || strings.Contains(q, "lowest") {
			intent.Direction = query.RankBottom
		}
		if m := rankPattern.FindStringSubmatch(q); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				intent.Limit = n
			}
		}
		if intent.GroupBy == "" {
			intent.GroupBy = firstGroupable(ds)
		}
	case query.IntentComparison, query.IntentDistribution:
		if intent.GroupBy == "" {
			intent.GroupBy = firstGroupable(ds)
		}
	case query.IntentAggregation:
		// "total sales by region" carries an implicit grouping
		if intent.GroupBy == "" && strings.Contains(q, " by ") {
			intent.GroupBy = firstGroupable(ds)
		}
	}

	return &ports.ClassifiedIntent{
		Intent:      intent,
		Explanation: "Answered with keyword rules while the language service was unavailable.",
		Degraded:    true,
	}, nil
}

// kindOf applies the keyword table, most specific phrasing first
func (c *Classifier) kindOf(q string) query.IntentKind {
	switch {
	case containsAny(q, "top ", "bottom ", "best ", "worst ", "highest", "lowest", "rank"):
		return query.IntentRanking
	case containsAny(q, "trend", "over time", "time series", "per month", "per year", "monthly", "yearly"):
		return query.IntentTrend
	case containsAny(q, "distribution", "percentage", "proportion", "share of", "breakdown"):
		return query.IntentDistribution
	case containsAny(q, "compare", "comparison", " vs ", "versus", "difference between"):
		return query.IntentComparison
	case containsAny(q, "total", "sum", "average", "mean", "count", "how many", "max", "min", "highest", "lowest"):
		return query.IntentAggregation
	default:
		return query.IntentFilter
	}
}

func aggregateVerb(q string) query.AggregateFunc {
	switch {
	case containsAny(q, "average", "mean"):
		return query.AggAvg
	case containsAny(q, "count", "how many", "number of"):
		return query.AggCount
	case containsAny(q, "max", "maximum", "highest"):
		return query.AggMax
	case containsAny(q, "min", "minimum", "lowest"):
		return query.AggMin
	case containsAny(q, "total", "sum"):
		return query.AggSum
	}
	return ""
}

// mentionedColumns finds dataset columns named in the question, in column
// order so results are deterministic
func mentionedColumns(q string, ds *table.Dataset) []string {
	var cols []string
	for _, c := range ds.Columns {
		name := strings.ToLower(c.Name)
		if name == "" {
			continue
		}
		if strings.Contains(q, name) {
			cols = append(cols, c.Name)
			continue
		}
		// Singular form: "sales by region" should match a "Regions" column
		if strings.HasSuffix(name, "s") && strings.Contains(q, strings.TrimSuffix(name, "s")) {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func firstGroupable(ds *table.Dataset) string {
	for _, c := range ds.Columns {
		if c.InferredType == table.TypeCategorical {
			return c.Name
		}
	}
	for _, c := range ds.Columns {
		if c.InferredType.IsGroupable() {
			return c.Name
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
