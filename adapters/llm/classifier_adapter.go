package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sheetsense/domain/query"
	"sheetsense/domain/table"
	"sheetsense/internal/timeref"
	"sheetsense/ports"
)

const systemPrompt = `You are an expert data analyst. Given a question about a
spreadsheet and its schema, classify the question into exactly one intent kind
(aggregation, comparison, filter, trend, distribution, ranking), identify the
referenced columns, and answer as a single JSON object.`

// Classifier is the networked intent classifier. It grounds the language
// model with the dataset schema, validates every referenced column against
// the dataset with one error-correction retry, and hands off to the
// rule-based fallback on transport failure or unparseable output. The
// fallback is wired in unconditionally, never compiled out.
type Classifier struct {
	model    ports.LanguageModel
	fallback ports.IntentClassifier
}

// NewClassifier builds the production classifier
func NewClassifier(model ports.LanguageModel, fallback ports.IntentClassifier) *Classifier {
	return &Classifier{model: model, fallback: fallback}
}

// intentPayload is the JSON contract with the language model
type intentPayload struct {
	Kind        string   `json:"kind"`
	Metrics     []string `json:"metrics"`
	GroupBy     string   `json:"group_by"`
	TimeColumn  string   `json:"time_column"`
	Direction   string   `json:"direction"`
	Limit       int      `json:"limit"`
	Granularity string   `json:"granularity"`
	Predicates  []struct {
		Column string `json:"column"`
		Op     string `json:"op"`
		Value  string `json:"value"`
	} `json:"predicates"`
	Aggregate   string `json:"aggregate"`
	Explanation string `json:"explanation"`
}

// Classify runs the classification contract against the external service
func (c *Classifier) Classify(ctx context.Context, question string, ds *table.Dataset) (*ports.ClassifiedIntent, error) {
	prompt := c.buildPrompt(question, ds)

	raw, err := c.model.ChatCompletion(ctx, systemPrompt, prompt)
	if err != nil {
		return c.fallback.Classify(ctx, question, ds)
	}

	payload, badCols := c.decode(raw, ds)
	if payload == nil {
		return c.fallback.Classify(ctx, question, ds)
	}

	// One correction round when the model invents column names
	if len(badCols) > 0 {
		correction := fmt.Sprintf(
			"%s\n\nYour previous answer referenced columns that do not exist: %s.\nUse only these columns: %s.\nAnswer again with the same JSON shape.",
			prompt, strings.Join(badCols, ", "), strings.Join(ds.ColumnNames(), ", "))
		raw, err = c.model.ChatCompletion(ctx, systemPrompt, correction)
		if err != nil {
			return c.fallback.Classify(ctx, question, ds)
		}
		payload, badCols = c.decode(raw, ds)
		if payload == nil || len(badCols) > 0 {
			return c.fallback.Classify(ctx, question, ds)
		}
	}

	intent := c.toIntent(payload)
	// Relative time references resolve against the uploaded data's bounds,
	// never wall-clock now, so answers are reproducible.
	intent.Window = timeref.Resolve(question, ds)

	return &ports.ClassifiedIntent{
		Intent:      intent,
		Explanation: payload.Explanation,
	}, nil
}

// buildPrompt renders the schema summary the model is grounded with
func (c *Classifier) buildPrompt(question string, ds *table.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SHEET: %s (%d rows)\nCOLUMNS:\n", ds.SheetName, ds.RowCount)
	for _, col := range ds.Columns {
		fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.InferredType)
		if col.NullCount > 0 {
			fmt.Fprintf(&b, ", %d nulls", col.NullCount)
		}
		if len(col.SampleValues) > 0 {
			n := len(col.SampleValues)
			if n > 3 {
				n = 3
			}
			fmt.Fprintf(&b, ", samples: %s", strings.Join(col.SampleValues[:n], ", "))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
QUESTION: %s

Respond with a JSON object:
{"kind": one of "aggregation"|"comparison"|"filter"|"trend"|"distribution"|"ranking",
 "metrics": [numeric column names],
 "group_by": category column or "",
 "time_column": datetime column or "",
 "aggregate": "sum"|"avg"|"count"|"min"|"max" or "",
 "direction": "top"|"bottom" or "",
 "limit": integer or 0,
 "granularity": "day"|"month"|"quarter"|"year" or "",
 "predicates": [{"column":..., "op":"eq"|"neq"|"gt"|"gte"|"lt"|"lte"|"contains", "value":...}],
 "explanation": short markdown explanation of the analysis}

Only reference columns listed above.`, question)
	return b.String()
}

// decode parses the model's reply and collects referenced columns that do
// not exist in the dataset. Returns nil when the reply is unusable.
func (c *Classifier) decode(raw string, ds *table.Dataset) (*intentPayload, []string) {
	cleaned := stripCodeFence(raw)

	var payload intentPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, nil
	}

	kind := query.IntentKind(strings.ToLower(payload.Kind))
	valid := false
	for _, k := range query.AllIntentKinds {
		if kind == k {
			valid = true
			break
		}
	}
	if !valid {
		return nil, nil
	}

	var bad []string
	check := func(col string) {
		if col != "" && ds.Column(col) == nil {
			bad = append(bad, col)
		}
	}
	for _, m := range payload.Metrics {
		check(m)
	}
	check(payload.GroupBy)
	check(payload.TimeColumn)
	for _, p := range payload.Predicates {
		check(p.Column)
	}
	return &payload, bad
}

func (c *Classifier) toIntent(p *intentPayload) query.Intent {
	intent := query.Intent{
		Kind:        query.IntentKind(strings.ToLower(p.Kind)),
		Metrics:     p.Metrics,
		GroupBy:     p.GroupBy,
		TimeColumn:  p.TimeColumn,
		Aggregate:   query.AggregateFunc(strings.ToLower(p.Aggregate)),
		Direction:   query.RankDirection(strings.ToLower(p.Direction)),
		Limit:       p.Limit,
		Granularity: query.Granularity(strings.ToLower(p.Granularity)),
	}
	for _, pred := range p.Predicates {
		intent.Predicates = append(intent.Predicates, query.Predicate{
			Column: pred.Column,
			Op:     query.PredicateOp(strings.ToLower(pred.Op)),
			Value:  pred.Value,
		})
	}
	return intent
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
