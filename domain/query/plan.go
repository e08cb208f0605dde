package query

import (
	"encoding/json"

	"sheetsense/domain/core"
)

// OpKind names one relational operation in a plan
type OpKind string

const (
	OpSelect         OpKind = "select"
	OpFilter         OpKind = "filter"
	OpGroupAggregate OpKind = "group_aggregate"
	OpSort           OpKind = "sort"
	OpLimit          OpKind = "limit"
	OpCollapseRare   OpKind = "collapse_rare"
)

// SortOrder directs a sort operation
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Aggregation pairs a metric column with its aggregate function
type Aggregation struct {
	Column string        `json:"column"`
	Func   AggregateFunc `json:"func"`
	As     string        `json:"as"`
}

// Operation is one step of a plan. Kind selects which fields apply.
type Operation struct {
	Kind OpKind `json:"kind"`

	// select
	Columns []string `json:"columns,omitempty"`

	// filter
	Predicates []Predicate `json:"predicates,omitempty"`

	// group_aggregate
	GroupBy      string        `json:"group_by,omitempty"`
	TimeBucket   Granularity   `json:"time_bucket,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`

	// sort
	SortColumn string    `json:"sort_column,omitempty"`
	SortOrder  SortOrder `json:"sort_order,omitempty"`

	// limit
	Limit int `json:"limit,omitempty"`

	// collapse_rare: groups under MinShare of rows merge into "Other"
	MinShare float64 `json:"min_share,omitempty"`
}

// Plan is an ordered sequence of relational operations compiled from an
// intent. It references Dataset columns only, never raw-file state, and is
// byte-identical for identical (Intent, Dataset) inputs.
type Plan struct {
	Intent IntentKind  `json:"intent"`
	Ops    []Operation `json:"ops"`
}

// Canonical returns the deterministic JSON serialization used for
// fingerprinting and audit storage.
func (p Plan) Canonical() ([]byte, error) {
	return json.Marshal(p)
}

// Fingerprint derives the cache key for this plan against a dataset.
func (p Plan) Fingerprint(datasetID core.DatasetID) (core.Fingerprint, error) {
	raw, err := p.Canonical()
	if err != nil {
		return "", err
	}
	return core.NewFingerprint(datasetID, raw), nil
}
