package query

import (
	"sheetsense/domain/core"
)

// Status tracks the lifecycle of one question
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Query is the persisted record of one question against one file: the
// question text, the resolved intent and compiled plan (kept for audit), the
// result, and the outcome. Owned by the issuing File; never mutated after
// completion except the transition to failed.
type Query struct {
	ID        core.QueryID   `json:"id"`
	FileID    core.FileID    `json:"file_id"`
	DatasetID core.DatasetID `json:"dataset_id"`
	Question  string         `json:"question"`

	Intent *Intent     `json:"intent,omitempty"`
	Plan   *Plan       `json:"plan,omitempty"`
	Result *DataResult `json:"result,omitempty"`

	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    core.Timestamp  `json:"created_at"`
	CompletedAt  *core.Timestamp `json:"completed_at,omitempty"`
}

// Complete marks the query as finished with a result
func (q *Query) Complete(res *DataResult, at core.Timestamp) {
	q.Result = res
	q.Status = StatusCompleted
	q.CompletedAt = &at
}

// Fail marks the query as failed with a human-readable explanation,
// preserving the question for resubmission.
func (q *Query) Fail(reason string, at core.Timestamp) {
	q.Status = StatusFailed
	q.ErrorMessage = reason
	q.CompletedAt = &at
}
