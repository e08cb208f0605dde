package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/ports"
)

// queryRepository implements the QueryRepository interface
type queryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository creates a new query repository
func NewQueryRepository(db *sqlx.DB) ports.QueryRepository {
	return &queryRepository{db: db}
}

// Create inserts a new query record
func (r *queryRepository) Create(ctx context.Context, q *query.Query) error {
	intentJSON, planJSON, resultJSON, err := marshalQueryParts(q)
	if err != nil {
		return err
	}

	stmt := `INSERT INTO queries (id, file_id, dataset_id, question, intent, plan, result, status, error_message, created_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, stmt,
		q.ID, q.FileID, q.DatasetID, q.Question,
		intentJSON, planJSON, resultJSON,
		q.Status, q.ErrorMessage, q.CreatedAt.Time(), timePtr(q.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create query: %w", err)
	}
	return nil
}

// GetByID retrieves a query by its ID
func (r *queryRepository) GetByID(ctx context.Context, id core.QueryID) (*query.Query, error) {
	stmt := `SELECT id, file_id, dataset_id, question, intent, plan, result, status, error_message, created_at, completed_at
	FROM queries WHERE id = $1`

	q, err := scanQuery(r.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("query", id.String())
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return q, nil
}

// ListByFile retrieves a file's query history, newest first
func (r *queryRepository) ListByFile(ctx context.Context, fileID core.FileID, limit, offset int) ([]*query.Query, error) {
	stmt := `SELECT id, file_id, dataset_id, question, intent, plan, result, status, error_message, created_at, completed_at
	FROM queries WHERE file_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, stmt, fileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var queries []*query.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Update persists the outcome of a query (completion or failure)
func (r *queryRepository) Update(ctx context.Context, q *query.Query) error {
	intentJSON, planJSON, resultJSON, err := marshalQueryParts(q)
	if err != nil {
		return err
	}

	stmt := `UPDATE queries SET dataset_id = $2, intent = $3, plan = $4, result = $5, status = $6, error_message = $7, completed_at = $8
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, stmt,
		q.ID, q.DatasetID, intentJSON, planJSON, resultJSON,
		q.Status, q.ErrorMessage, timePtr(q.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update query: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return core.NewNotFoundError("query", q.ID.String())
	}
	return nil
}

func marshalQueryParts(q *query.Query) (intentJSON, planJSON, resultJSON []byte, err error) {
	if q.Intent != nil {
		if intentJSON, err = json.Marshal(q.Intent); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal intent: %w", err)
		}
	}
	if q.Plan != nil {
		if planJSON, err = json.Marshal(q.Plan); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal plan: %w", err)
		}
	}
	if q.Result != nil {
		if resultJSON, err = json.Marshal(q.Result); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}
	return intentJSON, planJSON, resultJSON, nil
}

func scanQuery(row rowScanner) (*query.Query, error) {
	var q query.Query
	var intentJSON, planJSON, resultJSON []byte
	var createdAt time.Time
	var completedAt sql.NullTime

	err := row.Scan(&q.ID, &q.FileID, &q.DatasetID, &q.Question,
		&intentJSON, &planJSON, &resultJSON,
		&q.Status, &q.ErrorMessage, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if len(intentJSON) > 0 {
		if err := json.Unmarshal(intentJSON, &q.Intent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
		}
	}
	if len(planJSON) > 0 {
		if err := json.Unmarshal(planJSON, &q.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &q.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	q.CreatedAt = core.NewTimestamp(createdAt)
	if completedAt.Valid {
		ts := core.NewTimestamp(completedAt.Time)
		q.CompletedAt = &ts
	}
	return &q, nil
}
