package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// statements holds the schema in declaration order. Datasets and queries
// hang off files with ON DELETE CASCADE, so deleting a file removes its
// derived state in one statement.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		path TEXT NOT NULL,
		size BIGINT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		processing_error TEXT NOT NULL DEFAULT '',
		empty_sheets JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		sheet_name TEXT NOT NULL,
		columns JSONB NOT NULL,
		row_count INTEGER NOT NULL,
		rows JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_datasets_file_id ON datasets(file_id)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		dataset_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		intent JSONB,
		plan JSONB,
		result JSONB,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_file_id ON queries(file_id, created_at)`,
}

// Up applies the schema, idempotently
func Up(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration statement %d: %w", i, err)
		}
	}
	return nil
}
