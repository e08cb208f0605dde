package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/ports"
)

// fileRepository implements the FileRepository interface
type fileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *sqlx.DB) ports.FileRepository {
	return &fileRepository{db: db}
}

// Create inserts a new file record
func (r *fileRepository) Create(ctx context.Context, f *table.File) error {
	emptySheets, err := json.Marshal(f.EmptySheets)
	if err != nil {
		return fmt.Errorf("failed to marshal empty sheets: %w", err)
	}

	query := `INSERT INTO files (
		id, filename, original_filename, path, size, type,
		status, processing_error, empty_sheets, created_at, processed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		f.ID, f.Filename, f.OriginalFilename, f.Path, f.Size, f.Type,
		f.Status, f.ProcessingError, emptySheets, f.CreatedAt.Time(), timePtr(f.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID retrieves a file by its ID
func (r *fileRepository) GetByID(ctx context.Context, id core.FileID) (*table.File, error) {
	query := `SELECT id, filename, original_filename, path, size, type,
		status, processing_error, empty_sheets, created_at, processed_at
	FROM files WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	f, err := scanFile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("file", id.String())
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// List retrieves files, newest first
func (r *fileRepository) List(ctx context.Context, limit, offset int) ([]*table.File, error) {
	query := `SELECT id, filename, original_filename, path, size, type,
		status, processing_error, empty_sheets, created_at, processed_at
	FROM files ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*table.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateStatus transitions a file's processing status
func (r *fileRepository) UpdateStatus(ctx context.Context, id core.FileID, status table.FileStatus, processingError string) error {
	var processedAt *time.Time
	if status == table.FileStatusCompleted || status == table.FileStatusFailed {
		now := time.Now()
		processedAt = &now
	}

	query := `UPDATE files SET status = $2, processing_error = $3, processed_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, processingError, processedAt)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return core.NewNotFoundError("file", id.String())
	}
	return nil
}

// Update persists the mutable ingestion outcome fields
func (r *fileRepository) Update(ctx context.Context, f *table.File) error {
	emptySheets, err := json.Marshal(f.EmptySheets)
	if err != nil {
		return fmt.Errorf("failed to marshal empty sheets: %w", err)
	}

	query := `UPDATE files SET status = $2, processing_error = $3, empty_sheets = $4, processed_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		f.ID, f.Status, f.ProcessingError, emptySheets, timePtr(f.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return core.NewNotFoundError("file", f.ID.String())
	}
	return nil
}

// Delete removes a file; datasets and queries cascade in the database
func (r *fileRepository) Delete(ctx context.Context, id core.FileID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return core.NewNotFoundError("file", id.String())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*table.File, error) {
	var f table.File
	var emptySheets []byte
	var createdAt time.Time
	var processedAt sql.NullTime

	err := row.Scan(
		&f.ID, &f.Filename, &f.OriginalFilename, &f.Path, &f.Size, &f.Type,
		&f.Status, &f.ProcessingError, &emptySheets, &createdAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	f.CreatedAt = core.NewTimestamp(createdAt)
	if processedAt.Valid {
		ts := core.NewTimestamp(processedAt.Time)
		f.ProcessedAt = &ts
	}
	if len(emptySheets) > 0 {
		if err := json.Unmarshal(emptySheets, &f.EmptySheets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal empty sheets: %w", err)
		}
	}
	return &f, nil
}

func timePtr(ts *core.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time()
	return &t
}
