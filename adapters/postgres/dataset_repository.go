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

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new dataset
func (r *datasetRepository) Create(ctx context.Context, ds *table.Dataset) error {
	columnsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	rowsJSON, err := json.Marshal(ds.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	query := `INSERT INTO datasets (id, file_id, sheet_name, columns, row_count, rows, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		ds.ID, ds.FileID, ds.SheetName, columnsJSON, ds.RowCount, rowsJSON, ds.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*table.Dataset, error) {
	query := `SELECT id, file_id, sheet_name, columns, row_count, rows, created_at
	FROM datasets WHERE id = $1`

	ds, err := scanDataset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("dataset", id.String())
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// ListByFile retrieves every dataset derived from a file, in sheet order
func (r *datasetRepository) ListByFile(ctx context.Context, fileID core.FileID) ([]*table.Dataset, error) {
	query := `SELECT id, file_id, sheet_name, columns, row_count, rows, created_at
	FROM datasets WHERE file_id = $1 ORDER BY created_at ASC, sheet_name ASC`

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*table.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// DeleteByFile removes all datasets derived from a file (rebuild path)
func (r *datasetRepository) DeleteByFile(ctx context.Context, fileID core.FileID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("failed to delete datasets: %w", err)
	}
	return nil
}

func scanDataset(row rowScanner) (*table.Dataset, error) {
	var ds table.Dataset
	var columnsJSON, rowsJSON []byte
	var createdAt time.Time

	err := row.Scan(&ds.ID, &ds.FileID, &ds.SheetName, &columnsJSON, &ds.RowCount, &rowsJSON, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(columnsJSON, &ds.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	if err := json.Unmarshal(rowsJSON, &ds.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	ds.CreatedAt = core.NewTimestamp(createdAt)
	return &ds, nil
}
