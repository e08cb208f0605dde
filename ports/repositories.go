package ports

import (
	"context"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// FileRepository persists uploaded file records
type FileRepository interface {
	Create(ctx context.Context, f *table.File) error
	GetByID(ctx context.Context, id core.FileID) (*table.File, error)
	List(ctx context.Context, limit, offset int) ([]*table.File, error)
	UpdateStatus(ctx context.Context, id core.FileID, status table.FileStatus, processingError string) error
	// Update persists the mutable ingestion outcome fields (status,
	// empty sheets, timestamps).
	Update(ctx context.Context, f *table.File) error
	// Delete cascades to the file's datasets and queries.
	Delete(ctx context.Context, id core.FileID) error
}

// DatasetRepository persists canonical datasets keyed by file identity
type DatasetRepository interface {
	Create(ctx context.Context, ds *table.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*table.Dataset, error)
	ListByFile(ctx context.Context, fileID core.FileID) ([]*table.Dataset, error)
	// DeleteByFile removes all datasets derived from a file (rebuild path).
	DeleteByFile(ctx context.Context, fileID core.FileID) error
}

// QueryRepository persists query history, append-only per file
type QueryRepository interface {
	Create(ctx context.Context, q *query.Query) error
	GetByID(ctx context.Context, id core.QueryID) (*query.Query, error)
	ListByFile(ctx context.Context, fileID core.FileID, limit, offset int) ([]*query.Query, error)
	Update(ctx context.Context, q *query.Query) error
}

// ResultCache is the explicit keyed store for query result reuse:
// fingerprint -> DataResult, invalidated when a file's datasets are rebuilt.
type ResultCache interface {
	Get(fp core.Fingerprint) (*query.DataResult, bool)
	Put(fileID core.FileID, fp core.Fingerprint, res *query.DataResult)
	InvalidateFile(fileID core.FileID)
}
