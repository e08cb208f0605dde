package app

import (
	"context"
	"sync"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// In-memory repository fakes for service tests

type memFileRepo struct {
	mu    sync.Mutex
	files map[core.FileID]*table.File
	order []core.FileID
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: map[core.FileID]*table.File{}}
}

func (r *memFileRepo) Create(ctx context.Context, f *table.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.files[f.ID] = &cp
	r.order = append(r.order, f.ID)
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id core.FileID) (*table.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, core.NewNotFoundError("file", id.String())
	}
	cp := *f
	return &cp, nil
}

func (r *memFileRepo) List(ctx context.Context, limit, offset int) ([]*table.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*table.File
	for _, id := range r.order {
		cp := *r.files[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memFileRepo) UpdateStatus(ctx context.Context, id core.FileID, status table.FileStatus, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return core.NewNotFoundError("file", id.String())
	}
	f.Status = status
	f.ProcessingError = processingError
	return nil
}

func (r *memFileRepo) Update(ctx context.Context, f *table.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[f.ID]; !ok {
		return core.NewNotFoundError("file", f.ID.String())
	}
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *memFileRepo) Delete(ctx context.Context, id core.FileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return core.NewNotFoundError("file", id.String())
	}
	delete(r.files, id)
	return nil
}

type memDatasetRepo struct {
	mu     sync.Mutex
	byID   map[core.DatasetID]*table.Dataset
	byFile map[core.FileID][]core.DatasetID
}

func newMemDatasetRepo() *memDatasetRepo {
	return &memDatasetRepo{
		byID:   map[core.DatasetID]*table.Dataset{},
		byFile: map[core.FileID][]core.DatasetID{},
	}
}

func (r *memDatasetRepo) Create(ctx context.Context, ds *table.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ds.ID] = ds
	r.byFile[ds.FileID] = append(r.byFile[ds.FileID], ds.ID)
	return nil
}

func (r *memDatasetRepo) GetByID(ctx context.Context, id core.DatasetID) (*table.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("dataset", id.String())
	}
	return ds, nil
}

func (r *memDatasetRepo) ListByFile(ctx context.Context, fileID core.FileID) ([]*table.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*table.Dataset
	for _, id := range r.byFile[fileID] {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *memDatasetRepo) DeleteByFile(ctx context.Context, fileID core.FileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.byFile[fileID] {
		delete(r.byID, id)
	}
	delete(r.byFile, fileID)
	return nil
}

type memQueryRepo struct {
	mu     sync.Mutex
	byID   map[core.QueryID]*query.Query
	byFile map[core.FileID][]core.QueryID
}

func newMemQueryRepo() *memQueryRepo {
	return &memQueryRepo{
		byID:   map[core.QueryID]*query.Query{},
		byFile: map[core.FileID][]core.QueryID{},
	}
}

func (r *memQueryRepo) Create(ctx context.Context, q *query.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	r.byID[q.ID] = &cp
	r.byFile[q.FileID] = append(r.byFile[q.FileID], q.ID)
	return nil
}

func (r *memQueryRepo) GetByID(ctx context.Context, id core.QueryID) (*query.Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("query", id.String())
	}
	cp := *q
	return &cp, nil
}

func (r *memQueryRepo) ListByFile(ctx context.Context, fileID core.FileID, limit, offset int) ([]*query.Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byFile[fileID]
	var out []*query.Query
	// Newest first, like the SQL implementation
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *r.byID[ids[i]]
		out = append(out, &cp)
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memQueryRepo) Update(ctx context.Context, q *query.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[q.ID]; !ok {
		return core.NewNotFoundError("query", q.ID.String())
	}
	cp := *q
	r.byID[q.ID] = &cp
	return nil
}
