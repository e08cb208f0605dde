package app

import (
	"context"
	"sync"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
	"sheetsense/domain/table"
	"sheetsense/internal"
	"sheetsense/internal/chart"
	"sheetsense/internal/compiler"
	"sheetsense/internal/executor"
	apperrors "sheetsense/internal/errors"
	"sheetsense/ports"
)

// AskResult is the answer to one question: the persisted query record plus
// presentation detail that lives outside it.
type AskResult struct {
	Query       *query.Query `json:"query"`
	Explanation string       `json:"explanation,omitempty"`
	Degraded    bool         `json:"degraded"`
	CacheHit    bool         `json:"cache_hit"`
}

// QueryService answers natural-language questions against ingested files. It
// runs the classify-compile-execute pipeline, persists every attempt to the
// file's query history, and serves repeated questions from the result cache.
type QueryService struct {
	files      ports.FileRepository
	datasets   ports.DatasetRepository
	queries    ports.QueryRepository
	classifier ports.IntentClassifier
	cache      ports.ResultCache
	logger     *internal.Logger

	// History writes for one file are serialized so concurrent questions
	// append in a consistent order.
	mu        sync.Mutex
	fileLocks map[core.FileID]*sync.Mutex
}

func NewQueryService(
	files ports.FileRepository,
	datasets ports.DatasetRepository,
	queries ports.QueryRepository,
	classifier ports.IntentClassifier,
	cache ports.ResultCache,
	logger *internal.Logger,
) *QueryService {
	return &QueryService{
		files:      files,
		datasets:   datasets,
		queries:    queries,
		classifier: classifier,
		cache:      cache,
		logger:     logger,
		fileLocks:  make(map[core.FileID]*sync.Mutex),
	}
}

// Ask answers one question against one file. Failures to compile or execute
// do not error out: they complete the query record as failed with a
// human-readable reason, preserving the question for resubmission.
func (s *QueryService) Ask(ctx context.Context, fileID core.FileID, sheetName, question string) (*AskResult, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.Status != table.FileStatusCompleted {
		return nil, apperrors.InvalidInput("file is not ready for queries: status is " + string(f.Status))
	}

	ds, err := s.selectDataset(ctx, fileID, sheetName)
	if err != nil {
		return nil, err
	}

	q := &query.Query{
		ID:        core.QueryID(core.NewID()),
		FileID:    fileID,
		DatasetID: ds.ID,
		Question:  question,
		Status:    query.StatusPending,
		CreatedAt: core.Now(),
	}
	if err := s.writeQuery(ctx, fileID, q, s.queries.Create); err != nil {
		return nil, err
	}

	classified, err := s.classifier.Classify(ctx, question, ds)
	if err != nil {
		return s.failQuery(ctx, fileID, q, "could not understand the question: "+err.Error())
	}
	q.Intent = &classified.Intent

	plan, err := compiler.Compile(classified.Intent, ds)
	if err != nil {
		return s.failQuery(ctx, fileID, q, err.Error())
	}
	q.Plan = plan

	res, cacheHit, err := s.execute(plan, ds)
	if err != nil {
		return s.failQuery(ctx, fileID, q, err.Error())
	}

	q.Complete(res, core.Now())
	if err := s.writeQuery(ctx, fileID, q, s.queries.Update); err != nil {
		return nil, err
	}

	s.logger.Debug("Answered %q on file %s (kind=%s, cache_hit=%v)", question, fileID, classified.Intent.Kind, cacheHit)
	return &AskResult{
		Query:       q,
		Explanation: classified.Explanation,
		Degraded:    classified.Degraded,
		CacheHit:    cacheHit,
	}, nil
}

func (s *QueryService) execute(plan *query.Plan, ds *table.Dataset) (*query.DataResult, bool, error) {
	fp, err := plan.Fingerprint(ds.ID)
	if err != nil {
		return nil, false, err
	}
	if res, ok := s.cache.Get(fp); ok {
		return res, true, nil
	}

	res, err := executor.Execute(plan, ds)
	if err != nil {
		return nil, false, err
	}
	chart.Apply(res)
	s.cache.Put(ds.FileID, fp, res)
	return res, false, nil
}

func (s *QueryService) failQuery(ctx context.Context, fileID core.FileID, q *query.Query, reason string) (*AskResult, error) {
	q.Fail(reason, core.Now())
	if err := s.writeQuery(ctx, fileID, q, s.queries.Update); err != nil {
		return nil, err
	}
	return &AskResult{Query: q}, nil
}

// History returns a file's query records, newest first
func (s *QueryService) History(ctx context.Context, fileID core.FileID, limit, offset int) ([]*query.Query, error) {
	if _, err := s.files.GetByID(ctx, fileID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.queries.ListByFile(ctx, fileID, limit, offset)
}

// GetQuery returns one query record by ID
func (s *QueryService) GetQuery(ctx context.Context, id core.QueryID) (*query.Query, error) {
	return s.queries.GetByID(ctx, id)
}

func (s *QueryService) selectDataset(ctx context.Context, fileID core.FileID, sheetName string) (*table.Dataset, error) {
	dss, err := s.datasets.ListByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(dss) == 0 {
		return nil, core.NewNotFoundError("dataset for file", fileID.String())
	}
	if sheetName == "" {
		return dss[0], nil
	}
	for _, ds := range dss {
		if ds.SheetName == sheetName {
			return ds, nil
		}
	}
	return nil, core.NewNotFoundError("sheet", sheetName)
}

func (s *QueryService) writeQuery(ctx context.Context, fileID core.FileID, q *query.Query, op func(context.Context, *query.Query) error) error {
	lock := s.fileLock(fileID)
	lock.Lock()
	defer lock.Unlock()
	return op(ctx, q)
}

func (s *QueryService) fileLock(fileID core.FileID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.fileLocks[fileID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.fileLocks[fileID] = l
	return l
}
