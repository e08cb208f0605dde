package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"sheetsense/adapters/ingest/cleaner"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/internal"
	"sheetsense/internal/profiling"
	"sheetsense/ports"
)

// IngestionConfig controls where uploads land and what gets accepted
type IngestionConfig struct {
	UploadDir  string
	Extensions []string
	// MaxFileSize bounds the stored upload in bytes; 0 means unlimited
	MaxFileSize int64
}

// IngestionService owns the upload-to-dataset lifecycle: it stores the raw
// file, runs the cleaning pipeline and profiler over every sheet, and keeps
// the file's status in step with the outcome. Ingestion of one file is
// deduplicated, so a rebuild requested twice runs once.
type IngestionService struct {
	config   IngestionConfig
	files    ports.FileRepository
	datasets ports.DatasetRepository
	reader   ports.SheetReader
	cleaner  *cleaner.Cleaner
	profiler *profiling.Profiler
	cache    ports.ResultCache
	logger   *internal.Logger

	group    singleflight.Group
	mu       sync.Mutex
	inFlight map[core.FileID]bool
}

func NewIngestionService(
	config IngestionConfig,
	files ports.FileRepository,
	datasets ports.DatasetRepository,
	reader ports.SheetReader,
	cl *cleaner.Cleaner,
	profiler *profiling.Profiler,
	cache ports.ResultCache,
	logger *internal.Logger,
) *IngestionService {
	return &IngestionService{
		config:   config,
		files:    files,
		datasets: datasets,
		reader:   reader,
		cleaner:  cl,
		profiler: profiler,
		cache:    cache,
		logger:   logger,
		inFlight: make(map[core.FileID]bool),
	}
}

// Upload stores the raw spreadsheet on disk and creates a pending file
// record. Processing happens separately so the upload response stays fast.
func (s *IngestionService) Upload(ctx context.Context, originalFilename string, src io.Reader) (*table.File, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !s.extensionAllowed(ext) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, ext)
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	fileID := core.FileID(core.NewID())
	storedName := fileID.String() + ext
	path := filepath.Join(s.config.UploadDir, storedName)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	// Copy at most one byte past the limit so an oversized body is
	// detected without draining it to disk.
	limited := src
	if s.config.MaxFileSize > 0 {
		limited = io.LimitReader(src, s.config.MaxFileSize+1)
	}
	size, err := io.Copy(dst, limited)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if s.config.MaxFileSize > 0 && size > s.config.MaxFileSize {
		os.Remove(path)
		return nil, fmt.Errorf("%w: upload exceeds limit of %d bytes", core.ErrFileTooLarge, s.config.MaxFileSize)
	}

	f := &table.File{
		ID:               fileID,
		Filename:         storedName,
		OriginalFilename: originalFilename,
		Path:             path,
		Size:             size,
		Type:             ext,
		Status:           table.FileStatusPending,
		CreatedAt:        core.Now(),
	}
	if err := s.files.Create(ctx, f); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("Stored upload %s (%s, %d bytes)", fileID, originalFilename, size)
	return f, nil
}

// Process runs the full ingestion pipeline for a file: read, clean, profile,
// persist. Existing datasets for the file are replaced and cached results
// invalidated, so Process doubles as the rebuild path. Concurrent calls for
// the same file share one execution.
func (s *IngestionService) Process(ctx context.Context, fileID core.FileID) error {
	_, err, _ := s.group.Do(fileID.String(), func() (interface{}, error) {
		s.setInFlight(fileID, true)
		defer s.setInFlight(fileID, false)
		return nil, s.ingest(ctx, fileID)
	})
	return err
}

func (s *IngestionService) ingest(ctx context.Context, fileID core.FileID) error {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.files.UpdateStatus(ctx, fileID, table.FileStatusProcessing, ""); err != nil {
		return err
	}

	if err := s.buildDatasets(ctx, f); err != nil {
		s.logger.Warn("Ingestion failed for file %s: %v", fileID, err)
		f.Status = table.FileStatusFailed
		f.ProcessingError = err.Error()
		now := core.Now()
		f.ProcessedAt = &now
		if uerr := s.files.Update(ctx, f); uerr != nil {
			s.logger.Error("Failed to record ingestion failure for %s: %v", fileID, uerr)
		}
		return fmt.Errorf("failed to ingest file %s: %w", fileID, err)
	}

	f.Status = table.FileStatusCompleted
	f.ProcessingError = ""
	now := core.Now()
	f.ProcessedAt = &now
	if err := s.files.Update(ctx, f); err != nil {
		return err
	}

	s.logger.Info("Ingestion completed for file %s", fileID)
	return nil
}

func (s *IngestionService) buildDatasets(ctx context.Context, f *table.File) error {
	sheets, _, err := s.reader.ReadSheets(f.Path)
	if err != nil {
		return err
	}

	// Replace wholesale: stale datasets and cached results must not
	// outlive the file contents they were derived from.
	if err := s.datasets.DeleteByFile(ctx, f.ID); err != nil {
		return err
	}
	s.cache.InvalidateFile(f.ID)
	f.EmptySheets = nil

	built := 0
	for _, raw := range sheets {
		clean, err := s.cleaner.Clean(raw)
		if err != nil {
			if errors.Is(err, core.ErrEmptySheet) {
				f.EmptySheets = append(f.EmptySheets, raw.Name)
				continue
			}
			return fmt.Errorf("failed to clean sheet %q: %w", raw.Name, err)
		}

		ds := s.profiler.Profile(clean, f.ID)
		if err := s.datasets.Create(ctx, ds); err != nil {
			return fmt.Errorf("failed to store dataset for sheet %q: %w", raw.Name, err)
		}
		built++
	}

	if built == 0 {
		return fmt.Errorf("%w: no sheet in %s contained data", core.ErrEmptySheet, f.OriginalFilename)
	}
	return nil
}

// GetFile returns a file record by ID
func (s *IngestionService) GetFile(ctx context.Context, id core.FileID) (*table.File, error) {
	return s.files.GetByID(ctx, id)
}

// ListFiles returns file records, newest first
func (s *IngestionService) ListFiles(ctx context.Context, limit, offset int) ([]*table.File, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.files.List(ctx, limit, offset)
}

// Datasets returns the datasets derived from a file
func (s *IngestionService) Datasets(ctx context.Context, fileID core.FileID) ([]*table.Dataset, error) {
	return s.datasets.ListByFile(ctx, fileID)
}

// DeleteFile removes the file record (datasets and queries cascade), the
// stored upload, and any cached results. Refused while ingestion runs.
func (s *IngestionService) DeleteFile(ctx context.Context, id core.FileID) error {
	if s.isInFlight(id) {
		return core.ErrIngestionRunning
	}

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateFile(id)

	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove stored upload %s: %v", f.Path, err)
	}
	return nil
}

func (s *IngestionService) extensionAllowed(ext string) bool {
	for _, allowed := range s.config.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *IngestionService) setInFlight(id core.FileID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inFlight[id] = true
	} else {
		delete(s.inFlight, id)
	}
}

func (s *IngestionService) isInFlight(id core.FileID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[id]
}
