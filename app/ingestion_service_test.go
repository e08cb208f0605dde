package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsense/adapters/excel"
	"sheetsense/adapters/ingest/cleaner"
	"sheetsense/adapters/ingest/coercer"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/internal"
	"sheetsense/internal/cache"
	"sheetsense/internal/profiling"
)

const salesCSV = `region,sales,order_date
East,100,2024-01-05
West,200,2024-02-10
East,50,2024-03-15
`

func newTestIngestionService(t *testing.T) (*IngestionService, *memDatasetRepo) {
	t.Helper()

	co := coercer.New(coercer.DefaultConfig())
	datasets := newMemDatasetRepo()
	svc := NewIngestionService(
		IngestionConfig{
			UploadDir:  t.TempDir(),
			Extensions: []string{".xlsx", ".xlsm", ".csv"},
		},
		newMemFileRepo(),
		datasets,
		excel.NewReader(excel.DefaultConfig()),
		cleaner.New(cleaner.DefaultConfig(), co),
		profiling.New(profiling.DefaultConfig(), co),
		cache.New(),
		internal.NewDefaultLogger(),
	)
	return svc, datasets
}

func TestUploadAndProcess_CSV(t *testing.T) {
	svc, _ := newTestIngestionService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, table.FileStatusPending, f.Status)
	assert.Equal(t, "sales.csv", f.OriginalFilename)
	assert.FileExists(t, f.Path)

	require.NoError(t, svc.Process(ctx, f.ID))

	stored, err := svc.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, table.FileStatusCompleted, stored.Status)
	assert.Empty(t, stored.ProcessingError)
	require.NotNil(t, stored.ProcessedAt)

	dss, err := svc.Datasets(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, dss, 1)

	ds := dss[0]
	assert.Equal(t, 3, ds.RowCount)
	require.Equal(t, []string{"region", "sales", "order_date"}, ds.ColumnNames())
	assert.Equal(t, table.TypeCategorical, ds.Columns[0].InferredType)
	assert.Equal(t, table.TypeInteger, ds.Columns[1].InferredType)
	assert.Equal(t, table.TypeDatetime, ds.Columns[2].InferredType)
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	svc, _ := newTestIngestionService(t)

	_, err := svc.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedType))
}

func TestUpload_RejectsOversizedBody(t *testing.T) {
	co := coercer.New(coercer.DefaultConfig())
	dir := t.TempDir()
	svc := NewIngestionService(
		IngestionConfig{
			UploadDir:   dir,
			Extensions:  []string{".csv"},
			MaxFileSize: 16,
		},
		newMemFileRepo(),
		newMemDatasetRepo(),
		excel.NewReader(excel.DefaultConfig()),
		cleaner.New(cleaner.DefaultConfig(), co),
		profiling.New(profiling.DefaultConfig(), co),
		cache.New(),
		internal.NewDefaultLogger(),
	)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "sales.csv", strings.NewReader(salesCSV))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFileTooLarge))

	// Neither a file record nor a stored upload may survive the rejection
	files, err := svc.ListFiles(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, files)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess_HeaderOnlySheetFails(t *testing.T) {
	svc, _ := newTestIngestionService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "empty.csv", strings.NewReader("region,sales\n"))
	require.NoError(t, err)

	err = svc.Process(ctx, f.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEmptySheet))

	stored, err := svc.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, table.FileStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ProcessingError)
}

func TestProcess_ReplacesDatasetsOnRebuild(t *testing.T) {
	svc, datasets := newTestIngestionService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, f.ID))
	require.NoError(t, svc.Process(ctx, f.ID))

	dss, err := datasets.ListByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, dss, 1, "reprocessing must replace, not accumulate")
}

func TestDeleteFile_RemovesRecordAndUpload(t *testing.T) {
	svc, _ := newTestIngestionService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, f.ID))

	require.NoError(t, svc.DeleteFile(ctx, f.ID))

	_, err = svc.GetFile(ctx, f.ID)
	assert.True(t, core.IsNotFoundError(err))

	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
}
