package app

import (
	"context"

	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/internal/suggest"
	"sheetsense/ports"
)

// SuggestionService proposes starter questions for an ingested file,
// derived from the active dataset's column profiles.
type SuggestionService struct {
	datasets ports.DatasetRepository
}

func NewSuggestionService(datasets ports.DatasetRepository) *SuggestionService {
	return &SuggestionService{datasets: datasets}
}

// Suggest returns up to five candidate questions for a file's sheet. An
// empty sheet name selects the first sheet.
func (s *SuggestionService) Suggest(ctx context.Context, fileID core.FileID, sheetName string) ([]suggest.Suggestion, error) {
	dss, err := s.datasets.ListByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(dss) == 0 {
		return nil, core.NewNotFoundError("dataset for file", fileID.String())
	}

	var ds *table.Dataset
	if sheetName == "" {
		ds = dss[0]
	} else {
		for _, candidate := range dss {
			if candidate.SheetName == sheetName {
				ds = candidate
				break
			}
		}
		if ds == nil {
			return nil, core.NewNotFoundError("sheet", sheetName)
		}
	}

	return suggest.Generate(ds), nil
}
