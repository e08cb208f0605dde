package api

import (
	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// FileResponse is the wire form of a file record
type FileResponse struct {
	ID               string   `json:"id"`
	OriginalFilename string   `json:"original_filename"`
	Size             int64    `json:"size"`
	Type             string   `json:"type"`
	Status           string   `json:"status"`
	ProcessingError  string   `json:"processing_error,omitempty"`
	EmptySheets      []string `json:"empty_sheets,omitempty"`
	CreatedAt        string   `json:"created_at"`
	ProcessedAt      string   `json:"processed_at,omitempty"`
}

func toFileResponse(f *table.File) FileResponse {
	resp := FileResponse{
		ID:               f.ID.String(),
		OriginalFilename: f.OriginalFilename,
		Size:             f.Size,
		Type:             f.Type,
		Status:           string(f.Status),
		ProcessingError:  f.ProcessingError,
		EmptySheets:      f.EmptySheets,
		CreatedAt:        f.CreatedAt.String(),
	}
	if f.ProcessedAt != nil {
		resp.ProcessedAt = f.ProcessedAt.String()
	}
	return resp
}

// DatasetSummary describes one sheet's schema without shipping its rows
type DatasetSummary struct {
	ID        string                `json:"id"`
	SheetName string                `json:"sheet_name"`
	Columns   []table.ColumnProfile `json:"columns"`
	RowCount  int                   `json:"row_count"`
	Preview   [][]table.Value       `json:"preview,omitempty"`
}

const previewRows = 10

func toDatasetSummary(ds *table.Dataset) DatasetSummary {
	summary := DatasetSummary{
		ID:        ds.ID.String(),
		SheetName: ds.SheetName,
		Columns:   ds.Columns,
		RowCount:  ds.RowCount,
	}
	if len(ds.Rows) > 0 {
		n := previewRows
		if n > len(ds.Rows) {
			n = len(ds.Rows)
		}
		summary.Preview = ds.Rows[:n]
	}
	return summary
}

// QueryRequest is the body of a question submission
type QueryRequest struct {
	Question string `json:"question"`
	Sheet    string `json:"sheet,omitempty"`
}

// QueryResponse is the wire form of an answered (or failed) question
type QueryResponse struct {
	QueryID         string            `json:"query_id"`
	Question        string            `json:"question"`
	Status          string            `json:"status"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Intent          *query.Intent     `json:"intent,omitempty"`
	Result          *query.DataResult `json:"result,omitempty"`
	Explanation     string            `json:"explanation,omitempty"`
	ExplanationHTML string            `json:"explanation_html,omitempty"`
	Degraded        bool              `json:"degraded,omitempty"`
	CacheHit        bool              `json:"cache_hit,omitempty"`
	CreatedAt       string            `json:"created_at"`
	CompletedAt     string            `json:"completed_at,omitempty"`
}

func toQueryResponse(q *query.Query) QueryResponse {
	resp := QueryResponse{
		QueryID:      q.ID.String(),
		Question:     q.Question,
		Status:       string(q.Status),
		ErrorMessage: q.ErrorMessage,
		Intent:       q.Intent,
		Result:       q.Result,
		CreatedAt:    q.CreatedAt.String(),
	}
	if q.CompletedAt != nil {
		resp.CompletedAt = q.CompletedAt.String()
	}
	return resp
}

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
