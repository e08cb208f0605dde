package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sheetsense/domain/core"
	apperrors "sheetsense/internal/errors"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; the
// remainder spills to temp files.
const maxUploadMemory = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.respondError(w, apperrors.InvalidInput("request is not valid multipart form data"))
		return
	}
	src, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, apperrors.InvalidInput("missing form field \"file\""))
		return
	}
	defer src.Close()

	f, err := s.ingestion.Upload(r.Context(), header.Filename, src)
	if err != nil {
		s.respondError(w, err)
		return
	}

	// Ingestion continues after the response; poll the file status.
	go func() {
		if err := s.ingestion.Process(context.Background(), f.ID); err != nil {
			s.logger.Warn("Background ingestion of %s failed: %v", f.ID, err)
		}
	}()

	s.respondJSON(w, http.StatusAccepted, toFileResponse(f))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	files, err := s.ingestion.ListFiles(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	f, err := s.ingestion.GetFile(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toFileResponse(f))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.ingestion.DeleteFile(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if _, err := s.ingestion.GetFile(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}

	go func() {
		if err := s.ingestion.Process(context.Background(), id); err != nil {
			s.logger.Warn("Reprocessing of %s failed: %v", id, err)
		}
	}()
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	datasets, err := s.ingestion.Datasets(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]DatasetSummary, 0, len(datasets))
	for _, ds := range datasets {
		out = append(out, toDatasetSummary(ds))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, apperrors.InvalidInput("request body is not valid JSON"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, apperrors.InvalidInput("question must not be empty"))
		return
	}

	result, err := s.queries.Ask(r.Context(), id, req.Sheet, req.Question)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := toQueryResponse(result.Query)
	resp.Explanation = result.Explanation
	resp.ExplanationHTML = renderMarkdown(result.Explanation)
	resp.Degraded = result.Degraded
	resp.CacheHit = result.CacheHit
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	limit, offset := pagination(r)
	queries, err := s.queries.History(r.Context(), id, limit, offset)
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]QueryResponse, 0, len(queries))
	for _, q := range queries {
		out = append(out, toQueryResponse(q))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseQueryID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	q, err := s.queries.GetQuery(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQueryResponse(q))
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, err := fileIDParam(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	suggestions, err := s.suggestions.Suggest(r.Context(), id, r.URL.Query().Get("sheet"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, suggestions)
}

func fileIDParam(r *http.Request) (core.FileID, error) {
	id, err := core.ParseFileID(chi.URLParam(r, "id"))
	if err != nil {
		return "", apperrors.InvalidInput(err.Error())
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
