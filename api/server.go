package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sheetsense/app"
	"sheetsense/domain/core"
	"sheetsense/internal"
	apperrors "sheetsense/internal/errors"
)

// Server is the HTTP surface over the application services
type Server struct {
	router      *chi.Mux
	ingestion   *app.IngestionService
	queries     *app.QueryService
	suggestions *app.SuggestionService
	logger      *internal.Logger
	port        string
}

// Config holds server configuration
type Config struct {
	Port string
}

// NewServer creates a server with routes and middleware wired
func NewServer(
	config Config,
	ingestion *app.IngestionService,
	queries *app.QueryService,
	suggestions *app.SuggestionService,
	logger *internal.Logger,
) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		ingestion:   ingestion,
		queries:     queries,
		suggestions: suggestions,
		logger:      logger,
		port:        config.Port,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/files", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleListFiles)
		r.Get("/{id}", s.handleGetFile)
		r.Delete("/{id}", s.handleDeleteFile)
		r.Post("/{id}/reprocess", s.handleReprocess)
		r.Get("/{id}/datasets", s.handleListDatasets)
		r.Post("/{id}/query", s.handleQuery)
		r.Get("/{id}/queries", s.handleQueryHistory)
		r.Get("/{id}/suggestions", s.handleSuggestions)
	})

	s.router.Get("/api/queries/{id}", s.handleGetQuery)
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on the configured port
func (s *Server) Start() error {
	addr := ":" + s.port
	s.logger.Info("Starting API server on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFoundError(err) || code == apperrors.CodeNotFound:
		status = http.StatusNotFound
	case core.IsIngestionError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrIngestionRunning):
		status = http.StatusConflict
	case code == apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	}
	s.respondJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}
