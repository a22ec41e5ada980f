// Package daemon serves the waypoint HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/config"
	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Version is reported by the status endpoint and the CLI
var Version = "0.1.0"

// maxBodyBytes bounds request bodies, including imported profiles
const maxBodyBytes = 1 << 20

// Server represents the waypoint daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	svc    *Services
	server *http.Server
	router  *http.ServeMux
	limiter *learnerLimiter
	logger  *slog.Logger
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config   *config.LocalConfig
	Services *Services
	Logger   *slog.Logger
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("daemon: config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg.Config,
		svc:    cfg.Services,
		router:  http.NewServeMux(),
		limiter: newLearnerLimiter(cfg.Config.Evaluation.RatePerMinute),
		logger:  logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.Config.EvaluationTimeout() + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return correlationIDMiddleware(recoveryMiddleware(loggingMiddleware(s.router)))
}

func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Curriculum & exercise catalog
	s.router.HandleFunc("GET /v1/curriculum", s.handleCurriculum)
	s.router.HandleFunc("GET /v1/exercises", s.handleListExercises)
	s.router.HandleFunc("GET /v1/exercises/{id}", s.handleGetExercise)

	// Learner progress
	s.router.HandleFunc("GET /v1/learners/{id}/progress", s.handleGetProgress)
	s.router.HandleFunc("GET /v1/learners/{id}/stats", s.handleGetStats)
	s.router.HandleFunc("GET /v1/learners/{id}/weeks/{number}", s.handleGetWeek)
	s.router.HandleFunc("GET /v1/learners/{id}/achievements", s.handleGetAchievements)
	s.router.HandleFunc("POST /v1/learners/{id}/complete", s.handleComplete)
	s.router.HandleFunc("POST /v1/learners/{id}/reset", s.handleReset)
	s.router.HandleFunc("GET /v1/learners/{id}/export", s.handleExport)
	s.router.HandleFunc("POST /v1/learners/{id}/import", s.handleImport)
	s.router.HandleFunc("PATCH /v1/learners/{id}/settings", s.handleUpdateSettings)

	// Evaluation & adaptation
	s.router.HandleFunc("POST /v1/learners/{id}/evaluate", s.limiter.wrap(s.handleEvaluate))
	s.router.HandleFunc("GET /v1/learners/{id}/evaluations", s.handleListEvaluations)
	s.router.HandleFunc("POST /v1/learners/{id}/exercises/generate", s.limiter.wrap(s.handleGenerate))
	s.router.HandleFunc("GET /v1/learners/{id}/difficulty", s.handleLearnerDifficulty)
	s.router.HandleFunc("POST /v1/difficulty/recommend", s.handleRecommend)
	s.router.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting waypoint daemon",
		"addr", s.server.Addr,
		"storage", s.cfg.Storage.Backend,
		"strategy", s.svc.Evaluator.Strategy().Name(),
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the services.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	if lerr := s.limiter.close(ctx); lerr != nil {
		s.logger.Warn("failed to close rate limiter", "error", lerr)
	}
	if cerr := s.svc.Close(ctx); cerr != nil {
		s.logger.Warn("failed to close services", "error", cerr)
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":          "running",
		"version":         Version,
		"storage":         s.cfg.Storage.Backend,
		"strategy":        s.svc.Evaluator.Strategy().Name(),
		"curriculum":      s.svc.Curriculum.Name(),
		"active_learners": s.svc.Manager.Active(),
		"async":           s.svc.Jobs != nil,
	})
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// writeError maps domain errors onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.jsonError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, domain.ErrInvalidInput):
		s.jsonError(w, http.StatusBadRequest, "invalid request", err)
	default:
		s.logger.Error("request failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		s.jsonError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidation("body", "request body is empty")
		}
		return domain.NewValidation("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
