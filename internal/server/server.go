// Package server exposes health, metrics and the stored ranking history
// over HTTP while the scheduler is running.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/metrics"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/scheduler"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/storage/history"
)

// Config holds server configuration.
type Config struct {
	Addr        string
	MetricsPath string
	APIKey      string // guards /api/v1; empty disables the check
}

// RunReporter exposes the scheduler state. scheduler.Scheduler implements
// it.
type RunReporter interface {
	LastRun() (scheduler.RunStatus, bool)
	Next() time.Time
}

// Dependencies are the server's data sources. Any may be nil.
type Dependencies struct {
	Metrics *metrics.Registry
	Runs    RunReporter
	History history.Store
}

// Server is the HTTP server of the schedule command.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// NewServer creates the server and its routes.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}

	var handler http.Handler = mux
	handler = metrics.LoggingMiddleware(logger)(handler)
	if deps.Metrics != nil {
		handler = deps.Metrics.Middleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes(cfg)
	return s
}

func (s *Server) setupRoutes(cfg Config) {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, s.deps.Metrics.Handler())
	}

	auth := apiKeyAuth(cfg.APIKey)
	s.mux.Handle("GET /api/v1/ranking/latest", auth(http.HandlerFunc(s.handleLatest)))
	s.mux.Handle("GET /api/v1/ranking/stats", auth(http.HandlerFunc(s.handleStats)))
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

type healthBody struct {
	Status  string               `json:"status"`
	LastRun *scheduler.RunStatus `json:"last_run,omitempty"`
	NextRun *time.Time           `json:"next_run,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok"}
	if s.deps.Runs != nil {
		if last, ok := s.deps.Runs.LastRun(); ok {
			body.LastRun = &last
		}
		if next := s.deps.Runs.Next(); !next.IsZero() {
			body.NextRun = &next
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, errNoHistory)
		return
	}
	records, err := s.deps.History.LatestBatch(r.Context())
	if err != nil {
		s.logger.Error("latest batch query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, errNoHistory)
		return
	}
	stats, err := s.deps.History.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
