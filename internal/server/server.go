// Package server provides the HTTP API for Torikomi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/config"
	"github.com/hyperjump/torikomi/internal/ingest"
	"github.com/hyperjump/torikomi/internal/progress"
	"github.com/hyperjump/torikomi/internal/rag"
	"github.com/hyperjump/torikomi/internal/search"
)

// Server is the HTTP server for the Torikomi API.
type Server struct {
	orchestrator *ingest.Orchestrator
	merger       *search.Merger
	rag          *rag.Service
	tracker      *progress.Tracker
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. The rag service may
// be nil when no completion model is configured; the ask endpoint then
// returns 503.
func NewServer(
	orchestrator *ingest.Orchestrator,
	merger *search.Merger,
	ragService *rag.Service,
	tracker *progress.Tracker,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		merger:       merger,
		rag:          ragService,
		tracker:      tracker,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/ingest/folder", s.handleIngestFolder)
	r.Get("/api/v1/progress", s.handleProgress)
	r.Get("/api/v1/progress/stream", s.handleProgressStream)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Delete("/api/v1/index", s.handleFlush)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
