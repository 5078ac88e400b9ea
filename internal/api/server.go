package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/config"
	"github.com/foxzi/inkwell/internal/editor"
	"github.com/foxzi/inkwell/internal/export"
	"github.com/foxzi/inkwell/internal/generator"
	"github.com/foxzi/inkwell/internal/metrics"
	"github.com/foxzi/inkwell/internal/proof"
	"github.com/foxzi/inkwell/internal/template"
)

// Deps are the services exposed over HTTP
type Deps struct {
	Assets    asset.Store
	Generator *generator.Service
	Editor    *editor.Manager
	Exporter  *export.Formatter
	Proofs    *proof.Sender
	Templates *template.Engine
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     *config.APIConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(deps Deps, cfg *config.APIConfig, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		version:   version,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.identityMiddleware)
		r.Use(s.bodyLimitMiddleware)

		r.Route("/campaigns/{campaignID}/emails", func(r chi.Router) {
			r.Get("/", s.handleListAssets)
			r.Delete("/", s.handleDeleteAssets)
			r.Post("/generate", s.handleGenerate)
		})

		r.Post("/emails/export", s.handleBulkExport)
		r.Route("/emails/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAsset)
			r.Put("/", s.handleUpdateAsset)
			r.Post("/ai-edit", s.handleAIEdit)
			r.Post("/approve", s.handleApprove)
			r.Post("/undo", s.handleUndo)
			r.Get("/validation", s.handleAssetValidation)
			r.Get("/export", s.handleExport)
			r.Post("/proof", s.handleProof)
		})

		r.Get("/templates", s.handleTemplates)
		r.Post("/templates/{id}/preview", s.handleTemplatePreview)
		r.Post("/validate", s.handleValidate)
		r.Post("/sanitize", s.handleSanitize)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
