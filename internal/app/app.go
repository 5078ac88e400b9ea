package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxzi/inkwell/internal/api"
	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/config"
	"github.com/foxzi/inkwell/internal/editor"
	"github.com/foxzi/inkwell/internal/export"
	"github.com/foxzi/inkwell/internal/generator"
	"github.com/foxzi/inkwell/internal/llm"
	"github.com/foxzi/inkwell/internal/metrics"
	"github.com/foxzi/inkwell/internal/proof"
	"github.com/foxzi/inkwell/internal/template"
	"github.com/foxzi/inkwell/internal/transform"
)

// App is the main application
type App struct {
	config        *config.Config
	assets        *asset.BoltStore
	directory     *campaign.Store
	generator     *generator.Service
	editor        *editor.Manager
	exporter      *export.Formatter
	proofs        *proof.Sender
	apiServer     *api.Server
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config, version string) (*App, error) {
	logger := setupLogger(cfg.Logging)

	assets, err := asset.NewBoltStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	directory, err := campaign.NewStore(assets.DB())
	if err != nil {
		assets.Close()
		return nil, fmt.Errorf("failed to create campaign directory: %w", err)
	}

	a := &App{
		config:    cfg,
		assets:    assets,
		directory: directory,
		logger:    logger,
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		metrics.SetGlobal(a.metrics)

		a.collector, err = metrics.NewCollector(assets.DB(), a.metrics, assets, cfg.Storage.Path, cfg.Metrics.FlushInterval)
		if err != nil {
			assets.Close()
			return nil, fmt.Errorf("failed to create metrics collector: %w", err)
		}
		a.metricsServer = metrics.NewServer(a.metrics, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger)
	}

	client := llm.NewClient(cfg.LLM, logger)
	engine := template.NewEngine()
	pipeline := transform.NewPipeline(transform.CSSInliner{}, transform.NewPlainText(), logger)

	a.generator = generator.New(directory, assets, client, engine, pipeline, generator.Options{
		DefaultMode:      asset.GenerationMode(cfg.Generation.DefaultMode),
		DefaultTemplate:  cfg.Generation.DefaultTemplate,
		AtomicRegenerate: cfg.Generation.AtomicRegenerate,
		MaxTokens:        cfg.Generation.MaxTokens,
	}, logger)
	a.editor = editor.NewManager(assets, client, pipeline, editor.UndoMode(cfg.Editing.UndoMode), cfg.Generation.EditMaxTokens, logger)
	a.exporter = export.NewFormatter(assets, logger)

	a.proofs, err = proof.NewSender(assets, cfg.Proof, logger)
	if err != nil {
		assets.Close()
		return nil, fmt.Errorf("failed to create proof sender: %w", err)
	}

	a.apiServer = api.NewServer(api.Deps{
		Assets:    assets,
		Generator: a.generator,
		Editor:    a.editor,
		Exporter:  a.exporter,
		Proofs:    a.proofs,
		Templates: engine,
	}, &cfg.API, version, logger)

	return a, nil
}

// Assets returns the asset store
func (a *App) Assets() *asset.BoltStore {
	return a.assets
}

// Directory returns the campaign directory
func (a *App) Directory() *campaign.Store {
	return a.directory
}

// Generator returns the generation service
func (a *App) Generator() *generator.Service {
	return a.generator
}

// Editor returns the edit manager
func (a *App) Editor() *editor.Manager {
	return a.editor
}

// Exporter returns the export formatter
func (a *App) Exporter() *export.Formatter {
	return a.exporter
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	logAttrs := []any{
		"api_addr", a.config.API.ListenAddr,
		"storage", a.config.Storage.Path,
		"llm_provider", a.config.LLM.Provider,
		"default_mode", a.config.Generation.DefaultMode,
		"proof", a.config.Proof.Enabled,
	}
	if a.metricsServer != nil {
		logAttrs = append(logAttrs, "metrics_addr", a.config.Metrics.ListenAddr)
	}
	a.logger.Info("starting inkwell", logAttrs...)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		a.collector.Start(ctx)
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Persists counters, so it must run before storage is closed
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.logger.Error("metrics collector stop error", "error", err)
		}
	}

	if err := a.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// Close releases storage without stopping servers. Used by one-shot commands.
func (a *App) Close() error {
	return a.assets.Close()
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
