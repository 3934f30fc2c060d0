package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/executor"
	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/handlers"
	"github.com/vk/gridforge/internal/hcl"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/process"
	"github.com/vk/gridforge/internal/runtime"
	"github.com/vk/gridforge/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	db         *graph.Database
	handlers   *handlers.Handlers
	runtimes   *runtime.Manager
	scheduler  *scheduler.Scheduler
	processes  *process.Manager
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// wired App with its own logger and graph. Without handlers the built-in
// set is used.
func NewApp(outW io.Writer, cfg *Config, h *handlers.Handlers) (*App, error) {
	logger := newLogger(cfg, outW)
	logger.Debug("Logger configured successfully.")

	if h == nil {
		h = handlers.Builtin()
	}
	logger.Debug("Transform handlers registered.", "names", h.Names())

	exclude, err := fileset.NewExclude(cfg.Exclude...)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	revisers, err := fileset.DefaultRevisers(cfg.HashCacheSize)
	if err != nil {
		return nil, err
	}

	// Transform outputs are revised by content.
	db := graph.New()
	runtimes := runtime.NewManager(hcl.Factory(db, h, revisers[model.StrategyHash]))
	resolver := executor.NewLocal(runtimes, fileset.Options{Exclude: exclude, Revisers: revisers}, os.Getenv)

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		db:        db,
		handlers:  h,
		runtimes:  runtimes,
		scheduler: scheduler.New(db, resolver, cfg.WorkerCount),
		processes: process.NewManager(cfg.StopGrace),
	}, nil
}

// Context returns ctx carrying the app logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Database returns the application's graph. This is primarily for testing.
func (a *App) Database() *graph.Database {
	return a.db
}

// Close stops every schema runtime worker.
func (a *App) Close() {
	a.runtimes.Close()
}
