// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/dailyvault/internal/api"
	"github.com/starford/dailyvault/internal/daily"
	"github.com/starford/dailyvault/internal/gitsync"
	"github.com/starford/dailyvault/internal/mcpserver"
	"github.com/starford/dailyvault/internal/noteservice"
	"github.com/starford/dailyvault/internal/sse"
	"github.com/starford/dailyvault/internal/storage"
	"github.com/starford/dailyvault/internal/watcher"
)

// core holds the components shared by every command.
type core struct {
	logger  *slog.Logger
	store   *storage.FS
	manager *gitsync.Manager // nil when sync is disabled
	svc     *noteservice.Service
	closer  io.Closer
}

func (c *core) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger, tee'd into a rotated file when one is
// configured.
func (a *application) newLogger() (*slog.Logger, io.Closer) {
	lf := a.config.App.LogFile
	out := a.logOutput
	var closer io.Closer
	if lf.Path != "" {
		rotated := &lumberjack.Logger{
			Filename:   lf.Path,
			MaxSize:    lf.MaxSizeMB,
			MaxBackups: lf.MaxBackups,
			MaxAge:     lf.MaxAgeDays,
		}
		out = io.MultiWriter(out, rotated)
		closer = rotated
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	return logger, closer
}

// build wires storage, synchronization and the daily engine. notify, if
// non-nil, receives every completed pull and push.
func (a *application) build(notify gitsync.Notifier) (*core, error) {
	cfg := a.config
	logger, closer := a.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Any("namespaces", cfg.Vault.Namespaces),
		slog.Bool("sync_enabled", cfg.Sync.Enabled),
		slog.String("sync_mode", cfg.Sync.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	for _, ns := range cfg.Vault.Namespaces {
		if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, ns), 0o755); err != nil {
			return nil, fmt.Errorf("create namespace dir %s: %w", ns, err)
		}
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Namespaces)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	loc, err := cfg.Daily.Location()
	if err != nil {
		return nil, fmt.Errorf("daily: %w", err)
	}

	c := &core{logger: logger, store: store, closer: closer}

	// Interface left nil when sync is disabled; the engine and service
	// treat a nil syncer as "sync disabled".
	var syncer noteservice.Syncer
	if cfg.Sync.Enabled {
		g := gitsync.NewGit(store.Root(),
			gitsync.WithRemote(cfg.Sync.Remote),
			gitsync.WithTimeout(cfg.Sync.CommandTimeout),
			gitsync.WithAuthor(cfg.Sync.AuthorName, cfg.Sync.AuthorEmail),
			gitsync.WithLogger(logger),
		)
		c.manager = gitsync.NewManager(g,
			gitsync.WithInline(cfg.Sync.Inline()),
			gitsync.WithDebounce(cfg.Sync.Debounce),
			gitsync.WithMinPullInterval(cfg.Sync.MinPullInterval),
			gitsync.WithNotifier(notify),
			gitsync.WithManagerLogger(logger),
		)
		syncer = c.manager
	}

	engine := daily.New(store, syncer,
		daily.WithDir(cfg.Daily.Dir),
		daily.WithLocation(loc),
		daily.WithCategories(cfg.Daily.Categories),
		daily.WithLogger(logger),
	)
	c.svc = noteservice.NewService(store, engine, syncer, logger)
	return c, nil
}

// runManager processes background pushes until ctx is cancelled.
func (c *core) runManager(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	return c.manager.Run(ctx)
}

// Run starts the HTTP server, file watcher and sync manager.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := app.build(func(kind string, o gitsync.Outcome) {
		broker.PublishSync(kind, o.OK, o.Message)
	})
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	w, err := watcher.New(c.store.Root(), cfg.Vault.Namespaces, cfg.Vault.Ignore, c.store, logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}

	apiRouter := api.NewRouter(c.svc, api.RouterConfig{
		AuthEnabled:    cfg.Auth.AuthEnabled(),
		Token:          cfg.Auth.Token,
		Namespaces:     cfg.Vault.Namespaces,
		AllowedOrigins: cfg.App.CORS.AllowedOrigins,
		Events:         broker,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(c.store.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return w.Run(gCtx, func(kind, namespace, path string) {
			broker.PublishFileEvent(kind, namespace, path)
		})
	})

	g.Go(func() error {
		return c.runManager(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher and flushes pending pushes.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr unless another
// output is configured.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.build(nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.runManager(ctx) }()

	c.logger.Info("mcp: serving on stdio", slog.String("version", app.version))
	serveErr := mcpserver.New(c.svc, app.version).ServeStdio()

	cancel()
	if err := <-done; err != nil {
		c.logger.Warn("mcp: sync manager stopped with error", slog.String("error", err.Error()))
	}
	if serveErr != nil {
		return fmt.Errorf("mcp: %w", serveErr)
	}
	return nil
}

// RunSync performs one pull and push and reports the outcome on out.
func RunSync(ctx context.Context, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if !app.config.Sync.Enabled {
		return fmt.Errorf("sync is disabled in the configuration")
	}
	c, err := app.build(nil)
	if err != nil {
		return err
	}
	defer c.Close()

	o := c.svc.Sync(ctx)
	_, _ = fmt.Fprintln(out, o.Message)
	if !o.OK {
		return fmt.Errorf("sync failed: %s", o.Message)
	}
	return nil
}
