// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/stash/internal/api"
	"github.com/starford/stash/internal/index"
	"github.com/starford/stash/internal/indexer"
	"github.com/starford/stash/internal/itemservice"
	"github.com/starford/stash/internal/search"
	"github.com/starford/stash/internal/sse"
	"github.com/starford/stash/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	// Change feed and storage.
	feed := storage.NewFeed()
	defer feed.Close()

	store, err := storage.NewFS(cfg.Library.Path, feed)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Search index. Open never fails; a broken index runs degraded.
	idx := index.Open(cfg.Index.Path, logger)
	defer idx.Close()

	// Indexer: initial full reindex, then follow the change feed.
	ix := indexer.New(idx, store, feed, logger)
	if err := ix.ReindexAll(); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}

	// SSE broker, bridged from the storage change feed.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	brokerSub := feed.Subscribe()
	go func() {
		for batch := range brokerSub {
			for _, ev := range batch {
				broker.PublishItemEvent(string(ev.Kind), ev.ID)
			}
		}
	}()

	// Domain services and API router.
	items := itemservice.NewService(store)
	searcher := search.NewService(idx, store, logger)
	apiRouter := api.NewRouter(items, searcher, ix, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Library.Path)

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Attachment downloads.
	ah := api.NewAttachmentHandler(cfg.Library.Path)
	r.Get("/attachments/{filename}", ah.ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Follow the change feed into the index.
	ix.Start(gCtx)
	defer ix.Stop()

	// Watch the library directory for external edits.
	g.Go(func() error {
		if err := storage.Watch(gCtx, store, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("library watcher stopped", slog.String("error", err.Error()))
		}
		return nil
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
