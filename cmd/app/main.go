package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/stash/internal"
	"github.com/starford/stash/internal/index"
	"github.com/starford/stash/internal/indexer"
	"github.com/starford/stash/internal/itemservice"
	"github.com/starford/stash/internal/mcpserver"
	"github.com/starford/stash/internal/search"
	"github.com/starford/stash/internal/storage"
	pkgconfig "github.com/starford/stash/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runMCP serves the MCP tools over stdio against the configured library.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout stays clean for the MCP transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	feed := storage.NewFeed()
	defer feed.Close()

	store, err := storage.NewFS(cfg.Library.Path, feed)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	idx := index.Open(cfg.Index.Path, logger)
	defer idx.Close()

	ix := indexer.New(idx, store, feed, logger)
	if err := ix.ReindexAll(); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}
	ix.Start(ctx)
	defer ix.Stop()

	items := itemservice.NewService(store)
	searcher := search.NewService(idx, store, logger)

	return mcpserver.New(items, searcher, cfg.Library.Path).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "stash",
		Usage:  "Local-first personal knowledge base with JSON item storage and full-text search",
		Action: runServe,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio for LLM integration",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
