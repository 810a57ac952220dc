package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/hybrid-retriever/internal/adapters/mcp"
	"github.com/kirillkom/hybrid-retriever/internal/bootstrap"
	"github.com/kirillkom/hybrid-retriever/internal/config"
	"github.com/kirillkom/hybrid-retriever/internal/observability/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	// stdout belongs to the MCP transport; all logging goes to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("mcp server starting on stdio")
	return mcpadapter.NewServer(app.Retrieval, app.Repo).ServeStdio()
}
