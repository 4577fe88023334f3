package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	opsboard "github.com/stitchgrid/opsboard"
	"github.com/stitchgrid/opsboard/internal/config"
	"github.com/stitchgrid/opsboard/internal/db"
	"github.com/stitchgrid/opsboard/internal/rowstore"
	"github.com/stitchgrid/opsboard/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("err", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("path", cfg.DBPath), slog.Any("err", err))
		os.Exit(1)
	}
	defer database.Close()

	store := rowstore.New(database)

	srv, err := server.New(cfg, store, logger, opsboard.TemplatesFS, opsboard.StaticFS)
	if err != nil {
		logger.Error("failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrors <- err
		}
	}()

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-serverErrors:
		logger.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error("server shutdown error", slog.Any("err", err))
	}
	logger.Info("shutdown complete")
}

// newLogger builds the process logger: JSON at info level in prod,
// text at debug level everywhere else.
func newLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
