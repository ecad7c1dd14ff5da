package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/chatsift/internal/api"
	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
	"github.com/MikeSquared-Agency/chatsift/internal/config"
	"github.com/MikeSquared-Agency/chatsift/internal/hermes"
	"github.com/MikeSquared-Agency/chatsift/internal/store"
	"github.com/MikeSquared-Agency/chatsift/internal/worker"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("chatsift starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database (optional: without it imports are parsed but not kept)
	var (
		importStore worker.ImportStore
		apiStore    api.ImportStore
	)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		importStore, apiStore = db, db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without persistence")
	}

	// NATS/Hermes (optional)
	var publisher hermes.Publisher
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		c, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		hermesClient, publisher = c, c
		defer hermesClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, import events disabled")
	}

	parser := chatparse.New()
	w := worker.New(importStore, publisher, parser, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.QueueSubscribe(hermes.SubjectImportRequested, hermes.QueueWorkers, w.HandleImportRequested); err != nil {
			slog.Error("failed to subscribe to import requests", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(&cfg, apiStore, w, parser, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("chatsift ready", "port", cfg.Port, "upload_dir", cfg.UploadDir)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	slog.Info("chatsift stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
