package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/crmimport/internal/classify"
	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
	_ "github.com/JonMunkholm/crmimport/internal/core/schemas" // Register contacts and properties
	"github.com/JonMunkholm/crmimport/internal/logging"
	"github.com/JonMunkholm/crmimport/internal/store"
	"github.com/JonMunkholm/crmimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"classifier", cfg.Classifier.Enabled,
		"max_concurrent_commits", cfg.Import.MaxConcurrentCommits,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	records, closeStore, err := store.Open(ctx, cfg.Database, core.All())
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var classifiers core.ClassifierProvider
	if cfg.Classifier.Enabled {
		classifiers = classify.New(cfg.Classifier).Provider()
		slog.Info("classifier enabled", "model", cfg.Classifier.Model)
	}

	service := core.NewService(records, classifiers, cfg.Import)

	slog.Info("schemas registered", "count", core.SchemaCount())
	for _, sc := range core.All() {
		slog.Debug("schema", "key", sc.Key, "fields", len(sc.Fields), "natural_key", sc.NaturalKey)
	}

	server := web.NewServer(service, *cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight commits (with timeout)
		if status := service.CommitStatus(); status.Active > 0 {
			slog.Info("waiting for commits to complete", "active", status.Active)
			if err := service.WaitForCommits(shutdownCtx); err != nil {
				slog.Warn("commits did not complete in time", "error", err)
			} else {
				slog.Info("all commits completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
