package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/screwyprof/stakecheck/migrator"
	"github.com/screwyprof/stakecheck/migrator/config"
	"github.com/screwyprof/stakecheck/pkg/logger"
	"github.com/screwyprof/stakecheck/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	// Load configuration from environment
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	log.Info("Starting database migrator service",
		slog.String("migrationsDir", cfg.MigrationsDir),
		slog.String("repointLatest", cfg.RepointLatest),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Parse before touching the database so a typo changes nothing
	var repointTo time.Time
	if cfg.RepointLatest != "" {
		var err error
		repointTo, err = time.Parse(time.RFC3339Nano, cfg.RepointLatest)
		if err != nil {
			log.Error("Invalid MIGRATOR_REPOINT_LATEST", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Create a context that cancels on SIGINT/SIGTERM _or_ when the timeout elapses
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(baseCtx, cfg.OperationTimeout)
	defer cancel()

	// Connect to database
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Apply migrations
	log.Info("Applying database migrations")
	if err := migrator.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
		log.Error("Failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Database migrations applied successfully")

	if !repointTo.IsZero() {
		log.Info("Repointing latest snapshot", slog.String("executedAt", repointTo.Format(time.RFC3339Nano)))
		if err := migrator.RepointLatest(ctx, db, repointTo); err != nil {
			log.Error("Failed to repoint latest snapshot", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("Latest snapshot repointed successfully")
	}

	log.Info("Database migrator completed successfully")
}
