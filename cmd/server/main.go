// Package main implements the entry point for the taskboard API server,
// which handles user accounts, task management, and live task updates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpetrie/taskboard-api/internal/config"
	"github.com/mpetrie/taskboard-api/internal/platform/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate", false,
		"apply pending database migrations and exit without serving")
	flag.Parse()

	if err := run(*migrateOnly); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run loads configuration, wires the application dependencies, and
// serves until a shutdown signal arrives. With migrateOnly set it stops
// after applying migrations.
func run(migrateOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateOnly {
		db, err := setupDatabase(ctx, cfg, appLogger)
		if err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
		defer func() { _ = db.Close() }()
		return runMigrations(ctx, db, appLogger)
	}

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
