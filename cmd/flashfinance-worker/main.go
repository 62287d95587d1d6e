package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/madalinagriza/flashfinance/internal/amqp"
	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/config"
	"github.com/madalinagriza/flashfinance/internal/docstore/sqlite"
	"github.com/madalinagriza/flashfinance/internal/export"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
	"github.com/madalinagriza/flashfinance/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting flashfinance-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads committed labels from the same SQLite database
	// the service writes to; a memory backend has nothing to share.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.AMQPURL == "" {
		logger.Error("Worker requires AMQP_URL to consume finalize events")
		os.Exit(1)
	}
	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	writer, err := export.NewSheetsFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	history := label.NewHistory(store, logger)
	registry := category.NewRegistry(store, logger)
	exportWorker := worker.NewExportWorker(events, history, registry, writer, logger)

	// Run until a shutdown signal cancels the context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := exportWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
