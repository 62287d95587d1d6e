package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/madalinagriza/flashfinance/internal/amqp"
	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/config"
	"github.com/madalinagriza/flashfinance/internal/docstore"
	"github.com/madalinagriza/flashfinance/internal/docstore/memory"
	"github.com/madalinagriza/flashfinance/internal/docstore/sqlite"
	apphttp "github.com/madalinagriza/flashfinance/internal/http"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
	"github.com/madalinagriza/flashfinance/internal/services"
	"github.com/madalinagriza/flashfinance/internal/suggest"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose the document store backend (default: memory).
	var store docstore.Store
	switch cfg.DataBackend {
	case "sqlite":
		db, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional: without a URL the service runs with event
	// publishing disabled (a nil client publishes nothing).
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	registry := category.NewRegistry(store, logger)
	ledger := category.NewLedger(store, logger)
	history := label.NewHistory(store, logger)
	workspace := label.NewWorkspace(store, history, logger)

	// Suggestions degrade to an outage error when no API key is set.
	var classifier suggest.Classifier = suggest.DisabledClassifier{}
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := suggest.NewGeminiClassifier(context.Background(), cfg.GeminiModel, cfg.SuggestTimeout)
		if err != nil {
			logger.Error("Failed to initialize Gemini classifier", "error", err)
			os.Exit(1)
		}
		classifier = gemini
		logger.Info("Gemini classifier initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Suggestions disabled - no GEMINI_API_KEY provided")
	}
	suggester := suggest.NewAdapter(history, classifier, logger)

	labeling := services.NewLabelingService(registry, ledger, workspace, history, suggester, events, logger)

	srv := apphttp.NewServer(":"+cfg.Port, registry, ledger, workspace, history, labeling, logger)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting flashfinance server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
