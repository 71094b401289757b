package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "outreach-engine/internal/adapter/http"
	"outreach-engine/internal/adapter/memory"
	"outreach-engine/internal/adapter/postgres"
	"outreach-engine/internal/adapter/sender"
	"outreach-engine/internal/adapter/usecase"
	"outreach-engine/internal/config"
	"outreach-engine/internal/core/port"
	"outreach-engine/internal/db"
)

// main is the entry point of the outreach engine. It loads configuration,
// optionally runs database migrations, wires the store, senders and
// usecases, then starts the HTTP server and the background processing loop.
// On receiving a termination signal it gracefully shuts down the server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store port.Store
	if cfg.Demo {
		mem := memory.NewStore()
		if err = db.SeedDemo(ctx, mem); err != nil {
			logger.Error("seed error", slog.Any("error", err))
			os.Exit(1)
		}
		store = mem
		logger.Info("running in demo mode with in-memory store")
	} else {
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				logger.Error("migration error", slog.Any("error", err))
			} else {
				logger.Info("migrations applied successfully")
			}
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			logger.Error("database connection error", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	// Dry-run senders on every channel until provider integrations are
	// registered here.
	senders := sender.NewDryRunRegistry(logger)

	ledger := usecase.NewLedger(store, logger)
	processor := usecase.NewProcessor(store, senders, usecase.ProcessorOptions{
		BatchLimit:     cfg.Engine.BatchLimit,
		RetryBaseDelay: cfg.Engine.RetryBaseDelay,
		RetryMaxDelay:  cfg.Engine.RetryMaxDelay,
		MaxAttempts:    cfg.Engine.RetryMaxAttempts,
	}, logger)
	targeting := usecase.NewTargeting(store)
	engine := usecase.NewCampaignUseCase(store, targeting, processor, logger)
	metrics := usecase.NewMetrics(store)

	handler := httpadapter.NewHandler(engine, processor, ledger, metrics, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	// Background processing loop.
	go func() {
		ticker := time.NewTicker(cfg.Engine.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := processor.ProcessAll(ctx)
				if err != nil {
					logger.Error("processing pass error", slog.Any("error", err))
				}
				if report.Processed > 0 {
					logger.Info("processing pass",
						slog.Int("processed", report.Processed),
						slog.Int("advanced", report.Advanced),
						slog.Int("completed", report.Completed),
						slog.Int("failed", report.Failed),
						slog.Int("retried", report.Retried),
					)
				}
			}
		}
	}()

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
