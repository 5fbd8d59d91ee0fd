// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/config"
	"github.com/Shivanand-hulikatti/event-factory/internal/database"
	"github.com/Shivanand-hulikatti/event-factory/internal/factory"
	"github.com/Shivanand-hulikatti/event-factory/internal/handler"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
	"github.com/Shivanand-hulikatti/event-factory/internal/retry"
	"github.com/Shivanand-hulikatti/event-factory/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// ── 1. Load configuration ─────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ── 2. Open the contract store ────────────────────────────────────────
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	logger.Info("contract store ready", "driver", cfg.StoreDriver)

	// ── 3. Start the runtime and deploy the factory ───────────────────────
	rt := chain.NewRuntime(store, chain.Options{
		Workers:   cfg.Runtime.DeployWorkers,
		QueueSize: cfg.Runtime.DeployQueue,
		Backoff:   retry.NewBackoff(cfg.Retry.MaxRetries, cfg.Retry.InitialDelay, cfg.Retry.MaxDelay, chain.IsConflict),
		Logger:    logger.With("component", "runtime"),
	})
	defer rt.Close()

	factorySvc := service.NewFactoryService(rt, cfg.Factory.Account, factory.Settings{
		MinDeposit:     cfg.Factory.MinDeposit,
		PendingTimeout: cfg.Factory.PendingTimeout,
		Logger:         logger.With("component", "factory"),
	})
	if err := factorySvc.Deploy(ctx); err != nil {
		return fmt.Errorf("deploy factory: %w", err)
	}
	logger.Info("factory deployed", "account", factorySvc.Account())

	// ── 4. Wire up layers ─────────────────────────────────────────────────
	router := handler.NewRouter(
		handler.NewFactoryHandler(factorySvc),
		handler.NewEventHandler(service.NewEventService(rt)),
	)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped, draining deployments")
	return nil
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLiteStore(db), nil
	default:
		return repository.NewMemoryStore(), nil
	}
}
