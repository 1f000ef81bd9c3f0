// Tally - Delivery pricing that itemizes every dollar.
// Copyright (c) 2026 CaterDispatch
// Licensed under the Apache License 2.0

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

	"github.com/caterdispatch/tally/internal/api"
	"github.com/caterdispatch/tally/internal/bus"
	"github.com/caterdispatch/tally/internal/cache"
	"github.com/caterdispatch/tally/internal/domain"
	"github.com/caterdispatch/tally/internal/history"
	"github.com/caterdispatch/tally/internal/pricing"
	"github.com/caterdispatch/tally/internal/repository"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg, err := domain.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	setupLogger(cfg.Logging)

	slog.Info("starting tally",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize the pricing engine
	conditions, err := pricing.NewConditions()
	if err != nil {
		slog.Error("failed to initialize condition environment", "error", err)
		os.Exit(1)
	}

	snapshots := pricing.NewSnapshotStore(conditions)
	if err := loadTemplatesFromDatabase(ctx, repo, snapshots); err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	slog.Info("pricing engine initialized", "templates_count", snapshots.Count())

	loader := pricing.NewLoader(snapshots, repo, repo, cacheImpl, cfg.Cache.LocalTTL)
	evaluator := pricing.NewEvaluator(conditions)
	recorder := history.NewBusRecorder(busImpl)
	calculator := pricing.NewCalculator(loader, evaluator, recorder)

	// History worker persists audit records off the request path
	historyWorker := history.NewWorker(busImpl, repo)
	if err := historyWorker.Start(); err != nil {
		slog.Error("failed to start history worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, loader, snapshots, calculator, conditions, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("tally is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	historyWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("tally shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// loadTemplatesFromDatabase loads active templates into the snapshot store.
// Templates are configured via POST /templates or the seed tool.
func loadTemplatesFromDatabase(ctx context.Context, repo domain.Repository, snapshots *pricing.SnapshotStore) error {
	templates, err := repo.ListTemplates(ctx)
	if err != nil {
		slog.Warn("failed to list templates from database", "error", err)
		return nil // Start empty - templates can be added via API
	}

	if len(templates) > 0 {
		slog.Info("loading templates from database", "count", len(templates))
		return snapshots.ReloadAll(templates)
	}

	slog.Info("no templates in database - configure via POST /templates or cmd/seed")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🧾 TALLY                    ║")
	fmt.Println("  ║       Delivery Pricing Engine             ║")
	fmt.Println("  ║      Every dollar, itemized.              ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /calculate          - Price a delivery")
	fmt.Println("    GET  /calculations       - List audit records")
	fmt.Println("    GET  /calculations/{id}  - Get audit record by ID")
	fmt.Println("    GET  /templates          - List pricing templates")
	fmt.Println("    POST /templates          - Create a pricing template")
	fmt.Println("    POST /templates/reload   - Hot-reload templates from database")
	fmt.Println("    GET  /clients            - List client configurations")
	fmt.Println("    POST /clients            - Create a client configuration")
	fmt.Println("    GET  /health             - Health check")
	fmt.Println()
}
