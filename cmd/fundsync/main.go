package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundweb/fundsync/internal/api"
	"github.com/fundweb/fundsync/internal/config"
	"github.com/fundweb/fundsync/internal/database"
	"github.com/fundweb/fundsync/internal/export"
	"github.com/fundweb/fundsync/internal/loader"
	"github.com/fundweb/fundsync/internal/source"
	"github.com/fundweb/fundsync/internal/store"
	"github.com/fundweb/fundsync/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Connect to database
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Run migrations
	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		log.Fatalf("Failed to create migrations sub-fs: %v", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Record sources: primary store, secondary gateway, bundled snapshot
	primary := source.NewPrimary(pool)
	secondary := source.NewSecondaryClient(cfg.SecondaryURL, cfg.SecondaryRetryMax, cfg.SecondaryRetryBaseDelay)
	static := source.NewStatic()

	chain := loader.New(primary, secondary, static, cfg.TierTimeout)

	// Fund store with realtime change channel
	opts := store.Options{
		MinFetchInterval: cfg.MinFetchInterval,
		DebounceWindow:   cfg.DebounceWindow,
	}
	if cfg.EnableRealtime {
		opts.Channel = source.NewPgListener(pool)
	}
	funds := store.New(chain, primary, opts)

	if err := funds.Start(ctx); err != nil {
		log.Fatalf("Failed to start fund store: %v", err)
	}
	defer funds.Close()

	// Optional Sheets export after each periodic refresh
	var hook worker.AfterRefreshHook
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			log.Fatalf("Failed to create sheets writer: %v", err)
		}
		hook = export.NewService(funds, writer)
	}

	refreshWorker := worker.NewRefreshWorker(funds, cfg.RefreshInterval, hook)
	go refreshWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, refresh endpoint is unprotected")
	}

	// Start HTTP server
	srv := api.NewServer(cfg.HTTPPort, funds, cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
