package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/api"
	"github.com/kjannette/trahn-journal/internal/config"
	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/logger"
	"github.com/kjannette/trahn-journal/internal/notifications"
	"github.com/kjannette/trahn-journal/internal/remotestore"
	"github.com/kjannette/trahn-journal/internal/scheduler"
	"github.com/kjannette/trahn-journal/internal/storeobs"
	"github.com/kjannette/trahn-journal/internal/tracing"
)

const banner = `
╔══════════════════════════════════════╗
║     Options Trade Journal v0.1       ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := tracing.Init(cfg.TracingEnabled, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tracing init error: %v\n", err)
		os.Exit(1)
	}

	// Store client
	client := remotestore.New(remotestore.Config{
		Endpoint: cfg.JournalEndpoint,
		Timeout:  cfg.RemoteTimeout(),
	})
	store := storeobs.Wrap(client, log)

	// Notifications
	feed := notifications.NewFeed(0)
	notify := notifications.Fanout{
		feed,
		notifications.NewSender(cfg.WebhookURL, cfg.JournalName, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Journal
	mgr := journal.NewManager(store, notify, log)
	fmt.Println("\n[JOURNAL] Loading trades ...")
	if err := mgr.Load(ctx); err != nil {
		if errors.Is(err, journal.ErrSetupRequired) {
			fmt.Println("[JOURNAL] Setup required: set JOURNAL_ENDPOINT to the deployed store URL")
		} else {
			fmt.Fprintf(os.Stderr, "[JOURNAL] Load failed: %v\n", err)
		}
	} else {
		fmt.Printf("[JOURNAL] Loaded %d trades\n", len(mgr.Trades()))
	}

	// 2. API server
	srv := api.NewServer(mgr, feed, log, api.Options{
		Port:        cfg.APIPort,
		CORSOrigin:  cfg.CORSAllowOrigin,
		WaitTimeout: cfg.RemoteTimeout(),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 3. Backup scheduler
	var backups *scheduler.BackupScheduler
	if cfg.BackupDir != "" {
		backups = scheduler.NewBackupScheduler(mgr, scheduler.BackupConfig{
			Dir:      cfg.BackupDir,
			Interval: cfg.BackupInterval(),
			Keep:     cfg.BackupKeep,
		}, log)
		backups.Start()
	} else {
		fmt.Println("[BACKUP] Skipped - no BACKUP_DIR configured")
	}

	fmt.Println("\nAll services started successfully")

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if backups != nil {
		backups.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")

	// In-flight store writes finish or roll back before exit.
	mgr.Wait()
	fmt.Println("[JOURNAL] Pending writes settled")

	if err := tracing.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[TRACING] Shutdown error: %v\n", err)
	}
	fmt.Println("Shutdown complete")
}
