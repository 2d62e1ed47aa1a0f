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

	"github.com/kjannette/trahn-journal/internal/config"
	"github.com/kjannette/trahn-journal/internal/db"
	"github.com/kjannette/trahn-journal/internal/logger"
	"github.com/kjannette/trahn-journal/internal/repository"
	"github.com/kjannette/trahn-journal/internal/sheetstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	cfg.PrintStore()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, closeRows, err := openRows(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[STORE] %v\n", err)
		os.Exit(1)
	}
	defer closeRows()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.StorePort),
		Handler:      sheetstore.NewHandler(rows, cfg.LockWait(), log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LockWait() + 10*time.Second,
	}
	go func() {
		fmt.Printf("[STORE] Listening on :%d\n", cfg.StorePort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[STORE] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[STORE] Shutdown error: %v\n", err)
	}
	fmt.Println("Shutdown complete")
}

func openRows(ctx context.Context, cfg *config.Config, log *zap.Logger) (sheetstore.RowStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		fmt.Println("[STORE] Using in-memory rows (data is lost on exit)")
		return sheetstore.NewMemoryRows(), func() {}, nil

	case config.DriverPostgres:
		fmt.Printf("[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		if err := db.TestConnection(ctx, pool, log); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("test query: %w", err)
		}
		repo := repository.NewRowRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}, nil

	default:
		repo, err := repository.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
}
