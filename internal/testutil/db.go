package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kjannette/trahn-journal/internal/models"
)

// SetupPool creates a pgxpool.Pool for integration tests. The test is skipped
// unless TEST_DATABASE_URL is set, either in the environment or in .env.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Trade returns a complete Sell trade with the given id and date.
func Trade(id int64, date string) models.Trade {
	return models.Trade{
		ID:           id,
		TradeDate:    date,
		Strike:       22500,
		Type:         models.Sell,
		Quantity:     50,
		CEEntryPrice: 120,
		CEExitPrice:  60,
		PEEntryPrice: 100,
		PEExitPrice:  105,
		CEEntryTime:  "09:20:00",
		CEExitTime:   "15:10:00",
		PEEntryTime:  "09:20:00",
		PEExitTime:   "15:10:00",
		Notes:        "",
	}
}
