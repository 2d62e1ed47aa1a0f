package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kjannette/trahn-journal/internal/logger"
	"github.com/kjannette/trahn-journal/internal/remotestore"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Journal API
	JournalEndpoint      string
	APIPort              int
	CORSAllowOrigin      string
	RemoteTimeoutSeconds int

	// Notifications
	WebhookURL  string
	JournalName string

	// Backups
	BackupDir             string
	BackupIntervalMinutes int
	BackupKeep            int

	// Observability
	LogLevel       string
	TracingEnabled bool

	// Sheet store backend
	StoreDriver     string
	StorePort       int
	LockWaitSeconds int
	SQLitePath      string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		JournalEndpoint:      envStr("JOURNAL_ENDPOINT", remotestore.PlaceholderEndpoint),
		APIPort:              envInt("API_PORT", 3001),
		CORSAllowOrigin:      envStr("CORS_ALLOW_ORIGIN", "*"),
		RemoteTimeoutSeconds: envInt("REMOTE_TIMEOUT_SECONDS", 30),

		WebhookURL:  envStr("WEBHOOK_URL", ""),
		JournalName: envStr("JOURNAL_NAME", "TradeJournal"),

		BackupDir:             envStr("BACKUP_DIR", ""),
		BackupIntervalMinutes: envInt("BACKUP_INTERVAL_MINUTES", 60),
		BackupKeep:            envInt("BACKUP_KEEP", 24),

		LogLevel:       envStr("LOG_LEVEL", "info"),
		TracingEnabled: envBool("TRACING_ENABLED", false),

		StoreDriver:     strings.ToLower(envStr("STORE_DRIVER", DriverSQLite)),
		StorePort:       envInt("STORE_PORT", 8090),
		LockWaitSeconds: envInt("LOCK_WAIT_SECONDS", 30),
		SQLitePath:      envStr("SQLITE_PATH", "./data/journal.db"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "trade_journal"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d is out of range", c.APIPort))
	}
	if c.StorePort <= 0 || c.StorePort > 65535 {
		errs = append(errs, fmt.Sprintf("STORE_PORT %d is out of range", c.StorePort))
	}
	if c.RemoteTimeoutSeconds < 0 {
		errs = append(errs, "REMOTE_TIMEOUT_SECONDS must not be negative")
	}
	if c.LockWaitSeconds <= 0 {
		errs = append(errs, "LOCK_WAIT_SECONDS must be positive")
	}
	if c.BackupDir != "" && c.BackupIntervalMinutes <= 0 {
		errs = append(errs, "BACKUP_INTERVAL_MINUTES must be positive when BACKUP_DIR is set")
	}
	if c.BackupKeep < 0 {
		errs = append(errs, "BACKUP_KEEP must not be negative")
	}
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER %q must be one of memory, sqlite, postgres", c.StoreDriver))
	}

	if !c.EndpointConfigured() {
		fmt.Println("[WARN] JOURNAL_ENDPOINT not set: the journal will start in setup-required mode")
	}
	if c.RemoteTimeoutSeconds == 0 {
		fmt.Println("[WARN] REMOTE_TIMEOUT_SECONDS is 0: store calls have no timeout")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) EndpointConfigured() bool {
	return remotestore.Configured(c.JournalEndpoint)
}

func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.BackupIntervalMinutes) * time.Minute
}

func (c *Config) LockWait() time.Duration {
	return time.Duration(c.LockWaitSeconds) * time.Second
}

func (c *Config) Print() {
	fmt.Println("=== Trade Journal Configuration ===")
	fmt.Printf("Endpoint: %s\n", boolLabel(c.EndpointConfigured(), redact(c.JournalEndpoint), "not configured (setup required)"))
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("CORS Origin: %s\n", c.CORSAllowOrigin)
	fmt.Printf("Remote Timeout: %ds\n", c.RemoteTimeoutSeconds)
	fmt.Println("--------------------------------------")
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set (console only)"))
	fmt.Printf("Backups: %s\n", boolLabel(c.BackupDir != "", fmt.Sprintf("%s every %dm (keep %d)", c.BackupDir, c.BackupIntervalMinutes, c.BackupKeep), "disabled"))
	fmt.Printf("Log Level: %s\n", c.LogLevel)
	fmt.Printf("Tracing: %s\n", boolLabel(c.TracingEnabled, "enabled (stdout)", "disabled"))
	fmt.Println("======================================")
}

// PrintStore prints the sheet store backend settings.
func (c *Config) PrintStore() {
	fmt.Println("=== Sheet Store Configuration ===")
	fmt.Printf("Driver: %s\n", c.StoreDriver)
	switch c.StoreDriver {
	case DriverSQLite:
		fmt.Printf("SQLite Path: %s\n", c.SQLitePath)
	case DriverPostgres:
		fmt.Printf("Database: %s:%d/%s\n", c.DBHost, c.DBPort, c.DBName)
	}
	fmt.Printf("Port: %d\n", c.StorePort)
	fmt.Printf("Lock Wait: %ds\n", c.LockWaitSeconds)
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// redact keeps the scheme and host of an endpoint URL; script ids in the path
// act as credentials.
func redact(endpoint string) string {
	if i := strings.Index(endpoint, "://"); i >= 0 {
		rest := endpoint[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return endpoint[:i+3+j] + "/..."
		}
	}
	return endpoint
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
