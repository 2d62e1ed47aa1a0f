package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-journal/internal/remotestore"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"JOURNAL_ENDPOINT", "API_PORT", "REMOTE_TIMEOUT_SECONDS", "STORE_DRIVER", "LOCK_WAIT_SECONDS", "LOG_LEVEL", "TRACING_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, remotestore.PlaceholderEndpoint, cfg.JournalEndpoint)
	assert.False(t, cfg.EndpointConfigured())
	assert.Equal(t, 3001, cfg.APIPort)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 30*time.Second, cfg.LockWait())
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JOURNAL_ENDPOINT", "https://script.example.com/macros/s/abc/exec")
	t.Setenv("API_PORT", "8080")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "5")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("TRACING_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EndpointConfigured())
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.TracingEnabled)
}

func TestValidate_Rejects(t *testing.T) {
	cfg := &Config{
		APIPort:         70000,
		StorePort:       8090,
		LockWaitSeconds: 0,
		StoreDriver:     "excel",
		LogLevel:        "chatty",
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "API_PORT"))
	assert.True(t, strings.Contains(msg, "LOCK_WAIT_SECONDS"))
	assert.True(t, strings.Contains(msg, "STORE_DRIVER"))
	assert.True(t, strings.Contains(msg, "chatty"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://script.google.com/...", redact("https://script.google.com/macros/s/SECRET/exec"))
	assert.Equal(t, "http://localhost:8090", redact("http://localhost:8090"))
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5433, DBName: "n"}
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=disable", cfg.DSN())
}

func TestValidate_BackupSettings(t *testing.T) {
	cfg := &Config{
		APIPort:               3001,
		StorePort:             8090,
		LockWaitSeconds:       30,
		StoreDriver:           DriverMemory,
		LogLevel:              "info",
		BackupDir:             "./backups",
		BackupIntervalMinutes: 0,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_INTERVAL_MINUTES")

	cfg.BackupIntervalMinutes = 15
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Minute, cfg.BackupInterval())
}
