package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"COLLECTIONS_APP_NAME",
	"COLLECTIONS_APP_ENV",
	"COLLECTIONS_DATABASE_HOST",
	"COLLECTIONS_DATABASE_PORT",
	"COLLECTIONS_DATABASE_PASSWORD",
	"COLLECTIONS_DATABASE_SSLMODE",
	"COLLECTIONS_DATABASE_MAX_OPEN_CONNS",
	"COLLECTIONS_DATABASE_MAX_IDLE_CONNS",
	"COLLECTIONS_REMINDER_DUE_DATE_LEAD",
	"COLLECTIONS_REMINDER_MAX_WORKERS",
	"COLLECTIONS_COLLECTIONS_SHORTFALL_TOLERANCE",
	"COLLECTIONS_COLLECTIONS_RISK_HIGH_AFTER",
	"COLLECTIONS_COLLECTIONS_RISK_SWEEP_ENABLED",
	"COLLECTIONS_COLLECTIONS_SYSTEM_ACTOR_ID",
	"COLLECTIONS_STORAGE_ENABLED",
	"COLLECTIONS_STORAGE_ACCESS_KEY_ID",
	"COLLECTIONS_STORAGE_SECRET_ACCESS_KEY",
	"COLLECTIONS_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv blanks every key this test touches; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "collections-worker", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "collections", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "collections_reminders", cfg.Reminder.Queue)
		assert.Equal(t, 72*time.Hour, cfg.Reminder.DueDateLead)
		assert.True(t, cfg.Collections.ShortfallTolerance.Equal(decimal.RequireFromString("1.00")))
		assert.Equal(t, 1, cfg.Collections.RiskMediumAfter)
		assert.Equal(t, 15, cfg.Collections.RiskHighAfter)
		assert.Equal(t, 46, cfg.Collections.RiskCriticalAfter)
		assert.Equal(t, 3, cfg.Collections.UnresponsiveWindow)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with COLLECTIONS prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_APP_NAME", "test-app")
		t.Setenv("COLLECTIONS_DATABASE_HOST", "testdb.local")
		t.Setenv("COLLECTIONS_DATABASE_PORT", "5433")
		t.Setenv("COLLECTIONS_REMINDER_DUE_DATE_LEAD", "24h")
		t.Setenv("COLLECTIONS_COLLECTIONS_SHORTFALL_TOLERANCE", "0")
		t.Setenv("COLLECTIONS_COLLECTIONS_RISK_HIGH_AFTER", "20")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 24*time.Hour, cfg.Reminder.DueDateLead)
		assert.True(t, cfg.Collections.ShortfallTolerance.IsZero())
		assert.Equal(t, 20, cfg.Collections.RiskHighAfter)
	})

	t.Run("rejects invalid tolerance", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_COLLECTIONS_SHORTFALL_TOLERANCE", "lots")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects non increasing risk thresholds", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_COLLECTIONS_RISK_HIGH_AFTER", "60")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "risk thresholds")
	})

	t.Run("risk sweep requires a system actor", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_COLLECTIONS_RISK_SWEEP_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)

		t.Setenv("COLLECTIONS_COLLECTIONS_SYSTEM_ACTOR_ID", "00000000-0000-0000-0000-0000000000aa")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Collections.RiskSweepEnabled)
	})

	t.Run("storage requires credentials when enabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_STORAGE_ENABLED", "true")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("validates production settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		t.Setenv("COLLECTIONS_DATABASE_PASSWORD", "s3cret")
		t.Setenv("COLLECTIONS_DATABASE_SSLMODE", "require")
		_, err = Load()
		assert.NoError(t, err)
	})

	t.Run("rejects idle connections above open connections", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("COLLECTIONS_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("keeps an explicit zero sampling ratio", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_TELEMETRY_SAMPLING_RATIO", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COLLECTIONS_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "collections", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/collections?sslmode=disable", d.DSN())
}
