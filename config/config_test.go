package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("DATABASE_URL", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Retry.Attempts)
		assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialDelay)
		assert.Equal(t, time.Second, cfg.Retry.MaxDelay)
		assert.Equal(t, "@every 15m", cfg.ReconcileSchedule)
		assert.False(t, cfg.Redis.Enabled)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("RETRY_ATTEMPTS", "5")
		t.Setenv("RETRY_MAX_DELAY", "2s")
		t.Setenv("REDIS_ENABLED", "yes")
		t.Setenv("APP_ENV", "production")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Retry.Attempts)
		assert.Equal(t, 2*time.Second, cfg.Retry.MaxDelay)
		assert.True(t, cfg.Redis.Enabled)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("short secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "short")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 characters")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.URL = "postgres://u:p@db:5432/n"
	assert.Equal(t, "postgres://u:p@db:5432/n", d.DSN())
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "host=db password=***** dbname=n", maskPassword("host=db password=secret dbname=n"))
	assert.Equal(t, "postgres://u:*****@db:5432/n", maskPassword("postgres://u:secret@db:5432/n"))
	assert.Equal(t, "host=db", maskPassword("host=db"))
}
