package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_ENABLED", "DB_PORT", "DB_NAME", "REDIS_ENABLED", "DRIFT_QUEUE_KEY", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "poros", cfg.Database.Name)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "poros:drift:pending", cfg.Redis.QueueKey)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal port=6543")
}

func TestLoad_BadInteger(t *testing.T) {
	t.Setenv("DB_PORT", "five")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PORT")
}
