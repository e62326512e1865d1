package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "courses")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
		assert.False(t, cfg.Redis.Enabled)
		assert.False(t, cfg.Sync.CountersFastPath)
		assert.Equal(t, 3, cfg.Sync.RebuildMaxAttempts)
		assert.Equal(t, "0 3 * * *", cfg.Sync.ResyncSchedule)
	})

	t.Run("sync overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("COUNTERS_FAST_PATH", "true")
		t.Setenv("REBUILD_MAX_ATTEMPTS", "5")
		t.Setenv("REDIS_HOST", "redis")
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Sync.CountersFastPath)
		assert.Equal(t, 5, cfg.Sync.RebuildMaxAttempts)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "redis:6379", cfg.RedisAddr())
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	})

	tests := []struct {
		name          string
		key           string
		value         string
		errorContains string
	}{
		{name: "missing db host", key: "DB_HOST", value: "", errorContains: "DB_HOST is required"},
		{name: "invalid db port", key: "DB_PORT", value: "abc", errorContains: "invalid DB_PORT"},
		{name: "missing jwt secret", key: "JWT_SECRET", value: "", errorContains: "JWT_SECRET is required"},
		{name: "invalid fast path flag", key: "COUNTERS_FAST_PATH", value: "maybe", errorContains: "invalid COUNTERS_FAST_PATH"},
		{name: "zero rebuild attempts", key: "REBUILD_MAX_ATTEMPTS", value: "0", errorContains: "must be greater than 0"},
		{name: "invalid access expiry", key: "JWT_ACCESS_TOKEN_EXPIRY", value: "soon", errorContains: "invalid JWT_ACCESS_TOKEN_EXPIRY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: 3306, User: "u", Password: "p", DBName: "courses"}}

	assert.Equal(t, "u:p@tcp(db:3306)/courses?parseTime=true&charset=utf8mb4&clientFoundRows=true", cfg.DSN())
}
