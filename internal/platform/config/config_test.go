package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"NUMINTEL_ADDR", "NUMINTEL_DASHBOARD_ADDR", "NUMINTEL_ENV", "NUMINTEL_LOG_LEVEL",
		"STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "REDIS_URL",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_WINDOW",
		"BATCH_MAX_SIZE", "BATCH_CONCURRENCY", "DASHBOARD_LIMIT",
		"KAFKA_BROKERS", "KAFKA_TOPIC",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, ":8000", cfg.Server.DashboardAddr)
	assert.True(t, cfg.Server.IsDev())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "numbers.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 600, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 500, cfg.Batch.MaxSize)
	assert.LessOrEqual(t, cfg.Batch.MaxSize, cfg.RateLimit.Limit)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 20, cfg.Dashboard.Limit)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "numintel.analysis", cfg.Kafka.Topic)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/numintel")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("BATCH_MAX_SIZE", "not-a-number")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("NUMINTEL_ENV", "prod")

	cfg := FromEnv()

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 500, cfg.Batch.MaxSize, "malformed values fall back to defaults")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Server.IsDev())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:     StoreConfig{Driver: DriverMemory},
			RateLimit: RateLimitConfig{Enabled: true, Limit: 10, Window: time.Minute},
			Batch:     BatchConfig{MaxSize: 10, Concurrency: 2},
			Dashboard: DashboardConfig{Limit: 20},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = DriverSQLite }},
		{"zero rate limit", func(c *Config) { c.RateLimit.Limit = 0 }},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"zero batch size", func(c *Config) { c.Batch.MaxSize = 0 }},
		{"negative concurrency", func(c *Config) { c.Batch.Concurrency = -1 }},
		{"batch larger than rate limit", func(c *Config) { c.Batch.MaxSize = 11 }},
		{"zero dashboard limit", func(c *Config) { c.Dashboard.Limit = 0 }},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"a:9092"} }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("disabled limiter ignores its limits", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit = RateLimitConfig{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})
}
