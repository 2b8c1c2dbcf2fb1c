package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Store     StoreConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Batch     BatchConfig
	Dashboard DashboardConfig
	Kafka     KafkaConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	DashboardAddr string
	Environment   string
	LogLevel      string
}

// IsDev reports whether the process runs in development mode.
func (s Server) IsDev() bool {
	return s.Environment == "dev"
}

// StoreConfig selects and locates the analysis store.
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// RedisConfig holds connection settings for the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig bounds how many numbers one client may classify per window.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// BatchConfig bounds /batch requests.
type BatchConfig struct {
	MaxSize     int
	Concurrency int
}

// DashboardConfig controls the HTML dashboard.
type DashboardConfig struct {
	Limit int
}

// KafkaConfig enables analysis events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed numbers and durations fall back to their defaults; Validate
// catches values that parse but make no sense.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          getEnv("NUMINTEL_ADDR", ":5000"),
			DashboardAddr: getEnv("NUMINTEL_DASHBOARD_ADDR", ":8000"),
			Environment:   getEnv("NUMINTEL_ENV", "dev"),
			LogLevel:      getEnv("NUMINTEL_LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			SQLitePath:  getEnv("SQLITE_PATH", "numbers.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBool("RATE_LIMIT_ENABLED", true),
			Limit:   getInt("RATE_LIMIT_PER_MINUTE", 600),
			Window:  getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Batch: BatchConfig{
			MaxSize:     getInt("BATCH_MAX_SIZE", 500),
			Concurrency: getInt("BATCH_CONCURRENCY", 8),
		},
		Dashboard: DashboardConfig{
			Limit: getInt("DASHBOARD_LIMIT", 20),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "numintel.analysis"),
		},
	}
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", DriverSQLite)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.Limit)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
		}
	}
	if c.Batch.MaxSize <= 0 {
		return fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", c.Batch.MaxSize)
	}
	if c.RateLimit.Enabled && c.Batch.MaxSize > c.RateLimit.Limit {
		return fmt.Errorf("BATCH_MAX_SIZE (%d) must not exceed RATE_LIMIT_PER_MINUTE (%d)", c.Batch.MaxSize, c.RateLimit.Limit)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.Batch.Concurrency)
	}
	if c.Dashboard.Limit <= 0 {
		return fmt.Errorf("DASHBOARD_LIMIT must be positive, got %d", c.Dashboard.Limit)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
