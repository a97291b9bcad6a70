package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	StaticDir       string
	LogLevel        string
	ShutdownTimeout time.Duration

	MongoURI    string
	MongoDB     string
	PostgresDSN string

	// Empty RedisAddr means the stats queue lives in memory.
	RedisAddr     string
	StatsQueueKey string

	StatsWorkers       int
	StatsMaxAttempts   int
	StatsBackoff       time.Duration
	StatsJobTimeout    time.Duration
	StatsReconcileSpec string

	OwnerCacheTTL time.Duration
}

// Load reads the optional dotenv files (".env" when none given) into the
// environment and builds the config from it.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed reading .env: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		StaticDir:       getEnv("STATIC_DIR", "public"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGODB_DB", "campusblog"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgresql://localhost/campusblog?sslmode=disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		StatsQueueKey: getEnv("STATS_QUEUE_KEY", "campusblog:stats"),

		StatsWorkers:       getIntEnv("STATS_WORKERS", 4),
		StatsMaxAttempts:   getIntEnv("STATS_MAX_ATTEMPTS", 5),
		StatsBackoff:       getDurationEnv("STATS_BACKOFF", 200*time.Millisecond),
		StatsJobTimeout:    getDurationEnv("STATS_JOB_TIMEOUT", 10*time.Second),
		StatsReconcileSpec: getEnvAllowEmpty("STATS_RECONCILE_SPEC", "@every 30m"),

		OwnerCacheTTL: getDurationEnv("OWNER_CACHE_TTL", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("config: MONGODB_URI is required")
	}
	if c.PostgresDSN == "" {
		return errors.New("config: POSTGRES_DSN is required")
	}
	if c.StatsWorkers <= 0 {
		return fmt.Errorf("config: STATS_WORKERS must be positive, got %d", c.StatsWorkers)
	}
	if c.StatsMaxAttempts <= 0 {
		return fmt.Errorf("config: STATS_MAX_ATTEMPTS must be positive, got %d", c.StatsMaxAttempts)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets an explicitly empty variable override the default.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
