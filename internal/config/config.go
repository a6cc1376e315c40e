package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings read from BX_* environment variables.
type Config struct {
	HTTPAddr string `env:"BX_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"BX_GRPC_ADDR" envDefault:":50051"`

	DBDriver string `env:"BX_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"BX_DB_DSN" envDefault:"file:bookexchange.db?_pragma=busy_timeout(5000)&_txlock=immediate"`

	// Empty disables the duplicate request guard.
	RedisAddr       string        `env:"BX_REDIS_ADDR"`
	RequestGuardTTL time.Duration `env:"BX_REQUEST_GUARD_TTL" envDefault:"30s"`

	WorkerCount    int           `env:"BX_WORKER_COUNT" envDefault:"4"`
	QueueSize      int           `env:"BX_QUEUE_SIZE" envDefault:"1000"`
	StoreTimeout   time.Duration `env:"BX_STORE_TIMEOUT" envDefault:"5s"`
	LookupCacheTTL time.Duration `env:"BX_LOOKUP_CACHE_TTL" envDefault:"1m"`

	LogLevel string `env:"BX_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("BX_DB_DRIVER must be mysql or sqlite, got %q", c.DBDriver))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errs = append(errs, errors.New("BX_DB_DSN is required"))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("BX_WORKER_COUNT must be positive, got %d", c.WorkerCount))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("BX_QUEUE_SIZE must not be negative, got %d", c.QueueSize))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("BX_STORE_TIMEOUT must be positive, got %s", c.StoreTimeout))
	}
	if c.RedisAddr != "" && c.RequestGuardTTL <= 0 {
		errs = append(errs, fmt.Errorf("BX_REQUEST_GUARD_TTL must be positive, got %s", c.RequestGuardTTL))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel maps LogLevel (debug, info, warn, error) to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("BX_LOG_LEVEL: %w", err)
	}
	return level, nil
}
