/*
Package config loads server configuration from the environment.

PURPOSE:
  One place that knows every knob the server reads. Values come from the
  process environment, with a .env file loaded first when present so
  local development needs no exported variables.

VARIABLES:
  PORT               HTTP port                        (default 8080)
  DB_PATH            SQLite database path             (default salessync.db)
  REDIS_ADDR         Redis address; "" disables cache (default "")
  REDIS_PASSWORD     Redis auth                       (default "")
  REDIS_DB           Redis database index             (default 0)
  SWEEP_SPEC         Cron spec for the recompute sweep; "" disables
                     (default "0 3 * * *")
  AGGREGATE_TIMEOUT  Per-aggregation bound, Go duration (default 10s)
  MAX_RETRIES        Attempts per transient aggregation failure (default 3)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	Port   int
	DBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SweepSpec        string
	AggregateTimeout time.Duration
	MaxRetries       int
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is the normal production case, not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             8080,
		DBPath:           "salessync.db",
		SweepSpec:        "0 3 * * *",
		AggregateTimeout: 10 * time.Second,
		MaxRetries:       3,
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("SWEEP_SPEC"); ok {
		cfg.SweepSpec = v // Explicitly empty disables the sweep.
	}
	if v := os.Getenv("AGGREGATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("AGGREGATE_TIMEOUT: %w", err)
		}
		cfg.AggregateTimeout = d
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
