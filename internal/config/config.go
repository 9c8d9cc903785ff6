// Package config loads the client's settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL        string
	Currency          string
	CartPath          string // BoltDB file backing the durable cart slot
	RedisAddr         string // empty keeps cross-context sync in-process
	RequestTimeout    time.Duration
	AuthorizationWait time.Duration
	FinalizeAttempts  int
	FinalizeBackoff   time.Duration
}

// Load reads AGRIKART_* variables. A missing .env is fine; explicit
// environment always wins over file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL:        getEnv("AGRIKART_BACKEND_URL", "http://localhost:8080"),
		Currency:          getEnv("AGRIKART_CURRENCY", "INR"),
		CartPath:          getEnv("AGRIKART_CART_PATH", "agrikart-cart.db"),
		RedisAddr:         getEnv("AGRIKART_REDIS_ADDR", ""),
		RequestTimeout:    10 * time.Second,
		AuthorizationWait: 5 * time.Minute,
		FinalizeAttempts:  3,
		FinalizeBackoff:   time.Second,
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("AGRIKART_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.AuthorizationWait, err = getDuration("AGRIKART_AUTHORIZATION_WAIT", cfg.AuthorizationWait); err != nil {
		return nil, err
	}
	if cfg.FinalizeBackoff, err = getDuration("AGRIKART_FINALIZE_BACKOFF", cfg.FinalizeBackoff); err != nil {
		return nil, err
	}
	if cfg.FinalizeAttempts, err = getInt("AGRIKART_FINALIZE_ATTEMPTS", cfg.FinalizeAttempts); err != nil {
		return nil, err
	}
	if cfg.FinalizeAttempts < 1 {
		return nil, fmt.Errorf("AGRIKART_FINALIZE_ATTEMPTS must be at least 1, got %d", cfg.FinalizeAttempts)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
