// Package config loads the state layer's configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the state layer. Zero values fall back to
// the component defaults.
type Config struct {
	// APIBaseURL is the storefront REST root.
	APIBaseURL string `env:"GAMEVA_API_URL" envDefault:"http://localhost:8080/api"`

	// StoragePath is the durable store's file path. Empty selects the
	// in-memory store (no cross-tab propagation, no persistence).
	StoragePath string `env:"GAMEVA_STORAGE_PATH"`

	// CacheTTL bounds reference-data freshness.
	CacheTTL time.Duration `env:"GAMEVA_CACHE_TTL" envDefault:"24h"`

	// PollInterval is the cross-tab revision polling interval.
	PollInterval time.Duration `env:"GAMEVA_POLL_INTERVAL" envDefault:"250ms"`

	// HTTPTimeout is the per-request timeout for remote calls.
	HTTPTimeout time.Duration `env:"GAMEVA_HTTP_TIMEOUT" envDefault:"10s"`

	// LogLevel is the structured logger's threshold.
	LogLevel string `env:"GAMEVA_LOG_LEVEL" envDefault:"info"`
}

// FromEnv loads configuration from the environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}
