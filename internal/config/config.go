// Package config reads process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full configuration of a catalog process.
type Config struct {
	Log     Log
	Store   Store
	Cache   Cache
	Metrics Metrics
}

// New reads configuration from environment variables and unmarshals them
// into a struct of type T.
func New[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Load reads a Config from the environment and validates it.
func Load() (Config, error) {
	cfg, err := New[Config]()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the groups that carry cross-field rules.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if err := c.Cache.ToCacheConfig().Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	return nil
}
