// Package config loads cisoplan settings from the environment. Command
// line flags take precedence over anything loaded here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-provided defaults.
type Config struct {
	Workspace     string        `env:"CISOPLAN_WORKSPACE"`
	AuditDB       string        `env:"CISOPLAN_AUDIT_DB"`
	Lang          string        `env:"CISOPLAN_LANG" envDefault:"en"`
	NextLimit     int           `env:"CISOPLAN_NEXT_LIMIT" envDefault:"5"`
	WatchDebounce time.Duration `env:"CISOPLAN_WATCH_DEBOUNCE" envDefault:"500ms"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.NextLimit < 0 {
		return Config{}, fmt.Errorf("CISOPLAN_NEXT_LIMIT must be >= 0")
	}
	if cfg.WatchDebounce < 0 {
		return Config{}, fmt.Errorf("CISOPLAN_WATCH_DEBOUNCE must be >= 0")
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
