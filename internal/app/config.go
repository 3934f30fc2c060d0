package app

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultExclude is the directory every walk skips. It holds engine state
// such as default transform outputs.
const DefaultExclude = ".gridforge"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SchemaPath   string // hcl file or directory
	Collection   string // build only
	OutDir       string // build only; defaults below the schema directory
	RegistryPath string // sqlite file of registered schemas

	Exclude       []string // added to DefaultExclude
	HashCacheSize int
	StopGrace     time.Duration

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WorkerCount must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.HashCacheSize < 1 {
		return nil, fmt.Errorf("HashCacheSize must be at least 1, got %d", cfg.HashCacheSize)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort out of range: %d", cfg.HealthcheckPort)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LogLevel %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid LogFormat %q", cfg.LogFormat)
	}
	cfg.Exclude = withDefaultExclude(cfg.Exclude)
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	return &cfg, nil
}

// withDefaultExclude returns DefaultExclude followed by the user patterns,
// without duplicates.
func withDefaultExclude(patterns []string) []string {
	out := []string{DefaultExclude}
	for _, p := range patterns {
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) requireSchema() error {
	if c.SchemaPath == "" {
		return errors.New("SchemaPath is a required configuration field and cannot be empty")
	}
	return nil
}
