// Package config provides host-level configuration loading and hot reload.
// Unit configuration lives on each engine; this package only carries the
// settings the host process itself needs: server binding, logging, mount
// overrides and per-engine option trees.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root host configuration structure.
type Config struct {
	Server  ServerConfig              `yaml:"server"`
	Logging LoggingConfig             `yaml:"logging"`
	Boot    BootConfig                `yaml:"boot"`
	Mounts  map[string]string         `yaml:"mounts"`
	Engines map[string]map[string]any `yaml:"engines"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// BootConfig configures the boot sequence.
type BootConfig struct {
	// EagerLoad forces resolution of every eager-load path after the
	// initializer sequence completes.
	EagerLoad bool `yaml:"eager_load"`
	// SeedDatabase is a DSN passed to the seed loader; empty disables
	// seed loading at boot.
	SeedDatabase string `yaml:"seed_database"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Mounts == nil {
		c.Mounts = make(map[string]string)
	}
	if c.Engines == nil {
		c.Engines = make(map[string]map[string]any)
	}
}

// Validate checks the configuration for integrator mistakes.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	for name, mount := range c.Mounts {
		if !strings.HasPrefix(mount, "/") {
			return fmt.Errorf("mounts.%s %q must start with /", name, mount)
		}
	}
	return nil
}

// MountFor returns the configured mount point override for an engine name,
// empty when the engine-derived default applies.
func (c *Config) MountFor(engineName string) string {
	return c.Mounts[engineName]
}

// OptionsFor returns the option tree configured for an engine name; nil
// when none is configured.
func (c *Config) OptionsFor(engineName string) map[string]any {
	return c.Engines[engineName]
}
