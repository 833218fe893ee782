// Package config loads the fabrik daemon configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/scheduler"
)

// DefaultListen is the API address used when none is configured.
const DefaultListen = "127.0.0.1:7466"

// Config holds the daemon configuration.
type Config struct {
	// Listen is the API server address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`
	// PlanPath points at a YAML, JSON or TOML plan. Empty runs the built-in
	// bottle cork plan.
	PlanPath string `yaml:"plan_path,omitempty"`
	// Console narrates every tick to stdout.
	Console bool `yaml:"console"`
	// Scheduler configures the tick driver.
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// Dir returns ~/.fabrik, or .fabrik when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fabrik"
	}
	return filepath.Join(home, ".fabrik")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		DBPath:    filepath.Join(Dir(), "fabrik.db"),
		Console:   false,
		Scheduler: *scheduler.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// HomePath is the config file location under the user's home directory.
func HomePath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadConfigFromHome loads configuration from ~/.fabrik/config.yaml.
func LoadConfigFromHome() (*Config, error) {
	return LoadConfig(HomePath())
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.PlanPath != "" {
		if _, err := plan.FormatForPath(c.PlanPath); err != nil {
			return fmt.Errorf("plan_path: %w", err)
		}
	}
	return c.Scheduler.Validate()
}

// LoadPlan returns the configured plan, or the built-in default when no plan
// file is set.
func (c *Config) LoadPlan() (plan.Plan, error) {
	if c.PlanPath == "" {
		return plan.Default(), nil
	}
	return plan.Load(c.PlanPath)
}
