// Package cliconfig loads the stratoctl configuration file. Flags
// override file values, which override built-in defaults.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

// Config is the stratoctl configuration.
type Config struct {
	// Endpoint is the API base URL.
	Endpoint string `yaml:"endpoint"`

	// Project is the default project for scoped requests.
	Project string `yaml:"project"`

	// Location is the default location for scoped requests.
	Location string `yaml:"location"`

	// Channel is the default release channel (ga, beta, alpha).
	Channel string `yaml:"channel"`

	// Token is the bearer token sent with each request. Prefer the
	// STRATO_TOKEN environment variable over storing it here.
	Token string `yaml:"token"`

	// CachePath is the operation cache database location.
	CachePath string `yaml:"cache_path"`

	// Timeout bounds individual HTTP requests, not whole operations.
	Timeout time.Duration `yaml:"timeout"`

	// PolicyPaths lists extra preflight policy files or directories.
	PolicyPaths []string `yaml:"policy_paths"`

	// Bastion tunnels API traffic through an SSH bastion when set.
	Bastion *transport.BastionConfig `yaml:"bastion,omitempty"`

	// Telemetry configures logging, tracing, and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stratoctl", "config.yaml")
}

// Default returns a configuration with built-in defaults applied.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Endpoint:  "https://api.strato.example",
		Channel:   string(options.ChannelGA),
		CachePath: filepath.Join(home, ".local", "share", "stratoctl", "operations.db"),
		Timeout:   30 * time.Second,
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads the config file at path and overlays it on the defaults.
// A missing file at the default location is not an error; a missing
// file at an explicitly given path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if token := os.Getenv("STRATO_TOKEN"); token != "" {
		cfg.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if _, err := options.ParseReleaseChannel(c.Channel); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Bastion != nil {
		if err := c.Bastion.Validate(); err != nil {
			return fmt.Errorf("bastion: %w", err)
		}
	}
	return c.Telemetry.Validate()
}
