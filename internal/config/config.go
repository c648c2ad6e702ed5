// Package config loads and validates accord configuration.
// Configuration lives in .accord/config.yaml inside the workspace; every
// field has a default so a missing file yields a working setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all accord configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Version-control execution
	VCS VCSConfig `yaml:"vcs"`

	// Conflict resolution
	Resolver ResolverConfig `yaml:"resolver"`

	// Strategy learning store
	Strategy StrategyConfig `yaml:"strategy"`

	// Escalation state machine and persistence
	Escalation EscalationConfig `yaml:"escalation"`

	// Decision channels
	Channels ChannelsConfig `yaml:"channels"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// VCSConfig configures the git command runner.
type VCSConfig struct {
	// Binary is the version-control executable (normally "git").
	Binary string `yaml:"binary"`

	// DefaultTimeout bounds a single command invocation.
	DefaultTimeout string `yaml:"default_timeout"`
}

// ResolverConfig configures conflict resolution behavior.
type ResolverConfig struct {
	// SyntaxValidation enables tree-sitter parse checks on resolved
	// content for recognized source file extensions.
	SyntaxValidation bool `yaml:"syntax_validation"`

	// MinSampleSize is the attempt floor before a learned strategy
	// can be recommended over the defaults.
	MinSampleSize int `yaml:"min_sample_size"`
}

// StrategyConfig configures the strategy-performance store.
type StrategyConfig struct {
	// StorePath is the JSON stats file. Single writer; concurrent
	// writers silently lose updates.
	StorePath string `yaml:"store_path"`
}

// EscalationConfig configures the escalation manager.
type EscalationConfig struct {
	// Backend selects escalation persistence: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// DatabasePath is the SQLite file when backend is "sqlite".
	DatabasePath string `yaml:"database_path"`

	// DiffExcerptLimit caps the diff excerpt length in decision documents.
	DiffExcerptLimit int `yaml:"diff_excerpt_limit"`
}

// ChannelsConfig configures decision channel adapters.
type ChannelsConfig struct {
	// Primary selects the publishing channel: "github" or "console".
	Primary string `yaml:"primary"`

	// GitHub configures the gh-backed issue channel.
	GitHub GitHubChannelConfig `yaml:"github"`
}

// GitHubChannelConfig configures the GitHub issue adapter.
type GitHubChannelConfig struct {
	// Repo is the owner/name slug; empty means the repo gh infers
	// from the working directory.
	Repo string `yaml:"repo"`

	// Binary is the gh executable.
	Binary string `yaml:"binary"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "accord",
		Version: "0.3.0",

		VCS: VCSConfig{
			Binary:         "git",
			DefaultTimeout: "60s",
		},

		Resolver: ResolverConfig{
			SyntaxValidation: true,
			MinSampleSize:    3,
		},

		Strategy: StrategyConfig{
			StorePath: ".accord/strategy_stats.json",
		},

		Escalation: EscalationConfig{
			Backend:          "memory",
			DatabasePath:     ".accord/escalations.db",
			DiffExcerptLimit: 2000,
		},

		Channels: ChannelsConfig{
			Primary: "console",
			GitHub: GitHubChannelConfig{
				Binary: "gh",
			},
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// for a missing file and applying ACCORD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadWorkspace loads the configuration for a workspace directory.
func LoadWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ".accord", "config.yaml"))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ACCORD_GIT_BINARY"); v != "" {
		c.VCS.Binary = v
	}
	if v := os.Getenv("ACCORD_STRATEGY_STORE"); v != "" {
		c.Strategy.StorePath = v
	}
	if v := os.Getenv("ACCORD_ESCALATION_DB"); v != "" {
		c.Escalation.DatabasePath = v
		c.Escalation.Backend = "sqlite"
	}
	if v := os.Getenv("ACCORD_CHANNEL"); v != "" {
		c.Channels.Primary = v
	}
	if v := os.Getenv("ACCORD_GITHUB_REPO"); v != "" {
		c.Channels.GitHub.Repo = v
	}
	if os.Getenv("ACCORD_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// GetVCSTimeout returns the VCS command timeout as a duration.
func (c *Config) GetVCSTimeout() time.Duration {
	d, err := time.ParseDuration(c.VCS.DefaultTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.VCS.Binary == "" {
		return fmt.Errorf("vcs.binary is required")
	}
	switch c.Escalation.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("escalation.backend must be memory or sqlite, got %q", c.Escalation.Backend)
	}
	switch c.Channels.Primary {
	case "github", "console":
	default:
		return fmt.Errorf("channels.primary must be github or console, got %q", c.Channels.Primary)
	}
	if c.Resolver.MinSampleSize < 1 {
		return fmt.Errorf("resolver.min_sample_size must be >= 1")
	}
	if c.Escalation.DiffExcerptLimit <= 0 {
		return fmt.Errorf("escalation.diff_excerpt_limit must be positive")
	}
	return nil
}
