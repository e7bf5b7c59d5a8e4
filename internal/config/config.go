// Package config loads sage configuration from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default model identifiers per role.
const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultFastModel = "claude-haiku-4-5-20251015"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRetries         int           `yaml:"max_retries"`          // Maximum retries on 429
	BaseDelay          time.Duration `yaml:"base_delay"`           // Base delay for exponential backoff
	MaxDelay           time.Duration `yaml:"max_delay"`            // Maximum delay between retries
	TokensPerMinute    int           `yaml:"tokens_per_minute"`    // Rate limit (tokens/minute)
	EnableRateLimiting bool          `yaml:"enable_rate_limiting"` // Enable proactive rate limiting
}

// AgentConfig holds execution loop and background task configuration
type AgentConfig struct {
	MaxCycles    int           `yaml:"max_cycles"`    // Max tool-call cycles per user input (default: 20)
	TaskDeadline time.Duration `yaml:"task_deadline"` // Execution deadline for background tasks (default: 10m)
}

// ProfileConfig overrides or defines an agent profile. A profile named after
// a built-in replaces it wholesale; any other name defines a new profile.
type ProfileConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Prompt      string   `yaml:"prompt"`
	Tools       []string `yaml:"tools"`
	Model       string   `yaml:"model"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
}

// Config holds the application configuration
type Config struct {
	APIKey      string          `yaml:"-"` // From environment only
	Model       string          `yaml:"model"`
	FastModelID string          `yaml:"fast_model"`
	MaxTokens   int             `yaml:"max_tokens"`
	Temperature float64         `yaml:"temperature"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Agent       AgentConfig     `yaml:"agent"`
	Profiles    []ProfileConfig `yaml:"profiles"`

	// Internal: where config was loaded from
	configPath string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		MaxTokens:   8192,
		Temperature: 0.7,
		RateLimit: RateLimitConfig{
			MaxRetries:         5,
			BaseDelay:          1 * time.Second,
			MaxDelay:           60 * time.Second,
			TokensPerMinute:    30000,
			EnableRateLimiting: true,
		},
		Agent: AgentConfig{
			MaxCycles:    20,
			TaskDeadline: 10 * time.Minute,
		},
	}
}

// LoadOptions controls config loading.
type LoadOptions struct {
	// TokenOverride takes precedence over the ANTHROPIC_API_KEY env var.
	TokenOverride string
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions loads configuration with explicit overrides
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config files in priority order
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, fmt.Errorf("error loading config from %s: %w", path, err)
			}
			cfg.configPath = path
			break
		}
	}

	cfg.APIKey = opts.TokenOverride
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}

	return cfg, nil
}

// getConfigPaths returns config file paths in priority order
func getConfigPaths() []string {
	paths := []string{
		"sage.yaml",
		filepath.Join(".sage", "config.yaml"),
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sage", "config.yaml"))
	}

	return paths
}

// loadFromFile loads config from a YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// ConfigPath returns where the config was loaded from
func (c *Config) ConfigPath() string {
	return c.configPath
}

// FastModel returns the model used for lightweight profiles.
func (c *Config) FastModel() string {
	if c.FastModelID != "" {
		return c.FastModelID
	}
	return DefaultFastModel
}
