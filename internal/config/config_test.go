package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != DefaultModel {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.MaxTokens != 8192 {
		t.Errorf("max tokens = %d", cfg.MaxTokens)
	}
	if cfg.Agent.MaxCycles != 20 {
		t.Errorf("max cycles = %d", cfg.Agent.MaxCycles)
	}
	if cfg.Agent.TaskDeadline != 10*time.Minute {
		t.Errorf("task deadline = %v", cfg.Agent.TaskDeadline)
	}
	if !cfg.RateLimit.EnableRateLimiting {
		t.Error("rate limiting disabled by default")
	}
	if cfg.FastModel() != DefaultFastModel {
		t.Errorf("fast model = %q", cfg.FastModel())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sage.yaml")
	yaml := `
model: custom-model
max_tokens: 2048
agent:
  max_cycles: 7
profiles:
  - name: docs
    description: documentation writer
    tools: [read_file, write_file]
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.loadFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Model != "custom-model" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("max tokens = %d", cfg.MaxTokens)
	}
	if cfg.Agent.MaxCycles != 7 {
		t.Errorf("max cycles = %d", cfg.Agent.MaxCycles)
	}
	// Unset fields keep their defaults.
	if cfg.Agent.TaskDeadline != 10*time.Minute {
		t.Errorf("task deadline = %v", cfg.Agent.TaskDeadline)
	}
	if len(cfg.Profiles) != 1 || cfg.Profiles[0].Name != "docs" {
		t.Errorf("profiles = %+v", cfg.Profiles)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := LoadWithOptions(LoadOptions{}); err == nil {
		t.Error("expected error without API key")
	}

	cfg, err := LoadWithOptions(LoadOptions{TokenOverride: "sk-test"})
	if err != nil {
		t.Fatalf("load with override: %v", err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.APIKey)
	}
}
