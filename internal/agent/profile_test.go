package agent

import (
	"testing"

	"github.com/mattgly/sage/internal/config"
)

func TestCatalogBuiltins(t *testing.T) {
	cfg := config.DefaultConfig()
	profiles := Catalog(cfg)

	byName := make(map[string]Profile)
	for _, p := range profiles {
		byName[p.Name] = p
	}

	for _, name := range []string{
		ProfileMain, ProfileExplore, ProfilePlan,
		ProfileCodeReviewer, ProfileFrontendDeveloper, ProfileGeneralPurpose,
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("built-in %q missing", name)
		}
	}

	// Read-only profiles must not carry mutating tools.
	for _, name := range []string{ProfileExplore, ProfilePlan, ProfileCodeReviewer} {
		for _, tool := range byName[name].Tools {
			switch tool {
			case "write_file", "edit_file", "run_command":
				t.Errorf("%q allows mutating tool %q", name, tool)
			}
		}
	}

	if byName[ProfileExplore].Model != cfg.FastModel() {
		t.Errorf("explore model = %q", byName[ProfileExplore].Model)
	}
}

func TestCatalogConfigOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Profiles = []config.ProfileConfig{
		{
			Name:   ProfileMain,
			Prompt: "custom main prompt",
			Tools:  []string{"read_file"},
		},
		{
			Name:        "docs",
			Description: "documentation writer",
			Tools:       []string{"read_file", "write_file"},
			MaxTokens:   4096,
		},
	}

	profiles := Catalog(cfg)
	byName := make(map[string]Profile)
	for _, p := range profiles {
		byName[p.Name] = p
	}

	// A configured profile with a built-in's name replaces it wholesale.
	main := byName[ProfileMain]
	if main.Prompt != "custom main prompt" {
		t.Errorf("main prompt = %q", main.Prompt)
	}
	if len(main.Tools) != 1 || main.Tools[0] != "read_file" {
		t.Errorf("main tools = %v", main.Tools)
	}

	docs, ok := byName["docs"]
	if !ok {
		t.Fatal("custom profile missing")
	}
	if docs.MaxTokens != 4096 {
		t.Errorf("docs max tokens = %d", docs.MaxTokens)
	}
	// Unset model falls back to the configured default.
	if docs.Model != cfg.Model {
		t.Errorf("docs model = %q", docs.Model)
	}
}

func TestRegistryCapabilities(t *testing.T) {
	reg := NewRegistry([]Profile{
		{Name: "explore", Description: "read-only exploration", Tools: []string{"read_file", "grep"}},
		{Name: "main", Tools: []string{"read_file", "write_file"}},
	})

	// Declaration order, not alphabetical.
	profiles := reg.ListProfiles()
	if profiles[0].Name != "explore" || profiles[1].Name != "main" {
		t.Errorf("order = %q, %q", profiles[0].Name, profiles[1].Name)
	}

	caps, err := reg.Capabilities("explore")
	if err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	if caps.Description != "read-only exploration" {
		t.Errorf("description = %q", caps.Description)
	}
	if len(caps.Tools) != 2 {
		t.Errorf("tools = %v", caps.Tools)
	}

	if _, err := reg.Capabilities("nope"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestToolCatalog(t *testing.T) {
	profiles := []Profile{
		{Name: "a", Tools: []string{"read_file"}},
		{Name: "b", Tools: nil},
	}
	catalog := ToolCatalog(profiles)

	if len(catalog["a"]) != 1 {
		t.Errorf("catalog[a] = %v", catalog["a"])
	}
	if _, ok := catalog["b"]; !ok {
		t.Error("profile with no tools missing from catalog")
	}
}
