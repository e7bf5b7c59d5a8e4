// Package agent implements the profile registry, the execution loop, and the
// tool executor that together drive one interactive session.
package agent

import (
	"github.com/mattgly/sage/internal/config"
)

// Profile is an immutable agent configuration: a system prompt, a tool
// allowlist, and model parameters. Profiles are values; nothing mutates one
// after the catalog is built.
type Profile struct {
	Name        string
	Description string
	Prompt      string
	Tools       []string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Built-in profile names.
const (
	ProfileMain              = "main"
	ProfileExplore           = "explore"
	ProfilePlan              = "plan"
	ProfileCodeReviewer      = "code-reviewer"
	ProfileFrontendDeveloper = "frontend-developer"
	ProfileGeneralPurpose    = "general-purpose"
)

var readOnlyTools = []string{"read_file", "list_files", "grep"}

var allTools = []string{"read_file", "write_file", "edit_file", "list_files", "grep", "run_command"}

// builtinProfiles returns the default profile set, parameterized by the
// configured models.
func builtinProfiles(cfg *config.Config) []Profile {
	return []Profile{
		{
			Name:        ProfileMain,
			Description: "Primary interactive assistant with full tool access",
			Prompt: `You are a capable software engineering assistant working in the user's repository.

Use the available tools to read, modify, and run code. Prefer targeted edits
over whole-file rewrites. When a command may run for a long time, set
background to true and poll its output.

Be concise. Report what you did and what you observed.`,
			Tools:       allTools,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		{
			Name:        ProfileExplore,
			Description: "Fast read-only codebase exploration",
			Prompt: `You explore codebases and report findings. You cannot modify anything.

Locate the relevant files, read them, and summarize structure and behavior.
Cite file paths and line numbers in your answers.`,
			Tools:       readOnlyTools,
			Model:       cfg.FastModel(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: 0.3,
		},
		{
			Name:        ProfilePlan,
			Description: "Read-only planning and design analysis",
			Prompt: `You produce implementation plans. You cannot modify anything.

Read the code relevant to the request, then lay out a step-by-step plan:
which files change, what each change does, and in what order. Flag risks
and open questions explicitly.`,
			Tools:       readOnlyTools,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: 0.3,
		},
		{
			Name:        ProfileCodeReviewer,
			Description: "Read-only code review",
			Prompt: `You review code for correctness, clarity, and maintainability. You cannot
modify anything.

Read the code under review and report concrete findings: bugs, race
conditions, error-handling gaps, unclear naming. Order findings by severity
and cite file paths and line numbers.`,
			Tools:       readOnlyTools,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: 0.2,
		},
		{
			Name:        ProfileFrontendDeveloper,
			Description: "Frontend-focused development with full tool access",
			Prompt: `You are a frontend specialist. You build and modify UI code: components,
styles, and client-side state.

Follow the conventions already present in the project. Check how existing
components are structured before writing new ones. Run the project's own
build and lint commands to verify changes.`,
			Tools:       allTools,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		{
			Name:        ProfileGeneralPurpose,
			Description: "General problem solving with full tool access",
			Prompt: `You handle multi-step tasks end to end: research, implementation, and
verification.

Break the task down, use tools to gather what you need, make the changes,
and verify them. Summarize the outcome when done.`,
			Tools:       allTools,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}
}

// Catalog builds the full profile catalog: built-ins plus user-defined
// profiles from config. A configured profile with a built-in's name replaces
// it wholesale.
func Catalog(cfg *config.Config) []Profile {
	profiles := builtinProfiles(cfg)
	index := make(map[string]int, len(profiles))
	for i, p := range profiles {
		index[p.Name] = i
	}

	for _, pc := range cfg.Profiles {
		if pc.Name == "" {
			continue
		}
		p := Profile{
			Name:        pc.Name,
			Description: pc.Description,
			Prompt:      pc.Prompt,
			Tools:       pc.Tools,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		}
		if p.Model == "" {
			p.Model = cfg.Model
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = cfg.MaxTokens
		}
		if i, exists := index[p.Name]; exists {
			profiles[i] = p
		} else {
			index[p.Name] = len(profiles)
			profiles = append(profiles, p)
		}
	}

	return profiles
}

// ToolCatalog maps profile names to tool allowlists, the shape the
// permission gate consumes.
func ToolCatalog(profiles []Profile) map[string][]string {
	catalog := make(map[string][]string, len(profiles))
	for _, p := range profiles {
		catalog[p.Name] = p.Tools
	}
	return catalog
}
