// Package permissions decides whether an agent profile may invoke a tool.
package permissions

// Gate answers (profile, tool) questions from an immutable catalog built at
// construction. Lookups are pure: same inputs, same answer, no side effects.
type Gate struct {
	allowed map[string]map[string]bool
}

// NewGate builds a gate from a profile-to-allowlist catalog. The catalog is
// copied; later mutation of the input map does not affect the gate.
func NewGate(catalog map[string][]string) *Gate {
	allowed := make(map[string]map[string]bool, len(catalog))
	for profile, tools := range catalog {
		set := make(map[string]bool, len(tools))
		for _, t := range tools {
			set[t] = true
		}
		allowed[profile] = set
	}
	return &Gate{allowed: allowed}
}

// Allowed reports whether the profile may invoke the tool. Unknown profiles
// and unknown tools are denied.
func (g *Gate) Allowed(profile, tool string) bool {
	set, ok := g.allowed[profile]
	if !ok {
		return false
	}
	return set[tool]
}

// Tools returns the tool names the profile may use, or nil for an unknown
// profile.
func (g *Gate) Tools(profile string) []string {
	set, ok := g.allowed[profile]
	if !ok {
		return nil
	}
	tools := make([]string, 0, len(set))
	for t := range set {
		tools = append(tools, t)
	}
	return tools
}
