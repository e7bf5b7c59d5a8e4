package permissions

import "testing"

func TestGateAllowed(t *testing.T) {
	gate := NewGate(map[string][]string{
		"explore": {"read_file", "list_files", "grep"},
		"main":    {"read_file", "write_file", "run_command"},
	})

	tests := []struct {
		profile string
		tool    string
		want    bool
	}{
		{"explore", "read_file", true},
		{"explore", "write_file", false},
		{"main", "write_file", true},
		{"main", "grep", false},
		{"unknown", "read_file", false},
		{"explore", "", false},
		{"", "read_file", false},
	}

	for _, tt := range tests {
		if got := gate.Allowed(tt.profile, tt.tool); got != tt.want {
			t.Errorf("Allowed(%q, %q) = %v, want %v", tt.profile, tt.tool, got, tt.want)
		}
	}
}

func TestGateCatalogIsCopied(t *testing.T) {
	catalog := map[string][]string{"main": {"read_file"}}
	gate := NewGate(catalog)

	catalog["main"] = append(catalog["main"], "write_file")
	delete(catalog, "main")

	if !gate.Allowed("main", "read_file") {
		t.Error("gate lost access after catalog mutation")
	}
	if gate.Allowed("main", "write_file") {
		t.Error("gate gained access after catalog mutation")
	}
}

func TestGateTools(t *testing.T) {
	gate := NewGate(map[string][]string{"plan": {"read_file", "grep"}})

	if tools := gate.Tools("plan"); len(tools) != 2 {
		t.Errorf("Tools(plan) = %v, want 2 entries", tools)
	}
	if tools := gate.Tools("nope"); tools != nil {
		t.Errorf("Tools(nope) = %v, want nil", tools)
	}
}
