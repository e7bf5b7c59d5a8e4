// Package tools defines the tool contract and the built-in tool set.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mattgly/sage/internal/errors"
)

// PermissionLevel defines the level of permission required for a tool
type PermissionLevel int

const (
	PermissionRead    PermissionLevel = 0 // Read-only operations
	PermissionWrite   PermissionLevel = 1 // File modifications
	PermissionExecute PermissionLevel = 2 // Shell execution
)

func (p PermissionLevel) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionWrite:
		return "write"
	case PermissionExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Tool defines the interface all tools must implement
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (string, error)
	Permission() PermissionLevel
}

// Streamer is implemented by tools that can emit output incrementally.
// Background tasks prefer this path so partial output is observable while
// the tool runs.
type Streamer interface {
	ExecuteStreaming(ctx context.Context, input map[string]any, emit func(string)) error
}

// Definition is the tool description handed to the model backend.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Registry manages available tools. List and Definitions preserve
// registration order.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates a registry populated with the built-in tools.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()

	r.Register(&ReadFileTool{})
	r.Register(&WriteFileTool{})
	r.Register(&EditFileTool{})
	r.Register(&ListFilesTool{})
	r.Register(&GrepTool{})
	r.Register(&BashTool{})

	return r
}

// NewEmptyRegistry creates a registry with no tools. Used by tests.
func NewEmptyRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry and compiles its input schema.
// Re-registering a name replaces the tool but keeps its position.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool

	if schema, err := compileSchema(name, tool.InputSchema()); err == nil {
		r.schemas[name] = schema
	}
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Validate checks a decoded argument payload against the tool's schema.
func (r *Registry) Validate(name string, input map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		if _, exists := r.Get(name); !exists {
			return errors.ToolNotFound(name)
		}
		return nil
	}

	if input == nil {
		input = map[string]any{}
	}
	if err := schema.Validate(normalize(input)); err != nil {
		return errors.ToolInputInvalid(name, err)
	}
	return nil
}

// Execute runs a tool by name with the given input.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", errors.ToolNotFound(name)
	}
	out, err := tool.Execute(ctx, input)
	if err != nil {
		return "", errors.ToolExecutionFailed(name, err)
	}
	return out, nil
}

// Definitions returns tool definitions for the model, in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}

// compileSchema compiles a schema map into a validator.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	url := "sage://tools/" + name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// normalize round-trips a value through JSON so the validator sees the same
// shapes the wire produces.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
