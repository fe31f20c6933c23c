package tooling

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"toolbroker/internal/domain"
)

// Entry is a registered tool together with its compiled input schema.
type Entry struct {
	Tool
	schema *jsonschema.Schema
}

// DecodeArguments validates raw arguments against the tool's input schema.
// See ValidateArguments.
func (e *Entry) DecodeArguments(raw json.RawMessage) (json.RawMessage, error) {
	return ValidateArguments(e.schema, raw)
}

// ToolRegistry holds tools keyed by name. Tools are registered once at
// configuration time; lookups are safe for concurrent use.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Entry
	order []string
}

// NewToolRegistry returns an empty, ready-to-use registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Entry)}
}

// Register adds a tool. The input schema is compiled here so that a broken
// schema fails at configuration time rather than on the first call. A
// duplicate name returns ErrDuplicateTool and leaves the first tool in place.
func (r *ToolRegistry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidTool)
	}
	if tool.Call == nil {
		return fmt.Errorf("%w: tool %q has no callable", ErrInvalidTool, tool.Name)
	}
	if len(tool.InputSchema) == 0 {
		tool.InputSchema = defaultInputSchema
	}
	schema, err := CompileSchema(tool.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %q: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, tool.Name)
	}
	r.tools[tool.Name] = &Entry{Tool: tool, schema: schema}
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister is Register for setup code that cannot recover from a bad tool.
func (r *ToolRegistry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the tool with the given name or ErrUnknownTool.
func (r *ToolRegistry) Resolve(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e, nil
}

// Has returns true if a tool with the given name is registered.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns domain.ToolDefinition for every registered tool in
// registration order, suitable for passing to the function-calling API.
func (r *ToolRegistry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition())
	}
	return out
}
