package tool

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/foundryhq/foundry/internal/provider"
)

// Registry holds the global tool catalog. It is instance-based
// (not global) for better testability.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// It returns ErrEmptyToolName for a blank name and ErrDuplicateTool if a
// tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns provider tool definitions for the given tool names,
// sorted by name. Unknown names are skipped.
func (r *Registry) Definitions(names []string) []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	slices.SortFunc(defs, func(a, b provider.ToolDefinition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return defs
}

// AllDefinitions returns definitions for the full catalog sorted by name.
func (r *Registry) AllDefinitions() []provider.ToolDefinition {
	return r.Definitions(r.Names())
}
