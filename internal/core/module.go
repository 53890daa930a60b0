// Package core provides the module system foundation for foundry.
package core

// ModuleID uniquely identifies a module, namespaced with dots
// (e.g. "provider.anthropic", "store.sqlite", "tool.launch").
type ModuleID string

// Namespace returns the portion of the ID before the last dot, or the
// whole ID when it has no namespace.
func (id ModuleID) Namespace() string {
	s := string(id)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Lifecycle
// hooks (Configurable, Provisioner, Validator, Starter, Stopper) are
// optional and discovered by type assertion.
type Module interface {
	ModuleInfo() ModuleInfo
}
