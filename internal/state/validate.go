package state

import (
	"errors"
	"fmt"
)

// ToolCatalog is the minimal view of the tool registry needed for
// startup validation.
type ToolCatalog interface {
	Has(name string) bool
}

// Validate checks the structural invariants of a registry/table pair
// against the global tool catalog. It is called once at startup, never
// at runtime.
//
// Invariants:
//   - every tool name listed in the registry exists in the catalog;
//   - every state with a registry entry, except the initial one, is
//     reachable from the initial state through the transition table.
func Validate(reg *Registry, table *Table, catalog ToolCatalog) error {
	var errs []error

	for _, s := range reg.States() {
		for _, name := range reg.ReachableTools(s) {
			if !catalog.Has(name) {
				errs = append(errs, fmt.Errorf("state %s: unknown tool %q", s, name))
			}
		}
	}

	reachable := reachableStates(table)
	for _, s := range reg.States() {
		if s == Initial {
			continue
		}
		if !reachable[s] {
			errs = append(errs, fmt.Errorf("state %s: unreachable from %s", s, Initial))
		}
	}

	return errors.Join(errs...)
}

// reachableStates walks the transition table from the initial state,
// treating the implicit idle→chat first-contact transition as an edge.
func reachableStates(table *Table) map[State]bool {
	reachable := map[State]bool{Initial: true}
	// First contact moves idle to chat without a table rule.
	reachable[StateChat] = true

	for {
		grew := false
		for _, r := range table.Rules() {
			if !reachable[r.To] && (r.Wildcard || reachable[r.From]) {
				reachable[r.To] = true
				grew = true
			}
		}
		if !grew {
			return reachable
		}
	}
}
