package state

// Info describes what a state exposes: the tool names reachable from it
// and a list of named exit conditions. Exit conditions are human-readable
// documentation only; the registry never evaluates them.
type Info struct {
	Tools          []string
	ExitConditions []string
}

// Registry is the static table mapping each state to its reachable tool
// set and exit conditions.
type Registry struct {
	entries map[State]Info
}

// NewRegistry creates a registry from the given entries.
func NewRegistry(entries map[State]Info) *Registry {
	return &Registry{entries: entries}
}

// DefaultRegistry returns the state registry for the venture-assistant flow.
func DefaultRegistry() *Registry {
	return NewRegistry(map[State]Info{
		StateIdle: {
			// Empty set: the agent loop falls back to the full catalog.
			ExitConditions: []string{"user sends a first message"},
		},
		StateChat: {
			Tools:          []string{"web_search"},
			ExitConditions: []string{"user describes a business idea"},
		},
		StatePlanning: {
			Tools: []string{"web_search", "domain_lookup", "check_payments"},
			ExitConditions: []string{
				"user confirms the plan",
				"user asks for dedicated research",
			},
		},
		StateCreating: {
			Tools: []string{
				"register_domain",
				"create_repository",
				"create_chat_server",
				"domain_lookup",
			},
			ExitConditions: []string{"enough launch resources created"},
		},
		StateManaging: {
			Tools: []string{"check_payments", "web_search", "domain_lookup"},
			ExitConditions: []string{
				"user asks for research",
				"user asks to tear something down",
			},
		},
		StateResearching: {
			Tools:          []string{"web_search", "domain_lookup", "check_payments"},
			ExitConditions: []string{"enough findings gathered"},
		},
		StateCleanup: {
			Tools:          []string{"delete_repository", "delete_chat_server"},
			ExitConditions: []string{"a destructive action completed"},
		},
	})
}

// ReachableTools returns the tool names reachable from s. The returned
// slice is a copy; an unknown state yields nil.
func (r *Registry) ReachableTools(s State) []string {
	info, ok := r.entries[s]
	if !ok || len(info.Tools) == 0 {
		return nil
	}
	out := make([]string, len(info.Tools))
	copy(out, info.Tools)
	return out
}

// ExitConditions returns the documented exit conditions for s.
func (r *Registry) ExitConditions(s State) []string {
	info, ok := r.entries[s]
	if !ok {
		return nil
	}
	out := make([]string, len(info.ExitConditions))
	copy(out, info.ExitConditions)
	return out
}

// States returns the states the registry has entries for.
func (r *Registry) States() []State {
	out := make([]State, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	return out
}
