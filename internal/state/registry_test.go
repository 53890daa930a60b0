package state

import (
	"slices"
	"testing"
)

func TestReachableTools(t *testing.T) {
	reg := DefaultRegistry()

	creating := reg.ReachableTools(StateCreating)
	for _, want := range []string{"register_domain", "create_repository", "create_chat_server"} {
		if !slices.Contains(creating, want) {
			t.Errorf("creating state missing tool %q", want)
		}
	}

	if got := reg.ReachableTools(StateIdle); got != nil {
		t.Errorf("idle state tools = %v, want nil (full-catalog fallback)", got)
	}

	if got := reg.ReachableTools(State("limbo")); got != nil {
		t.Errorf("unknown state tools = %v, want nil", got)
	}
}

func TestReachableToolsReturnsCopy(t *testing.T) {
	reg := DefaultRegistry()

	first := reg.ReachableTools(StateChat)
	first[0] = "mutated"

	second := reg.ReachableTools(StateChat)
	if second[0] == "mutated" {
		t.Error("ReachableTools exposed internal slice")
	}
}

func TestValidateDefaultSetup(t *testing.T) {
	catalog := catalogOf(
		"web_search", "domain_lookup", "check_payments",
		"register_domain", "create_repository", "create_chat_server",
		"delete_repository", "delete_chat_server",
	)

	if err := Validate(DefaultRegistry(), DefaultTable(), catalog); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateUnknownTool(t *testing.T) {
	reg := NewRegistry(map[State]Info{
		StateChat: {Tools: []string{"teleport"}},
	})

	err := Validate(reg, DefaultTable(), catalogOf("web_search"))
	if err == nil {
		t.Fatal("Validate() = nil, want unknown-tool error")
	}
}

func TestValidateUnreachableState(t *testing.T) {
	reg := NewRegistry(map[State]Info{
		StateCleanup: {},
	})
	// A table with no route to cleanup.
	table := NewTable([]Rule{
		{From: StateChat, On: TriggerBusinessIdea, To: StatePlanning},
	})

	err := Validate(reg, table, catalogOf())
	if err == nil {
		t.Fatal("Validate() = nil, want unreachable-state error")
	}
}

// catalogOf builds a ToolCatalog from a name list.
type nameCatalog map[string]bool

func (c nameCatalog) Has(name string) bool { return c[name] }

func catalogOf(names ...string) nameCatalog {
	c := make(nameCatalog, len(names))
	for _, n := range names {
		c[n] = true
	}
	return c
}
