package state

import "testing"

func TestTransitionSpecificRules(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name string
		from State
		on   Trigger
		want State
	}{
		{"idea in chat starts planning", StateChat, TriggerBusinessIdea, StatePlanning},
		{"idea in idle starts planning", StateIdle, TriggerBusinessIdea, StatePlanning},
		{"confirmed plan starts creating", StatePlanning, TriggerPlanConfirmed, StateCreating},
		{"creating done moves to managing", StateCreating, TriggerWorkComplete, StateManaging},
		{"research done moves to managing", StateResearching, TriggerWorkComplete, StateManaging},
		{"cleanup done returns to chat", StateCleanup, TriggerWorkComplete, StateChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Transition(tt.from, tt.on); got != tt.want {
				t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.on, got, tt.want)
			}
		})
	}
}

func TestTransitionWildcardRules(t *testing.T) {
	table := DefaultTable()

	for _, from := range All() {
		if got := table.Transition(from, TriggerCleanupRequest); got != StateCleanup {
			t.Errorf("Transition(%s, cleanup_requested) = %s, want cleanup", from, got)
		}
		if got := table.Transition(from, TriggerResearchRequest); got != StateResearching {
			t.Errorf("Transition(%s, research_requested) = %s, want researching", from, got)
		}
	}
}

func TestTransitionNoRuleIsIdentity(t *testing.T) {
	table := DefaultTable()

	// No rule and no wildcard for these pairs: state must come back unchanged.
	tests := []struct {
		from State
		on   Trigger
	}{
		{StateChat, TriggerWorkComplete},
		{StateManaging, TriggerPlanConfirmed},
		{StateCreating, TriggerBusinessIdea},
		{StateCleanup, Trigger("never_heard_of_it")},
	}

	for _, tt := range tests {
		if got := table.Transition(tt.from, tt.on); got != tt.from {
			t.Errorf("Transition(%s, %s) = %s, want unchanged", tt.from, tt.on, got)
		}
	}
}

func TestTransitionSpecificBeatsWildcard(t *testing.T) {
	table := NewTable([]Rule{
		{From: StateChat, On: TriggerWorkComplete, To: StateManaging},
		{Wildcard: true, On: TriggerWorkComplete, To: StateCleanup},
	})

	if got := table.Transition(StateChat, TriggerWorkComplete); got != StateManaging {
		t.Errorf("specific rule not preferred: got %s", got)
	}
	if got := table.Transition(StatePlanning, TriggerWorkComplete); got != StateCleanup {
		t.Errorf("wildcard not applied for unmatched state: got %s", got)
	}
}

func TestValidStates(t *testing.T) {
	for _, s := range All() {
		if !Valid(s) {
			t.Errorf("Valid(%s) = false", s)
		}
	}
	if Valid(State("limbo")) {
		t.Error("Valid(limbo) = true")
	}
}
