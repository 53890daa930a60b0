// Package state models the conversational phases a session moves through,
// the tools reachable from each phase, and the transition rules between
// phases. Everything here is pure: no I/O, no mutable package state.
package state

// State is one of the fixed conversational phases.
type State string

// The closed set of conversational states.
const (
	StateIdle        State = "idle"
	StateChat        State = "chat"
	StatePlanning    State = "planning"
	StateCreating    State = "creating"
	StateManaging    State = "managing"
	StateResearching State = "researching"
	StateCleanup     State = "cleanup"
)

// Initial is the state a new conversation starts in.
const Initial = StateIdle

// All returns every defined state. The slice is a fresh copy.
func All() []State {
	return []State{
		StateIdle,
		StateChat,
		StatePlanning,
		StateCreating,
		StateManaging,
		StateResearching,
		StateCleanup,
	}
}

// Valid reports whether s is a member of the closed state set.
func Valid(s State) bool {
	switch s {
	case StateIdle, StateChat, StatePlanning, StateCreating,
		StateManaging, StateResearching, StateCleanup:
		return true
	}
	return false
}

// Trigger is a discrete event label consumed by the transition table.
type Trigger string

// Trigger values emitted by the intent router and the auto-transition
// heuristic.
const (
	TriggerBusinessIdea     Trigger = "business_idea_detected"
	TriggerPlanConfirmed    Trigger = "plan_confirmed"
	TriggerWorkComplete     Trigger = "work_complete"
	TriggerResearchRequest  Trigger = "research_requested"
	TriggerManageRequest    Trigger = "manage_requested"
	TriggerCleanupRequest   Trigger = "cleanup_requested"
	TriggerConversationOver Trigger = "conversation_over"
)
