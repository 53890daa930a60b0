package state

// Rule is a single transition rule. A wildcard rule matches any source
// state for its trigger; specific rules take precedence over wildcards.
type Rule struct {
	From     State
	Wildcard bool
	On       Trigger
	To       State
}

// Table is an ordered list of transition rules.
type Table struct {
	rules []Rule
}

// NewTable creates a table with the given rules, evaluated in order.
func NewTable(rules []Rule) *Table {
	return &Table{rules: rules}
}

// DefaultTable returns the transition table for the venture-assistant flow.
func DefaultTable() *Table {
	return NewTable([]Rule{
		{From: StateIdle, On: TriggerBusinessIdea, To: StatePlanning},
		{From: StateChat, On: TriggerBusinessIdea, To: StatePlanning},
		{From: StatePlanning, On: TriggerPlanConfirmed, To: StateCreating},
		{From: StateCreating, On: TriggerWorkComplete, To: StateManaging},
		{From: StateResearching, On: TriggerWorkComplete, To: StateManaging},
		{From: StateCleanup, On: TriggerWorkComplete, To: StateChat},
		{Wildcard: true, On: TriggerResearchRequest, To: StateResearching},
		{Wildcard: true, On: TriggerManageRequest, To: StateManaging},
		{Wildcard: true, On: TriggerCleanupRequest, To: StateCleanup},
		{Wildcard: true, On: TriggerConversationOver, To: StateChat},
	})
}

// Transition resolves the new state for (from, trigger). Specific rules
// are checked before wildcard rules. When no rule matches, the input
// state is returned unchanged; callers must treat "unchanged" as a valid
// outcome, not an error.
func (t *Table) Transition(from State, trig Trigger) State {
	for _, r := range t.rules {
		if r.Wildcard {
			continue
		}
		if r.From == from && r.On == trig {
			return r.To
		}
	}
	for _, r := range t.rules {
		if r.Wildcard && r.On == trig {
			return r.To
		}
	}
	return from
}

// Rules returns a copy of the rule list for validation.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}
