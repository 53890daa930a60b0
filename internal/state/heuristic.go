package state

// Tool sets consulted by the auto-transition heuristic. The thresholds
// and memberships are part of the contract, not incidental.
var (
	creationSet = map[string]bool{
		"register_domain":    true,
		"create_repository":  true,
		"create_chat_server": true,
	}

	researchSet = map[string]bool{
		"web_search":     true,
		"domain_lookup":  true,
		"check_payments": true,
	}

	destructiveSet = map[string]bool{
		"delete_repository":  true,
		"delete_chat_server": true,
	}
)

// Heuristic thresholds: distinct tools from the respective set that must
// have been invoked in a single turn before a phase is considered done.
const (
	creationThreshold    = 2
	researchThreshold    = 3
	destructiveThreshold = 1
)

// ProposeTransition inspects which tools were invoked during a completed
// turn and optionally proposes a further trigger. toolsInvoked must be
// de-duplicated by the caller. The returned trigger is fed through the
// transition table exactly like a router-derived trigger, after the loop
// completes, never mid-loop.
func ProposeTransition(current State, toolsInvoked []string) (Trigger, bool) {
	switch current {
	case StateCreating:
		if countIn(toolsInvoked, creationSet) >= creationThreshold {
			return TriggerWorkComplete, true
		}
	case StateResearching:
		if countIn(toolsInvoked, researchSet) >= researchThreshold {
			return TriggerWorkComplete, true
		}
	case StateCleanup:
		if countIn(toolsInvoked, destructiveSet) >= destructiveThreshold {
			return TriggerWorkComplete, true
		}
	}
	return "", false
}

func countIn(tools []string, set map[string]bool) int {
	n := 0
	for _, t := range tools {
		if set[t] {
			n++
		}
	}
	return n
}
