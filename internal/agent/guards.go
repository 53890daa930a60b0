package agent

import (
	"encoding/json"

	"github.com/foundryhq/foundry/internal/provider"
)

// loopDetector tracks repeated identical tool calls to detect stuck loops.
type loopDetector struct {
	threshold int
	counts    map[string]int
}

func newLoopDetector(threshold int) *loopDetector {
	return &loopDetector{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

// normalizeArgs returns a canonical JSON representation of args so that
// semantically identical payloads with different key ordering produce
// the same string.
func normalizeArgs(args json.RawMessage) string {
	var m any
	if err := json.Unmarshal(args, &m); err != nil {
		return string(args)
	}
	normalized, err := json.Marshal(m)
	if err != nil {
		return string(args)
	}
	return string(normalized)
}

// record registers a tool call and reports whether the loop threshold
// has been reached for this exact call signature.
func (d *loopDetector) record(name string, args json.RawMessage) bool {
	key := name + ":" + normalizeArgs(args)
	d.counts[key]++
	return d.counts[key] >= d.threshold
}

// tokenTracker accumulates token usage and checks against a budget.
// Not concurrent-safe: each instance is owned by one Run call.
type tokenTracker struct {
	budget int
	usage  provider.TokenUsage
}

func newTokenTracker(budget int) *tokenTracker {
	return &tokenTracker{budget: budget}
}

func (t *tokenTracker) add(usage provider.TokenUsage) {
	t.usage.Add(usage)
}

// exceeded reports whether the cumulative usage has reached the budget.
// A zero budget never exceeds.
func (t *tokenTracker) exceeded() bool {
	return t.budget > 0 && t.usage.TotalTokens >= t.budget
}

func (t *tokenTracker) total() provider.TokenUsage {
	return t.usage
}

// allowSet answers membership checks for the advertised tool set.
type allowSet map[string]struct{}

func newAllowSet(names []string) allowSet {
	s := make(allowSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s allowSet) contains(name string) bool {
	_, ok := s[name]
	return ok
}
