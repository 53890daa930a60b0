// Package intent converts free text into state transitions via the
// external classifier and the transition table.
package intent

import (
	"context"
	"log/slog"

	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/state"
)

// ConfidenceThreshold is the policy constant above which a classified
// intent commits a transition. The comparison is strictly greater-than:
// a confidence of exactly 0.7 does not commit.
const ConfidenceThreshold = 0.7

// defaultTriggerMap maps classifier labels to transition triggers.
// Labels without a mapping produce no transition.
var defaultTriggerMap = map[string]state.Trigger{
	"business_idea": state.TriggerBusinessIdea,
	"confirm_plan":  state.TriggerPlanConfirmed,
	"research":      state.TriggerResearchRequest,
	"manage":        state.TriggerManageRequest,
	"cleanup":       state.TriggerCleanupRequest,
}

// Decision is the outcome of routing one user turn.
type Decision struct {
	// Trigger is the trigger derived from the classified label, if any.
	Trigger state.Trigger

	// Confidence is the classifier's reported confidence.
	Confidence float64

	// NewState is the state after routing. Equal to the input state
	// unless Transitioned is true.
	NewState state.State

	// Transitioned reports whether a transition was committed.
	Transitioned bool
}

// Router routes user text to state transitions.
type Router struct {
	classifier classify.Classifier
	table      *state.Table
	triggers   map[string]state.Trigger
	logger     *slog.Logger
}

// NewRouter creates a Router using the default label-to-trigger mapping.
func NewRouter(c classify.Classifier, table *state.Table, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: c,
		table:      table,
		triggers:   defaultTriggerMap,
		logger:     logger,
	}
}

// Route classifies text and applies the transition table. Classifier
// failures and low-confidence results degrade to "no transition"; Route
// never returns an error because a routing failure must not abort the turn.
func (r *Router) Route(ctx context.Context, current state.State, text, digest string) Decision {
	decision := Decision{NewState: current}

	res, err := r.classifier.Intent(ctx, text, digest)
	if err != nil {
		r.logger.Warn("intent: classifier failed, keeping state", "error", err, "state", string(current))
		return decision
	}

	trigger, ok := r.triggers[res.Label]
	if !ok {
		return decision
	}

	decision.Trigger = trigger
	decision.Confidence = res.Confidence

	if res.Confidence <= ConfidenceThreshold {
		r.logger.Debug("intent: below threshold, discarding trigger",
			"trigger", string(trigger),
			"confidence", res.Confidence,
		)
		return decision
	}

	next := r.table.Transition(current, trigger)
	if next != current {
		decision.NewState = next
		decision.Transitioned = true
	}
	return decision
}
