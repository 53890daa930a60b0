// Package approval resolves pending tool invocations against the
// user's next message.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

// ConfidenceThreshold gates approval verdicts. Strictly greater-than:
// a verdict at exactly 0.7 is treated as ambiguous.
const ConfidenceThreshold = 0.7

// CancelReply is sent when the user declines a pending invocation.
const CancelReply = "Understood, I won't do that."

// Outcome describes how the gate handled a turn.
type Outcome struct {
	// Handled reports that the turn was consumed by the gate. When
	// false the pending slot is untouched and the turn proceeds
	// through the normal loop.
	Handled bool

	// Approved is set when the pending invocation was executed.
	Approved bool

	// Reply is the text to send back when Handled.
	Reply string

	// ToolInvoked names the executed tool, for the transition
	// heuristic. Empty unless Approved.
	ToolInvoked string
}

// Gate decides whether an incoming message answers a pending approval
// prompt. An ambiguous answer deliberately falls through: the pending
// invocation stays parked and the message is treated as a normal turn,
// so the user can ask a side question without losing the prompt.
type Gate struct {
	classifier classify.Classifier
	tools      *tool.Registry
	approvals  entity.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewGate wires a Gate. The entity store is optional; without it
// approvals stay per-invocation and no standing grants are recorded.
func NewGate(c classify.Classifier, tools *tool.Registry, approvals entity.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{classifier: c, tools: tools, approvals: approvals, logger: logger, now: time.Now}
}

// HandlePending inspects the conversation's pending invocation, if any,
// against the user's message. On approval it executes the tool with the
// approval override set and clears the slot; on rejection it clears the
// slot and cancels. Tool results are appended to history either way the
// tool runs. author identifies the sender and is recorded on any
// standing approval the verdict creates.
func (g *Gate) HandlePending(ctx context.Context, cc *convo.Context, text, author string) Outcome {
	if cc.Pending == nil {
		return Outcome{}
	}
	pending := *cc.Pending

	verdict, err := g.classifier.Approval(ctx, text, pending.Prompt)
	if err != nil {
		g.logger.Warn("approval: classifier failed, treating as ambiguous", "error", err, "key", cc.Key.String())
		return Outcome{}
	}
	if verdict.Confidence <= ConfidenceThreshold {
		return Outcome{}
	}

	switch {
	case verdict.IsRejection:
		cc.ClearPending()
		g.logger.Info("approval: rejected", "key", cc.Key.String(), "tool", pending.Tool)
		return Outcome{Handled: true, Reply: CancelReply}

	case verdict.IsApproval:
		cc.ClearPending()
		g.grant(ctx, pending, author)
		reply := g.execute(ctx, cc, pending, author)
		return Outcome{Handled: true, Approved: true, Reply: reply, ToolInvoked: pending.Tool}
	}

	// Confident but neither approval nor rejection: no signal.
	return Outcome{}
}

// grant records a standing approval for the invocation's resource
// category on its entity, so the same class of action is not asked
// about again.
func (g *Gate) grant(ctx context.Context, pending convo.PendingInvocation, author string) {
	if g.approvals == nil || pending.EntityID == "" {
		return
	}
	t, err := g.tools.Get(pending.Tool)
	if err != nil || t.Category() == "" {
		return
	}
	if err := g.approvals.Grant(ctx, pending.EntityID, t.Category(), author); err != nil {
		g.logger.Warn("approval: recording standing approval failed",
			"entity", pending.EntityID, "category", t.Category(), "error", err)
		return
	}
	g.logger.Info("approval: standing approval granted",
		"entity", pending.EntityID, "category", t.Category(), "by", author)
}

func (g *Gate) execute(ctx context.Context, cc *convo.Context, pending convo.PendingInvocation, author string) string {
	t, err := g.tools.Get(pending.Tool)
	if err != nil {
		g.logger.Error("approval: pending tool vanished", "tool", pending.Tool, "error", err)
		return fmt.Sprintf("I couldn't run %s: the tool is no longer available.", pending.Tool)
	}

	inv := tool.Invocation{Author: author, EntityID: pending.EntityID, Approved: true}
	res, err := t.Execute(ctx, pending.Args, inv)
	if err != nil {
		res = tool.Failure(err.Error())
	}

	cc.AddMessage(convo.Message{
		Role:     convo.RoleTool,
		Text:     res.Content(),
		ToolName: pending.Tool,
	}, g.now())

	if !res.Success {
		g.logger.Warn("approval: approved tool failed", "tool", pending.Tool, "error", res.Error)
		return fmt.Sprintf("I tried to run %s but it failed: %s", pending.Tool, res.Error)
	}
	g.logger.Info("approval: executed", "key", cc.Key.String(), "tool", pending.Tool)
	return fmt.Sprintf("Done. %s", res.Data)
}
