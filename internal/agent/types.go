// Package agent implements the bounded reason-act loop that turns a
// user message into a reply through iterative provider calls and tool
// executions.
package agent

import (
	"encoding/json"
	"time"

	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/tool"
)

// StopReason describes why the agent loop terminated.
type StopReason string

// StopReason constants for agent loop termination.
const (
	StopReasonComplete      StopReason = "complete"
	StopReasonNeedsApproval StopReason = "needs_approval"
	StopReasonMaxIterations StopReason = "max_iterations"
	StopReasonLoopDetected  StopReason = "loop_detected"
	StopReasonTimeout       StopReason = "timeout"
	StopReasonError         StopReason = "error"
)

// ToolCallRecord tracks one tool invocation during the loop.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	Result    tool.Result
	Duration  time.Duration
	Panicked  bool
}

// PendingCall carries a tool call that stopped the loop awaiting
// user approval.
type PendingCall struct {
	Tool   string
	Args   json.RawMessage
	Prompt string
}

// Request is the input to one loop run.
type Request struct {
	Messages     []provider.LLMMessage
	SystemPrompt string

	// AllowedTools is the set of tool names the current state exposes.
	// The loop advertises exactly these to the provider and rejects
	// any call outside the set.
	AllowedTools []string

	// Invocation is the execution context passed to every tool.
	Invocation tool.Invocation
}

// Response is the output of one loop run.
type Response struct {
	Content    string
	ToolCalls  []ToolCallRecord
	Pending    *PendingCall
	TotalUsage provider.TokenUsage
	Iterations int
	StopReason StopReason
}

// ExecutedTools lists the names of tools that ran successfully, in
// order. Rejected, failed, and parked calls are excluded.
func (r Response) ExecutedTools() []string {
	var names []string
	for _, rec := range r.ToolCalls {
		if rec.Result.Success {
			names = append(names, rec.Name)
		}
	}
	return names
}
