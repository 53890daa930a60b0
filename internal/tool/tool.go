// Package tool defines the tool interface and execution model for foundry.
// Tools are the primary security boundary: every side-effecting action the
// agent takes goes through a registered tool, and costly or destructive
// tools refuse to execute without an approval.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the interface that all foundry tools must implement.
// Tools are the fundamental unit of agent capability.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// Category returns the resource category this tool acts on
	// (e.g. "domain", "repository", "chat-server"). Tools in a non-empty
	// category are gated by standing approvals on the linked venture.
	// An empty category means the tool is never approval-gated.
	Category() string

	// Destructive reports whether the tool performs an irreversible action.
	Destructive() bool

	// Execute runs the tool with parsed arguments and the turn context.
	// A tool that requires approval it does not have must return a Result
	// with NeedsApproval set rather than an error.
	Execute(ctx context.Context, args json.RawMessage, inv Invocation) (Result, error)
}

// Invocation carries the per-turn context a tool executes under.
type Invocation struct {
	// Author is the identifier of the user whose message triggered the call.
	Author string

	// EntityID is the venture linked to the conversation, if any.
	EntityID string

	// Approved is the per-turn override set when the user has just
	// confirmed a pending invocation of this tool. It bypasses the
	// standing-approval check for this single execution.
	Approved bool
}

// Result is the outcome of a tool execution. All fields other than
// NeedsApproval are opaque payload forwarded into conversation history.
type Result struct {
	// Success reports whether the tool completed its action.
	Success bool `json:"success"`

	// Data is the output payload on success.
	Data string `json:"data,omitempty"`

	// Error is a human-readable failure description when Success is false.
	Error string `json:"error,omitempty"`

	// NeedsApproval is set when the tool refused to execute pending an
	// explicit user confirmation. It is the only field the agent loop
	// inspects to short-circuit a turn.
	NeedsApproval bool `json:"needs_approval,omitempty"`

	// ApprovalPrompt is the question shown to the user when
	// NeedsApproval is set.
	ApprovalPrompt string `json:"approval_prompt,omitempty"`
}

// Failure builds a failed Result with the given description.
func Failure(desc string) Result {
	return Result{Success: false, Error: desc}
}

// Content renders the result as text for the reasoning service.
func (r Result) Content() string {
	if r.NeedsApproval {
		return "approval required: " + r.ApprovalPrompt
	}
	if !r.Success {
		return "error: " + r.Error
	}
	return r.Data
}
