package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/tool"
)

// ToolExecutor runs the tool calls of one loop iteration. Calls run in
// order, one at a time: tools in this system create and destroy real
// resources, and a later call in the same batch often depends on an
// earlier one.
type ToolExecutor struct {
	registry *tool.Registry
	logger   *slog.Logger

	// observe, when set, receives every execution outcome.
	observe func(toolName string, success bool)
}

// NewToolExecutor creates a ToolExecutor over the given registry.
func NewToolExecutor(registry *tool.Registry, logger *slog.Logger) *ToolExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolExecutor{registry: registry, logger: logger}
}

// SetObserver installs a per-execution callback, for metrics.
func (e *ToolExecutor) SetObserver(fn func(toolName string, success bool)) {
	e.observe = fn
}

// Execute runs calls sequentially. Every outcome, including guard
// rejections, is reported back to the model as a tool result. When a
// tool asks for approval the batch stops there: the remaining calls are
// dropped, not parked, and the pending call is returned separately.
func (e *ToolExecutor) Execute(ctx context.Context, calls []provider.ToolCall, allowed allowSet, inv tool.Invocation) ([]ToolCallRecord, *PendingCall) {
	var records []ToolCallRecord
	for _, call := range calls {
		rec := e.executeSingle(ctx, call, allowed, inv)
		records = append(records, rec)
		if rec.Result.NeedsApproval {
			return records, &PendingCall{
				Tool:   rec.Name,
				Args:   rec.Arguments,
				Prompt: rec.Result.ApprovalPrompt,
			}
		}
	}
	return records, nil
}

func (e *ToolExecutor) executeSingle(ctx context.Context, tc provider.ToolCall, allowed allowSet, inv tool.Invocation) (record ToolCallRecord) {
	record.ID = tc.ID
	record.Name = tc.Name
	record.Arguments = tc.Arguments

	start := time.Now()
	defer func() {
		record.Duration = time.Since(start)
		if r := recover(); r != nil {
			record.Panicked = true
			record.Result = tool.Failure(fmt.Sprintf("panic: %v", r))
		}
		if e.observe != nil {
			e.observe(record.Name, record.Result.Success)
		}
	}()

	// The provider only sees the allowed set, but a model can still
	// name a tool outside it. Reject instead of trusting the model.
	if !allowed.contains(tc.Name) {
		e.logger.Warn("agent: tool call outside allowed set", "tool", tc.Name)
		record.Result = tool.Failure(fmt.Sprintf("tool %q is not available in the current state", tc.Name))
		return record
	}

	t, err := e.registry.Get(tc.Name)
	if err != nil {
		record.Result = tool.Failure(fmt.Sprintf("unknown tool %q", tc.Name))
		return record
	}

	if len(tc.Arguments) > 0 && !json.Valid(tc.Arguments) {
		record.Result = tool.Failure("arguments are not valid JSON")
		return record
	}

	res, err := t.Execute(ctx, tc.Arguments, inv)
	if err != nil {
		record.Result = tool.Failure(err.Error())
		return record
	}
	record.Result = res
	return record
}
