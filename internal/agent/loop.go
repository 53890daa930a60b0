package agent

import (
	"context"
	"errors"

	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/tool"
)

// Sentinel errors for loop termination.
var (
	ErrTokenBudgetExceeded  = errors.New("agent: token budget exceeded")
	ErrMaxIterationsReached = errors.New("agent: max iterations reached")
	ErrLoopDetected         = errors.New("agent: loop detected")
)

// Loop drives the reason-act cycle against the provider.
type Loop struct {
	provider provider.Provider
	executor *ToolExecutor
	registry *tool.Registry
	config   LoopConfig
}

// NewLoop creates a Loop.
func NewLoop(p provider.Provider, executor *ToolExecutor, registry *tool.Registry, cfg LoopConfig) *Loop {
	return &Loop{
		provider: p,
		executor: executor,
		registry: registry,
		config:   cfg.withDefaults(),
	}
}

// buildInitialMessages assembles the starting history from the request.
func buildInitialMessages(req Request) []provider.LLMMessage {
	var messages []provider.LLMMessage
	if req.SystemPrompt != "" {
		messages = append(messages, provider.LLMMessage{
			Role:    provider.MessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return append(messages, req.Messages...)
}

// appendToolResults re-injects tool execution results into the
// conversation for the next provider call.
func appendToolResults(messages []provider.LLMMessage, records []ToolCallRecord) []provider.LLMMessage {
	for _, rec := range records {
		messages = append(messages, provider.LLMMessage{
			Role:    provider.MessageRoleTool,
			Content: rec.Result.Content(),
			ToolID:  rec.ID,
			IsError: !rec.Result.Success,
		})
	}
	return messages
}

// Run executes the loop synchronously and returns the final response.
//
// A context.WithTimeout is applied using l.config.Timeout. If the
// caller's context already carries a shorter deadline, the shorter one
// takes effect.
func (l *Loop) Run(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	detector := newLoopDetector(l.config.LoopThreshold)
	tracker := newTokenTracker(l.config.TokenBudget)
	messages := buildInitialMessages(req)
	allowed := newAllowSet(req.AllowedTools)
	definitions := l.registry.Definitions(req.AllowedTools)

	var allToolCalls []ToolCallRecord

	for i := 0; i < l.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			stopReason := StopReasonError
			if errors.Is(err, context.DeadlineExceeded) {
				stopReason = StopReasonTimeout
			}
			return Response{
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Iterations: i,
				StopReason: stopReason,
			}, err
		}

		if tracker.exceeded() {
			return Response{
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Iterations: i,
				StopReason: StopReasonError,
			}, ErrTokenBudgetExceeded
		}

		resp, err := l.provider.Complete(ctx, provider.CompletionRequest{
			Messages: messages,
			Tools:    definitions,
		})
		if err != nil {
			return Response{
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Iterations: i,
				StopReason: StopReasonError,
			}, err
		}
		tracker.add(resp.Usage)

		// No tool calls means the model is done reasoning.
		if len(resp.ToolCalls) == 0 {
			return Response{
				Content:    resp.Content,
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Iterations: i + 1,
				StopReason: StopReasonComplete,
			}, nil
		}

		// Check for loops before appending the assistant message to
		// avoid leaving an orphan assistant turn without tool results.
		for _, tc := range resp.ToolCalls {
			if detector.record(tc.Name, tc.Arguments) {
				return Response{
					ToolCalls:  allToolCalls,
					TotalUsage: tracker.total(),
					Iterations: i + 1,
					StopReason: StopReasonLoopDetected,
				}, ErrLoopDetected
			}
		}

		messages = append(messages, provider.LLMMessage{
			Role:      provider.MessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		records, pending := l.executor.Execute(ctx, resp.ToolCalls, allowed, req.Invocation)
		allToolCalls = append(allToolCalls, records...)

		if pending != nil {
			// An approval request consumes the rest of the turn: the
			// iteration count reports the cap so downstream treats
			// the turn as spent.
			return Response{
				Content:    pending.Prompt,
				ToolCalls:  allToolCalls,
				Pending:    pending,
				TotalUsage: tracker.total(),
				Iterations: l.config.MaxIterations,
				StopReason: StopReasonNeedsApproval,
			}, nil
		}

		messages = appendToolResults(messages, records)
	}

	return Response{
		ToolCalls:  allToolCalls,
		TotalUsage: tracker.total(),
		Iterations: l.config.MaxIterations,
		StopReason: StopReasonMaxIterations,
	}, ErrMaxIterationsReached
}
