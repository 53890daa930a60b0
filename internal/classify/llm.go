package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foundryhq/foundry/internal/provider"
)

const intentPrompt = `Classify the intent of the latest user message.
Conversation so far:
%s

Latest message: %s

Reply with a single JSON object and nothing else:
{"label": "<one of: business_idea, confirm_plan, research, manage, cleanup, smalltalk>", "confidence": <0.0-1.0>}`

const approvalPrompt = `The assistant asked the user to confirm an action:
%s

The user replied: %s

Did the user approve or reject the action? Reply with a single JSON object
and nothing else:
{"approval": <true|false>, "rejection": <true|false>, "confidence": <0.0-1.0>}`

// LLMClassifier implements Classifier on top of a reasoning provider.
type LLMClassifier struct {
	provider provider.Provider
}

// NewLLMClassifier creates a classifier backed by the given provider.
func NewLLMClassifier(p provider.Provider) *LLMClassifier {
	return &LLMClassifier{provider: p}
}

// Compile-time interface check.
var _ Classifier = (*LLMClassifier)(nil)

// Intent implements Classifier. Transport errors are returned to the
// caller; malformed model output yields the zero result with a nil error.
func (c *LLMClassifier) Intent(ctx context.Context, text, digest string) (IntentResult, error) {
	resp, err := c.provider.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: fmt.Sprintf(intentPrompt, digest, text)},
		},
		MaxTokens: 128,
	})
	if err != nil {
		return IntentResult{}, fmt.Errorf("classify: intent: %w", err)
	}

	var payload struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if !decodeLoose(resp.Content, &payload) {
		return IntentResult{}, nil
	}

	return IntentResult{
		Label:      strings.TrimSpace(payload.Label),
		Confidence: clamp01(payload.Confidence),
	}, nil
}

// Approval implements Classifier with the same degradation rules as Intent.
func (c *LLMClassifier) Approval(ctx context.Context, text, prompt string) (ApprovalResult, error) {
	resp, err := c.provider.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: fmt.Sprintf(approvalPrompt, prompt, text)},
		},
		MaxTokens: 128,
	})
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("classify: approval: %w", err)
	}

	var payload struct {
		Approval   bool    `json:"approval"`
		Rejection  bool    `json:"rejection"`
		Confidence float64 `json:"confidence"`
	}
	if !decodeLoose(resp.Content, &payload) {
		return ApprovalResult{}, nil
	}

	// A reply claiming both directions at once carries no signal.
	if payload.Approval && payload.Rejection {
		return ApprovalResult{}, nil
	}

	return ApprovalResult{
		IsApproval:  payload.Approval,
		IsRejection: payload.Rejection,
		Confidence:  clamp01(payload.Confidence),
	}, nil
}

// decodeLoose extracts the first JSON object from s and unmarshals it into
// dest. Models occasionally wrap JSON in prose or code fences; both are
// tolerated. Returns false when no parseable object is found.
func decodeLoose(s string, dest any) bool {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(s[start:end+1]), dest) == nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
