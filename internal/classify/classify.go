// Package classify wraps the reasoning service in a lightweight classifier
// used for intent detection and approval/rejection interpretation.
// Malformed model output always degrades to "no signal"; it never aborts
// the turn that asked for the classification.
package classify

import "context"

// IntentResult is the outcome of an intent classification.
// The zero value means "no signal".
type IntentResult struct {
	Label      string
	Confidence float64
}

// ApprovalResult is the outcome of interpreting a user's reply to a
// pending tool invocation. The zero value means "no signal".
type ApprovalResult struct {
	IsApproval  bool
	IsRejection bool
	Confidence  float64
}

// Classifier obtains intent labels and approval verdicts from free text.
type Classifier interface {
	// Intent classifies the user's text given a short conversation digest.
	Intent(ctx context.Context, text, digest string) (IntentResult, error)

	// Approval decides whether the user's text approves or rejects the
	// action described by prompt.
	Approval(ctx context.Context, text, prompt string) (ApprovalResult, error)
}
