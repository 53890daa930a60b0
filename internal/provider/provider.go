// Package provider defines the contract with the external reasoning service.
// Concrete implementations live in separate modules (e.g., provider.anthropic).
package provider

import "context"

// Provider is the interface for communicating with the reasoning service.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// The response carries either free text or a list of requested tool calls.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
