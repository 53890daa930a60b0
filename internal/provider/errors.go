package provider

import "errors"

// Sentinel errors used by provider implementations so callers can
// distinguish transient failures from permanent ones.
var (
	// ErrRateLimit indicates the provider rejected the request due to
	// rate limiting. Retryable after backoff.
	ErrRateLimit = errors.New("provider: rate limited")

	// ErrProviderDown indicates the provider returned a server-side
	// error or is unreachable.
	ErrProviderDown = errors.New("provider: unavailable")

	// ErrContextLength indicates the request exceeded the model's
	// context window. Not retryable without shrinking the prompt.
	ErrContextLength = errors.New("provider: context length exceeded")
)
