// Package router dispatches inbound messages to conversations,
// serializing turns per conversation while processing distinct
// conversations in parallel.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's inbox is at capacity and the
	// incoming message was dropped.
	ErrInboxFull = errors.New("router: inbox full, message dropped")

	// ErrRouterStopped indicates the router has been shut down.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoProvider indicates no LLM provider has been configured.
	ErrNoProvider = errors.New("router: no provider configured")

	// ErrNoResponseSender indicates no response sender has been
	// configured.
	ErrNoResponseSender = errors.New("router: no response sender configured")

	// ErrNoClassifier indicates no classifier has been configured.
	ErrNoClassifier = errors.New("router: no classifier configured")
)
