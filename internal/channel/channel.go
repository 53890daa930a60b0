// Package channel bridges ingress surfaces and the router. The gateway
// registers one channel per surface; the router sends replies back
// through the dispatcher.
package channel

import (
	"context"
	"errors"

	"github.com/foundryhq/foundry/pkg/message"
)

// Sentinel errors for channel operations.
var (
	// ErrNoChannel indicates the outbound message targets a channel
	// that is not registered in the dispatcher.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel indicates a channel with the same name is
	// already registered.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")
)

// Channel is one ingress surface. It pushes inbound messages to the
// router via the inbox callback and receives outbound replies via Send.
type Channel interface {
	// Send delivers an outbound message to the surface.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages
	// to the router. Called during wiring, before traffic starts.
	SetInbox(fn func(msg message.InboundMessage) error)
}
