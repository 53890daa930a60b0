// Package convo holds per-conversation state: the dialogue history, the
// current assistant state, and the single pending tool invocation slot.
package convo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/foundryhq/foundry/internal/state"
)

var (
	// ErrNotFound is returned by durable stores for unknown keys.
	ErrNotFound = errors.New("convo: not found")
)

// Key identifies one conversation. Thread-scoped chats key on the
// thread; otherwise the chat alone identifies the conversation.
type Key struct {
	Channel  string
	ChatID   string
	ThreadID string
}

// String renders the key for logging and storage.
func (k Key) String() string {
	s := k.Channel + "/" + k.ChatID
	if k.ThreadID != "" {
		s += "/" + k.ThreadID
	}
	return s
}

// Role identifies who produced a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation's history.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// ToolID and ToolName are set on tool result entries.
	ToolID   string `json:"tool_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
}

// PendingInvocation is a tool call waiting for user approval. A
// conversation holds at most one; a newer request replaces the older.
type PendingInvocation struct {
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args"`
	Prompt string          `json:"prompt"`

	// EntityID is the entity the invocation targets, when known.
	EntityID string `json:"entity_id,omitempty"`
}

// Context is the full mutable state of one conversation.
type Context struct {
	Key      Key                `json:"key"`
	State    state.State        `json:"state"`
	History  []Message          `json:"history"`
	Pending  *PendingInvocation `json:"pending,omitempty"`
	EntityID string             `json:"entity_id,omitempty"`

	// LastActive drives cache eviction and scheduled pruning.
	LastActive time.Time `json:"last_active"`
}

// Store persists conversation contexts. The cache writes through to it
// and rehydrates from it on miss.
type Store interface {
	Get(ctx context.Context, key Key) (*Context, error)
	Put(ctx context.Context, c *Context) error
	Delete(ctx context.Context, key Key) error
}
