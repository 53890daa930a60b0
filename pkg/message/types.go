// Package message defines the platform-agnostic data contract between
// front ends and the agent core.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the best available human-readable name for the sender.
func (s Sender) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.ID
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}
