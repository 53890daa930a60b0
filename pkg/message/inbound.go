package message

import "time"

// InboundMessage represents a message received from a front end.
type InboundMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	ThreadID  string    `json:"thread_id,omitempty"`
	ReplyToID string    `json:"reply_to_id,omitempty"`
	Text      string    `json:"text"`
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}
