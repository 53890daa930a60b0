package message

// OutboundMessage represents a reply to be delivered through a front end.
type OutboundMessage struct {
	Channel   string `json:"channel"`
	Chat      Chat   `json:"chat"`
	ThreadID  string `json:"thread_id,omitempty"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	Text      string `json:"text"`
}

// NewTextMessage creates an outbound message addressed to the given chat.
func NewTextMessage(chat Chat, text string) OutboundMessage {
	return OutboundMessage{
		Chat: chat,
		Text: text,
	}
}
