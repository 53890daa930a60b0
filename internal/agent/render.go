package agent

import (
	"fmt"

	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/provider"
)

// RenderHistory converts stored conversation history into provider
// messages. Tool entries are audit records and stay out of the prompt;
// the in-turn tool exchange lives inside the loop's own message list.
// User entries carry an author prefix so the model can follow group
// conversations.
func RenderHistory(cc *convo.Context) []provider.LLMMessage {
	var out []provider.LLMMessage
	for _, m := range cc.History {
		switch m.Role {
		case convo.RoleUser:
			out = append(out, provider.LLMMessage{
				Role:    provider.MessageRoleUser,
				Content: renderUserText(m),
			})
		case convo.RoleAssistant:
			out = append(out, provider.LLMMessage{
				Role:    provider.MessageRoleAssistant,
				Content: m.Text,
			})
		}
	}
	return out
}

func renderUserText(m convo.Message) string {
	if m.Author == "" {
		return m.Text
	}
	return fmt.Sprintf("[%s] %s", m.Author, m.Text)
}
