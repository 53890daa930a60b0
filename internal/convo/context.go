package convo

import (
	"time"

	"github.com/foundryhq/foundry/internal/state"
)

// The mutators below are not synchronized. Callers serialize all work
// on one conversation through the router's lane lock before touching
// its Context.

// SetState moves the conversation to s.
func (c *Context) SetState(s state.State) {
	c.State = s
}

// AddMessage appends a history entry stamped with now.
func (c *Context) AddMessage(m Message, now time.Time) {
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	c.History = append(c.History, m)
	c.LastActive = now
}

// SetPending stores an invocation awaiting approval. Any previous
// pending invocation is replaced; there is never more than one.
func (c *Context) SetPending(p PendingInvocation) {
	c.Pending = &p
}

// ClearPending drops the pending invocation, if any.
func (c *Context) ClearPending() {
	c.Pending = nil
}

// TrimHistory keeps at most max recent entries.
func (c *Context) TrimHistory(max int) {
	if max > 0 && len(c.History) > max {
		c.History = append([]Message(nil), c.History[len(c.History)-max:]...)
	}
}

// Digest summarizes recent dialogue for classifier prompts. Tool
// entries are omitted.
func (c *Context) Digest(maxMessages int) string {
	var out string
	start := 0
	count := 0
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleTool {
			continue
		}
		count++
		if count == maxMessages {
			start = i
			break
		}
	}
	for _, m := range c.History[start:] {
		if m.Role == RoleTool {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += string(m.Role) + ": " + m.Text
	}
	return out
}
