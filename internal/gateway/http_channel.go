package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foundryhq/foundry/pkg/message"
)

// HTTPChannelName is the channel name for synchronous HTTP chat.
const HTTPChannelName = "gateway.http"

// chatRequest is the JSON body for POST /v1/chat.
type chatRequest struct {
	ChatID     string `json:"chat_id"`
	ThreadID   string `json:"thread_id,omitempty"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name,omitempty"`
	Group      bool   `json:"group,omitempty"`
	Text       string `json:"text"`
}

// chatResponse is the JSON reply for POST /v1/chat.
type chatResponse struct {
	MessageID string `json:"message_id"`
	Reply     string `json:"reply"`
}

// httpChannel bridges synchronous HTTP requests and the router. Each
// request parks a waiter keyed by the inbound message ID; the router's
// reply carries that ID in ReplyToID and resolves the waiter.
type httpChannel struct {
	inbox        func(msg message.InboundMessage) error
	logger       *slog.Logger
	replyTimeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan message.OutboundMessage
	seq     atomic.Uint64
}

func newHTTPChannel(logger *slog.Logger, replyTimeout time.Duration) *httpChannel {
	return &httpChannel{
		logger:       logger,
		replyTimeout: replyTimeout,
		waiters:      make(map[string]chan message.OutboundMessage),
	}
}

// SetInbox implements channel.Channel.
func (h *httpChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	h.inbox = fn
}

// Send implements channel.Channel. Replies without a parked waiter are
// dropped: the requester already timed out.
func (h *httpChannel) Send(_ context.Context, msg message.OutboundMessage) error {
	h.mu.Lock()
	ch, ok := h.waiters[msg.ReplyToID]
	if ok {
		delete(h.waiters, msg.ReplyToID)
	}
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("gateway: late reply dropped", "reply_to", msg.ReplyToID)
		return nil
	}
	ch <- msg
	return nil
}

func (h *httpChannel) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChatID == "" || req.Text == "" {
		http.Error(w, "chat_id and text are required", http.StatusBadRequest)
		return
	}

	msgID := fmt.Sprintf("http-%d-%d", time.Now().UnixMilli(), h.seq.Add(1))
	waiter := make(chan message.OutboundMessage, 1)
	h.mu.Lock()
	h.waiters[msgID] = waiter
	h.mu.Unlock()

	chatType := message.ChatDM
	if req.Group {
		chatType = message.ChatGroup
	}
	inbound := message.InboundMessage{
		ID:        msgID,
		Timestamp: time.Now(),
		Channel:   HTTPChannelName,
		Sender:    message.Sender{ID: req.AuthorID, DisplayName: req.AuthorName},
		Chat:      message.Chat{ID: req.ChatID, Type: chatType},
		ThreadID:  req.ThreadID,
		Text:      req.Text,
	}

	if err := h.inbox(inbound); err != nil {
		h.dropWaiter(msgID)
		http.Error(w, "service busy, try again", http.StatusServiceUnavailable)
		return
	}

	select {
	case reply := <-waiter:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse{MessageID: msgID, Reply: reply.Text})
	case <-time.After(h.replyTimeout):
		h.dropWaiter(msgID)
		http.Error(w, "timed out waiting for reply", http.StatusGatewayTimeout)
	case <-r.Context().Done():
		h.dropWaiter(msgID)
	}
}

func (h *httpChannel) dropWaiter(msgID string) {
	h.mu.Lock()
	delete(h.waiters, msgID)
	h.mu.Unlock()
}
