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

	"github.com/coder/websocket"

	"github.com/foundryhq/foundry/pkg/message"
)

// WSChannelName is the channel name for WebSocket chat.
const WSChannelName = "gateway.ws"

// wsInbound is one frame from a WebSocket client.
type wsInbound struct {
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text"`
}

// wsOutbound is one reply frame to a WebSocket client.
type wsOutbound struct {
	Text      string `json:"text"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

// wsChannel bridges WebSocket connections and the router. Each
// connection is one conversation; replies route back by chat ID.
type wsChannel struct {
	inbox  func(msg message.InboundMessage) error
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
	seq   atomic.Uint64
}

func newWSChannel(logger *slog.Logger) *wsChannel {
	return &wsChannel{
		logger: logger,
		conns:  make(map[string]*websocket.Conn),
	}
}

// SetInbox implements channel.Channel.
func (c *wsChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	c.inbox = fn
}

// Send implements channel.Channel.
func (c *wsChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	c.mu.Lock()
	conn, ok := c.conns[msg.Chat.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("gateway: ws reply for closed connection dropped", "chat_id", msg.Chat.ID)
		return nil
	}

	data, err := json.Marshal(wsOutbound{Text: msg.Text, ReplyToID: msg.ReplyToID})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsChannel) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		c.logger.Error("gateway: websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		chatID = fmt.Sprintf("ws-%d-%d", time.Now().UnixMilli(), c.seq.Add(1))
	}

	c.mu.Lock()
	if old, exists := c.conns[chatID]; exists {
		_ = old.Close(websocket.StatusPolicyViolation, "replaced by new connection")
	}
	c.conns[chatID] = conn
	c.mu.Unlock()

	c.logger.Info("gateway: websocket connected", "chat_id", chatID)
	c.readLoop(r.Context(), conn, chatID)

	c.mu.Lock()
	if c.conns[chatID] == conn {
		delete(c.conns, chatID)
	}
	c.mu.Unlock()
	c.logger.Info("gateway: websocket disconnected", "chat_id", chatID)
}

func (c *wsChannel) readLoop(ctx context.Context, conn *websocket.Conn, chatID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var frame wsInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			// Tolerate bare text frames.
			frame = wsInbound{Text: string(data)}
		}
		if frame.Text == "" {
			continue
		}

		msg := message.InboundMessage{
			ID:        fmt.Sprintf("%s-%d", chatID, c.seq.Add(1)),
			Timestamp: time.Now(),
			Channel:   WSChannelName,
			Sender:    message.Sender{ID: frame.AuthorID, DisplayName: frame.AuthorName},
			Chat:      message.Chat{ID: chatID, Type: message.ChatDM},
			Text:      frame.Text,
		}
		if err := c.inbox(msg); err != nil {
			c.logger.Warn("gateway: ws message rejected", "chat_id", chatID, "error", err)
		}
	}
}

// closeAll shuts every open connection, for module stop.
func (c *wsChannel) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, conn := range c.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(c.conns, id)
	}
}
