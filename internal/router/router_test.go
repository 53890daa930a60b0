package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/tool"
	"github.com/foundryhq/foundry/pkg/message"
)

// funcProvider delegates Complete to a function, guarded for
// concurrent use.
type funcProvider struct {
	mu    sync.Mutex
	fn    func(calls int, req provider.CompletionRequest) (provider.CompletionResponse, error)
	calls int
}

func (p *funcProvider) Complete(_ context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	fn := p.fn
	p.mu.Unlock()
	return fn(n, req)
}

func (p *funcProvider) ModelName() string { return "func" }

func (p *funcProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func textProvider(text string) *funcProvider {
	return &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{Content: text, FinishReason: provider.FinishReasonStop}, nil
	}}
}

// funcClassifier delegates both classifications to functions.
type funcClassifier struct {
	intent   func(text string) (classify.IntentResult, error)
	approval func(text string) (classify.ApprovalResult, error)
}

func (c *funcClassifier) Intent(_ context.Context, text, _ string) (classify.IntentResult, error) {
	if c.intent == nil {
		return classify.IntentResult{}, nil
	}
	return c.intent(text)
}

func (c *funcClassifier) Approval(_ context.Context, text, _ string) (classify.ApprovalResult, error) {
	if c.approval == nil {
		return classify.ApprovalResult{}, nil
	}
	return c.approval(text)
}

func silentClassifier() *funcClassifier { return &funcClassifier{} }

// captureSender records outbound messages and signals each send.
type captureSender struct {
	mu   sync.Mutex
	sent []message.OutboundMessage
	ch   chan message.OutboundMessage
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan message.OutboundMessage, 16)}
}

func (s *captureSender) Send(_ context.Context, msg message.OutboundMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.ch <- msg
	return nil
}

func (s *captureSender) wait(t *testing.T) message.OutboundMessage {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outbound message")
		return message.OutboundMessage{}
	}
}

type stubTool struct {
	name    string
	result  tool.Result
	mu      sync.Mutex
	calls   int
	invs    []tool.Invocation
	lastArg json.RawMessage
}

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub" }
func (s *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Category() string        { return "test" }
func (s *stubTool) Destructive() bool       { return false }

func (s *stubTool) Execute(_ context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.invs = append(s.invs, inv)
	s.lastArg = args
	return s.result, nil
}

func (s *stubTool) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func registryWith(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	for _, tt := range tools {
		if err := reg.Register(tt); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func inbound(chatID, text string) message.InboundMessage {
	return message.InboundMessage{
		ID:      "m1",
		Channel: "gateway.ws",
		Sender:  message.Sender{ID: "u1", DisplayName: "Maria"},
		Chat:    message.Chat{ID: chatID, Type: message.ChatDM},
		Text:    text,
	}
}

func baseConfig(p provider.Provider, c classify.Classifier, sender ResponseSender, reg *tool.Registry) Config {
	return Config{
		Provider:   p,
		Classifier: c,
		Sender:     sender,
		Tools:      reg,
		Logger:     slog.New(slog.DiscardHandler),
	}
}

func TestRouterRequiresDependencies(t *testing.T) {
	sender := newCaptureSender()
	if _, err := NewRouter(Config{Classifier: silentClassifier(), Sender: sender}); err != ErrNoProvider {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
	if _, err := NewRouter(Config{Provider: textProvider("x"), Sender: sender}); err != ErrNoClassifier {
		t.Fatalf("err = %v, want ErrNoClassifier", err)
	}
	if _, err := NewRouter(Config{Provider: textProvider("x"), Classifier: silentClassifier()}); err != ErrNoResponseSender {
		t.Fatalf("err = %v, want ErrNoResponseSender", err)
	}
}

func TestRouterSubmitAfterStop(t *testing.T) {
	r, err := NewRouter(baseConfig(textProvider("hi"), silentClassifier(), newCaptureSender(), nil))
	if err != nil {
		t.Fatal(err)
	}
	r.Start(context.Background())
	r.Stop(context.Background())

	if err := r.Submit(inbound("c1", "hello")); err != ErrRouterStopped {
		t.Fatalf("err = %v, want ErrRouterStopped", err)
	}
}

func TestRouterInboxFull(t *testing.T) {
	cfg := baseConfig(textProvider("hi"), silentClassifier(), newCaptureSender(), nil)
	cfg.InboxSize = 1
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Not started: nothing drains the inbox.
	if err := r.Submit(inbound("c1", "one")); err != nil {
		t.Fatal(err)
	}
	if err := r.Submit(inbound("c1", "two")); err != ErrInboxFull {
		t.Fatalf("err = %v, want ErrInboxFull", err)
	}
}

func TestRouterEndToEndReply(t *testing.T) {
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(textProvider("hello Maria"), silentClassifier(), sender, nil))
	if err != nil {
		t.Fatal(err)
	}
	r.Start(context.Background())
	defer r.Stop(context.Background())

	if err := r.Submit(inbound("c1", "hi")); err != nil {
		t.Fatal(err)
	}
	out := sender.wait(t)
	if out.Text != "hello Maria" {
		t.Fatalf("Text = %q", out.Text)
	}
	if out.Channel != "gateway.ws" || out.Chat.ID != "c1" {
		t.Fatalf("routing fields = %+v", out)
	}
	if out.ReplyToID != "m1" {
		t.Fatalf("ReplyToID = %q", out.ReplyToID)
	}
}

func TestKeyFromMessageThreadPrecedence(t *testing.T) {
	msg := inbound("c1", "hi")
	if k := KeyFromMessage(msg); k.ThreadID != "" || k.ChatID != "c1" {
		t.Fatalf("key = %+v", k)
	}
	msg.ThreadID = "t7"
	if k := KeyFromMessage(msg); k.ThreadID != "t7" {
		t.Fatalf("key = %+v", k)
	}
}
