package router

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/foundryhq/foundry/internal/approval"
	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/metrics"
	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/state"
	"github.com/foundryhq/foundry/internal/tool"
	"github.com/foundryhq/foundry/pkg/message"
)

// runTurn executes one turn synchronously through the pipeline.
func runTurn(t *testing.T, r *Router, msg message.InboundMessage) {
	t.Helper()
	r.pipeline.Execute(context.Background(), envelope{Message: msg, Key: KeyFromMessage(msg)})
}

func conversation(t *testing.T, r *Router, msg message.InboundMessage) *convo.Context {
	t.Helper()
	cc, err := r.cache.GetOrCreate(context.Background(), KeyFromMessage(msg))
	if err != nil {
		t.Fatal(err)
	}
	return cc
}

// seedState moves a conversation into st before its first turn, so a
// test can drive tools that are only reachable from that state.
func seedState(t *testing.T, r *Router, msg message.InboundMessage, st state.State) {
	t.Helper()
	conversation(t, r, msg).SetState(st)
}

func TestPipelineImplicitChatTransition(t *testing.T) {
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(textProvider("hello"), silentClassifier(), sender, nil))
	if err != nil {
		t.Fatal(err)
	}

	msg := inbound("c1", "hi there")
	runTurn(t, r, msg)

	cc := conversation(t, r, msg)
	if cc.State != state.StateChat {
		t.Fatalf("State = %s, want implicit move to %s", cc.State, state.StateChat)
	}
	if got := sender.wait(t); got.Text != "hello" {
		t.Fatalf("reply = %q", got.Text)
	}
	// History carries the user turn and the reply.
	if len(cc.History) != 2 || cc.History[0].Role != convo.RoleUser || cc.History[1].Role != convo.RoleAssistant {
		t.Fatalf("history = %+v", cc.History)
	}
}

func TestPipelineIntentTransitionScopesTools(t *testing.T) {
	var advertised []string
	var mu sync.Mutex
	p := &funcProvider{fn: func(_ int, req provider.CompletionRequest) (provider.CompletionResponse, error) {
		mu.Lock()
		for _, d := range req.Tools {
			advertised = append(advertised, d.Name)
		}
		mu.Unlock()
		return provider.CompletionResponse{Content: "a plan", FinishReason: provider.FinishReasonStop}, nil
	}}
	cls := &funcClassifier{intent: func(string) (classify.IntentResult, error) {
		return classify.IntentResult{Label: "business_idea", Confidence: 0.9}, nil
	}}
	lookup := &stubTool{name: "domain_lookup", result: tool.Result{Success: true}}
	search := &stubTool{name: "web_search", result: tool.Result{Success: true}}
	payments := &stubTool{name: "check_payments", result: tool.Result{Success: true}}
	reg := registryWith(t, lookup, search, payments)

	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, cls, sender, reg))
	if err != nil {
		t.Fatal(err)
	}

	msg := inbound("c1", "I want to open a bakery")
	runTurn(t, r, msg)

	cc := conversation(t, r, msg)
	if cc.State != state.StatePlanning {
		t.Fatalf("State = %s, want %s", cc.State, state.StatePlanning)
	}
	mu.Lock()
	defer mu.Unlock()
	want := map[string]bool{"web_search": true, "domain_lookup": true, "check_payments": true}
	if len(advertised) != len(want) {
		t.Fatalf("advertised = %v, want planning set", advertised)
	}
	for _, name := range advertised {
		if !want[name] {
			t.Fatalf("advertised unexpected tool %q", name)
		}
	}
}

func TestPipelineNeedsApprovalParksInvocation(t *testing.T) {
	gated := &stubTool{name: "check_payments", result: tool.Result{
		NeedsApproval:  true,
		ApprovalPrompt: "May I read payment data for acme?",
	}}
	reg := registryWith(t, gated)

	p := &funcProvider{fn: func(n int, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{
			ToolCalls:    []provider.ToolCall{{ID: "t1", Name: "check_payments", Arguments: json.RawMessage(`{"entity":"acme"}`)}},
			FinishReason: provider.FinishReasonToolUse,
		}, nil
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, silentClassifier(), sender, reg))
	if err != nil {
		t.Fatal(err)
	}

	msg := inbound("c1", "how is revenue looking?")
	seedState(t, r, msg, state.StateManaging)
	runTurn(t, r, msg)

	out := sender.wait(t)
	if out.Text != "May I read payment data for acme?" {
		t.Fatalf("reply = %q, want the approval prompt", out.Text)
	}
	cc := conversation(t, r, msg)
	if cc.Pending == nil || cc.Pending.Tool != "check_payments" {
		t.Fatalf("Pending = %+v", cc.Pending)
	}
	if string(cc.Pending.Args) != `{"entity":"acme"}` {
		t.Fatalf("Args = %s", cc.Pending.Args)
	}
}

func TestPipelineApprovalThenExecution(t *testing.T) {
	gatedCalls := 0
	var gotInv tool.Invocation
	gated := &approvalAwareTool{name: "check_payments", onExecute: func(inv tool.Invocation) tool.Result {
		gatedCalls++
		gotInv = inv
		if !inv.Approved {
			return tool.Result{NeedsApproval: true, ApprovalPrompt: "May I read payment data?"}
		}
		return tool.Result{Success: true, Data: "revenue is up"}
	}}
	reg := registryWith(t, gated)

	cls := &funcClassifier{approval: func(text string) (classify.ApprovalResult, error) {
		if strings.Contains(text, "yes") {
			return classify.ApprovalResult{IsApproval: true, Confidence: 0.95}, nil
		}
		return classify.ApprovalResult{}, nil
	}}

	p := &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{
			ToolCalls:    []provider.ToolCall{{ID: "t1", Name: "check_payments", Arguments: json.RawMessage(`{}`)}},
			FinishReason: provider.FinishReasonToolUse,
		}, nil
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, cls, sender, reg))
	if err != nil {
		t.Fatal(err)
	}

	first := inbound("c1", "how is revenue?")
	seedState(t, r, first, state.StateManaging)
	runTurn(t, r, first)
	sender.wait(t)

	second := inbound("c1", "yes please")
	runTurn(t, r, second)
	out := sender.wait(t)

	if gatedCalls != 2 {
		t.Fatalf("tool executed %d times, want gate retry", gatedCalls)
	}
	if !gotInv.Approved {
		t.Fatal("second execution must carry the approval override")
	}
	if !strings.Contains(out.Text, "revenue is up") {
		t.Fatalf("reply = %q", out.Text)
	}
	cc := conversation(t, r, second)
	if cc.Pending != nil {
		t.Fatal("pending must be cleared after approval")
	}
}

func TestPipelineAmbiguousAnswerKeepsPendingAndAnswers(t *testing.T) {
	gated := &stubTool{name: "check_payments", result: tool.Result{
		NeedsApproval:  true,
		ApprovalPrompt: "May I read payment data?",
	}}
	reg := registryWith(t, gated)

	firstTurn := true
	p := &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		if firstTurn {
			firstTurn = false
			return provider.CompletionResponse{
				ToolCalls:    []provider.ToolCall{{ID: "t1", Name: "check_payments", Arguments: json.RawMessage(`{}`)}},
				FinishReason: provider.FinishReasonToolUse,
			}, nil
		}
		return provider.CompletionResponse{Content: "it costs nothing", FinishReason: provider.FinishReasonStop}, nil
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, silentClassifier(), sender, reg))
	if err != nil {
		t.Fatal(err)
	}

	opening := inbound("c1", "how is revenue?")
	seedState(t, r, opening, state.StateManaging)
	runTurn(t, r, opening)
	sender.wait(t)

	side := inbound("c1", "what does that cost?")
	runTurn(t, r, side)
	out := sender.wait(t)

	if out.Text != "it costs nothing" {
		t.Fatalf("reply = %q, want a normal answer to the side question", out.Text)
	}
	cc := conversation(t, r, side)
	if cc.Pending == nil || cc.Pending.Tool != "check_payments" {
		t.Fatalf("Pending = %+v, want the parked invocation to survive", cc.Pending)
	}
}

func TestPipelineHeuristicAutoTransition(t *testing.T) {
	domain := &stubTool{name: "register_domain", result: tool.Result{Success: true, Data: "registered"}}
	repo := &stubTool{name: "create_repository", result: tool.Result{Success: true, Data: "created"}}
	reg := registryWith(t, domain, repo)

	p := &funcProvider{fn: func(n int, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		if n == 1 {
			return provider.CompletionResponse{
				ToolCalls: []provider.ToolCall{
					{ID: "t1", Name: "register_domain", Arguments: json.RawMessage(`{"domain":"acme.dev"}`)},
					{ID: "t2", Name: "create_repository", Arguments: json.RawMessage(`{"name":"acme"}`)},
				},
				FinishReason: provider.FinishReasonToolUse,
			}, nil
		}
		return provider.CompletionResponse{Content: "all set up", FinishReason: provider.FinishReasonStop}, nil
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, silentClassifier(), sender, reg))
	if err != nil {
		t.Fatal(err)
	}

	msg := inbound("c1", "go ahead and set it up")
	cc := conversation(t, r, msg)
	cc.SetState(state.StateCreating)

	runTurn(t, r, msg)
	sender.wait(t)

	if cc.State != state.StateManaging {
		t.Fatalf("State = %s, want heuristic move to %s", cc.State, state.StateManaging)
	}
}

func TestPipelineEmptyReachableSetFallsBack(t *testing.T) {
	var advertised int
	var mu sync.Mutex
	p := &funcProvider{fn: func(_ int, req provider.CompletionRequest) (provider.CompletionResponse, error) {
		mu.Lock()
		advertised = len(req.Tools)
		mu.Unlock()
		return provider.CompletionResponse{Content: "ok", FinishReason: provider.FinishReasonStop}, nil
	}}
	a := &stubTool{name: "web_search", result: tool.Result{Success: true}}
	b := &stubTool{name: "domain_lookup", result: tool.Result{Success: true}}
	reg := registryWith(t, a, b)

	cfg := baseConfig(p, silentClassifier(), newCaptureSender(), reg)
	// A registry whose chat state exposes nothing.
	cfg.States = state.NewRegistry(map[state.State]state.Info{
		state.StateChat: {},
	})
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	runTurn(t, r, inbound("c1", "hello"))

	mu.Lock()
	defer mu.Unlock()
	if advertised != 2 {
		t.Fatalf("advertised = %d tools, want full catalog fallback", advertised)
	}
}

func TestPipelineLoopExhaustionFallbackReply(t *testing.T) {
	search := &stubTool{name: "web_search", result: tool.Result{Success: true, Data: "more"}}
	reg := registryWith(t, search)

	p := &funcProvider{fn: func(n int, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		args, _ := json.Marshal(map[string]int{"page": n})
		return provider.CompletionResponse{
			ToolCalls:    []provider.ToolCall{{ID: "t", Name: "web_search", Arguments: args}},
			FinishReason: provider.FinishReasonToolUse,
		}, nil
	}}
	cfg := baseConfig(p, silentClassifier(), newCaptureSender(), reg)
	cfg.LoopConfig.MaxIterations = 3
	cfg.LoopConfig.LoopThreshold = 100
	sender := newCaptureSender()
	cfg.Sender = sender
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	runTurn(t, r, inbound("c1", "search forever"))
	if out := sender.wait(t); out.Text != fallbackReply {
		t.Fatalf("reply = %q, want generic fallback", out.Text)
	}
}

func TestPipelineProviderErrorApology(t *testing.T) {
	p := &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{}, provider.ErrProviderDown
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, silentClassifier(), sender, nil))
	if err != nil {
		t.Fatal(err)
	}

	runTurn(t, r, inbound("c1", "hello"))
	if out := sender.wait(t); out.Text != apologyReply {
		t.Fatalf("reply = %q, want apology", out.Text)
	}
}

func TestPipelineSerializesSameConversation(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	p := &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return provider.CompletionResponse{Content: "ok", FinishReason: provider.FinishReasonStop}, nil
	}}
	sender := newCaptureSender()
	r, err := NewRouter(baseConfig(p, silentClassifier(), sender, nil))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTurn(t, r, inbound("same-chat", "hello"))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight != 1 {
		t.Fatalf("maxInFlight = %d, want turns on one conversation serialized", maxInFlight)
	}
	if p.callCount() != 4 {
		t.Fatalf("provider calls = %d, want every turn processed", p.callCount())
	}
}

// approvalAwareTool behaves differently before and after approval.
type approvalAwareTool struct {
	name      string
	onExecute func(inv tool.Invocation) tool.Result
}

func (a *approvalAwareTool) Name() string            { return a.name }
func (a *approvalAwareTool) Description() string     { return "gated stub" }
func (a *approvalAwareTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (a *approvalAwareTool) Category() string        { return "test" }
func (a *approvalAwareTool) Destructive() bool       { return false }

func (a *approvalAwareTool) Execute(_ context.Context, _ json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	return a.onExecute(inv), nil
}

func TestPipelineStandingApprovalPersists(t *testing.T) {
	approvals := entity.NewMemStore()
	gated := &approvalAwareTool{name: "check_payments", onExecute: func(inv tool.Invocation) tool.Result {
		ok, _ := entity.Authorize(context.Background(), approvals, inv.EntityID, "test", inv.Approved)
		if !ok {
			return tool.Result{NeedsApproval: true, ApprovalPrompt: "May I read payment data?"}
		}
		return tool.Result{Success: true, Data: "revenue is up"}
	}}
	reg := registryWith(t, gated)

	cls := &funcClassifier{approval: func(text string) (classify.ApprovalResult, error) {
		if strings.Contains(text, "yes") {
			return classify.ApprovalResult{IsApproval: true, Confidence: 0.95}, nil
		}
		return classify.ApprovalResult{}, nil
	}}
	p := &funcProvider{fn: func(n int, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		if n <= 2 {
			return provider.CompletionResponse{
				ToolCalls:    []provider.ToolCall{{ID: "t", Name: "check_payments", Arguments: json.RawMessage(`{}`)}},
				FinishReason: provider.FinishReasonToolUse,
			}, nil
		}
		return provider.CompletionResponse{Content: "all good", FinishReason: provider.FinishReasonStop}, nil
	}}
	sender := newCaptureSender()
	cfg := baseConfig(p, cls, sender, reg)
	cfg.Entities = approvals
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	first := inbound("c1", "how is revenue?")
	seedState(t, r, first, state.StateManaging)
	runTurn(t, r, first)
	if out := sender.wait(t); out.Text != "May I read payment data?" {
		t.Fatalf("reply = %q, want the approval prompt", out.Text)
	}

	runTurn(t, r, inbound("c1", "yes please"))
	if out := sender.wait(t); !strings.Contains(out.Text, "revenue is up") {
		t.Fatalf("reply = %q, want the approved execution", out.Text)
	}

	// Same category later in the conversation: the standing grant
	// answers it, so the user is not asked a second time.
	runTurn(t, r, inbound("c1", "how is revenue now?"))
	out := sender.wait(t)
	if out.Text != "all good" {
		t.Fatalf("reply = %q, want no repeat prompt", out.Text)
	}

	cc := conversation(t, r, first)
	if cc.Pending != nil {
		t.Fatalf("Pending = %+v, want nothing parked", cc.Pending)
	}
	if cc.EntityID == "" {
		t.Fatal("conversation must be linked to an entity")
	}
	e, err := approvals.Get(context.Background(), cc.EntityID)
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	if !e.HasApproval("test") {
		t.Fatalf("approvals = %+v, want a recorded standing grant", e.Approvals)
	}
}

func TestPipelineRejectionCountsOneIteration(t *testing.T) {
	gated := &stubTool{name: "check_payments", result: tool.Result{
		NeedsApproval:  true,
		ApprovalPrompt: "May I read payment data?",
	}}
	reg := registryWith(t, gated)

	cls := &funcClassifier{approval: func(text string) (classify.ApprovalResult, error) {
		if strings.Contains(text, "don't") {
			return classify.ApprovalResult{IsRejection: true, Confidence: 0.9}, nil
		}
		return classify.ApprovalResult{}, nil
	}}
	p := &funcProvider{fn: func(int, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{
			ToolCalls:    []provider.ToolCall{{ID: "t", Name: "check_payments", Arguments: json.RawMessage(`{}`)}},
			FinishReason: provider.FinishReasonToolUse,
		}, nil
	}}
	promReg := prometheus.NewRegistry()
	sender := newCaptureSender()
	cfg := baseConfig(p, cls, sender, reg)
	cfg.Metrics = metrics.NewRecorder(promReg)
	cfg.LoopConfig.MaxIterations = 3
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	first := inbound("c1", "how is revenue?")
	seedState(t, r, first, state.StateManaging)
	runTurn(t, r, first)
	sender.wait(t)

	runTurn(t, r, inbound("c1", "don't do that"))
	if out := sender.wait(t); out.Text != approval.CancelReply {
		t.Fatalf("reply = %q, want cancellation", out.Text)
	}

	// The parked turn reports the cap (3); the rejection turn reports
	// a single step.
	mfs, err := promReg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "foundry_loop_iterations" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 2 || h.GetSampleSum() != 4 {
			t.Fatalf("iterations histogram count=%d sum=%v, want the rejection counted as one iteration",
				h.GetSampleCount(), h.GetSampleSum())
		}
		return
	}
	t.Fatal("loop iterations histogram not collected")
}

// cloneStore is an in-memory convo.Store that snapshots contexts on
// write, the way a durable store would.
type cloneStore struct {
	mu   sync.Mutex
	data map[convo.Key]convo.Context
}

func newCloneStore() *cloneStore { return &cloneStore{data: make(map[convo.Key]convo.Context)} }

func (s *cloneStore) Get(_ context.Context, key convo.Key) (*convo.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[key]
	if !ok {
		return nil, convo.ErrNotFound
	}
	cp := c
	cp.History = append([]convo.Message(nil), c.History...)
	return &cp, nil
}

func (s *cloneStore) Put(_ context.Context, c *convo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.History = append([]convo.Message(nil), c.History...)
	s.data[c.Key] = cp
	return nil
}

func (s *cloneStore) Delete(_ context.Context, key convo.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func TestPipelinePruneDuringTurnKeepsHistory(t *testing.T) {
	store := newCloneStore()
	started := make(chan struct{})
	release := make(chan struct{})
	p := &funcProvider{fn: func(n int, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		if n == 1 {
			close(started)
			<-release
			return provider.CompletionResponse{Content: "first", FinishReason: provider.FinishReasonStop}, nil
		}
		return provider.CompletionResponse{Content: "second", FinishReason: provider.FinishReasonStop}, nil
	}}
	sender := newCaptureSender()
	cfg := baseConfig(p, silentClassifier(), sender, nil)
	cfg.Store = store
	r, err := NewRouter(cfg)
	if err != nil {
		t.Fatal(err)
	}

	msg := inbound("c1", "hello")
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		runTurn(t, r, msg)
	}()
	<-started

	// Evict the conversation while the first turn still holds its
	// lane, then start a second turn for the same key. The second
	// turn must wait for the lane and rehydrate the saved context,
	// not race the prune with a stale copy.
	r.cache.PruneIdle(0)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		runTurn(t, r, inbound("c1", "and again"))
	}()

	close(release)
	<-firstDone
	<-secondDone

	cc := conversation(t, r, msg)
	if len(cc.History) != 4 {
		t.Fatalf("history = %d entries, want both turns preserved across the prune", len(cc.History))
	}
	if cc.History[1].Text != "first" || cc.History[3].Text != "second" {
		t.Fatalf("history = %+v", cc.History)
	}
}
