package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foundryhq/foundry/internal/agent"
	"github.com/foundryhq/foundry/internal/approval"
	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/intent"
	"github.com/foundryhq/foundry/internal/metrics"
	"github.com/foundryhq/foundry/internal/state"
	"github.com/foundryhq/foundry/internal/tool"
	"github.com/foundryhq/foundry/pkg/message"
)

// Replies used when the loop cannot produce one.
const (
	fallbackReply = "I wasn't able to finish that. Could you rephrase or narrow down the request?"
	apologyReply  = "Something went wrong on my side. Please try again in a moment."
)

// ResponseSender delivers outbound messages back to their surface.
type ResponseSender interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// PipelineConfig groups the dependencies of the turn pipeline.
type PipelineConfig struct {
	Cache        *convo.Cache
	LaneLock     *LaneLock
	Gate         *approval.Gate
	Intents      *intent.Router
	Loop         *agent.Loop
	States       *state.Registry
	Table        *state.Table
	Tools        *tool.Registry
	Entities     entity.Store
	Sender       ResponseSender
	Pruner       *lazyPruner
	Metrics      *metrics.Recorder
	Logger       *slog.Logger
	SystemPrompt string
}

// Pipeline executes one conversation turn end to end.
type Pipeline struct {
	cfg PipelineConfig
	now func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, now: time.Now}
}

// Execute processes a single inbound message: approval gate first, then
// intent routing, then the agent loop, then the transition heuristic.
func (p *Pipeline) Execute(ctx context.Context, env envelope) {
	logger := p.cfg.Logger
	start := p.now()

	logger.Info("pipeline: message received",
		"channel", env.Key.Channel,
		"chat_id", env.Key.ChatID,
		"thread_id", env.Key.ThreadID,
	)

	// Take the lane before touching the cache, so a concurrent prune
	// cannot evict the context between load and lock and hand a second
	// turn a stale rehydrated copy.
	p.cfg.LaneLock.Acquire(env.Key)
	defer p.cfg.LaneLock.Release(env.Key)

	cc, err := p.cfg.Cache.GetOrCreate(ctx, env.Key)
	if err != nil {
		logger.Error("pipeline: conversation load failed", "key", env.Key.String(), "error", err)
		p.send(ctx, env.Message, apologyReply)
		return
	}

	author := ""
	if env.Message.Chat.IsGroup() {
		author = env.Message.Sender.Name()
	}
	cc.AddMessage(convo.Message{
		Role:   convo.RoleUser,
		Text:   env.Message.Text,
		Author: author,
	}, p.now())

	p.ensureEntity(ctx, cc)

	outcome := "ok"
	iterations := 0

	if gateOut := p.cfg.Gate.HandlePending(ctx, cc, env.Message.Text, env.Message.Sender.ID); gateOut.Handled {
		p.observeApproval(gateOut)
		// The gate resolves the turn in a single step whichever way
		// the verdict goes.
		iterations = 1
		if gateOut.Approved {
			p.applyHeuristic(cc, []string{gateOut.ToolInvoked})
		}
		p.finishTurn(ctx, cc, env.Message, gateOut.Reply, outcome, iterations, start)
		return
	}

	// The first real message moves a fresh conversation out of idle.
	if cc.State == state.StateIdle {
		p.transition(cc, state.StateChat, "implicit")
	}

	decision := p.cfg.Intents.Route(ctx, cc.State, env.Message.Text, cc.Digest(10))
	if decision.Transitioned {
		p.transition(cc, decision.NewState, "intent")
	}

	reply, resp := p.runLoop(ctx, cc, env.Message)
	iterations = resp.Iterations

	for _, rec := range resp.ToolCalls {
		cc.AddMessage(convo.Message{
			Role:     convo.RoleTool,
			Text:     rec.Result.Content(),
			ToolID:   rec.ID,
			ToolName: rec.Name,
		}, p.now())
	}

	switch resp.StopReason {
	case agent.StopReasonNeedsApproval:
		cc.SetPending(convo.PendingInvocation{
			Tool:     resp.Pending.Tool,
			Args:     resp.Pending.Args,
			Prompt:   resp.Pending.Prompt,
			EntityID: cc.EntityID,
		})
		outcome = "needs_approval"
	case agent.StopReasonComplete:
		p.applyHeuristic(cc, resp.ExecutedTools())
	default:
		outcome = string(resp.StopReason)
	}

	p.finishTurn(ctx, cc, env.Message, reply, outcome, iterations, start)
}

// runLoop invokes the agent loop and maps failures to user-facing
// replies.
func (p *Pipeline) runLoop(ctx context.Context, cc *convo.Context, msg message.InboundMessage) (string, agent.Response) {
	allowed := p.cfg.States.ReachableTools(cc.State)
	if len(allowed) == 0 {
		// A state with no scoped tools falls back to the full catalog.
		allowed = p.cfg.Tools.Names()
	}

	resp, err := p.cfg.Loop.Run(ctx, agent.Request{
		Messages:     agent.RenderHistory(cc),
		SystemPrompt: p.systemPrompt(cc.State),
		AllowedTools: allowed,
		Invocation: tool.Invocation{
			Author:   msg.Sender.ID,
			EntityID: cc.EntityID,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrMaxIterationsReached), errors.Is(err, agent.ErrLoopDetected):
			p.cfg.Logger.Warn("pipeline: loop exhausted", "key", cc.Key.String(), "stop", string(resp.StopReason))
			return fallbackReply, resp
		default:
			p.cfg.Logger.Error("pipeline: loop failed", "key", cc.Key.String(), "error", err)
			return apologyReply, resp
		}
	}
	if resp.Content == "" && resp.StopReason == agent.StopReasonComplete {
		return fallbackReply, resp
	}
	return resp.Content, resp
}

// ensureEntity links a business entity to the conversation the first
// time one is needed. Gated tools and standing approvals key off it,
// so without this link every gated action would prompt forever.
func (p *Pipeline) ensureEntity(ctx context.Context, cc *convo.Context) {
	if cc.EntityID != "" || p.cfg.Entities == nil {
		return
	}
	id := cc.Key.String()
	_, err := p.cfg.Entities.Get(ctx, id)
	switch {
	case err == nil:
		// The entity outlived a pruned conversation; relink it so its
		// standing approvals keep applying.
		cc.EntityID = id
		return
	case errors.Is(err, entity.ErrNotFound):
	default:
		p.cfg.Logger.Warn("pipeline: entity lookup failed", "key", id, "error", err)
		return
	}

	e := &entity.BusinessEntity{ID: id, Name: cc.Key.ChatID, CreatedAt: p.now()}
	if err := p.cfg.Entities.Put(ctx, e); err != nil {
		p.cfg.Logger.Warn("pipeline: entity create failed", "key", id, "error", err)
		return
	}
	cc.EntityID = e.ID
	p.cfg.Logger.Info("pipeline: entity linked", "key", cc.Key.String(), "entity", e.ID)
}

// applyHeuristic commits an automatic transition when the executed
// tools signal that the current phase is done.
func (p *Pipeline) applyHeuristic(cc *convo.Context, toolsInvoked []string) {
	trigger, ok := state.ProposeTransition(cc.State, dedupe(toolsInvoked))
	if !ok {
		return
	}
	next := p.cfg.Table.Transition(cc.State, trigger)
	if next == cc.State {
		return
	}
	p.transition(cc, next, "heuristic")
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (p *Pipeline) transition(cc *convo.Context, to state.State, source string) {
	from := cc.State
	cc.SetState(to)
	p.cfg.Logger.Info("pipeline: state transition",
		"key", cc.Key.String(),
		"from", string(from),
		"to", string(to),
		"source", source,
	)
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveTransition(string(from), string(to), source)
	}
}

func (p *Pipeline) finishTurn(ctx context.Context, cc *convo.Context, in message.InboundMessage, reply, outcome string, iterations int, start time.Time) {
	if reply != "" {
		cc.AddMessage(convo.Message{Role: convo.RoleAssistant, Text: reply}, p.now())
	}

	if err := p.cfg.Cache.Save(ctx, cc); err != nil {
		p.cfg.Logger.Error("pipeline: save failed", "key", cc.Key.String(), "error", err)
	}

	if reply != "" {
		p.send(ctx, in, reply)
	}

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveTurn(in.Channel, outcome, iterations, p.now().Sub(start))
		p.cfg.Metrics.SetActiveSessions(p.cfg.Cache.Len())
	}
	if p.cfg.Pruner != nil {
		p.cfg.Pruner.TryPrune()
	}
}

func (p *Pipeline) observeApproval(out approval.Outcome) {
	if p.cfg.Metrics == nil {
		return
	}
	if out.Approved {
		p.cfg.Metrics.ObserveApproval("approved")
	} else {
		p.cfg.Metrics.ObserveApproval("rejected")
	}
}

func (p *Pipeline) send(ctx context.Context, in message.InboundMessage, text string) {
	out := message.NewTextMessage(in.Chat, text)
	out.Channel = in.Channel
	out.ThreadID = in.ThreadID
	out.ReplyToID = in.ID
	if err := p.cfg.Sender.Send(ctx, out); err != nil {
		p.cfg.Logger.Error("pipeline: send failed", "channel", in.Channel, "error", err)
	}
}

// systemPrompt renders the base prompt plus the current phase and its
// exit conditions so the model knows what finishing looks like.
func (p *Pipeline) systemPrompt(st state.State) string {
	var b strings.Builder
	b.WriteString(p.cfg.SystemPrompt)
	fmt.Fprintf(&b, "\n\nCurrent phase: %s.", string(st))
	if exits := p.cfg.States.ExitConditions(st); len(exits) > 0 {
		b.WriteString(" This phase is complete when: ")
		b.WriteString(strings.Join(exits, "; "))
		b.WriteString(".")
	}
	return b.String()
}
