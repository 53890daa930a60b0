package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foundryhq/foundry/internal/agent"
	"github.com/foundryhq/foundry/internal/approval"
	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/intent"
	"github.com/foundryhq/foundry/internal/metrics"
	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/state"
	"github.com/foundryhq/foundry/internal/tool"
	"github.com/foundryhq/foundry/pkg/message"
)

const (
	defaultInboxSize = 256
	defaultMaxIdle   = 30 * time.Minute
)

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount int
	InboxSize   int
	MaxIdle     time.Duration

	Provider   provider.Provider
	Classifier classify.Classifier
	Tools      *tool.Registry
	States     *state.Registry
	Table      *state.Table
	Store      convo.Store
	Entities   entity.Store
	Sender     ResponseSender
	Metrics    *metrics.Recorder
	Logger     *slog.Logger

	SystemPrompt string
	LoopConfig   agent.LoopConfig
	CacheOptions convo.CacheOptions
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = defaultMaxIdle
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tools == nil {
		c.Tools = tool.NewRegistry()
	}
	if c.States == nil {
		c.States = state.DefaultRegistry()
	}
	if c.Table == nil {
		c.Table = state.DefaultTable()
	}
	return c
}

// Router is the central dispatch layer. It maintains the conversation
// cache, serializes turns per conversation, and runs the pipeline on a
// worker pool.
type Router struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	cache    *convo.Cache
	laneLock *LaneLock
	pool     *WorkerPool
	pipeline *Pipeline
	pruner   *lazyPruner
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Classifier == nil {
		return nil, ErrNoClassifier
	}
	if cfg.Sender == nil {
		return nil, ErrNoResponseSender
	}

	cache := convo.NewCache(cfg.Store, cfg.CacheOptions, cfg.Logger)
	laneLock := NewLaneLock()
	pruner := newLazyPruner(cache, laneLock, cfg.MaxIdle)

	executor := agent.NewToolExecutor(cfg.Tools, cfg.Logger)
	if cfg.Metrics != nil {
		executor.SetObserver(cfg.Metrics.ObserveToolRun)
	}
	loop := agent.NewLoop(cfg.Provider, executor, cfg.Tools, cfg.LoopConfig)

	pipeline := NewPipeline(PipelineConfig{
		Cache:        cache,
		LaneLock:     laneLock,
		Gate:         approval.NewGate(cfg.Classifier, cfg.Tools, cfg.Entities, cfg.Logger),
		Intents:      intent.NewRouter(cfg.Classifier, cfg.Table, cfg.Logger),
		Loop:         loop,
		States:       cfg.States,
		Table:        cfg.Table,
		Tools:        cfg.Tools,
		Entities:     cfg.Entities,
		Sender:       cfg.Sender,
		Pruner:       pruner,
		Metrics:      cfg.Metrics,
		Logger:       cfg.Logger,
		SystemPrompt: cfg.SystemPrompt,
	})

	return &Router{
		config:   cfg,
		inbox:    make(chan envelope, cfg.InboxSize),
		cache:    cache,
		laneLock: laneLock,
		pool:     NewWorkerPool(cfg.WorkerCount),
		pipeline: pipeline,
		pruner:   pruner,
		logger:   cfg.Logger,
	}, nil
}

// KeyFromMessage derives the conversation key for an inbound message.
// Threaded chats key on the thread so side threads keep their own
// state.
func KeyFromMessage(msg message.InboundMessage) convo.Key {
	return convo.Key{
		Channel:  msg.Channel,
		ChatID:   msg.Chat.ID,
		ThreadID: msg.ThreadID,
	}
}

// Start launches the worker pool and begins processing messages.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, func(ctx context.Context, env envelope) {
		r.pipeline.Execute(ctx, env)
	})
	r.logger.Info("router: started", "workers", r.config.WorkerCount, "inbox_size", r.config.InboxSize)
}

// Submit enqueues an inbound message for processing. If the inbox is
// full the message is dropped and ErrInboxFull returned.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	env := envelope{Message: msg, Key: KeyFromMessage(msg)}
	select {
	case r.inbox <- env:
		return nil
	default:
		r.logger.Warn("router: inbox full, message dropped",
			"channel", env.Key.Channel,
			"chat_id", env.Key.ChatID,
		)
		return ErrInboxFull
	}
}

// Cache exposes the conversation cache for inspection surfaces.
func (r *Router) Cache() *convo.Cache {
	return r.cache
}

// Prune evicts idle conversations immediately, bypassing the lazy
// pruner's rate limit. Used by scheduled maintenance.
func (r *Router) Prune(maxIdle time.Duration) int {
	n := r.cache.PruneIdle(maxIdle)
	active := make(map[convo.Key]struct{})
	for _, k := range r.cache.Keys() {
		active[k] = struct{}{}
	}
	r.laneLock.Cleanup(active)
	return n
}

// Stop gracefully shuts down the router: closes the inbox, drains
// workers, cancels the context.
func (r *Router) Stop(_ context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		if cancel != nil {
			cancel()
		}

		r.pool.Wait()
		r.logger.Info("router: stopped")
	})
}
