package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foundryhq/foundry/internal/agent"
	"github.com/foundryhq/foundry/internal/channel"
	"github.com/foundryhq/foundry/internal/classify"
	"github.com/foundryhq/foundry/internal/config"
	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/metrics"
	"github.com/foundryhq/foundry/internal/provider"
	"github.com/foundryhq/foundry/internal/router"
	"github.com/foundryhq/foundry/internal/state"
	"github.com/foundryhq/foundry/internal/tool"
)

// routerModule wraps a *router.Router to satisfy core.Module,
// core.Starter, and core.Stopper, so the router participates in the App
// lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// wireRouter builds the conversation router from the services the
// loaded modules registered, validates the state wiring against the
// tool catalog, and appends the router to the app lifecycle. Must be
// called after LoadModules and before Start.
func wireRouter(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	dispatcher *channel.Dispatcher,
	tools *tool.Registry,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) error {
	svc, ok := appCtx.Service("provider")
	if !ok {
		return fmt.Errorf("router: a provider module is required (e.g. provider.anthropic)")
	}
	p, ok := svc.(provider.Provider)
	if !ok {
		return fmt.Errorf("router: provider service has unexpected type")
	}

	// Durable stores are optional; without them conversations live only
	// in memory.
	var store convo.Store
	if svc, ok := appCtx.Service("convo.store"); ok {
		store, _ = svc.(convo.Store)
	}
	var entities entity.Store
	if svc, ok := appCtx.Service("entity.store"); ok {
		entities, _ = svc.(entity.Store)
	}

	states := state.DefaultRegistry()
	table := state.DefaultTable()

	// Fail startup if a state offers a tool no module registered.
	if err := state.Validate(states, table, tools); err != nil {
		return err
	}

	r, err := router.NewRouter(router.Config{
		WorkerCount:  cfg.Router.Workers,
		InboxSize:    cfg.Router.InboxSize,
		MaxIdle:      time.Duration(cfg.Router.MaxIdleMinutes) * time.Minute,
		Provider:     p,
		Classifier:   classify.NewLLMClassifier(p),
		Tools:        tools,
		States:       states,
		Table:        table,
		Store:        store,
		Entities:     entities,
		Sender:       dispatcher,
		Metrics:      recorder,
		Logger:       logger,
		SystemPrompt: cfg.Agent.SystemPrompt,
		LoopConfig: agent.LoopConfig{
			MaxIterations: cfg.Agent.MaxIterations,
			TokenBudget:   cfg.Agent.TokenBudget,
			Timeout:       time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		},
		CacheOptions: convo.CacheOptions{
			MaxEntries: cfg.Router.MaxSessions,
			MaxHistory: cfg.Router.MaxHistory,
		},
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	// Register the router for the gateway and scheduler to discover.
	if err := appCtx.RegisterService("router", r); err != nil {
		return err
	}

	app.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})

	logger.Info("router wired", "model", p.ModelName())
	return nil
}
