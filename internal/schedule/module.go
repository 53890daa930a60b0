package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foundryhq/foundry/internal/core"
)

func init() {
	core.RegisterModule(&Maintenance{})
}

// Config controls the maintenance schedules.
type Config struct {
	// PruneSchedule is the cron expression for the conversation prune
	// job. Empty uses the job default.
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxIdleMinutes is the idle threshold for pruning conversations.
	MaxIdleMinutes int `yaml:"max_idle_minutes"`

	// StoreSchedule is the cron expression for store housekeeping.
	// Empty uses the job default.
	StoreSchedule string `yaml:"store_schedule"`
}

func (c *Config) defaults() {
	if c.MaxIdleMinutes <= 0 {
		c.MaxIdleMinutes = 30
	}
}

// Maintenance is the background maintenance module. It wires the
// scheduler to the router's conversation cache and, when a persistent
// store is configured, to its housekeeping hook.
type Maintenance struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Maintenance) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "schedule.maintenance",
		New: func() core.Module { return &Maintenance{} },
	}
}

// Configure implements core.Configurable.
func (m *Maintenance) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Maintenance) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.scheduler = NewScheduler(m.logger)
	return nil
}

// Start implements core.Starter. The router service is required; the
// store maintainer is optional (the memory-only store needs none).
func (m *Maintenance) Start() error {
	svc, ok := m.appCtx.Service("router")
	if !ok {
		return errors.New("schedule: router service not registered")
	}
	pruner, ok := svc.(ConversationPruner)
	if !ok {
		return errors.New("schedule: router service does not support pruning")
	}

	err := m.scheduler.RegisterJob(&ConversationPruneJob{
		Pruner:       pruner,
		MaxIdle:      time.Duration(m.config.MaxIdleMinutes) * time.Minute,
		Logger:       m.logger,
		ScheduleExpr: m.config.PruneSchedule,
	})
	if err != nil {
		return err
	}

	if svc, ok := m.appCtx.Service("store.maintainer"); ok {
		if maint, ok := svc.(StoreMaintainer); ok {
			err := m.scheduler.RegisterJob(&StoreMaintenanceJob{
				Store:        maint,
				Logger:       m.logger,
				ScheduleExpr: m.config.StoreSchedule,
			})
			if err != nil {
				return err
			}
		}
	}

	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Maintenance) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}
