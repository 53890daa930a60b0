package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ConversationPruner is the subset of the router needed by the prune job.
// Defined here to avoid a circular dependency on the router package.
type ConversationPruner interface {
	Prune(maxIdle time.Duration) int
}

// ConversationPruneJob evicts conversations that have been idle longer
// than MaxIdle from the in-memory cache. Conversations persisted in the
// backing store survive and rehydrate on the next message.
type ConversationPruneJob struct {
	Pruner       ConversationPruner
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*ConversationPruneJob)(nil)

// Name implements Job.
func (j *ConversationPruneJob) Name() string { return "conversation_prune" }

// Schedule implements Job.
func (j *ConversationPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run evicts conversations idle longer than MaxIdle.
func (j *ConversationPruneJob) Run(_ context.Context) error {
	pruned := j.Pruner.Prune(j.MaxIdle)
	if pruned > 0 {
		j.Logger.Info("schedule: pruned idle conversations", "count", pruned)
	}
	return nil
}

// StoreMaintainer is implemented by persistent stores that benefit from
// periodic housekeeping (WAL checkpoints, vacuum).
type StoreMaintainer interface {
	Maintain(ctx context.Context) error
}

// StoreMaintenanceJob runs housekeeping on the persistent store.
type StoreMaintenanceJob struct {
	Store        StoreMaintainer
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Job = (*StoreMaintenanceJob)(nil)

// Name implements Job.
func (j *StoreMaintenanceJob) Name() string { return "store_maintenance" }

// Schedule implements Job.
func (j *StoreMaintenanceJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run performs store housekeeping.
func (j *StoreMaintenanceJob) Run(ctx context.Context) error {
	if err := j.Store.Maintain(ctx); err != nil {
		return fmt.Errorf("schedule: store maintenance: %w", err)
	}
	j.Logger.Debug("schedule: store maintenance completed")
	return nil
}
