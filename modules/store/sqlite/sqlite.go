// Package sqlite implements the persistent store module backing
// conversations and business entities. It uses modernc.org/sqlite
// (pure Go, no CGO) with WAL mode and a single-connection pool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/schedule"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ convo.Store              = (*convoStore)(nil)
	_ entity.Store             = (*entityStore)(nil)
	_ schedule.StoreMaintainer = (*Module)(nil)
	_ core.Configurable        = (*Module)(nil)
	_ core.Provisioner         = (*Module)(nil)
	_ core.Validator           = (*Module)(nil)
	_ core.Stopper             = (*Module)(nil)
)

// Module provides convo.Store and entity.Store backed by a single
// database file, registered as the "convo.store" and "entity.store"
// services.
type Module struct {
	config   Config
	db       *sql.DB
	logger   *slog.Logger
	convos   *convoStore
	entities *entityStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", m.config.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if m.config.walEnabled() {
		if _, err := db.ExecContext(context.TODO(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(context.TODO(), fmt.Sprintf("PRAGMA busy_timeout=%d", m.config.BusyTimeout)); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.convos = &convoStore{db: db}
	m.entities = &entityStore{db: db}

	if err := ctx.RegisterService("convo.store", m.convos); err != nil {
		return err
	}
	if err := ctx.RegisterService("entity.store", m.entities); err != nil {
		return err
	}
	if err := ctx.RegisterService("store.maintainer", m); err != nil {
		return err
	}

	m.logger.Info("sqlite store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Maintain implements schedule.StoreMaintainer. Checkpointing keeps the
// WAL file bounded on long-running deployments.
func (m *Module) Maintain(ctx context.Context) error {
	if m.config.walEnabled() {
		if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return fmt.Errorf("sqlite: wal checkpoint: %w", err)
		}
	}
	if _, err := m.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("sqlite: optimize: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite store stopping")
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Conversations returns the conversation store.
func (m *Module) Conversations() convo.Store { return m.convos }

// Entities returns the entity store.
func (m *Module) Entities() entity.Store { return m.entities }
