package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foundryhq/foundry/internal/entity"
)

// entityStore implements entity.Store backed by SQLite. Approvals are
// stored as a JSON map keyed by action name.
type entityStore struct {
	db *sql.DB
}

// Get returns the entity with the given ID, or entity.ErrNotFound.
func (s *entityStore) Get(ctx context.Context, id string) (*entity.BusinessEntity, error) {
	if id == "" {
		return nil, entity.ErrEmptyID
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, approvals, created_at FROM entities WHERE id = ?`, id)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Put inserts or replaces an entity.
func (s *entityStore) Put(ctx context.Context, e *entity.BusinessEntity) error {
	if e == nil || e.ID == "" {
		return entity.ErrEmptyID
	}

	approvalsJSON, err := json.Marshal(e.Approvals)
	if err != nil {
		return fmt.Errorf("sqlite: marshal approvals: %w", err)
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO entities (id, name, approvals, created_at)
		VALUES (?, ?, ?, ?)`,
		e.ID, e.Name, string(approvalsJSON), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: store entity: %w", err)
	}

	return nil
}

// Grant records a standing approval for an action, creating the entity
// if it does not exist. The read-modify-write runs in a transaction.
func (s *entityStore) Grant(ctx context.Context, id, action, approvedBy string) error {
	if id == "" {
		return entity.ErrEmptyID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin grant: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, approvals, created_at FROM entities WHERE id = ?`, id)

	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		e = &entity.BusinessEntity{ID: id, CreatedAt: time.Now().UTC()}
	} else if err != nil {
		return err
	}

	if e.Approvals == nil {
		e.Approvals = make(map[string]entity.StandingApproval)
	}
	e.Approvals[action] = entity.StandingApproval{
		Approved:   true,
		ApprovedBy: approvedBy,
		ApprovedAt: time.Now().UTC(),
	}

	approvalsJSON, err := json.Marshal(e.Approvals)
	if err != nil {
		return fmt.Errorf("sqlite: marshal approvals: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO entities (id, name, approvals, created_at)
		VALUES (?, ?, ?, ?)`,
		e.ID, e.Name, string(approvalsJSON), e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: store grant: %w", err)
	}

	return tx.Commit()
}

// List returns all known entities ordered by creation time.
func (s *entityStore) List(ctx context.Context) ([]*entity.BusinessEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, approvals, created_at FROM entities ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []*entity.BusinessEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan entity rows: %w", err)
	}

	return entities, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*entity.BusinessEntity, error) {
	var (
		e             entity.BusinessEntity
		approvalsJSON string
		createdAtStr  string
	)

	if err := row.Scan(&e.ID, &e.Name, &approvalsJSON, &createdAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("sqlite: scan entity: %w", err)
	}

	if approvalsJSON != "" && approvalsJSON != "{}" && approvalsJSON != "null" {
		if err := json.Unmarshal([]byte(approvalsJSON), &e.Approvals); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal approvals: %w", err)
		}
	}

	if createdAtStr != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAtStr, err)
		}
		e.CreatedAt = t
	}

	return &e, nil
}
