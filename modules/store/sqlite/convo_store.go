package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foundryhq/foundry/internal/convo"
	"github.com/foundryhq/foundry/internal/state"
)

// convoStore implements convo.Store backed by SQLite. History and
// pending invocations are stored as JSON columns; the composite key
// maps to the primary key.
type convoStore struct {
	db *sql.DB
}

// Get loads a conversation context, or convo.ErrNotFound.
func (s *convoStore) Get(ctx context.Context, key convo.Key) (*convo.Context, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT state, history, pending, entity_id, last_active
		FROM conversations
		WHERE channel = ? AND chat_id = ? AND thread_id = ?`,
		key.Channel, key.ChatID, key.ThreadID,
	)

	var (
		stateStr      string
		historyJSON   string
		pendingJSON   string
		entityID      string
		lastActiveStr string
	)
	if err := row.Scan(&stateStr, &historyJSON, &pendingJSON, &entityID, &lastActiveStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, convo.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: load conversation: %w", err)
	}

	cc := &convo.Context{
		Key:      key,
		State:    state.State(stateStr),
		EntityID: entityID,
	}

	if historyJSON != "" && historyJSON != "[]" {
		if err := json.Unmarshal([]byte(historyJSON), &cc.History); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal history: %w", err)
		}
	}

	if pendingJSON != "" {
		var pending convo.PendingInvocation
		if err := json.Unmarshal([]byte(pendingJSON), &pending); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal pending invocation: %w", err)
		}
		cc.Pending = &pending
	}

	if lastActiveStr != "" {
		t, err := time.Parse(time.RFC3339Nano, lastActiveStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse last_active %q: %w", lastActiveStr, err)
		}
		cc.LastActive = t
	}

	return cc, nil
}

// Put inserts or replaces a conversation context.
func (s *convoStore) Put(ctx context.Context, cc *convo.Context) error {
	historyJSON, err := json.Marshal(cc.History)
	if err != nil {
		return fmt.Errorf("sqlite: marshal history: %w", err)
	}

	pendingJSON := ""
	if cc.Pending != nil {
		b, err := json.Marshal(cc.Pending)
		if err != nil {
			return fmt.Errorf("sqlite: marshal pending invocation: %w", err)
		}
		pendingJSON = string(b)
	}

	lastActive := cc.LastActive
	if lastActive.IsZero() {
		lastActive = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations
			(channel, chat_id, thread_id, state, history, pending, entity_id, last_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cc.Key.Channel, cc.Key.ChatID, cc.Key.ThreadID,
		string(cc.State), string(historyJSON), pendingJSON, cc.EntityID,
		lastActive.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: store conversation: %w", err)
	}

	return nil
}

// Delete removes a conversation context. Deleting a missing key is not
// an error.
func (s *convoStore) Delete(ctx context.Context, key convo.Key) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM conversations
		WHERE channel = ? AND chat_id = ? AND thread_id = ?`,
		key.Channel, key.ChatID, key.ThreadID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: delete conversation: %w", err)
	}
	return nil
}
