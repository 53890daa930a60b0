package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		channel     TEXT NOT NULL,
		chat_id     TEXT NOT NULL,
		thread_id   TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL,
		history     TEXT NOT NULL DEFAULT '[]',
		pending     TEXT NOT NULL DEFAULT '',
		entity_id   TEXT NOT NULL DEFAULT '',
		last_active TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (channel, chat_id, thread_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_last_active ON conversations(last_active)`,

	`CREATE TABLE IF NOT EXISTS entities (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		approvals  TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
