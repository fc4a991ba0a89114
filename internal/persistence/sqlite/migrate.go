package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema history. Entries are applied once and
// recorded in schema_migrations; never edit an applied entry, append instead.
var migrations = []string{
	`CREATE TABLE proposals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		organizer_id TEXT NOT NULL,
		priority TEXT NOT NULL,
		preferred_days TEXT NOT NULL DEFAULT '',
		reasoning TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		confirmed_slot_index INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE proposal_participants (
		proposal_id TEXT NOT NULL REFERENCES proposals(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		participant_id TEXT NOT NULL,
		PRIMARY KEY (proposal_id, position)
	);
	CREATE TABLE proposal_slots (
		proposal_id TEXT NOT NULL REFERENCES proposals(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		score REAL NOT NULL,
		weekday INTEGER NOT NULL,
		PRIMARY KEY (proposal_id, position)
	);`,
	`CREATE TABLE participants (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		access_token_hash TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE busy_intervals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		CHECK (end_time > start_time)
	);
	CREATE INDEX idx_busy_intervals_participant ON busy_intervals(participant_id, start_time);
	CREATE TABLE calendar_events (
		id TEXT PRIMARY KEY,
		organizer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		attendee_ids TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
}

// Migrate brings the schema up to the current version. Safe to call on every
// startup.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	var current int
	if err := pool.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		statement := migrations[version-1]
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
