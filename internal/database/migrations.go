package database

import (
	"context"
	"fmt"
)

// migration is one schema change, applied in order exactly once.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_instances",
		sql: `
			CREATE TABLE IF NOT EXISTS instances (
				id TEXT PRIMARY KEY,
				definition_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				current_node TEXT NOT NULL,
				status TEXT NOT NULL,
				approvals TEXT NOT NULL DEFAULT '{}',
				created_by TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_instances_status ON instances(status);
			CREATE INDEX IF NOT EXISTS idx_instances_definition ON instances(definition_id);
			CREATE INDEX IF NOT EXISTS idx_instances_updated ON instances(status, updated_at);
		`,
	},
	{
		version: 2,
		name:    "create_audit_events",
		sql: `
			CREATE TABLE IF NOT EXISTS audit_events (
				instance_id TEXT NOT NULL,
				sequence INTEGER NOT NULL,
				kind TEXT NOT NULL,
				from_node TEXT NOT NULL DEFAULT '',
				to_node TEXT NOT NULL DEFAULT '',
				actor TEXT NOT NULL,
				annotation TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				prev_hash TEXT NOT NULL DEFAULT '',
				hash TEXT NOT NULL,
				PRIMARY KEY (instance_id, sequence)
			);
			CREATE INDEX IF NOT EXISTS idx_audit_events_instance ON audit_events(instance_id, sequence);
		`,
	},
	{
		version: 3,
		name:    "create_verification_results",
		sql: `
			CREATE TABLE IF NOT EXISTS verification_results (
				document_id TEXT NOT NULL,
				signature_digest TEXT NOT NULL,
				chain_valid INTEGER NOT NULL,
				signature_valid INTEGER NOT NULL,
				revocation_status TEXT NOT NULL,
				hash_matches INTEGER NOT NULL,
				verified_at TIMESTAMP NOT NULL,
				PRIMARY KEY (document_id, signature_digest)
			);
		`,
	},
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			m.version, m.name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
