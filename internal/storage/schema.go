package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// ensureSchema creates all tables on first open and migrates afterwards.
// CREATE IF NOT EXISTS everywhere keeps this idempotent for the in-memory
// case, where every open starts from nothing.
func (db *DB) ensureSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS entities (
				id TEXT NOT NULL,
				org_id TEXT NOT NULL,
				repo_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				name TEXT NOT NULL,
				file_path TEXT NOT NULL,
				language TEXT NOT NULL DEFAULT '',
				signature TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL DEFAULT '',
				start_line INTEGER NOT NULL DEFAULT 0,
				end_line INTEGER NOT NULL DEFAULT 0,
				detail_json TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (org_id, repo_id, id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_entities_path
				ON entities(org_id, repo_id, file_path)`,
			`CREATE TABLE IF NOT EXISTS edges (
				from_id TEXT NOT NULL,
				to_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				org_id TEXT NOT NULL,
				repo_id TEXT NOT NULL,
				weight REAL NOT NULL DEFAULT 1.0,
				PRIMARY KEY (org_id, repo_id, from_id, to_id, kind)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_to
				ON edges(org_id, repo_id, to_id, kind)`,
			`CREATE TABLE IF NOT EXISTS justifications (
				id TEXT PRIMARY KEY,
				entity_id TEXT NOT NULL,
				purpose TEXT NOT NULL,
				taxonomy TEXT NOT NULL DEFAULT '',
				confidence REAL NOT NULL DEFAULT 0,
				valid_from TEXT NOT NULL,
				valid_to TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_justifications_current
				ON justifications(entity_id) WHERE valid_to IS NULL`,
			`CREATE TABLE IF NOT EXISTS ledger_entries (
				id TEXT PRIMARY KEY,
				branch TEXT NOT NULL,
				timeline_branch INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				user_id TEXT NOT NULL DEFAULT '',
				prompt BLOB,
				diff BLOB,
				entity_refs TEXT NOT NULL DEFAULT '',
				parent_id TEXT,
				rewound_from TEXT,
				created_at TEXT NOT NULL,
				validated_at TEXT,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_branch
				ON ledger_entries(branch, status)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_chrono
				ON ledger_entries(created_at, id)`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}

		var version int
		err := tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
				return fmt.Errorf("set schema version: %w", err)
			}
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		case version > currentSchemaVersion:
			return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
		}
		return nil
	})
}
