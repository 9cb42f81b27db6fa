package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"skg/internal/entity"
	skgerrors "skg/internal/errors"
)

// SQLite implements Store over a DB handle.
type SQLite struct {
	db *DB
}

// NewSQLite creates a Store backed by the given database.
func NewSQLite(db *DB) *SQLite {
	return &SQLite{db: db}
}

// DB exposes the underlying handle for collaborators sharing the same
// database file (the ledger store).
func (s *SQLite) DB() *DB {
	return s.db
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Entities returns the full current entity set for a repository.
func (s *SQLite) Entities(ctx context.Context, org, repo string) ([]entity.Entity, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, kind, name, file_path, language, signature, body,
		       start_line, end_line, detail_json
		FROM entities WHERE org_id = ? AND repo_id = ?
		ORDER BY id`, org, repo)
	if err != nil {
		return nil, storageErr("query entities", err)
	}
	defer rows.Close()

	var out []entity.Entity
	for rows.Next() {
		e := entity.Entity{OrgID: org, RepoID: repo}
		var detailJSON string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.FilePath, &e.Language,
			&e.Signature, &e.Body, &e.StartLine, &e.EndLine, &detailJSON); err != nil {
			return nil, storageErr("scan entity", err)
		}
		detail, err := entity.DecodeDetail(e.Kind, detailJSON)
		if err != nil {
			return nil, storageErr("decode entity detail", err)
		}
		e.Detail = detail
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEntities inserts or replaces entities keyed by identity.
func (s *SQLite) UpsertEntities(ctx context.Context, entities []entity.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO entities
			(id, org_id, repo_id, kind, name, file_path, language, signature,
			 body, start_line, end_line, detail_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entities {
			id := e.ID
			if id == "" {
				id = e.Key()
			}
			detailJSON, err := entity.EncodeDetail(e.Detail)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, id, e.OrgID, e.RepoID, e.Kind,
				e.Name, e.FilePath, e.Language, e.Signature, e.Body,
				e.StartLine, e.EndLine, detailJSON); err != nil {
				return err
			}
		}
		return nil
	}, "upsert entities")
}

// DeleteEntities removes the given identities from a repository.
func (s *SQLite) DeleteEntities(ctx context.Context, org, repo string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		query := `DELETE FROM entities WHERE org_id = ? AND repo_id = ? AND id IN (` +
			placeholders(len(ids)) + `)`
		_, err := tx.ExecContext(ctx, query, args(org, repo, ids)...)
		return err
	}, "delete entities")
}

// EdgesFor returns edges referencing the identity in either direction.
func (s *SQLite) EdgesFor(ctx context.Context, org, repo, id string) ([]entity.Edge, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT from_id, to_id, kind, weight
		FROM edges
		WHERE org_id = ? AND repo_id = ? AND (from_id = ? OR to_id = ?)
		ORDER BY from_id, to_id, kind`, org, repo, id, id)
	if err != nil {
		return nil, storageErr("query edges", err)
	}
	defer rows.Close()

	var out []entity.Edge
	for rows.Next() {
		e := entity.Edge{OrgID: org, RepoID: repo}
		if err := rows.Scan(&e.From, &e.To, &e.Kind, &e.Weight); err != nil {
			return nil, storageErr("scan edge", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEdges inserts or replaces edges keyed by (from, to, kind).
func (s *SQLite) UpsertEdges(ctx context.Context, edges []entity.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO edges
			(from_id, to_id, kind, org_id, repo_id, weight)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range edges {
			weight := e.Weight
			if weight == 0 {
				weight = 1.0
			}
			if _, err := stmt.ExecContext(ctx, e.From, e.To, e.Kind,
				e.OrgID, e.RepoID, weight); err != nil {
				return err
			}
		}
		return nil
	}, "upsert edges")
}

// DeleteEdgesTouching removes every edge referencing any of the given
// identities in either direction.
func (s *SQLite) DeleteEdgesTouching(ctx context.Context, org, repo string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.withTx(func(tx *sql.Tx) error {
		ph := placeholders(len(ids))
		query := `DELETE FROM edges WHERE org_id = ? AND repo_id = ?
			AND (from_id IN (` + ph + `) OR to_id IN (` + ph + `))`
		queryArgs := make([]interface{}, 0, 2+2*len(ids))
		queryArgs = append(queryArgs, org, repo)
		for _, id := range ids {
			queryArgs = append(queryArgs, id)
		}
		for _, id := range ids {
			queryArgs = append(queryArgs, id)
		}
		res, err := tx.ExecContext(ctx, query, queryArgs...)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	}, "delete edges")
	return int(deleted), err
}

// DeleteEdgesFrom removes every edge whose source is one of the given
// identities.
func (s *SQLite) DeleteEdgesFrom(ctx context.Context, org, repo string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.withTx(func(tx *sql.Tx) error {
		query := `DELETE FROM edges WHERE org_id = ? AND repo_id = ?
			AND from_id IN (` + placeholders(len(ids)) + `)`
		res, err := tx.ExecContext(ctx, query, args(org, repo, ids)...)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	}, "delete outgoing edges")
	return int(deleted), err
}

// Callers returns the direct callers of an entity over calls edges.
func (s *SQLite) Callers(ctx context.Context, org, repo, id string) ([]Caller, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT from_id, weight FROM edges
		WHERE org_id = ? AND repo_id = ? AND to_id = ? AND kind = ?
		ORDER BY from_id`, org, repo, id, entity.EdgeCalls)
	if err != nil {
		return nil, storageErr("query callers", err)
	}
	defer rows.Close()

	var out []Caller
	for rows.Next() {
		var c Caller
		if err := rows.Scan(&c.ID, &c.Weight); err != nil {
			return nil, storageErr("scan caller", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CallerCount returns the in-degree of an entity over calls edges.
func (s *SQLite) CallerCount(ctx context.Context, org, repo, id string) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges
		WHERE org_id = ? AND repo_id = ? AND to_id = ? AND kind = ?`,
		org, repo, id, entity.EdgeCalls).Scan(&count)
	if err != nil {
		return 0, storageErr("count callers", err)
	}
	return count, nil
}

// CurrentJustification returns the justification with ValidTo == nil.
func (s *SQLite) CurrentJustification(ctx context.Context, entityID string) (*Justification, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, entity_id, purpose, taxonomy, confidence, valid_from
		FROM justifications
		WHERE entity_id = ? AND valid_to IS NULL`, entityID)

	var (
		j         Justification
		validFrom string
	)
	err := row.Scan(&j.ID, &j.EntityID, &j.Purpose, &j.Taxonomy, &j.Confidence, &validFrom)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query justification", err)
	}
	j.ValidFrom, err = time.Parse(time.RFC3339Nano, validFrom)
	if err != nil {
		return nil, storageErr("parse valid_from", err)
	}
	return &j, nil
}

// SupersedeJustification atomically closes the currently valid justification
// for the entity and inserts j as the new valid record. Closing and
// inserting happen in one transaction, so there is never a window with two
// valid records.
func (s *SQLite) SupersedeJustification(ctx context.Context, j Justification) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.ValidFrom.IsZero() {
		j.ValidFrom = time.Now().UTC()
	}
	return s.withTx(func(tx *sql.Tx) error {
		now := j.ValidFrom.Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, `
			UPDATE justifications SET valid_to = ?
			WHERE entity_id = ? AND valid_to IS NULL`, now, j.EntityID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO justifications
			(id, entity_id, purpose, taxonomy, confidence, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?, NULL)`,
			j.ID, j.EntityID, j.Purpose, j.Taxonomy, j.Confidence, now)
		return err
	}, "supersede justification")
}

func (s *SQLite) withTx(fn func(*sql.Tx) error, op string) error {
	if err := s.db.WithTx(fn); err != nil {
		return storageErr(op, err)
	}
	return nil
}

// storageErr wraps backing-store failures as retryable: every write here is
// idempotent, so re-running the same batch converges.
func storageErr(op string, err error) error {
	return skgerrors.Wrap(skgerrors.StorageUnavailable, op, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(org, repo string, ids []string) []interface{} {
	out := make([]interface{}, 0, 2+len(ids))
	out = append(out, org, repo)
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

var _ Store = (*SQLite)(nil)
