package ledger

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	skgerrors "skg/internal/errors"
	"skg/internal/logging"
	"skg/internal/storage"
)

const defaultPageSize = 50

// Store persists ledger entries. It shares the engine's database but owns
// its own tables; the graph pipeline never touches them.
type Store struct {
	db     *storage.DB
	logger *logging.Logger
}

// NewStore creates a ledger store over an open database.
func NewStore(db *storage.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Append inserts a new entry in status pending. The ID, timestamps, and
// payload compression are handled here; the caller supplies branch,
// timeline_branch, user, payload, and references.
func (s *Store) Append(ctx context.Context, e Entry) (*Entry, error) {
	if e.Branch == "" {
		return nil, skgerrors.New(skgerrors.ConfigInvalid, "ledger entry requires a branch")
	}
	e.ID = uuid.NewString()
	e.Status = StatusPending
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.ValidatedAt = nil

	err := s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(id, branch, timeline_branch, status, user_id, prompt, diff,
			 entity_refs, parent_id, rewound_from, created_at, validated_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
			e.ID, e.Branch, e.TimelineBranch, e.Status, e.UserID,
			compressPayload(e.Prompt), compressPayload(e.Diff),
			strings.Join(e.EntityRefs, ","), nullable(e.ParentID), nullable(e.RewoundFrom),
			formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
		return err
	})
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.StorageUnavailable, "append ledger entry", err)
	}
	return &e, nil
}

// Get returns one entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.Conn().QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, skgerrors.New(skgerrors.LedgerEntryNotFound, "ledger entry "+id)
	}
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.StorageUnavailable, "get ledger entry", err)
	}
	return e, nil
}

// Transition moves an entry to a new status. Illegal transitions fail with
// a non-retryable invalid-transition error and leave the row untouched.
// Entering working stamps validated_at with the current time.
func (s *Store) Transition(ctx context.Context, id string, to Status) (*Entry, error) {
	var result *Entry
	err := s.db.WithTx(func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
		e, err := scanEntry(row)
		if err == sql.ErrNoRows {
			return skgerrors.New(skgerrors.LedgerEntryNotFound, "ledger entry "+id)
		}
		if err != nil {
			return err
		}
		if err := checkTransition(e.ID, e.Status, to); err != nil {
			return err
		}

		now := time.Now().UTC()
		e.Status = to
		e.UpdatedAt = now
		if to == StatusWorking {
			e.ValidatedAt = &now
			_, err = tx.ExecContext(ctx, `
				UPDATE ledger_entries SET status = ?, validated_at = ?, updated_at = ?
				WHERE id = ?`, to, formatTime(now), formatTime(now), id)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE ledger_entries SET status = ?, updated_at = ?
				WHERE id = ?`, to, formatTime(now), id)
		}
		result = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevertAll marks every listed entry reverted, atomically: a rewind is one
// event even though it touches many entries, so either all transition or
// none do.
func (s *Store) RevertAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithTx(func(tx *sql.Tx) error {
		now := formatTime(time.Now().UTC())
		for _, id := range ids {
			row := tx.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
			e, err := scanEntry(row)
			if err == sql.ErrNoRows {
				return skgerrors.New(skgerrors.LedgerEntryNotFound, "ledger entry "+id)
			}
			if err != nil {
				return err
			}
			if err := checkTransition(e.ID, e.Status, StatusReverted); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE ledger_entries SET status = ?, updated_at = ?
				WHERE id = ?`, StatusReverted, now, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Uncommitted returns every entry on a branch that is neither committed nor
// reverted, oldest first.
func (s *Store) Uncommitted(ctx context.Context, branch string) ([]Entry, error) {
	rows, err := s.db.Conn().QueryContext(ctx, selectEntry+`
		WHERE branch = ? AND status NOT IN (?, ?)
		ORDER BY created_at, id`, branch, StatusCommitted, StatusReverted)
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.StorageUnavailable, "query uncommitted", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MaxTimelineBranch returns the highest timeline_branch used on a branch,
// 0 if the branch has no entries. A rewind allocates the next fork number
// from this.
func (s *Store) MaxTimelineBranch(ctx context.Context, branch string) (int, error) {
	var max int
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT COALESCE(MAX(timeline_branch), 0) FROM ledger_entries
		WHERE branch = ?`, branch).Scan(&max)
	if err != nil {
		return 0, skgerrors.Wrap(skgerrors.StorageUnavailable, "query max timeline branch", err)
	}
	return max, nil
}

// List returns a chronological page of entries matching the filter.
// Pagination is keyset-based on (created_at, id), so pages stay stable
// under interleaved appends.
func (s *Store) List(ctx context.Context, f Filter) (*Page, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := selectEntry + ` WHERE 1=1`
	var queryArgs []interface{}
	if f.Branch != "" {
		query += ` AND branch = ?`
		queryArgs = append(queryArgs, f.Branch)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		queryArgs = append(queryArgs, f.Status)
	}
	if f.UserID != "" {
		query += ` AND user_id = ?`
		queryArgs = append(queryArgs, f.UserID)
	}
	if f.Cursor != "" {
		createdAt, id, err := decodeCursor(f.Cursor)
		if err != nil {
			return nil, err
		}
		query += ` AND (created_at > ? OR (created_at = ? AND id > ?))`
		queryArgs = append(queryArgs, createdAt, createdAt, id)
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	queryArgs = append(queryArgs, limit+1)

	rows, err := s.db.Conn().QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.StorageUnavailable, "list ledger entries", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	page.Entries = entries
	return page, nil
}

const selectEntry = `
	SELECT id, branch, timeline_branch, status, user_id, prompt, diff,
	       entity_refs, parent_id, rewound_from, created_at, validated_at, updated_at
	FROM ledger_entries`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                    Entry
		prompt, diff         []byte
		entityRefs           string
		parentID, rewound    sql.NullString
		createdAt, updatedAt string
		validatedAt          sql.NullString
	)
	err := row.Scan(&e.ID, &e.Branch, &e.TimelineBranch, &e.Status, &e.UserID,
		&prompt, &diff, &entityRefs, &parentID, &rewound,
		&createdAt, &validatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if e.Prompt, err = decompressPayload(prompt); err != nil {
		return nil, err
	}
	if e.Diff, err = decompressPayload(diff); err != nil {
		return nil, err
	}
	if entityRefs != "" {
		e.EntityRefs = strings.Split(entityRefs, ",")
	}
	e.ParentID = parentID.String
	e.RewoundFrom = rewound.String
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if validatedAt.Valid {
		t, err := parseTime(validatedAt.String)
		if err != nil {
			return nil, err
		}
		e.ValidatedAt = &t
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, skgerrors.Wrap(skgerrors.StorageUnavailable, "scan ledger entry", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func encodeCursor(createdAt time.Time, id string) string {
	raw := formatTime(createdAt) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (createdAt, id string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", skgerrors.New(skgerrors.ConfigInvalid, "malformed ledger cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return "", "", skgerrors.New(skgerrors.ConfigInvalid, "malformed ledger cursor")
	}
	return parts[0], parts[1], nil
}

// timeLayout is fixed-width (no trailing-zero truncation) so stored
// timestamps order lexicographically, which keyset pagination relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ledger timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
