// Package state persists the last-seen raw property blob per Notion page and
// owns the relay database file.
//
// The store is deliberately last-write-wins: concurrent invocations for the
// same page can both read the same previous snapshot and both write, and the
// later writer's row survives. There is no per-page lock; SQLite's WAL mode
// and busy_timeout serialize the row write itself, which bounds the damage to
// a lost update, never a corrupt row.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// DefaultTable is the state-history table name when none is configured.
const DefaultTable = "notion_page_state"

// identRe validates configurable table names before they are interpolated
// into SQL. Anything else is rejected at construction time.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is safe to use as a SQL identifier.
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}

// Store is the page-state history keyed by page id. One live row per page.
type Store struct {
	DB     *sql.DB
	table  string
	logger *slog.Logger
}

// NewStore binds a Store to an opened database. table may be empty, in which
// case DefaultTable is used.
func NewStore(db *sql.DB, table string, logger *slog.Logger) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !ValidIdent(table) {
		return nil, fmt.Errorf("state: invalid table name %q", table)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{DB: db, table: table, logger: logger}, nil
}

// ApplySchema creates the state table if it does not exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    page_id         TEXT PRIMARY KEY,
    properties_json TEXT NOT NULL,
    updated_at      INTEGER NOT NULL
)`, s.table)
	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("state: apply schema: %w", err)
	}
	return nil
}

// GetPrevious returns the last-seen raw properties for a page, or
// (nil, false) when the page has never been seen.
//
// Fail-open contract: a stored blob that no longer parses as JSON is treated
// exactly like "no previous state" — the parse failure is logged and the
// caller proceeds as if the page were new. A corrupted history entry must
// never block new notifications.
func (s *Store) GetPrevious(ctx context.Context, pageID string) (json.RawMessage, bool, error) {
	var blob string
	q := fmt.Sprintf(`SELECT properties_json FROM %s WHERE page_id = ?`, s.table)
	err := s.DB.QueryRowContext(ctx, q, pageID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: get previous: %w", err)
	}
	if !json.Valid([]byte(blob)) {
		s.logger.Warn("state: stored properties unparseable, treating as new page",
			"page_id", pageID, "len", len(blob))
		return nil, false, nil
	}
	return json.RawMessage(blob), true, nil
}

// Upsert records raw as the last-seen properties for a page. Inserts on
// first sighting, overwrites the payload in place afterwards. Rows are never
// deleted by the relay.
func (s *Store) Upsert(ctx context.Context, pageID string, raw json.RawMessage) error {
	q := fmt.Sprintf(`
INSERT INTO %s (page_id, properties_json, updated_at) VALUES (?, ?, ?)
ON CONFLICT(page_id) DO UPDATE SET
    properties_json = excluded.properties_json,
    updated_at      = excluded.updated_at`, s.table)
	if _, err := s.DB.ExecContext(ctx, q, pageID, string(raw), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("state: upsert %s: %w", pageID, err)
	}
	return nil
}

// Count returns the number of tracked pages. Used by tests and the health
// endpoint.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.DB.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("state: count: %w", err)
	}
	return n, nil
}
