// Package audit appends one forensic row per webhook invocation. Writes are
// best-effort: a failing audit store degrades to a slog dump and never
// propagates an error into the request path.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/relais/idgen"
	"github.com/hazyhaar/relais/state"
)

// DefaultTable is the audit table name when none is configured.
const DefaultTable = "notion_webhook_log"

// Row captures everything needed to replay one invocation: the extracted
// business fields (or N/A when extraction never ran), the overall run status,
// per-channel outcomes, the execution trace, and the raw inbound payload.
// Rows are write-once; nothing updates or deletes them.
type Row struct {
	ReceivedAt time.Time
	Company    string
	Status     string
	Assignee   string
	RunStatus  string
	Outcomes   string // newline-joined per-channel summaries
	Trace      string // newline-joined execution trace
	RawPayload string
	EventJSON  string
}

// Logger persists audit rows.
type Logger struct {
	db     *sql.DB
	table  string
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithIDGenerator sets a custom ID generator for row IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Logger) { l.newID = gen }
}

// NewLogger binds an audit Logger to an opened database. table may be empty,
// in which case DefaultTable is used.
func NewLogger(db *sql.DB, table string, logger *slog.Logger, opts ...Option) (*Logger, error) {
	if table == "" {
		table = DefaultTable
	}
	if !state.ValidIdent(table) {
		return nil, fmt.Errorf("audit: invalid table name %q", table)
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		db:     db,
		table:  table,
		newID:  idgen.Prefixed("aud_", idgen.Default),
		logger: logger,
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// ApplySchema creates the audit table if it does not exist.
func (l *Logger) ApplySchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id          TEXT PRIMARY KEY,
    received_at INTEGER NOT NULL,
    company     TEXT NOT NULL,
    status      TEXT NOT NULL,
    assignee    TEXT NOT NULL,
    run_status  TEXT NOT NULL,
    outcomes    TEXT NOT NULL DEFAULT '',
    trace       TEXT NOT NULL DEFAULT '',
    raw_payload TEXT NOT NULL DEFAULT '',
    event_json  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_%s_received ON %s(received_at DESC)`, l.table, l.table, l.table)
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("audit: apply schema: %w", err)
	}
	return nil
}

// Append inserts one row. On failure the row is dumped through slog instead —
// the non-persistent fallback trace — and the failure stops there.
func (l *Logger) Append(ctx context.Context, row Row) {
	q := fmt.Sprintf(`
INSERT INTO %s (id, received_at, company, status, assignee, run_status,
    outcomes, trace, raw_payload, event_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, l.table)
	_, err := l.db.ExecContext(ctx, q,
		l.newID(), row.ReceivedAt.UnixMilli(), row.Company, row.Status,
		row.Assignee, row.RunStatus, row.Outcomes, row.Trace,
		row.RawPayload, row.EventJSON)
	if err != nil {
		l.logger.Error("audit: append failed, dumping row",
			"error", err,
			"run_status", row.RunStatus,
			"company", row.Company,
			"outcomes", row.Outcomes,
			"trace", row.Trace)
	}
}

// CountRows returns the number of audit rows. Used by tests and the health
// endpoint.
func (l *Logger) CountRows(ctx context.Context) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, l.table)
	if err := l.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("audit: count: %w", err)
	}
	return n, nil
}
