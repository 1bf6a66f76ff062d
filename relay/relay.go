// Package relay orchestrates one webhook invocation: parse, extract, diff
// against the remembered state, notify, persist, audit. Single pass, no
// retries — every external call happens at most once per invocation.
package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/relais/audit"
	"github.com/hazyhaar/relais/config"
	"github.com/hazyhaar/relais/notify"
	"github.com/hazyhaar/relais/notion"
	"github.com/hazyhaar/relais/state"
)

// RunStatus is the overall outcome of one invocation, as reported to the
// caller and recorded in the audit log.
type RunStatus string

const (
	StatusSuccess RunStatus = "成功"
	StatusPartial RunStatus = "一部エラー"
	StatusFatal   RunStatus = "致命的エラー"
)

// Result is the business-level response of one invocation. The HTTP layer
// serializes it verbatim; transport-level failure is not represented here.
type Result struct {
	Status  RunStatus `json:"status"`
	Message string    `json:"message"`
}

// naField fills audit columns when extraction never ran.
const naField = "N/A"

// Service wires the orchestrator to its collaborators. Construct once in
// main and share across requests; Handle itself is stateless between calls,
// all cross-invocation state lives in the Store.
type Service struct {
	cfg      *config.Config
	store    *state.Store
	auditor  *audit.Logger
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New builds a Service over an opened database and applies both schemas.
// This is the only stage allowed to fail fatally: without the database and
// its two tables nothing downstream can run.
func New(cfg *config.Config, db *sql.DB, client *http.Client, logger *slog.Logger) (*Service, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("relay: db_path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	st, err := state.NewStore(db, cfg.StateTable, logger)
	if err != nil {
		return nil, err
	}
	au, err := audit.NewLogger(db, cfg.AuditTable, logger)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := st.ApplySchema(ctx); err != nil {
		return nil, err
	}
	if err := au.ApplySchema(ctx); err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		auditor:  au,
		notifier: notify.NewNotifier(client, logger),
		logger:   logger,
	}, nil
}

// Handle processes one inbound webhook body to completion. Parse failures
// abort the business logic with a fatal status; everything after parsing
// only ever downgrades the status to partial. Exactly one audit row is
// written per call, whatever happened before it.
func (s *Service) Handle(ctx context.Context, body []byte) Result {
	tr := NewTrace(s.logger)
	row := audit.Row{
		ReceivedAt: time.Now(),
		Company:    naField,
		Status:     naField,
		Assignee:   naField,
		RawPayload: string(body),
	}

	ev, err := notion.ParseEvent(body)
	if err != nil {
		tr.Warnf("parse failed: %v", err)
		return s.finish(ctx, tr, row, Result{
			Status:  StatusFatal,
			Message: fmt.Sprintf("リクエストの解析に失敗しました: %v", err),
		}, nil)
	}
	tr.Logf("received update for page %s", ev.Data.ID)

	cur := notion.ExtractRecord(ev.Data)
	row.Company = cur.CompanyName
	row.Status = cur.Status
	row.Assignee = cur.Assignee
	if b, err := json.Marshal(ev.Data); err == nil {
		row.EventJSON = string(b)
	}

	partial := false

	prevRaw, found, err := s.store.GetPrevious(ctx, cur.ID)
	if err != nil {
		// Storage read failure downgrades the run but does not block it:
		// the page is handled as if never seen.
		tr.Warnf("state lookup failed, treating page as new: %v", err)
		partial = true
		found = false
	}
	var prev *notion.PageRecord
	if found {
		prev = notion.ExtractFromRaw(cur.ID, prevRaw)
		if prev == nil {
			tr.Warnf("stored properties undecodable, treating page as new")
		} else {
			tr.Logf("previous state found")
		}
	} else {
		tr.Logf("no previous state, first sighting")
	}

	var outcomes []notify.Outcome
	if notify.StatusWorthy(prev, cur) {
		msg := notify.ComposeStatus(prev, cur)
		oc := s.notifier.Send(ctx, "status", s.cfg.StatusWebhookURL, msg)
		tr.Logf("status channel: %s", oc.Status)
		outcomes = append(outcomes, oc)
	} else {
		tr.Logf("status/assignee unchanged, no notification")
	}
	if notify.LiaisonWorthy(prev, cur) {
		msg := notify.ComposeLiaison(prev, cur)
		oc := s.notifier.Send(ctx, "liaison", s.cfg.LiaisonWebhookURL, msg)
		tr.Logf("liaison channel: %s", oc.Status)
		outcomes = append(outcomes, oc)
	} else {
		tr.Logf("liaison status unchanged, no notification")
	}
	for _, oc := range outcomes {
		if oc.Status == notify.StatusSendError {
			partial = true
		}
	}

	// State is persisted regardless of notification outcome.
	props := json.RawMessage("{}")
	if ev.Data.Properties != nil {
		if b, err := json.Marshal(ev.Data.Properties); err == nil {
			props = b
		}
	}
	if err := s.store.Upsert(ctx, cur.ID, props); err != nil {
		tr.Warnf("state upsert failed: %v", err)
		partial = true
	} else {
		tr.Logf("state persisted")
	}

	res := Result{Status: StatusSuccess, Message: fmt.Sprintf("%d件の通知を処理しました", len(outcomes))}
	if partial {
		res = Result{Status: StatusPartial, Message: "一部の処理に失敗しました"}
	}
	return s.finish(ctx, tr, row, res, outcomes)
}

// finish writes the audit row and returns the result. Audit failures are
// swallowed inside the audit package; nothing here can fail.
func (s *Service) finish(ctx context.Context, tr *Trace, row audit.Row, res Result, outcomes []notify.Outcome) Result {
	row.RunStatus = string(res.Status)
	row.Trace = tr.Join()
	for i, oc := range outcomes {
		if i > 0 {
			row.Outcomes += "\n"
		}
		row.Outcomes += oc.Summary()
	}
	s.auditor.Append(ctx, row)
	return res
}

// Auditor exposes the audit logger for the health endpoint and tests.
func (s *Service) Auditor() *audit.Logger { return s.auditor }

// Store exposes the state store for the health endpoint and tests.
func (s *Service) Store() *state.Store { return s.store }
