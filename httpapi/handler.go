// Package httpapi exposes the relay over HTTP: one webhook route and a
// health probe. Business failure is carried in the JSON status field, not
// the HTTP status code — Notion only cares that the hook answered.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/relais/relay"
)

// NewRouter builds the chi router for the relay service. maxBody caps the
// inbound webhook body size in bytes.
func NewRouter(svc *relay.Service, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", healthHandler(svc))
	r.Post("/webhook/notion", webhookHandler(svc, maxBody))
	return r
}

func webhookHandler(svc *relay.Service, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			writeJSON(w, http.StatusOK, relay.Result{
				Status:  relay.StatusFatal,
				Message: "リクエストボディを読み込めませんでした",
			})
			return
		}
		res := svc.Handle(r.Context(), body)
		writeJSON(w, http.StatusOK, res)
	}
}

func healthHandler(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, err := svc.Store().Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "state store unavailable"})
			return
		}
		rows, err := svc.Auditor().CountRows(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audit log unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"pages":      pages,
			"audit_rows": rows,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
