package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/questlab/engagehub/internal/domain"
)

// AuditHandler serves the audit trail endpoints. The store is optional; an
// unconfigured deployment answers 503.
type AuditHandler struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler. audit may be nil.
func NewAuditHandler(audit domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// listAuditResponse wraps the audit listing response.
type listAuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ListEntries returns audit entries, newest first.
// GET /api/audit?limit=50&offset=0&since=RFC3339&until=RFC3339
func (h *AuditHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store not configured")
		return
	}

	opts := parseListOpts(r)
	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		opts.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp")
			return
		}
		opts.Until = &t
	}

	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("audit listing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, listAuditResponse{Entries: entries})
}
