package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/pagination"
)

// AuditHandler exposes the audit trail browser.
type AuditHandler struct {
	audits *audit.Recorder
	logger *slog.Logger
}

// NewAuditHandler creates a new audit HTTP handler.
func NewAuditHandler(audits *audit.Recorder, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audits: audits,
		logger: logger,
	}
}

// List handles GET /api/v1/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		Page:    1,
		PerPage: 20,
	}

	query := r.URL.Query()
	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		filter.Page = page
	}
	if v := query.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > pagination.MaxPerPage {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		filter.PerPage = perPage
	}
	if v := query.Get("admin_id"); v != "" {
		filter.AdminID = &v
	}
	if v := query.Get("resource"); v != "" {
		filter.Resource = &v
	}
	if v := query.Get("action"); v != "" {
		filter.Action = &v
	}

	entries, total, err := h.audits.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(entries, total, pagination.Params{Page: filter.Page, PerPage: filter.PerPage}),
	})
}
