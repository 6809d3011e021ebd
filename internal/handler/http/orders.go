package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/validator"
)

// OrderHandler handles the order-specific endpoints that go beyond plain
// resource CRUD: fulfilment status changes and invoice downloads.
type OrderHandler struct {
	backend  *upstream.Client
	listings *listing.Registry
	audits   *audit.Recorder
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(backend *upstream.Client, listings *listing.Registry, audits *audit.Recorder, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		backend:  backend,
		listings: listings,
		audits:   audits,
		logger:   logger,
	}
}

// UpdateStatusRequest is the JSON request body for moving an order through
// fulfilment.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=placed confirmed packed shipped delivered canceled returned"`
}

// UpdateStatus handles PUT /api/v1/resources/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sid := auth.SessionIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.backend.UpdateOrderStatus(r.Context(), sid, id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.listings.Invalidate(sid, upstream.ResourceOrders)
	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionStatus, upstream.ResourceOrders, id,
		map[string]string{"status": req.Status})

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// Invoice handles GET /api/v1/resources/orders/{id}/invoice
//
// The invoice PDF is streamed through unchanged; the backend's content type
// and length are preserved.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sid := auth.SessionIDFromContext(r.Context())

	resp, err := h.backend.FetchInvoice(r.Context(), sid, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to stream invoice",
			slog.String("order_id", id),
			slog.String("error", err.Error()))
	}
}
