package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/validator"
)

// ReviewHandler handles review moderation.
type ReviewHandler struct {
	backend  *upstream.Client
	listings *listing.Registry
	audits   *audit.Recorder
	logger   *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(backend *upstream.Client, listings *listing.Registry, audits *audit.Recorder, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		backend:  backend,
		listings: listings,
		audits:   audits,
		logger:   logger,
	}
}

// ModerateRequest is the JSON request body for a moderation decision.
type ModerateRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// Moderate handles POST /api/v1/resources/reviews/{id}/moderate
func (h *ReviewHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sid := auth.SessionIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ModerateRequest
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

	review, err := h.backend.ModerateReview(r.Context(), sid, id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.listings.Invalidate(sid, upstream.ResourceReviews)
	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionModerate, upstream.ResourceReviews, id,
		map[string]string{"status": req.Status})

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}
