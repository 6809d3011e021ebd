package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/validator"
)

// SettingsHandler handles the store-wide settings endpoints.
type SettingsHandler struct {
	backend *upstream.Client
	audits  *audit.Recorder
	logger  *slog.Logger
}

// NewSettingsHandler creates a new settings HTTP handler.
func NewSettingsHandler(backend *upstream.Client, audits *audit.Recorder, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		backend: backend,
		audits:  audits,
		logger:  logger,
	}
}

// UpdateSettingsRequest is the JSON request body for changing store settings.
type UpdateSettingsRequest struct {
	GSTRate       *float64 `json:"gst_rate" validate:"omitempty,gte=0,lte=100"`
	CourierCharge *float64 `json:"courier_charge" validate:"omitempty,gte=0"`
	StoreName     *string  `json:"store_name"`
	SupportEmail  *string  `json:"support_email" validate:"omitempty,email"`
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := auth.SessionIDFromContext(r.Context())

	settings, err := h.backend.GetSettings(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: settings})
}

// Update handles PUT /api/v1/settings
//
// Partial update: absent fields keep their current value, so changing the GST
// rate cannot silently zero the courier charge.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	sid := auth.SessionIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateSettingsRequest
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

	current, err := h.backend.GetSettings(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if req.GSTRate != nil {
		current.GSTRate = *req.GSTRate
	}
	if req.CourierCharge != nil {
		current.CourierCharge = *req.CourierCharge
	}
	if req.StoreName != nil {
		current.StoreName = *req.StoreName
	}
	if req.SupportEmail != nil {
		current.SupportEmail = *req.SupportEmail
	}

	updated, err := h.backend.UpdateSettings(r.Context(), sid, current)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionSettings, "settings", "", req)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: updated})
}
