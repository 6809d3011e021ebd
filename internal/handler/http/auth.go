package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/validator"
)

// AuthHandler handles the login flow endpoints.
type AuthHandler struct {
	auth     *auth.Controller
	listings *listing.Registry
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(ctrl *auth.Controller, listings *listing.Registry, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     ctrl,
		listings: listings,
		logger:   logger,
	}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for submitting credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// VerifyRequest is the JSON request body for submitting the one-time code.
type VerifyRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
}

// ResendRequest is the JSON request body for requesting a fresh code.
type ResendRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
}

// --- Handlers ---

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req LoginRequest
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

	challengeID, err := h.auth.Submit(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"challenge_id": challengeID,
	}})
}

// Verify handles POST /api/v1/auth/verify. A fresh console session ID is
// issued here: the credential pair is stored under it and the caller sends it
// back in X-Session-ID from then on.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req VerifyRequest
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

	sid := uuid.NewString()
	admin, err := h.auth.Verify(r.Context(), sid, req.ChallengeID, req.OTP)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"session_id": sid,
		"admin":      admin,
	}})
}

// Resend handles POST /api/v1/auth/resend
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ResendRequest
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

	if err := h.auth.Resend(r.Context(), req.ChallengeID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"status": "sent",
	}})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := auth.SessionIDFromContext(r.Context())

	if err := h.auth.Logout(r.Context(), sid); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.listings.DropSession(sid)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"status": "logged_out",
	}})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sid := auth.SessionIDFromContext(r.Context())

	info, err := h.auth.Session(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: info})
}
