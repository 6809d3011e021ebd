package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/httputil"
)

// knownResources maps URL path segments to commerce backend collections.
// Anything else 404s before touching the backend.
var knownResources = map[string]bool{
	upstream.ResourceOrders:     true,
	upstream.ResourceProducts:   true,
	upstream.ResourceCategories: true,
	upstream.ResourceVariants:   true,
	upstream.ResourceOffers:     true,
	upstream.ResourceCustomers:  true,
	upstream.ResourceReviews:    true,
	upstream.ResourceContacts:   true,
}

// mutableResources may be created or replaced through the generic CRUD
// passthrough. Orders and reviews change through their dedicated status and
// moderation endpoints; customers and contacts are read-only.
var mutableResources = map[string]bool{
	upstream.ResourceProducts:   true,
	upstream.ResourceCategories: true,
	upstream.ResourceVariants:   true,
	upstream.ResourceOffers:     true,
}

// deletableResources additionally admits review removal (spam cleanup).
var deletableResources = map[string]bool{
	upstream.ResourceProducts:   true,
	upstream.ResourceCategories: true,
	upstream.ResourceVariants:   true,
	upstream.ResourceOffers:     true,
	upstream.ResourceReviews:    true,
}

// reservedListParams are query parameters consumed by the listing controller;
// everything else is forwarded to the backend as a resource filter.
var reservedListParams = map[string]bool{
	"page":     true,
	"per_page": true,
	"q":        true,
	"ordering": true,
}

// ResourceHandler serves the resource collections: paged listing through the
// per-session listing controllers, and CRUD passthrough to the commerce
// backend with audit recording on every mutation.
type ResourceHandler struct {
	backend  *upstream.Client
	listings *listing.Registry
	audits   *audit.Recorder
	logger   *slog.Logger
}

// NewResourceHandler creates a new resource HTTP handler.
func NewResourceHandler(backend *upstream.Client, listings *listing.Registry, audits *audit.Recorder, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		backend:  backend,
		listings: listings,
		audits:   audits,
		logger:   logger,
	}
}

func (h *ResourceHandler) resource(w http.ResponseWriter, r *http.Request) (string, bool) {
	resource := chi.URLParam(r, "resource")
	if !knownResources[resource] {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "unknown resource: " + resource},
		})
		return "", false
	}
	return resource, true
}

func (h *ResourceHandler) mutable(w http.ResponseWriter, resource string, allowed map[string]bool) bool {
	if !allowed[resource] {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "resource is read-only: " + resource},
		})
		return false
	}
	return true
}

// List handles GET /api/v1/resources/{resource}
//
// page, per_page and ordering move the session's listing controller; q
// commits a search immediately (an explicit submit). Any other query
// parameter is forwarded to the backend as a filter.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())
	ctrl := h.listings.Get(sid, resource)

	query := r.URL.Query()
	filters := url.Values{}
	for key, values := range query {
		if !reservedListParams[key] {
			filters[key] = values
		}
	}
	ctrl.SetFilters(filters)

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		ctrl.SetPage(page)
	}
	if v := query.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		ctrl.SetPerPage(perPage)
	}
	if v := query.Get("ordering"); v != "" {
		ctrl.SetOrdering(v)
	}
	if query.Has("q") {
		ctrl.SetQuery(query.Get("q"))
		ctrl.FlushQuery()
	}

	snap, err := ctrl.Fetch(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// SearchRequest is the JSON request body for a debounced search keystroke.
type SearchRequest struct {
	Query string `json:"query"`
}

// Search handles POST /api/v1/resources/{resource}/search
//
// Records the keystroke and returns immediately; the query commits once the
// debounce window passes without another keystroke. The next List call serves
// the committed query.
func (h *ResourceHandler) Search(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	sid := auth.SessionIDFromContext(r.Context())
	h.listings.Get(sid, resource).SetQuery(req.Query)

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{
		"status": "pending",
	}})
}

// Refresh handles POST /api/v1/resources/{resource}/refresh
func (h *ResourceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())

	snap, err := h.listings.Get(sid, resource).Refresh(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// Get handles GET /api/v1/resources/{resource}/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var row json.RawMessage
	if err := h.backend.Get(r.Context(), sid, resource, id, &row); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// Create handles POST /api/v1/resources/{resource}
//
// The body is passed to the backend as-is, either as JSON or as
// multipart/form-data when the row carries a file (a product image); the
// backend owns per-resource validation, the console owns the audit trail.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok || !h.mutable(w, resource, mutableResources) {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())

	var row json.RawMessage
	if isMultipart(r) {
		fields, files, ok := h.readMultipart(w, r)
		if !ok {
			return
		}
		defer closeAttachments(files)
		if err := h.backend.CreateMultipart(r.Context(), sid, resource, fields, files, &row); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	} else {
		payload, ok := h.readPayload(w, r)
		if !ok {
			return
		}
		if err := h.backend.Create(r.Context(), sid, resource, payload, &row); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	h.listings.Invalidate(sid, resource)
	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionCreate, resource, rowID(row), nil)

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: row})
}

// Update handles PUT /api/v1/resources/{resource}/{id}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok || !h.mutable(w, resource, mutableResources) {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var row json.RawMessage
	if isMultipart(r) {
		fields, files, ok := h.readMultipart(w, r)
		if !ok {
			return
		}
		defer closeAttachments(files)
		if err := h.backend.UpdateMultipart(r.Context(), sid, resource, id, fields, files, &row); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	} else {
		payload, ok := h.readPayload(w, r)
		if !ok {
			return
		}
		if err := h.backend.Update(r.Context(), sid, resource, id, payload, &row); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	h.listings.Invalidate(sid, resource)
	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionUpdate, resource, id, nil)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// Delete handles DELETE /api/v1/resources/{resource}/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok || !h.mutable(w, resource, deletableResources) {
		return
	}
	sid := auth.SessionIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.backend.Delete(r.Context(), sid, resource, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.listings.Invalidate(sid, resource)
	h.audits.Record(r.Context(), sid, auth.AdminFromContext(r.Context()),
		domain.AuditActionDelete, resource, id, nil)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"status": "deleted",
	}})
}

// readPayload decodes the request body into a raw JSON document so it can be
// forwarded untouched.
func (h *ResourceHandler) readPayload(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "read request body: " + err.Error()},
		})
		return nil, false
	}
	if !json.Valid(body) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "request body is not valid JSON"},
		})
		return nil, false
	}
	return body, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readMultipart parses a multipart mutation body into plain form values and
// file attachments for the backend client.
func (h *ResourceHandler) readMultipart(w http.ResponseWriter, r *http.Request) (map[string]string, map[string]upstream.FileAttachment, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart body: " + err.Error()},
		})
		return nil, nil, false
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}

	files := make(map[string]upstream.FileAttachment, len(r.MultipartForm.File))
	for name, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			closeAttachments(files)
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "read multipart file " + name + ": " + err.Error()},
			})
			return nil, nil, false
		}
		files[name] = upstream.FileAttachment{Filename: headers[0].Filename, Content: f}
	}
	return fields, files, true
}

func closeAttachments(files map[string]upstream.FileAttachment) {
	for _, file := range files {
		if closer, ok := file.Content.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}

// rowID pulls the id out of a backend row for the audit trail.
func rowID(row json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(row, &probe); err != nil || probe.ID == nil {
		return ""
	}
	switch v := probe.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
