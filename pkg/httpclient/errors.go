package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/adminconsole/pkg/errors"
)

// errorEnvelope covers the error body shapes the commerce backend is known to
// produce. The fields are tried in documented priority order: a structured
// {"error":{code,message}} object, then "message", then "detail", then the
// first entry of a field-keyed "errors" object.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string              `json:"message"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

// firstMessage extracts the most specific human-readable message from the
// envelope, or "" if none of the known keys is present.
func (e *errorEnvelope) firstMessage() (code, message string) {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Code, e.Error.Message
	}
	if e.Message != "" {
		return "", e.Message
	}
	if e.Detail != "" {
		return "", e.Detail
	}
	for field, msgs := range e.Errors {
		if len(msgs) > 0 {
			return "", fmt.Sprintf("%s: %s", field, msgs[0])
		}
	}
	return "", ""
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError that preserves the server's message and maps the status
// code. Unknown body shapes fall back to a generic error carrying the status
// and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var envelope errorEnvelope
	if json.Unmarshal(bodyBytes, &envelope) == nil {
		if code, message := envelope.firstMessage(); message != "" {
			return mapResponseError(resp.StatusCode, code, message, serviceName)
		}
	}

	// Fallback: unstructured error body.
	return mapResponseError(resp.StatusCode, "", strings.TrimSpace(string(bodyBytes)), serviceName)
}

// mapResponseError translates an HTTP status code and extracted message into
// an AppError so the caller's errors.Is/As checks keep working across the
// service boundary.
func mapResponseError(status int, code, message, serviceName string) error {
	qualifiedMsg := message
	if qualifiedMsg == "" {
		qualifiedMsg = fmt.Sprintf("%s returned status %d", serviceName, status)
	}

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "NOT_FOUND"),
			Message: qualifiedMsg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusUnauthorized:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "UNAUTHORIZED"),
			Message: qualifiedMsg,
			Status:  http.StatusUnauthorized,
			Err:     apperrors.ErrUnauthorized,
		}
	case status == http.StatusForbidden:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "FORBIDDEN"),
			Message: qualifiedMsg,
			Status:  http.StatusForbidden,
			Err:     apperrors.ErrForbidden,
		}
	case status == http.StatusConflict:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "CONFLICT"),
			Message: qualifiedMsg,
			Status:  http.StatusConflict,
			Err:     apperrors.ErrConflict,
		}
	case status >= 400 && status < 500:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "INVALID_INPUT"),
			Message: qualifiedMsg,
			Status:  status,
			Err:     apperrors.ErrInvalidInput,
		}
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    nonEmpty(code, "SERVICE_UNAVAILABLE"),
			Message: qualifiedMsg,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	default:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// IsAuthFailure returns true for the two status codes that must trigger the
// forced-logout sequence, and for no others.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
