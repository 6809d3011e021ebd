package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/adminconsole/internal/session"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
	"github.com/utafrali/adminconsole/pkg/httpclient"
)

// Doer abstracts the HTTP transport so the client can run over a plain
// pooled client or a circuit-breaker-wrapped one.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// AuthFailureHook is invoked when the commerce backend rejects a session's
// token with 401 or 403. The hook owns the forced-logout sequence; the client
// only reports the rejection and still returns the error to the caller.
type AuthFailureHook func(ctx context.Context, sid string, status int)

// Client is the authenticated request client for the commerce backend. Every
// outbound call the console makes passes through it: it attaches the
// session's bearer token when one exists, reports authorization failures to
// the auth controller, and never retries on the caller's behalf.
type Client struct {
	http     Doer
	baseURL  *url.URL
	sessions *session.Store
	logger   *slog.Logger

	onAuthFailure AuthFailureHook
}

// New creates an upstream client rooted at baseURL.
func New(doer Doer, baseURL string, sessions *session.Store, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	return &Client{
		http:     doer,
		baseURL:  parsed,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// SetAuthFailureHook wires the forced-logout callback. Set once during
// application wiring, before any request is issued.
func (c *Client) SetAuthFailureHook(hook AuthFailureHook) {
	c.onAuthFailure = hook
}

// Request issues one HTTP call to the backend. sid identifies the console
// session whose token should be attached; an empty sid (or a session with no
// stored pair) sends the request anonymously, which is what the login
// endpoints need.
//
// Non-2xx responses come back as errors with the backend's message preserved;
// transport-level failures come back wrapped in ErrUnreachable so callers can
// tell "server said no" from "could not reach server". The response is
// returned unconsumed for 2xx statuses.
func (c *Client) Request(ctx context.Context, sid, method, path string, query url.Values, contentType string, body io.Reader) (*http.Response, error) {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if sid != "" {
		pair, err := c.sessions.Load(ctx, sid)
		if err != nil {
			return nil, err
		}
		if pair.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if isTransportError(err) {
			return nil, apperrors.Unreachable(err)
		}
		return nil, err
	}

	if httpclient.IsAuthFailure(resp.StatusCode) {
		authFailuresTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		if sid != "" && c.onAuthFailure != nil {
			c.onAuthFailure(ctx, sid, resp.StatusCode)
		}
		return nil, httpclient.ParseResponseError(resp, "commerce backend")
	}

	if resp.StatusCode >= 400 {
		return nil, httpclient.ParseResponseError(resp, "commerce backend")
	}

	return resp, nil
}

// isTransportError reports whether err means the backend could not be
// reached at all, as opposed to an application-level failure.
func isTransportError(err error) bool {
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	// The pooled client wraps dial failures in a plain fmt error.
	return strings.Contains(err.Error(), "connection refused")
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, sid, path string, query url.Values, out any) error {
	resp, err := c.Request(ctx, sid, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// sendJSON issues a request with a JSON body and optionally decodes the
// response into out (pass nil to discard it).
func (c *Client) sendJSON(ctx context.Context, sid, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = strings.NewReader(string(data))
	}

	resp, err := c.Request(ctx, sid, method, path, nil, "application/json", body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
