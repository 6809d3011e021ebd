package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/session"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
	"github.com/utafrali/adminconsole/pkg/httpclient"
	"github.com/utafrali/adminconsole/pkg/logger"
	"github.com/utafrali/adminconsole/pkg/pagination"
)

func newTestClient(t *testing.T, backend *httptest.Server) (*Client, *session.Store) {
	t.Helper()
	sessions := session.NewStore(session.NewMemoryKV(), session.NewMemoryKV(), time.Hour)
	doer := httpclient.New(httpclient.NoRetryConfig(5 * time.Second))
	client, err := New(doer, backend.URL, sessions, logger.New("upstream-test", "error"))
	require.NoError(t, err)
	return client, sessions
}

func testParams() pagination.Params {
	return pagination.Params{Page: 1, PerPage: 20}
}

func saveSession(t *testing.T, sessions *session.Store, sid, access string) {
	t.Helper()
	pair := domain.CredentialPair{
		AccessToken:  access,
		RefreshToken: "refresh",
		Admin:        json.RawMessage(`{"id":"a-1"}`),
	}
	require.NoError(t, sessions.Save(context.Background(), sid, pair, false))
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"count":0}`))
	}))
	defer backend.Close()

	client, sessions := newTestClient(t, backend)
	saveSession(t, sessions, "sid-1", "token-abc")

	_, err := client.List(context.Background(), "sid-1", ResourceOrders, testParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-abc", gotAuth)
}

func TestClient_AnonymousWhenNoSession(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"session_id":"ch-1"}`))
	}))
	defer backend.Close()

	client, _ := newTestClient(t, backend)

	challengeID, err := client.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", challengeID)
	assert.Empty(t, gotAuth, "login must not carry a token")
}

func TestClient_AuthFailureInvokesHook(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer backend.Close()

	client, sessions := newTestClient(t, backend)
	saveSession(t, sessions, "sid-2", "stale-token")

	var hookCalls atomic.Int32
	var hookSID string
	var hookStatus int
	client.SetAuthFailureHook(func(ctx context.Context, sid string, status int) {
		hookCalls.Add(1)
		hookSID = sid
		hookStatus = status
	})

	_, err := client.List(context.Background(), "sid-2", ResourceOrders, testParams(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "the failing call still rejects for its caller")
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Equal(t, "sid-2", hookSID)
	assert.Equal(t, http.StatusUnauthorized, hookStatus)
}

func TestClient_ForbiddenAlsoInvokesHook(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"not allowed"}`))
	}))
	defer backend.Close()

	client, sessions := newTestClient(t, backend)
	saveSession(t, sessions, "sid-3", "tok")

	var hookCalls atomic.Int32
	client.SetAuthFailureHook(func(ctx context.Context, sid string, status int) {
		hookCalls.Add(1)
	})

	_, err := client.List(context.Background(), "sid-3", ResourceProducts, testParams(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestClient_OtherErrorsDoNotInvokeHook(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such order"}`))
	}))
	defer backend.Close()

	client, sessions := newTestClient(t, backend)
	saveSession(t, sessions, "sid-4", "tok")

	var hookCalls atomic.Int32
	client.SetAuthFailureHook(func(ctx context.Context, sid string, status int) {
		hookCalls.Add(1)
	})

	var order domain.Order
	err := client.Get(context.Background(), "sid-4", ResourceOrders, "missing", &order)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, int32(0), hookCalls.Load())
}

func TestClient_NetworkErrorIsUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // connection refused from here on

	client, _ := newTestClient(t, backend)

	_, err := client.List(context.Background(), "", ResourceOrders, testParams(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnreachable, "transport failures must be distinguishable from HTTP errors")
}

func TestClient_ValidationErrorMessagePreserved(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":{"price":["must be positive"]}}`))
	}))
	defer backend.Close()

	client, sessions := newTestClient(t, backend)
	saveSession(t, sessions, "sid-5", "tok")

	err := client.Create(context.Background(), "sid-5", ResourceProducts, map[string]string{"name": "x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "price: must be positive")
}

func TestClient_UpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the backend")
	}))
	defer backend.Close()

	client, _ := newTestClient(t, backend)

	_, err := client.UpdateOrderStatus(context.Background(), "sid", "ord-1", "teleported")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClient_ListSendsQueryParameters(t *testing.T) {
	var gotQuery map[string][]string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[],"count":0}`))
	}))
	defer backend.Close()

	client, _ := newTestClient(t, backend)

	params := testParams()
	params.Page = 3
	params.PerPage = 25
	params.Search = "widget"
	params.Ordering = "-created_at"

	_, err := client.List(context.Background(), "", ResourceProducts, params, url.Values{"category": {"cat-9"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, gotQuery["page"])
	assert.Equal(t, []string{"25"}, gotQuery["page_size"])
	assert.Equal(t, []string{"widget"}, gotQuery["search"])
	assert.Equal(t, []string{"-created_at"}, gotQuery["ordering"])
	assert.Equal(t, []string{"cat-9"}, gotQuery["category"])
}
