package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/session"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
	"github.com/utafrali/adminconsole/pkg/logger"
)

type stubBackend struct {
	mu          sync.Mutex
	loginCalls  int
	verifyCalls int
	resendCalls int
	logoutCalls int

	loginErr  error
	verifyErr error
	resendErr error
	logoutErr error

	challengeID string
	pair        domain.CredentialPair
}

func (b *stubBackend) Login(ctx context.Context, email, password string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginCalls++
	if b.loginErr != nil {
		return "", b.loginErr
	}
	return b.challengeID, nil
}

func (b *stubBackend) VerifyOTP(ctx context.Context, challengeID, otp string) (domain.CredentialPair, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyCalls++
	if b.verifyErr != nil {
		return domain.CredentialPair{}, b.verifyErr
	}
	return b.pair, nil
}

func (b *stubBackend) ResendOTP(ctx context.Context, challengeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resendCalls++
	return b.resendErr
}

func (b *stubBackend) Logout(ctx context.Context, refreshToken string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutCalls++
	return b.logoutErr
}

func (b *stubBackend) calls() (login, verify, resend, logout int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls, b.verifyCalls, b.resendCalls, b.logoutCalls
}

func testPair() domain.CredentialPair {
	return domain.CredentialPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Admin:        json.RawMessage(`{"id":"adm-1","name":"Asha","email":"asha@example.com","role":"admin"}`),
	}
}

func unverifiedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := token.SignedString([]byte("test-only"))
	require.NoError(t, err)
	return signed
}

func newTestController(t *testing.T, backend *stubBackend) (*Controller, *session.Store) {
	t.Helper()
	sessions := session.NewStore(session.NewMemoryKV(), session.NewMemoryKV(), time.Hour)
	ctrl := NewController(backend, sessions, nil, Config{
		ResendCooldown: 60 * time.Second,
		ChallengeTTL:   10 * time.Minute,
	}, logger.New("auth-test", "error"))
	t.Cleanup(ctrl.Close)
	return ctrl, sessions
}

func TestSubmitThenVerify_EstablishesSession(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, sessions := newTestController(t, backend)
	ctx := context.Background()

	challengeID, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	assert.Equal(t, "ch-1", challengeID)

	admin, err := ctrl.Verify(ctx, "sid-1", challengeID, "123456")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", admin.ID)

	pair, err := sessions.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "access-token", pair.AccessToken)
}

func TestVerify_RejectsIncompleteCode(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)

	for _, otp := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		_, err := ctrl.Verify(ctx, "sid-1", "ch-1", otp)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "otp %q must be rejected locally", otp)
	}

	_, verify, _, _ := backend.calls()
	assert.Equal(t, 0, verify, "incomplete codes must never reach the backend")
}

func TestVerify_UnknownChallenge(t *testing.T) {
	backend := &stubBackend{pair: testPair()}
	ctrl, _ := newTestController(t, backend)

	_, err := ctrl.Verify(context.Background(), "sid-1", "never-opened", "123456")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResend_CooldownWindow(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1"}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctrl.nowFunc = func() time.Time { return now }

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)

	// Inside the window: rejected without an upstream call.
	now = now.Add(30 * time.Second)
	err = ctrl.Resend(ctx, "ch-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "30 seconds")
	_, _, resend, _ := backend.calls()
	assert.Equal(t, 0, resend)

	// Window elapsed: goes through and re-arms the cooldown.
	now = now.Add(30 * time.Second)
	require.NoError(t, ctrl.Resend(ctx, "ch-1"))
	_, _, resend, _ = backend.calls()
	assert.Equal(t, 1, resend)

	now = now.Add(10 * time.Second)
	err = ctrl.Resend(ctx, "ch-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestResend_UpstreamFailureDoesNotBurnWindow(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", resendErr: apperrors.Unreachable(assert.AnError)}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctrl.nowFunc = func() time.Time { return now }

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)

	now = now.Add(61 * time.Second)
	err = ctrl.Resend(ctx, "ch-1")
	require.ErrorIs(t, err, apperrors.ErrUnreachable)

	// The failed attempt must not start a fresh cooldown.
	backend.mu.Lock()
	backend.resendErr = nil
	backend.mu.Unlock()
	now = now.Add(time.Second)
	require.NoError(t, ctrl.Resend(ctx, "ch-1"))
}

func TestLogout_BestEffortUpstream(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair(), logoutErr: apperrors.Unreachable(assert.AnError)}
	ctrl, sessions := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", true)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	// Upstream revocation fails; the local session still goes away.
	require.NoError(t, ctrl.Logout(ctx, "sid-1"))

	pair, err := sessions.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestLogout_NoSessionIsNoop(t *testing.T) {
	backend := &stubBackend{}
	ctrl, _ := newTestController(t, backend)

	require.NoError(t, ctrl.Logout(context.Background(), "never-logged-in"))
	_, _, _, logout := backend.calls()
	assert.Equal(t, 0, logout)
}

func TestForcedLogout_OncePerSession(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, sessions := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	// A burst of rejected requests all reporting at once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.ForcedLogout(ctx, "sid-1", http.StatusUnauthorized)
		}()
	}
	wg.Wait()

	pair, err := sessions.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	// Repeats after teardown stay no-ops.
	ctrl.ForcedLogout(ctx, "sid-1", http.StatusForbidden)
}

func TestForcedLogout_NewLoginReArms(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, sessions := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "a@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	ctrl.ForcedLogout(ctx, "sid-1", http.StatusUnauthorized)

	// Log back in under the same sid and get rejected again.
	_, err = ctrl.Submit(ctx, "a@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	ctrl.ForcedLogout(ctx, "sid-1", http.StatusUnauthorized)
	pair, err := sessions.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, pair.Empty(), "second forced logout must clear the re-established session")
}

func TestSession_ReportsProfileAndExpiry(t *testing.T) {
	// Signed with a key the controller does not hold: it must decode the exp
	// claim without verifying.
	pair := testPair()
	pair.AccessToken = unverifiedToken(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))

	backend := &stubBackend{challengeID: "ch-1", pair: pair}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	info, err := ctrl.Session(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", info.Admin.ID)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *info.ExpiresAt)
}

func TestSession_OpaqueTokenHasNoExpiry(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	info, err := ctrl.Session(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, info.ExpiresAt)
}

func TestSession_NotLoggedIn(t *testing.T) {
	ctrl, _ := newTestController(t, &stubBackend{})

	_, err := ctrl.Session(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGuard(t *testing.T) {
	backend := &stubBackend{challengeID: "ch-1", pair: testPair()}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-1", "ch-1", "123456")
	require.NoError(t, err)

	var sawSID string
	var sawAdmin string
	var handled atomic.Int32
	handler := ctrl.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled.Add(1)
		sawSID = SessionIDFromContext(r.Context())
		sawAdmin = logger.AdminIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set(HeaderSessionID, "sid-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "sid-1", sawSID)
		assert.Equal(t, "adm-1", sawAdmin)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set(HeaderSessionID, "sid-unknown")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	assert.Equal(t, int32(1), handled.Load())
}

func TestGuard_RejectsExpiredAccessToken(t *testing.T) {
	expired := testPair()
	expired.AccessToken = unverifiedToken(t, time.Now().Add(-time.Minute))
	backend := &stubBackend{challengeID: "ch-1", pair: expired}
	ctrl, _ := newTestController(t, backend)
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, "asha@example.com", "secret", false)
	require.NoError(t, err)
	_, err = ctrl.Verify(ctx, "sid-exp", "ch-1", "123456")
	require.NoError(t, err)

	handler := ctrl.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("expired session must not reach the handler")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set(HeaderSessionID, "sid-exp")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
