// Package auth drives the console's two-step login flow and owns the
// lifecycle of console sessions: password submit, OTP verification, resend
// throttling, voluntary logout and backend-forced logout.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/event"
	"github.com/utafrali/adminconsole/internal/session"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
)

// otpPattern gates verification: only a complete six-digit code is ever sent
// upstream, so partial input never burns an attempt.
var otpPattern = regexp.MustCompile(`^\d{6}$`)

// Logout reasons carried on session-ended events.
const (
	ReasonLogout      = "logout"
	ReasonAuthFailure = "auth_failure"
)

// Backend is the slice of the commerce API the controller needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (challengeID string, err error)
	VerifyOTP(ctx context.Context, challengeID, otp string) (domain.CredentialPair, error)
	ResendOTP(ctx context.Context, challengeID string) error
	Logout(ctx context.Context, refreshToken string) error
}

// challenge tracks one in-flight login between password submit and OTP
// verification.
type challenge struct {
	email     string
	remember  bool
	createdAt time.Time
	lastSent  time.Time
}

// SessionInfo is what the console reports about an authenticated session.
type SessionInfo struct {
	Admin     domain.Admin `json:"admin"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// Controller implements the login flow. It is safe for concurrent use.
type Controller struct {
	backend  Backend
	sessions *session.Store
	events   *event.Publisher
	logger   *slog.Logger

	resendCooldown time.Duration
	challengeTTL   time.Duration

	mu         sync.Mutex
	challenges map[string]*challenge

	// forcedOut records sessions already torn down after a backend 401/403,
	// so a burst of concurrent rejections triggers exactly one teardown.
	forcedOut sync.Map

	nowFunc func() time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

// Config carries the controller's tunables.
type Config struct {
	ResendCooldown time.Duration
	ChallengeTTL   time.Duration
}

func NewController(backend Backend, sessions *session.Store, events *event.Publisher, cfg Config, logger *slog.Logger) *Controller {
	c := &Controller{
		backend:        backend,
		sessions:       sessions,
		events:         events,
		logger:         logger,
		resendCooldown: cfg.ResendCooldown,
		challengeTTL:   cfg.ChallengeTTL,
		challenges:     make(map[string]*challenge),
		nowFunc:        time.Now,
		done:           make(chan struct{}),
	}
	c.wg.Add(1)
	go c.reapChallenges()
	return c
}

// Submit sends the admin's credentials upstream and opens an OTP challenge.
// remember selects durable session storage once verification succeeds.
func (c *Controller) Submit(ctx context.Context, email, password string, remember bool) (string, error) {
	if email == "" || password == "" {
		return "", apperrors.InvalidInput("email and password are required")
	}

	challengeID, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return "", err
	}

	now := c.nowFunc()
	c.mu.Lock()
	c.challenges[challengeID] = &challenge{
		email:     email,
		remember:  remember,
		createdAt: now,
		lastSent:  now,
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "login challenge opened", slog.String("email", email))
	return challengeID, nil
}

// Verify exchanges a complete six-digit code for a credential pair and
// persists it under sid. Anything other than exactly six digits is rejected
// locally without an upstream call.
func (c *Controller) Verify(ctx context.Context, sid, challengeID, otp string) (domain.Admin, error) {
	if !otpPattern.MatchString(otp) {
		return domain.Admin{}, apperrors.InvalidInput("one-time code must be exactly 6 digits")
	}

	c.mu.Lock()
	ch, ok := c.challenges[challengeID]
	if ok && c.nowFunc().Sub(ch.createdAt) > c.challengeTTL {
		delete(c.challenges, challengeID)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return domain.Admin{}, apperrors.Unauthorized("login challenge expired, submit your credentials again")
	}

	pair, err := c.backend.VerifyOTP(ctx, challengeID, otp)
	if err != nil {
		return domain.Admin{}, err
	}

	if err := c.sessions.Save(ctx, sid, pair, ch.remember); err != nil {
		return domain.Admin{}, err
	}

	c.mu.Lock()
	delete(c.challenges, challengeID)
	c.mu.Unlock()
	// A fresh login makes the session eligible for forced logout again.
	c.forcedOut.Delete(sid)

	admin, err := pair.Profile()
	if err != nil {
		c.logger.WarnContext(ctx, "credential pair carried an unreadable admin profile",
			slog.String("error", err.Error()))
	}

	c.events.PublishSessionStarted(ctx, sid, admin.ID)
	c.logger.InfoContext(ctx, "admin session started",
		slog.String("admin_id", admin.ID),
		slog.Bool("durable", ch.remember))
	return admin, nil
}

// Resend requests a fresh one-time code for an open challenge, at most once
// per cooldown window.
func (c *Controller) Resend(ctx context.Context, challengeID string) error {
	now := c.nowFunc()

	c.mu.Lock()
	ch, ok := c.challenges[challengeID]
	if ok && now.Sub(ch.createdAt) > c.challengeTTL {
		delete(c.challenges, challengeID)
		ok = false
	}
	if !ok {
		c.mu.Unlock()
		return apperrors.Unauthorized("login challenge expired, submit your credentials again")
	}
	if wait := c.resendCooldown - now.Sub(ch.lastSent); wait > 0 {
		c.mu.Unlock()
		return apperrors.Conflict(fmt.Sprintf("wait %d seconds before requesting a new code", int(wait.Seconds()+0.999)))
	}
	prevSent := ch.lastSent
	ch.lastSent = now
	c.mu.Unlock()

	if err := c.backend.ResendOTP(ctx, challengeID); err != nil {
		// Roll the window back so the admin is not locked out by our failure.
		c.mu.Lock()
		if cur, still := c.challenges[challengeID]; still {
			cur.lastSent = prevSent
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Logout ends the session. The upstream token revocation is best effort; the
// local session is cleared no matter what.
func (c *Controller) Logout(ctx context.Context, sid string) error {
	pair, err := c.sessions.Load(ctx, sid)
	if err != nil {
		return err
	}
	if pair.Empty() {
		return nil
	}

	if err := c.backend.Logout(ctx, pair.RefreshToken); err != nil {
		c.logger.WarnContext(ctx, "upstream token revocation failed, clearing session anyway",
			slog.String("error", err.Error()))
	}

	if err := c.sessions.Clear(ctx, sid); err != nil {
		return err
	}

	admin, _ := pair.Profile()
	c.events.PublishSessionEnded(ctx, sid, admin.ID, ReasonLogout)
	c.logger.InfoContext(ctx, "admin session ended", slog.String("admin_id", admin.ID))
	return nil
}

// ForcedLogout tears down a session the backend has rejected. Idempotent per
// session: concurrent 401s from parallel requests produce one teardown and
// one event.
func (c *Controller) ForcedLogout(ctx context.Context, sid string, status int) {
	if _, already := c.forcedOut.LoadOrStore(sid, struct{}{}); already {
		return
	}
	forcedLogoutsTotal.Inc()

	pair, err := c.sessions.Load(ctx, sid)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to load session during forced logout",
			slog.String("error", err.Error()))
	}
	if err := c.sessions.Clear(ctx, sid); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear session during forced logout",
			slog.String("error", err.Error()))
	}

	admin, _ := pair.Profile()
	c.events.PublishSessionEnded(ctx, sid, admin.ID, ReasonAuthFailure)
	c.logger.WarnContext(ctx, "session force-closed after backend rejection",
		slog.String("admin_id", admin.ID),
		slog.Int("status", status))
}

// Session reports who is logged in under sid, with the access token's expiry
// when the token carries one. The token is decoded, not verified: the
// commerce backend is the authority, the console only surfaces the claim.
func (c *Controller) Session(ctx context.Context, sid string) (SessionInfo, error) {
	pair, err := c.sessions.Load(ctx, sid)
	if err != nil {
		return SessionInfo{}, err
	}
	if pair.Empty() {
		return SessionInfo{}, apperrors.Unauthorized("not logged in")
	}

	admin, err := pair.Profile()
	if err != nil {
		return SessionInfo{}, apperrors.Internal(fmt.Errorf("decode stored admin profile: %w", err))
	}

	info := SessionInfo{Admin: admin}
	if exp := tokenExpiry(pair.AccessToken); exp != nil {
		info.ExpiresAt = exp
	}
	return info, nil
}

// tokenExpiry pulls the exp claim out of a JWT without verifying the
// signature. Returns nil when the token is opaque or carries no expiry.
func tokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time.UTC()
	return &t
}

// reapChallenges drops expired challenges so abandoned logins do not
// accumulate.
func (c *Controller) reapChallenges() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := c.nowFunc().Add(-c.challengeTTL)
			c.mu.Lock()
			for id, ch := range c.challenges {
				if ch.createdAt.Before(cutoff) {
					delete(c.challenges, id)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the background challenge reaper.
func (c *Controller) Close() {
	close(c.done)
	c.wg.Wait()
}
