package authkit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	internalaudit "github.com/davrk/authkit/internal/audit"
	"github.com/davrk/authkit/internal/rate"
	"github.com/davrk/authkit/password"
	"github.com/davrk/authkit/provider"
	"github.com/davrk/authkit/rbac"
	"github.com/davrk/authkit/session"
	"github.com/davrk/authkit/token"
)

// Service is the authentication orchestrator: it delegates identity
// establishment to a provider, then mints tokens, manages sessions, and
// publishes lifecycle events. Safe for concurrent use after [Builder.Build].
type Service struct {
	config Config

	users     UserRepository
	providers *provider.Factory
	local     *provider.Local
	tokens    *token.Manager
	sessions  session.Store
	hasher    *password.Hasher
	policy    *password.Policy
	reset     *password.ResetIssuer
	limiter   rate.Limiter
	bus       *internalaudit.Bus
	metrics   *Metrics

	closeOnce sync.Once
}

// Config returns a copy of the effective configuration.
func (s *Service) Config() Config {
	return cloneConfig(s.config)
}

// RateLimitPolicy exposes the configured policy. Enforcement of transport
// concerns (per-IP throttling at the edge) is the caller's job; the Service
// itself counts failed credential attempts per identifier.
func (s *Service) RateLimitPolicy() rate.Policy {
	return rate.Policy{
		Enabled:       s.config.RateLimit.Enabled,
		Window:        s.config.RateLimit.Window,
		MaxAttempts:   s.config.RateLimit.MaxAttempts,
		BlockDuration: s.config.RateLimit.BlockDuration,
	}
}

// Providers exposes the provider factory for OAuth redirect wiring
// (authorization URL construction lives on the concrete [provider.OAuth]).
func (s *Service) Providers() *provider.Factory {
	return s.providers
}

// Subscribe attaches a sink to the lifecycle event stream.
func (s *Service) Subscribe(sink EventSink) {
	s.bus.Subscribe(sink)
}

// Login authenticates local credentials and opens a session.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return s.login(ctx, s.local, creds)
}

// LoginWithProvider authenticates against a named strategy from the factory.
//
// LoginWithProvider may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) LoginWithProvider(ctx context.Context, providerName string, creds Credentials) (*AuthResult, error) {
	p, err := s.providers.Resolve(providerName)
	if err != nil {
		return nil, newError(CodeUnknownError, "unknown provider", err)
	}
	if !s.config.Features.SocialLogin && providerName != "local" {
		return nil, newError(CodePermissionDenied, "social login disabled", nil)
	}
	return s.login(ctx, p, creds)
}

func (s *Service) login(ctx context.Context, p provider.Provider, creds Credentials) (*AuthResult, error) {
	key := limiterKey(creds)
	if err := s.limiter.Check(ctx, key); err != nil {
		s.metrics.Inc(MetricLoginRateLimited)
		s.publish(ctx, Event{Type: EventLogin, Provider: p.Name(), Error: "rate limited"})
		return nil, normalizeError(err)
	}

	principal, err := p.Authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidCredentials) {
			// Failed attempts count against the window; infrastructure
			// errors do not.
			_ = s.limiter.Fail(ctx, key)
		}
		s.metrics.Inc(MetricLoginFailure)
		s.publish(ctx, Event{Type: EventLogin, Provider: p.Name(), Error: string(CodeOf(normalizeError(err)))})
		return nil, normalizeError(err)
	}
	_ = s.limiter.Reset(ctx, key)

	result, err := s.openSession(ctx, principal)
	if err != nil {
		s.metrics.Inc(MetricLoginFailure)
		return nil, normalizeError(err)
	}

	s.metrics.Inc(MetricLoginSuccess)
	s.publish(ctx, Event{
		Type:      EventLogin,
		UserID:    principal.ID,
		SessionID: result.SessionID,
		Provider:  p.Name(),
		Success:   true,
	})
	return result, nil
}

// Register creates a local account and, on success, logs the new principal in.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	if !s.config.Features.Registration {
		return nil, newError(CodePermissionDenied, "registration disabled", nil)
	}

	principal, err := s.local.Register(ctx, reg)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrUserExists):
			s.metrics.Inc(MetricRegisterDuplicate)
		case errors.Is(err, provider.ErrWeakPassword):
			s.metrics.Inc(MetricRegisterWeakPassword)
		}
		s.publish(ctx, Event{Type: EventRegister, Error: string(CodeOf(normalizeError(err)))})
		return nil, normalizeError(err)
	}

	result, err := s.openSession(ctx, principal)
	if err != nil {
		return nil, normalizeError(err)
	}

	s.metrics.Inc(MetricRegisterSuccess)
	s.publish(ctx, Event{
		Type:      EventRegister,
		UserID:    principal.ID,
		SessionID: result.SessionID,
		Provider:  s.local.Name(),
		Success:   true,
	})
	return result, nil
}

// RefreshSession exchanges a valid refresh token for a fresh token pair and
// revokes the presented token. The backing session must still exist and be
// valid; presenting an already-revoked refresh token deletes the session
// outright.
//
// RefreshSession may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		return nil, normalizeError(err)
	}
	if revoked, err := s.tokens.IsRevoked(ctx, refreshToken); err != nil {
		return nil, normalizeError(err)
	} else if revoked {
		// A revoked refresh token coming back means it leaked or is being
		// replayed; the session it points at is burned.
		s.metrics.Inc(MetricRefreshFailure)
		_ = s.sessions.Delete(ctx, claims.SessionID)
		s.publish(ctx, Event{Type: EventSessionExpire, SessionID: claims.SessionID, Error: string(CodeTokenInvalid)})
		return nil, newError(CodeTokenInvalid, "token revoked", nil)
	}

	sess, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, session.ErrNotFound) {
			return nil, newError(CodeSessionExpired, "session expired or revoked", err)
		}
		return nil, normalizeError(err)
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		return nil, normalizeError(err)
	}
	if !u.Active {
		return nil, newError(CodeAccountDisabled, "account disabled", nil)
	}

	access, refresh, expiresAt, err := s.mint(u.Principal, sess.ID)
	if err != nil {
		return nil, normalizeError(err)
	}

	sess.Snapshot = snapshotOf(u.Principal)
	sess.AccessToken = access
	sess.RefreshToken = refresh
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, normalizeError(err)
	}
	// The superseded refresh token must never mint a pair again.
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, normalizeError(err)
	}

	s.metrics.Inc(MetricRefreshSuccess)
	s.publish(ctx, Event{
		Type:      EventSessionRefresh,
		UserID:    u.ID,
		SessionID: sess.ID,
		Success:   true,
	})
	return &AuthResult{
		Principal:    u.Principal,
		SessionID:    sess.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout revokes the session's tokens and deletes the session.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Already gone; logout is idempotent.
			return nil
		}
		return normalizeError(err)
	}

	s.revokeTokens(ctx, sess)
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return normalizeError(err)
	}

	s.metrics.Inc(MetricLogout)
	s.publish(ctx, Event{
		Type:      EventLogout,
		UserID:    sess.UserID,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// VerifyToken checks an access token. Expired and malformed tokens come back
// as unauthenticated, never as an error, so middleware can branch uniformly.
func (s *Service) VerifyToken(ctx context.Context, accessToken string) VerifyResult {
	start := time.Now()
	defer func() { s.metrics.Observe(MetricVerifyLatency, time.Since(start)) }()

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return VerifyResult{}
	}
	if revoked, err := s.tokens.IsRevoked(ctx, accessToken); err != nil || revoked {
		return VerifyResult{}
	}

	return VerifyResult{
		Authenticated: true,
		Subject:       claims.Subject,
		Email:         claims.Email,
		Roles:         claims.Roles,
		Permissions:   claims.Permissions,
		ExpiresAt:     claims.ExpiresAt.Time,
	}
}

// RevokeSession tears one session down without the logout event.
//
// RevokeSession may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return normalizeError(err)
	}
	s.revokeTokens(ctx, sess)
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return normalizeError(err)
	}
	s.metrics.Inc(MetricSessionRevoked)
	return nil
}

// RevokeAllSessions tears down every session the principal holds and returns
// how many were removed.
//
// RevokeAllSessions may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return 0, normalizeError(err)
	}
	for _, sess := range sessions {
		s.revokeTokens(ctx, sess)
	}
	n, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, normalizeError(err)
	}
	s.metrics.Inc(MetricLogoutAll)
	return n, nil
}

// Sessions lists the principal's live sessions.
//
// Sessions may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Sessions(ctx context.Context, userID string) ([]*Session, error) {
	out, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, normalizeError(err)
	}
	return out, nil
}

// TouchSession refreshes the session's activity timestamp without extending
// its absolute expiry.
func (s *Service) TouchSession(ctx context.Context, sessionID string) bool {
	ok, err := s.sessions.Touch(ctx, sessionID)
	return err == nil && ok
}

// Cleanup sweeps expired sessions out of the store. The store also runs this
// on its own timer; the method exists for deterministic shutdown and tests.
//
// Cleanup may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	evicted, err := s.sessions.Cleanup(ctx)
	if err != nil {
		return 0, normalizeError(err)
	}
	return len(evicted), nil
}

// Stats reports session totals, metric counters, and dropped event count.
//
// Stats may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	sessStats, err := s.sessions.Stats(ctx)
	if err != nil {
		return Stats{}, normalizeError(err)
	}
	return Stats{
		Sessions: sessStats,
		Metrics:  s.metrics.Snapshot(),
		Dropped:  s.bus.Dropped(),
	}, nil
}

// MetricsSnapshot exposes the counter state for exporters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// EventsDropped reports lifecycle events discarded under backpressure.
func (s *Service) EventsDropped() uint64 {
	return s.bus.Dropped()
}

// Authorize evaluates a requirement against the principal carried by a valid
// access token. Verification failures surface as PERMISSION_DENIED.
//
// Authorize may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Authorize(ctx context.Context, accessToken string, req rbac.Requirement) (VerifyResult, error) {
	res := s.VerifyToken(ctx, accessToken)
	if !res.Authenticated {
		return VerifyResult{}, newError(CodePermissionDenied, "unauthenticated", nil)
	}
	if err := s.Evaluate(res, req); err != nil {
		return VerifyResult{}, err
	}
	return res, nil
}

// Evaluate checks a requirement set against an already verified token's
// principal.
//
// Evaluate may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) Evaluate(res VerifyResult, req rbac.Requirement) error {
	if !res.Authenticated {
		return newError(CodePermissionDenied, "unauthenticated", nil)
	}
	rctx := rbac.NewContext(principalFromClaims(res), req.Resource, "")
	if err := rctx.Evaluate(req); err != nil {
		return normalizeError(err)
	}
	return nil
}

// Close stops the session store's timer and drains the event bus.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.sessions.Stop()
		s.bus.Close()
	})
}

/* internal plumbing */

// openSession mints the token pair and persists the session.
func (s *Service) openSession(ctx context.Context, principal Principal) (*AuthResult, error) {
	sessionID := uuid.NewString()
	access, refresh, expiresAt, err := s.mint(principal, sessionID)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:           sessionID,
		UserID:       principal.ID,
		Snapshot:     snapshotOf(principal),
		AccessToken:  access,
		RefreshToken: refresh,
	}
	if !s.config.Features.MultipleDevices {
		// Single-device policy: a new login displaces existing sessions.
		if _, err := s.RevokeAllSessions(ctx, principal.ID); err != nil {
			return nil, err
		}
	}
	stored, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}

	s.metrics.Inc(MetricSessionCreated)
	return &AuthResult{
		Principal:    principal,
		SessionID:    stored.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) mint(principal Principal, sessionID string) (access, refresh string, expiresAt time.Time, err error) {
	access, err = s.tokens.GenerateAccess(principal.ID, principal.Email, rbac.RoleNames(principal), rbac.PermissionKeys(principal))
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, err = s.tokens.GenerateRefresh(principal.ID, sessionID)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, time.Now().Add(s.tokens.AccessTTL()), nil
}

// revokeTokens denylists both live tokens of a session. Best effort; an
// unreachable denylist must not block logout.
func (s *Service) revokeTokens(ctx context.Context, sess *session.Session) {
	if sess.AccessToken != "" {
		_ = s.tokens.Revoke(ctx, sess.AccessToken)
	}
	if sess.RefreshToken != "" {
		_ = s.tokens.Revoke(ctx, sess.RefreshToken)
	}
}

func (s *Service) publish(ctx context.Context, event Event) {
	s.bus.Publish(ctx, event)
}

// onSessionExpire is the store's eviction hook.
func (s *Service) onSessionExpire(sess session.Session) {
	s.metrics.Inc(MetricSessionExpired)
	s.publish(context.Background(), Event{
		Type:      EventSessionExpire,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Success:   true,
	})
}

func snapshotOf(principal Principal) session.Snapshot {
	return session.Snapshot{
		Email:       principal.Email,
		Name:        principal.Name,
		Roles:       rbac.RoleNames(principal),
		Permissions: rbac.PermissionKeys(principal),
	}
}

func principalFromClaims(res VerifyResult) Principal {
	perms := make([]rbac.Permission, 0, len(res.Permissions))
	for _, key := range res.Permissions {
		name, resource := splitPermissionKey(key)
		perms = append(perms, rbac.Permission{Name: name, Resource: resource})
	}
	roles := make([]rbac.Role, 0, len(res.Roles))
	for _, name := range res.Roles {
		roles = append(roles, rbac.Role{Name: name})
	}
	if len(roles) == 0 && len(perms) > 0 {
		roles = []rbac.Role{{Name: "token"}}
	}
	if len(roles) > 0 {
		// Token claims flatten the role->permission tree; hang every
		// permission off the first role so the pure predicates apply.
		roles[0].Permissions = perms
	}
	return Principal{ID: res.Subject, Email: res.Email, Roles: roles, Active: true}
}

func splitPermissionKey(key string) (name, resource string) {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func limiterKey(creds Credentials) string {
	if creds.Email != "" {
		return strings.ToLower(strings.TrimSpace(creds.Email))
	}
	return creds.Username
}
