package authkit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	internalaudit "github.com/davrk/authkit/internal/audit"
	"github.com/davrk/authkit/provider"
	"github.com/davrk/authkit/rbac"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, mutate func(*Config)) (*Service, *provider.MemoryRepository) {
	t.Helper()

	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	// Min bcrypt cost keeps the test suite fast.
	cfg.Password.SaltRounds = 4
	if mutate != nil {
		mutate(&cfg)
	}

	repo := provider.NewMemoryRepository()
	svc, err := New().
		WithConfig(cfg).
		WithUserRepository(repo).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, repo
}

func register(t *testing.T, svc *Service, email, pw string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), Registration{Email: email, Password: pw})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	register(t, svc, "a@x.com", "Str0ng!Pass")

	res, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiresAt must be in the future: %v", res.ExpiresAt)
	}
	if res.SessionID == "" || res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("incomplete auth result: %+v", res)
	}

	verify := svc.VerifyToken(ctx, res.AccessToken)
	if !verify.Authenticated {
		t.Fatalf("fresh access token must verify")
	}
	if verify.Email != "a@x.com" {
		t.Fatalf("claims email: %q", verify.Email)
	}
}

func TestRegisterWeakPasswordRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Register(context.Background(), Registration{Email: "a@x.com", Password: "abc"})
	if CodeOf(err) != CodeWeakPassword {
		t.Fatalf("expected WEAK_PASSWORD, got %v", err)
	}

	// The structured validator reports every violated rule at once.
	if res := svc.ValidatePassword("abc"); res.Valid || len(res.Errors) == 0 {
		t.Fatalf("expected invalid result with errors, got %+v", res)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Str0ng!Pass")

	// Wrong password and unknown account carry the same code.
	_, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "WrongPass1!"})
	if CodeOf(err) != CodeInvalidCredentials {
		t.Fatalf("wrong password: %v", err)
	}
	_, err = svc.Login(ctx, Credentials{Email: "ghost@x.com", Password: "WrongPass1!"})
	if CodeOf(err) != CodeInvalidCredentials {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *Config) {
		cfg.RateLimit.MaxAttempts = 3
	})
	ctx := context.Background()
	register(t, svc, "a@x.com", "Str0ng!Pass")

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "WrongPass1!"}); CodeOf(err) != CodeInvalidCredentials {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	// Budget exhausted: even the correct password is refused now.
	if _, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "Str0ng!Pass"}); CodeOf(err) != CodeRateLimitExceeded {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestRefreshSession(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	first := register(t, svc, "a@x.com", "Str0ng!Pass")

	res, err := svc.RefreshSession(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.SessionID != first.SessionID {
		t.Fatalf("refresh must keep the session: %q vs %q", res.SessionID, first.SessionID)
	}
	if !svc.VerifyToken(ctx, res.AccessToken).Authenticated {
		t.Fatalf("refreshed access token must verify")
	}

	if _, err := svc.RefreshSession(ctx, "not.a.token"); CodeOf(err) != CodeTokenInvalid {
		t.Fatalf("malformed refresh token: %v", err)
	}
}

func TestRefreshRotationRevokesOldToken(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	first := register(t, svc, "a@x.com", "Str0ng!Pass")

	second, err := svc.RefreshSession(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The superseded token is dead, and replaying it burns the session.
	if _, err := svc.RefreshSession(ctx, first.RefreshToken); CodeOf(err) != CodeTokenInvalid {
		t.Fatalf("replayed refresh token must be rejected, got %v", err)
	}
	if _, err := svc.RefreshSession(ctx, second.RefreshToken); CodeOf(err) != CodeSessionExpired {
		t.Fatalf("session must be gone after replay, got %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	res := register(t, svc, "a@x.com", "Str0ng!Pass")

	if err := svc.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.VerifyToken(ctx, res.AccessToken).Authenticated {
		t.Fatalf("access token must be revoked after logout")
	}
	if _, err := svc.RefreshSession(ctx, res.RefreshToken); err == nil {
		t.Fatalf("refresh must fail after logout")
	}

	// Idempotent: the session is already gone.
	if err := svc.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	first := register(t, svc, "a@x.com", "Str0ng!Pass")
	second, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := svc.ChangePassword(ctx, first.Principal.ID, "Str0ng!Pass", "N3w!Passphrase"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	sessions, err := svc.Sessions(ctx, first.Principal.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected all sessions revoked, %d remain", len(sessions))
	}
	for name, tok := range map[string]string{"first": first.AccessToken, "second": second.AccessToken} {
		if svc.VerifyToken(ctx, tok).Authenticated {
			t.Fatalf("%s access token still verifies after password change", name)
		}
	}

	if _, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "Str0ng!Pass"}); CodeOf(err) != CodeInvalidCredentials {
		t.Fatalf("old password must be rejected: %v", err)
	}
	if _, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "N3w!Passphrase"}); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	res := register(t, svc, "a@x.com", "Str0ng!Pass")

	err := svc.ChangePassword(ctx, res.Principal.ID, "WrongPass1!", "N3w!Passphrase")
	if CodeOf(err) != CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
	err = svc.ChangePassword(ctx, res.Principal.ID, "Str0ng!Pass", "weak")
	if CodeOf(err) != CodeWeakPassword {
		t.Fatalf("expected WEAK_PASSWORD, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	res := register(t, svc, "a@x.com", "Str0ng!Pass")

	// Unknown accounts get the same nil error and an empty token.
	tok, err := svc.RequestPasswordReset(ctx, "ghost@x.com")
	if err != nil || tok != "" {
		t.Fatalf("unknown account must stay hidden: %q %v", tok, err)
	}

	tok, err = svc.RequestPasswordReset(ctx, "a@x.com")
	if err != nil || tok == "" {
		t.Fatalf("reset request: %q %v", tok, err)
	}

	if err := svc.ConfirmPasswordReset(ctx, tok, "N3w!Passphrase"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Login(ctx, Credentials{Email: "a@x.com", Password: "N3w!Passphrase"}); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	// Sessions issued before the reset are gone.
	if svc.VerifyToken(ctx, res.AccessToken).Authenticated {
		t.Fatalf("pre-reset access token still verifies")
	}

	if err := svc.ConfirmPasswordReset(ctx, "garbage", "N3w!Passphrase"); CodeOf(err) != CodeTokenInvalid {
		t.Fatalf("garbage token: %v", err)
	}
}

func TestPasswordResetTokenBoundToAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	victim := register(t, svc, "victim@x.com", "Str0ng!Pass")
	register(t, svc, "attacker@x.com", "Str0ng!Pass")

	tok, err := svc.RequestPasswordReset(ctx, "attacker@x.com")
	if err != nil || tok == "" {
		t.Fatalf("reset request: %q %v", tok, err)
	}

	// Grafting another account's id onto a valid token must not reset
	// that account's password.
	_, rest, ok := strings.Cut(tok, ".")
	if !ok {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	grafted := victim.Principal.ID + "." + rest

	if err := svc.ConfirmPasswordReset(ctx, grafted, "Attacker-Ch0sen!"); CodeOf(err) != CodeTokenInvalid {
		t.Fatalf("grafted token must be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, Credentials{Email: "victim@x.com", Password: "Str0ng!Pass"}); err != nil {
		t.Fatalf("victim password must be untouched: %v", err)
	}
}

func TestExpiredSessionLazilyEvicted(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *Config) {
		cfg.Session.MaxAge = 40 * time.Millisecond
	})
	ctx := context.Background()
	res := register(t, svc, "a@x.com", "Str0ng!Pass")

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sessions.Total != 1 {
		t.Fatalf("expected 1 session, got %d", stats.Sessions.Total)
	}

	time.Sleep(60 * time.Millisecond)

	sessions, err := svc.Sessions(ctx, res.Principal.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expired session must be lazily evicted")
	}
	stats, _ = svc.Stats(ctx)
	if stats.Sessions.Total != 0 {
		t.Fatalf("stats must decrement after eviction, got %d", stats.Sessions.Total)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Str0ng!Pass")

	if _, err := svc.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	before, _ := svc.Stats(ctx)
	if _, err := svc.Cleanup(ctx); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	after, _ := svc.Stats(ctx)
	if before.Sessions != after.Sessions {
		t.Fatalf("cleanup with nothing expired must not change stats: %+v vs %+v", before.Sessions, after.Sessions)
	}
}

func TestAuthorize(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	res := register(t, svc, "a@x.com", "Str0ng!Pass")

	if _, err := svc.Authorize(ctx, res.AccessToken, rbac.Requirement{Roles: []string{"user"}}); err != nil {
		t.Fatalf("role requirement: %v", err)
	}
	if _, err := svc.Authorize(ctx, res.AccessToken, rbac.Requirement{Permissions: []string{"profile:read"}, Resource: "projects"}); err != nil {
		t.Fatalf("wildcard permission requirement: %v", err)
	}
	if _, err := svc.Authorize(ctx, res.AccessToken, rbac.Requirement{Roles: []string{"admin"}}); CodeOf(err) != CodePermissionDenied {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
	if _, err := svc.Authorize(ctx, "bogus", rbac.Requirement{}); CodeOf(err) != CodePermissionDenied {
		t.Fatalf("unauthenticated token: %v", err)
	}
}

func TestLifecycleEvents(t *testing.T) {
	sink := internalaudit.NewChannelSink(16)
	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.SaltRounds = 4
	cfg.Audit.DropIfFull = false

	repo := provider.NewMemoryRepository()
	svc, err := New().
		WithConfig(cfg).
		WithUserRepository(repo).
		WithEventSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res := register(t, svc, "a@x.com", "Str0ng!Pass")
	if err := svc.Logout(context.Background(), res.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	svc.Close()

	var types []string
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		types = append(types, ev.Type)
		if ev.ID == "" {
			t.Fatalf("event without id: %+v", ev)
		}
	}
	want := []string{EventRegister, EventLogout}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}

func TestSharedBuilderRejectsReuse(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	b := New().WithConfig(cfg).WithUserRepository(provider.NewMemoryRepository())
	svc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer svc.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("second build must fail")
	}
}

func TestBuildValidation(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatalf("missing user repository must fail")
	}

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("short")
	_, err := New().WithConfig(cfg).WithUserRepository(provider.NewMemoryRepository()).Build()
	if err == nil {
		t.Fatalf("short secret must fail")
	}
}

func TestNormalizeErrorWrapsUnknown(t *testing.T) {
	err := normalizeError(errors.New("boom"))
	if err.Code != CodeUnknownError {
		t.Fatalf("expected UNKNOWN_ERROR, got %s", err.Code)
	}
	if err.Timestamp.IsZero() {
		t.Fatalf("timestamp not stamped")
	}
	if got := normalizeError(err); got != err {
		t.Fatalf("already tagged errors must pass through")
	}
}
