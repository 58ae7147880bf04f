package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeIdP stands in for the remote identity provider: one token endpoint, one
// userinfo endpoint.
type fakeIdP struct {
	srv *httptest.Server

	tokenStatus    int
	userinfoStatus int
	userinfoBody   string
	delay          time.Duration
}

func newFakeIdP() *fakeIdP {
	f := &fakeIdP{
		tokenStatus:    http.StatusOK,
		userinfoStatus: http.StatusOK,
		userinfoBody:   `{"sub":"remote-1","email":"Dev@Example.com","name":"Dev Ops","picture":"https://img.example/p.png"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.userinfoStatus != http.StatusOK {
			w.WriteHeader(f.userinfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.userinfoBody))
	})
	f.srv = httptest.NewServer(mux)
	return f
}

func newTestOAuth(t *testing.T, idp *fakeIdP, repo UserRepository) *OAuth {
	t.Helper()
	p, err := NewOAuth(OAuthConfig{
		Name:         "google",
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthURL:      idp.srv.URL + "/auth",
		TokenURL:     idp.srv.URL + "/token",
		UserInfoURL:  idp.srv.URL + "/userinfo",
		RedirectURL:  "https://app.example/callback",
		Scopes:       []string{"openid", "email"},
		Users:        repo,
		HTTPClient:   idp.srv.Client(),
	})
	if err != nil {
		t.Fatalf("oauth: %v", err)
	}
	return p
}

func TestOAuthAuthorizationURL(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	p := newTestOAuth(t, idp, NewMemoryRepository())

	u := p.AuthorizationURL("state-123")
	for _, want := range []string{"client_id=cid", "state=state-123", "scope=openid+email", "response_type=code"} {
		if !strings.Contains(u, want) {
			t.Fatalf("authorization url missing %q: %s", want, u)
		}
	}
}

func TestOAuthCodeExchangeProvisionsAccount(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	repo := NewMemoryRepository()
	p := newTestOAuth(t, idp, repo)

	principal, err := p.AuthenticateWithCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if principal.Email != "dev@example.com" {
		t.Fatalf("email not normalized: %q", principal.Email)
	}
	if !principal.EmailVerified || !principal.Active {
		t.Fatalf("provisioned account should be verified and active")
	}
	if len(principal.Roles) != 1 || principal.Roles[0].Name != "user" {
		t.Fatalf("default role not assigned: %+v", principal.Roles)
	}

	stored, err := repo.FindByEmail(context.Background(), "dev@example.com")
	if err != nil {
		t.Fatalf("stored lookup: %v", err)
	}
	if stored.PasswordHash != "" {
		t.Fatalf("oauth accounts must not carry a password hash")
	}
}

func TestOAuthSecondLoginUpdatesProfile(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	repo := NewMemoryRepository()
	p := newTestOAuth(t, idp, repo)

	first, err := p.AuthenticateWithCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	idp.userinfoBody = `{"sub":"remote-1","email":"dev@example.com","name":"Renamed Dev"}`
	second, err := p.AuthenticateWithCode(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert must reuse the account: %q vs %q", second.ID, first.ID)
	}
	if second.Name != "Renamed Dev" {
		t.Fatalf("name not updated: %q", second.Name)
	}
}

func TestOAuthRefresh(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	p := newTestOAuth(t, idp, NewMemoryRepository())

	principal, err := p.Refresh(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if principal.Email != "dev@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if _, err := p.Refresh(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty refresh token: %v", err)
	}
}

func TestOAuthRejectedCode(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	idp.tokenStatus = http.StatusBadRequest
	p := newTestOAuth(t, idp, NewMemoryRepository())

	if _, err := p.AuthenticateWithCode(context.Background(), "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestOAuthUpstreamServerError(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	idp.tokenStatus = http.StatusBadGateway
	p := newTestOAuth(t, idp, NewMemoryRepository())

	if _, err := p.AuthenticateWithCode(context.Background(), "code"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestOAuthTimeoutSurfacesNetworkError(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	idp.delay = 200 * time.Millisecond
	p := newTestOAuth(t, idp, NewMemoryRepository())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.AuthenticateWithCode(ctx, "code"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork on timeout, got %v", err)
	}
}

func TestOAuthVerifyToken(t *testing.T) {
	idp := newFakeIdP()
	defer idp.srv.Close()
	repo := NewMemoryRepository()
	p := newTestOAuth(t, idp, repo)

	if _, err := p.AuthenticateWithCode(context.Background(), "code-1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := p.VerifyToken(context.Background(), "at-1"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	idp.userinfoStatus = http.StatusUnauthorized
	if _, err := p.VerifyToken(context.Background(), "stale"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFactoryPresets(t *testing.T) {
	f := NewFactory()
	repo := NewMemoryRepository()

	for _, name := range []string{"google", "github", "microsoft"} {
		if _, err := f.RegisterOAuth(name, OAuthCredentials{ClientID: "cid", ClientSecret: "cs"}, repo); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		p, err := f.Resolve(name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("name mismatch: %q", p.Name())
		}
	}

	if _, err := f.RegisterOAuth("gitlab", OAuthCredentials{ClientID: "c", ClientSecret: "s"}, repo); err == nil {
		t.Fatalf("expected unknown preset error")
	}
	if _, err := f.Resolve("nope"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if got := len(f.Names()); got != 3 {
		t.Fatalf("expected 3 registered providers, got %d", got)
	}
}
