package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/davrk/authkit/rbac"
)

// OAuthConfig parameterizes one external identity provider.
//
// OAuthConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type OAuthConfig struct {
	// Name is the strategy identifier the factory resolves ("google", ...).
	Name string

	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string

	// Users receives create-or-update upserts for remote profiles.
	Users UserRepository

	// DefaultRole is assigned to accounts provisioned via this provider.
	// Zero value falls back to [DefaultRole].
	DefaultRole rbac.Role

	// HTTPClient overrides the client used for the userinfo fetch. The token
	// exchange honors it through the oauth2 context. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	now func() time.Time
}

// OAuth runs the authorization-code flow against an external identity
// provider and maps its profile claims onto a local principal.
type OAuth struct {
	cfg    OAuthConfig
	oc     oauth2.Config
	client *http.Client
}

// NewOAuth describes the newoauth operation and its observable behavior.
//
// NewOAuth may return an error when input validation, dependency calls, or
// security checks fail.
func NewOAuth(cfg OAuthConfig) (*OAuth, error) {
	if cfg.Name == "" {
		return nil, errors.New("provider: oauth requires a name")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("provider: oauth requires client credentials")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, errors.New("provider: oauth requires auth, token, and userinfo endpoints")
	}
	if cfg.Users == nil {
		return nil, errors.New("provider: oauth requires a user repository")
	}
	if cfg.DefaultRole.Name == "" {
		cfg.DefaultRole = DefaultRole
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuth{
		cfg: cfg,
		oc: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		client: client,
	}, nil
}

// Name reports the strategy identifier.
func (o *OAuth) Name() string { return o.cfg.Name }

// AuthorizationURL builds the redirect URL for the authorization-code flow.
// The caller owns state generation and verification.
func (o *OAuth) AuthorizationURL(state string) string {
	return o.oc.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// AuthenticateWithCode exchanges the authorization code for tokens, fetches
// the remote profile, and upserts the matching local account. Codes are
// single-use upstream; a retry needs a fresh code.
func (o *OAuth) AuthenticateWithCode(ctx context.Context, code string) (rbac.Principal, error) {
	tok, err := o.oc.Exchange(o.httpContext(ctx), code)
	if err != nil {
		return rbac.Principal{}, o.classify(err)
	}
	info, err := o.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return rbac.Principal{}, err
	}
	return o.upsert(ctx, info)
}

// Authenticate treats Credentials.Password as the authorization code, letting
// the factory-resolved provider satisfy the common contract.
func (o *OAuth) Authenticate(ctx context.Context, creds Credentials) (rbac.Principal, error) {
	return o.AuthenticateWithCode(ctx, creds.Password)
}

// Register is not a separate step in the code flow: the remote provider owns
// the account, and first-time authentication provisions the local mapping.
func (o *OAuth) Register(ctx context.Context, reg Registration) (rbac.Principal, error) {
	return rbac.Principal{}, ErrNotSupported
}

// Refresh exchanges a provider refresh token at the token endpoint and
// re-fetches the profile.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (rbac.Principal, error) {
	if refreshToken == "" {
		return rbac.Principal{}, ErrInvalidCredentials
	}
	src := o.oc.TokenSource(o.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return rbac.Principal{}, o.classify(err)
	}
	info, err := o.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return rbac.Principal{}, err
	}
	return o.upsert(ctx, info)
}

// Logout has no provider-side teardown in the code flow.
func (o *OAuth) Logout(ctx context.Context, sessionID string) error { return nil }

// VerifyToken validates a provider access token by fetching the profile it
// authorizes.
func (o *OAuth) VerifyToken(ctx context.Context, token string) (rbac.Principal, error) {
	info, err := o.fetchUserInfo(ctx, token)
	if err != nil {
		return rbac.Principal{}, err
	}
	u, err := o.cfg.Users.FindByEmail(ctx, info.email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return rbac.Principal{}, ErrInvalidCredentials
		}
		return rbac.Principal{}, err
	}
	return u.Principal, nil
}

// userInfo is the normalized remote profile. Providers disagree on field
// names (sub vs id, picture vs avatar_url), so the raw claim map is folded
// down here.
type userInfo struct {
	subject  string
	email    string
	name     string
	username string
	avatar   string
}

func (o *OAuth) fetchUserInfo(ctx context.Context, accessToken string) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.UserInfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return userInfo{}, o.classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return userInfo{}, ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return userInfo{}, fmt.Errorf("%w: userinfo returned %d", ErrNetwork, resp.StatusCode)
	default:
		return userInfo{}, fmt.Errorf("provider: userinfo returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return userInfo{}, o.classify(err)
	}
	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return userInfo{}, fmt.Errorf("provider: decode userinfo: %w", err)
	}
	info := userInfo{
		subject:  firstClaim(claims, "sub", "id"),
		email:    strings.ToLower(firstClaim(claims, "email", "mail", "userPrincipalName")),
		name:     firstClaim(claims, "name", "displayName"),
		username: firstClaim(claims, "login", "preferred_username"),
		avatar:   firstClaim(claims, "picture", "avatar_url"),
	}
	if info.subject == "" && info.email == "" {
		return userInfo{}, fmt.Errorf("provider: userinfo carries neither subject nor email")
	}
	return info, nil
}

// upsert maps the remote profile to a local account: update when the email is
// known, provision with the default role when it is not.
func (o *OAuth) upsert(ctx context.Context, info userInfo) (rbac.Principal, error) {
	now := o.cfg.now().UTC()

	u, err := o.cfg.Users.FindByEmail(ctx, info.email)
	switch {
	case err == nil:
		if info.name != "" {
			u.Name = info.name
		}
		if info.avatar != "" {
			u.AvatarURL = info.avatar
		}
		u.EmailVerified = true
		u.UpdatedAt = now
		if err := o.cfg.Users.Update(ctx, u); err != nil {
			return rbac.Principal{}, err
		}
		return u.Principal, nil
	case errors.Is(err, ErrUserNotFound):
		created := &User{Principal: rbac.Principal{
			ID:            uuid.NewString(),
			Email:         info.email,
			Username:      info.username,
			Name:          info.name,
			AvatarURL:     info.avatar,
			Roles:         []rbac.Role{o.cfg.DefaultRole},
			EmailVerified: true,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}}
		if err := o.cfg.Users.Create(ctx, created); err != nil {
			return rbac.Principal{}, err
		}
		return created.Principal, nil
	default:
		return rbac.Principal{}, err
	}
}

// httpContext routes the oauth2 package's internal HTTP through the
// configured client.
func (o *OAuth) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.client)
}

// classify folds transport-level failures into [ErrNetwork] and upstream
// rejections into [ErrInvalidCredentials].
func (o *OAuth) classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return err
}

func firstClaim(claims map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// GitHub sends numeric ids.
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
