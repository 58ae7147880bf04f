package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davrk/authkit/password"
	"github.com/davrk/authkit/rbac"
)

// DefaultRole is assigned to locally registered accounts.
var DefaultRole = rbac.Role{
	ID:   "role-user",
	Name: "user",
	Permissions: []rbac.Permission{
		{Name: "profile:read", Resource: rbac.WildcardResource},
		{Name: "profile:write", Resource: rbac.WildcardResource},
	},
}

// LocalConfig wires the local strategy's collaborators.
//
// LocalConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type LocalConfig struct {
	Users  UserRepository
	Hasher *password.Hasher
	Policy *password.Policy

	// DefaultRole overrides the role assigned at registration. Zero value
	// falls back to [DefaultRole].
	DefaultRole rbac.Role

	now func() time.Time
}

// Local authenticates against a [UserRepository] using bcrypt hashes.
type Local struct {
	cfg LocalConfig
}

// NewLocal describes the newlocal operation and its observable behavior.
//
// NewLocal may return an error when input validation, dependency calls, or
// security checks fail.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Users == nil {
		return nil, errors.New("provider: local requires a user repository")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("provider: local requires a hasher")
	}
	if cfg.Policy == nil {
		return nil, errors.New("provider: local requires a password policy")
	}
	if cfg.DefaultRole.Name == "" {
		cfg.DefaultRole = DefaultRole
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Local{cfg: cfg}, nil
}

// Name reports the strategy identifier.
func (l *Local) Name() string { return "local" }

// Authenticate looks the account up by email (or username as fallback) and
// verifies the password against the stored hash. Lookup miss and hash
// mismatch return the same [ErrInvalidCredentials].
func (l *Local) Authenticate(ctx context.Context, creds Credentials) (rbac.Principal, error) {
	u, err := l.lookup(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a verify on a throwaway hash so the miss path costs the
			// same as a mismatch.
			l.cfg.Hasher.Verify(creds.Password, decoyHash)
			return rbac.Principal{}, ErrInvalidCredentials
		}
		return rbac.Principal{}, err
	}
	if !l.cfg.Hasher.Verify(creds.Password, u.PasswordHash) {
		return rbac.Principal{}, ErrInvalidCredentials
	}
	if !u.Active {
		return rbac.Principal{}, ErrAccountDisabled
	}
	return u.Principal, nil
}

// Register validates the password against policy, hashes it, and creates the
// account with the default role. Pre-existing emails are rejected.
func (l *Local) Register(ctx context.Context, reg Registration) (rbac.Principal, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" {
		return rbac.Principal{}, errors.New("provider: email is required")
	}
	if _, err := l.cfg.Users.FindByEmail(ctx, email); err == nil {
		return rbac.Principal{}, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return rbac.Principal{}, err
	}

	if res := l.cfg.Policy.Validate(reg.Password); !res.Valid {
		return rbac.Principal{}, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(res.Errors, "; "))
	}
	hash, err := l.cfg.Hasher.Hash(reg.Password)
	if err != nil {
		return rbac.Principal{}, err
	}

	now := l.cfg.now().UTC()
	u := &User{
		Principal: rbac.Principal{
			ID:        uuid.NewString(),
			Email:     email,
			Username:  reg.Username,
			Name:      strings.TrimSpace(reg.FirstName + " " + reg.LastName),
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Roles:     []rbac.Role{l.cfg.DefaultRole},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	if err := l.cfg.Users.Create(ctx, u); err != nil {
		return rbac.Principal{}, err
	}
	return u.Principal, nil
}

// Refresh is a pure JWT operation for local accounts; the Service handles it.
func (l *Local) Refresh(ctx context.Context, refreshToken string) (rbac.Principal, error) {
	return rbac.Principal{}, ErrNotSupported
}

// Logout has no provider-side state for local accounts.
func (l *Local) Logout(ctx context.Context, sessionID string) error { return nil }

// VerifyToken is a pure JWT operation for local accounts; the Service handles it.
func (l *Local) VerifyToken(ctx context.Context, token string) (rbac.Principal, error) {
	return rbac.Principal{}, ErrNotSupported
}

func (l *Local) lookup(ctx context.Context, creds Credentials) (*User, error) {
	if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
		return l.cfg.Users.FindByEmail(ctx, email)
	}
	if creds.Username != "" {
		return l.cfg.Users.FindByUsername(ctx, creds.Username)
	}
	return nil, ErrUserNotFound
}

// decoyHash is a bcrypt hash of an unguessable throwaway value, used to keep
// the unknown-account path timing-comparable to a real verify.
const decoyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
