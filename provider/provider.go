package provider

import (
	"context"
	"errors"

	"github.com/davrk/authkit/rbac"
)

// Sentinel errors returned by providers. The Service maps these to its
// public error codes.
var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match a known account.
	ErrInvalidCredentials = errors.New("provider: invalid credentials")
	// ErrUserNotFound is returned by repositories when no account matches.
	ErrUserNotFound = errors.New("provider: user not found")
	// ErrUserExists is returned by Register when the email is already taken.
	ErrUserExists = errors.New("provider: user already exists")
	// ErrAccountDisabled is returned when the account exists but is inactive.
	ErrAccountDisabled = errors.New("provider: account disabled")
	// ErrWeakPassword is returned by Register when the password fails policy.
	ErrWeakPassword = errors.New("provider: password does not meet policy")
	// ErrNotSupported is returned for operations a strategy cannot implement.
	ErrNotSupported = errors.New("provider: operation not supported")
	// ErrNetwork is returned when an upstream identity provider call times
	// out or fails at the transport level. Safe to retry, except code
	// exchange which needs a fresh code.
	ErrNetwork = errors.New("provider: upstream network failure")
)

// Credentials carries a local login attempt. Email is the primary key;
// Username is accepted as a fallback lookup.
type Credentials struct {
	Email    string
	Username string
	Password string
}

// Registration carries the input for local account creation. AcceptTerms
// records the caller-collected terms acknowledgement; the engine passes it
// through without enforcement.
type Registration struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	AcceptTerms bool
}

// User is the repository-level account record: the public principal plus the
// stored password hash. OAuth-provisioned accounts carry an empty hash.
type User struct {
	rbac.Principal
	PasswordHash string
}

// UserRepository is the persistence contract providers consume. Implementations
// return [ErrUserNotFound] (possibly wrapped) when no account matches.
//
// UserRepository instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, hash string) error
}

// Provider is the common strategy contract. A strategy returns
// [ErrNotSupported] from operations it cannot implement; the Service falls
// back to its own token and session machinery in that case.
type Provider interface {
	// Name identifies the strategy ("local", "google", ...).
	Name() string
	// Authenticate verifies credentials and returns the principal.
	Authenticate(ctx context.Context, creds Credentials) (rbac.Principal, error)
	// Register creates a new account and returns the principal.
	Register(ctx context.Context, reg Registration) (rbac.Principal, error)
	// Refresh exchanges a provider-issued refresh token for a fresh principal.
	Refresh(ctx context.Context, refreshToken string) (rbac.Principal, error)
	// Logout tears down provider-side state for the session, if any.
	Logout(ctx context.Context, sessionID string) error
	// VerifyToken validates a provider-issued access token.
	VerifyToken(ctx context.Context, token string) (rbac.Principal, error)
}
