package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalid is an exported constant or variable used by the authentication engine.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is an exported constant or variable used by the authentication engine.
	ErrExpired = errors.New("token expired")
)

// DefaultLeeway is the clock-skew tolerance applied during verification
// when Config.Leeway is zero.
const DefaultLeeway = 30 * time.Second

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	// Leeway tolerates clock skew during verification. Zero applies
	// [DefaultLeeway]; any negative value disables leeway entirely.
	Leeway   time.Duration
	Denylist Denylist
}

// AccessClaims is the signed payload of an access token.
type AccessClaims struct {
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// RefreshClaims is the reduced payload of a refresh token. It binds the
// subject to a session and nothing else.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by authkit APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh TTL must be > 0")
	}
	if cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch {
	case cfg.Leeway == 0:
		cfg.Leeway = DefaultLeeway
	case cfg.Leeway < 0:
		cfg.Leeway = 0
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL describes the accessttl operation and its observable behavior.
//
// AccessTTL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL describes the refreshttl operation and its observable behavior.
//
// RefreshTTL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// GenerateAccess mints an access token for the subject with its role names
// and permission keys baked into the payload.
func (m *Manager) GenerateAccess(subject, email string, roles, permissions []string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := AccessClaims{
		Email:       email,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefresh mints a refresh token bound to the given session.
func (m *Manager) GenerateRefresh(subject, sessionID string) (string, error) {
	if subject == "" || sessionID == "" {
		return "", errors.New("subject and session id are required")
	}

	now := time.Now()
	claims := RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess describes the verifyaccess operation and its observable behavior.
//
// VerifyAccess may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// VerifyRefresh describes the verifyrefresh operation and its observable behavior.
//
// VerifyRefresh may return an error when input validation, dependency calls, or security checks fail.
// VerifyRefresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims) error {
	if tokenStr == "" {
		return ErrInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		// Collapse library errors to the two-kind taxonomy: expiry is the
		// only failure callers may treat differently from tampering.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}

// Revoke adds the token's JTI to the denylist for its remaining lifetime.
// With no denylist configured this is a no-op: tokens are short-lived by
// design and session deletion remains the primary invalidation path.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	if m.config.Denylist == nil {
		return nil
	}

	jti, expiresAt, err := m.identify(tokenStr)
	if err != nil {
		return err
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.config.Denylist.Revoke(ctx, jti, ttl)
}

// IsRevoked reports whether the token's JTI is present on the denylist.
func (m *Manager) IsRevoked(ctx context.Context, tokenStr string) (bool, error) {
	if m.config.Denylist == nil {
		return false, nil
	}

	jti, _, err := m.identify(tokenStr)
	if err != nil {
		return false, err
	}
	return m.config.Denylist.IsRevoked(ctx, jti)
}

func (m *Manager) identify(tokenStr string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return "", time.Time{}, err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalid
	}
	return claims.ID, claims.ExpiresAt.Time, nil
}
