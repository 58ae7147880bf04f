package authkit

import (
	"errors"
	"time"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Features  FeaturesConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authkit APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	// Secret signs both token families. Minimum 32 bytes.
	Secret []byte
	// Algorithm selects the signing method. Only "HS256" is supported.
	Algorithm string
	// AccessTokenExpiry and RefreshTokenExpiry accept the compact expiry
	// grammar: "30s", "15m", "1h", "7d", or a bare integer of seconds.
	AccessTokenExpiry  string
	RefreshTokenExpiry string
	Issuer             string
	Audience           string
	// Leeway tolerates clock skew between issuer and verifier. Zero applies
	// the 30-second default; a negative value disables leeway.
	Leeway time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authkit APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// Cookie attributes are carried for the web layer; the engine never
	// writes cookies itself.
	CookieName     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string

	MaxAge           time.Duration
	InactivityWindow time.Duration
	// Rolling lets Update re-derive ExpiresAt instead of keeping the
	// absolute expiry fixed.
	Rolling         bool
	CleanupInterval time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authkit APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSymbols   bool
	// SaltRounds is the bcrypt cost.
	SaltRounds int
	// ResetTokenTTL bounds password reset token validity.
	ResetTokenTTL time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authkit APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled       bool
	Window        time.Duration
	MaxAttempts   int
	BlockDuration time.Duration
}

/*
====================================
FEATURE FLAGS
====================================
*/

// FeaturesConfig defines a public type used by authkit APIs.
//
// FeaturesConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FeaturesConfig struct {
	Registration    bool
	PasswordReset   bool
	EmailChange     bool
	MultipleDevices bool
	SocialLogin     bool
	SSOLogin        bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by authkit APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented default configuration. The JWT secret
// is intentionally empty and must be set before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Algorithm:          "HS256",
			AccessTokenExpiry:  "15m",
			RefreshTokenExpiry: "7d",
			Leeway:             30 * time.Second,
		},
		Session: SessionConfig{
			CookieName:      "authkit_session",
			CookieSecure:    true,
			CookieHTTPOnly:  true,
			CookieSameSite:  "lax",
			MaxAge:          24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Password: PasswordConfig{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
			RequireSymbols:   true,
			SaltRounds:       12,
			ResetTokenTTL:    time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Window:        15 * time.Minute,
			MaxAttempts:   5,
			BlockDuration: time.Hour,
		},
		Features: FeaturesConfig{
			Registration:    true,
			PasswordReset:   true,
			MultipleDevices: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.JWT.Algorithm != "" && c.JWT.Algorithm != "HS256" {
		return errors.New("unsupported jwt algorithm")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("session max age must be positive")
	}
	if c.Session.CleanupInterval < 0 {
		return errors.New("session cleanup interval must not be negative")
	}
	if c.Password.MinLength < 1 {
		return errors.New("password min length must be at least 1")
	}
	if c.Password.SaltRounds < 4 || c.Password.SaltRounds > 31 {
		return errors.New("password salt rounds out of bcrypt range")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 || c.RateLimit.MaxAttempts <= 0 {
			return errors.New("rate limit window and max attempts must be positive")
		}
		if c.RateLimit.BlockDuration <= 0 {
			return errors.New("rate limit block duration must be positive")
		}
	}
	return nil
}
