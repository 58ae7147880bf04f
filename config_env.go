package authkit

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv builds a Config from AUTHKIT_* environment variables layered
// over the documented defaults. A .env file in the working directory is
// loaded first when present; real environment variables win over it.
//
// ConfigFromEnv may return an error when input validation, dependency calls, or security checks fail.
func ConfigFromEnv() (Config, error) {
	// Ignore a missing .env file; any other read error is surfaced.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if v := os.Getenv("AUTHKIT_JWT_SECRET"); v != "" {
		cfg.JWT.Secret = []byte(v)
	}
	setString(&cfg.JWT.AccessTokenExpiry, "AUTHKIT_JWT_ACCESS_EXPIRY")
	setString(&cfg.JWT.RefreshTokenExpiry, "AUTHKIT_JWT_REFRESH_EXPIRY")
	setString(&cfg.JWT.Issuer, "AUTHKIT_JWT_ISSUER")
	setString(&cfg.JWT.Audience, "AUTHKIT_JWT_AUDIENCE")

	setString(&cfg.Session.CookieName, "AUTHKIT_SESSION_COOKIE_NAME")
	if err := setBool(&cfg.Session.CookieSecure, "AUTHKIT_SESSION_COOKIE_SECURE"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.Session.MaxAge, "AUTHKIT_SESSION_MAX_AGE"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.Session.InactivityWindow, "AUTHKIT_SESSION_INACTIVITY_WINDOW"); err != nil {
		return Config{}, err
	}
	if err := setBool(&cfg.Session.Rolling, "AUTHKIT_SESSION_ROLLING"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.Session.CleanupInterval, "AUTHKIT_SESSION_CLEANUP_INTERVAL"); err != nil {
		return Config{}, err
	}

	if err := setInt(&cfg.Password.MinLength, "AUTHKIT_PASSWORD_MIN_LENGTH"); err != nil {
		return Config{}, err
	}
	if err := setInt(&cfg.Password.SaltRounds, "AUTHKIT_PASSWORD_SALT_ROUNDS"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.Password.ResetTokenTTL, "AUTHKIT_PASSWORD_RESET_TTL"); err != nil {
		return Config{}, err
	}

	if err := setBool(&cfg.RateLimit.Enabled, "AUTHKIT_RATE_LIMIT_ENABLED"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.RateLimit.Window, "AUTHKIT_RATE_LIMIT_WINDOW"); err != nil {
		return Config{}, err
	}
	if err := setInt(&cfg.RateLimit.MaxAttempts, "AUTHKIT_RATE_LIMIT_MAX_ATTEMPTS"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.RateLimit.BlockDuration, "AUTHKIT_RATE_LIMIT_BLOCK_DURATION"); err != nil {
		return Config{}, err
	}

	if err := setBool(&cfg.Features.Registration, "AUTHKIT_FEATURE_REGISTRATION"); err != nil {
		return Config{}, err
	}
	if err := setBool(&cfg.Features.PasswordReset, "AUTHKIT_FEATURE_PASSWORD_RESET"); err != nil {
		return Config{}, err
	}
	if err := setBool(&cfg.Features.SocialLogin, "AUTHKIT_FEATURE_SOCIAL_LOGIN"); err != nil {
		return Config{}, err
	}

	if err := setBool(&cfg.Audit.Enabled, "AUTHKIT_AUDIT_ENABLED"); err != nil {
		return Config{}, err
	}
	if err := setBool(&cfg.Metrics.Enabled, "AUTHKIT_METRICS_ENABLED"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}
