package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/davrk/authkit/internal/rate"
	"github.com/davrk/authkit/provider"
	"github.com/davrk/authkit/rbac"
	"github.com/davrk/authkit/session"
	"github.com/davrk/authkit/token"
)

// Code tags every Service-boundary failure with its taxonomy kind.
//
// Code instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Code string

const (
	// CodeInvalidCredentials is an exported constant or variable used by the authentication engine.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	// CodeUserNotFound is an exported constant or variable used by the authentication engine.
	CodeUserNotFound Code = "USER_NOT_FOUND"
	// CodeUserAlreadyExists is an exported constant or variable used by the authentication engine.
	CodeUserAlreadyExists Code = "USER_ALREADY_EXISTS"
	// CodeEmailNotVerified is an exported constant or variable used by the authentication engine.
	CodeEmailNotVerified Code = "EMAIL_NOT_VERIFIED"
	// CodeAccountLocked is an exported constant or variable used by the authentication engine.
	CodeAccountLocked Code = "ACCOUNT_LOCKED"
	// CodeAccountDisabled is an exported constant or variable used by the authentication engine.
	CodeAccountDisabled Code = "ACCOUNT_DISABLED"
	// CodeTokenExpired is an exported constant or variable used by the authentication engine.
	CodeTokenExpired Code = "TOKEN_EXPIRED"
	// CodeTokenInvalid is an exported constant or variable used by the authentication engine.
	CodeTokenInvalid Code = "TOKEN_INVALID"
	// CodeSessionExpired is an exported constant or variable used by the authentication engine.
	CodeSessionExpired Code = "SESSION_EXPIRED"
	// CodeSessionInvalid is an exported constant or variable used by the authentication engine.
	CodeSessionInvalid Code = "SESSION_INVALID"
	// CodePermissionDenied is an exported constant or variable used by the authentication engine.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeRateLimitExceeded is an exported constant or variable used by the authentication engine.
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	// CodeWeakPassword is an exported constant or variable used by the authentication engine.
	CodeWeakPassword Code = "WEAK_PASSWORD"
	// CodeNetworkError is an exported constant or variable used by the authentication engine.
	CodeNetworkError Code = "NETWORK_ERROR"
	// CodeServerError is an exported constant or variable used by the authentication engine.
	CodeServerError Code = "SERVER_ERROR"
	// CodeUnknownError is an exported constant or variable used by the authentication engine.
	CodeUnknownError Code = "UNKNOWN_ERROR"
)

// Error is the single tagged error shape crossing the Service boundary.
// Callers never see raw lower-level errors.
//
// Error instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Error struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

// Error describes the error operation and its observable behavior.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches two Errors by code, so callers can branch with
// errors.Is(err, &Error{Code: CodeTokenExpired}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// AsError extracts the tagged error shape, reporting whether err carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CodeOf returns the taxonomy code carried by err, or CodeUnknownError.
func CodeOf(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return CodeUnknownError
}

// normalizeError folds lower-level failures into the tagged shape. Already
// tagged errors pass through unchanged.
func normalizeError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}

	switch {
	case errors.Is(err, provider.ErrInvalidCredentials):
		return newError(CodeInvalidCredentials, "invalid credentials", err)
	case errors.Is(err, provider.ErrUserNotFound):
		return newError(CodeUserNotFound, "user not found", err)
	case errors.Is(err, provider.ErrUserExists):
		return newError(CodeUserAlreadyExists, "user already exists", err)
	case errors.Is(err, provider.ErrAccountDisabled):
		return newError(CodeAccountDisabled, "account disabled", err)
	case errors.Is(err, provider.ErrWeakPassword):
		return newError(CodeWeakPassword, "password does not meet policy", err)
	case errors.Is(err, provider.ErrNetwork):
		return newError(CodeNetworkError, "upstream provider unreachable", err)
	case errors.Is(err, token.ErrExpired):
		return newError(CodeTokenExpired, "token expired", err)
	case errors.Is(err, token.ErrInvalid):
		return newError(CodeTokenInvalid, "token invalid", err)
	case errors.Is(err, session.ErrNotFound):
		return newError(CodeSessionInvalid, "session not found", err)
	case errors.Is(err, session.ErrStoreClosed):
		return newError(CodeServerError, "session store closed", err)
	case errors.Is(err, rbac.ErrPermissionDenied):
		return newError(CodePermissionDenied, "permission denied", err)
	case errors.Is(err, rate.ErrRateLimited):
		return newError(CodeRateLimitExceeded, "too many attempts", err)
	case errors.Is(err, rate.ErrStoreUnavailable):
		return newError(CodeServerError, "rate limiter unavailable", err)
	default:
		return newError(CodeUnknownError, "internal error", err)
	}
}
