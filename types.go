package authkit

import (
	"io"
	"time"

	internalaudit "github.com/davrk/authkit/internal/audit"
	"github.com/davrk/authkit/provider"
	"github.com/davrk/authkit/rbac"
	"github.com/davrk/authkit/session"
)

// Principal is an authenticated identity subject to access checks.
type Principal = rbac.Principal

// Role defines a public type used by authkit APIs.
type Role = rbac.Role

// Permission defines a public type used by authkit APIs.
type Permission = rbac.Permission

// Session is the server-held proof of a live login.
type Session = session.Session

// Credentials carries a login attempt.
type Credentials = provider.Credentials

// Registration carries account-creation input.
type Registration = provider.Registration

// UserRepository is the persistence contract the Service consumes.
type UserRepository = provider.UserRepository

// Event is the lifecycle event published on the Service's event bus.
type Event = internalaudit.Event

// EventSink receives published lifecycle events.
type EventSink = internalaudit.Sink

// Lifecycle event types carried by [Event].
const (
	// EventLogin is an exported constant or variable used by the authentication engine.
	EventLogin = internalaudit.TypeLogin
	// EventLogout is an exported constant or variable used by the authentication engine.
	EventLogout = internalaudit.TypeLogout
	// EventRegister is an exported constant or variable used by the authentication engine.
	EventRegister = internalaudit.TypeRegister
	// EventPasswordChange is an exported constant or variable used by the authentication engine.
	EventPasswordChange = internalaudit.TypePasswordChange
	// EventPasswordReset is an exported constant or variable used by the authentication engine.
	EventPasswordReset = internalaudit.TypePasswordReset
	// EventSessionRefresh is an exported constant or variable used by the authentication engine.
	EventSessionRefresh = internalaudit.TypeSessionRefresh
	// EventSessionExpire is an exported constant or variable used by the authentication engine.
	EventSessionExpire = internalaudit.TypeSessionExpire
)

// ChannelSink buffers events on a channel for consumers that poll.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON line per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a sink that buffers events on a channel.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON line per event.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// AuthResult is the success shape returned by login, register, and refresh.
//
// AuthResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthResult struct {
	Principal    Principal `json:"principal"`
	SessionID    string    `json:"sessionId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// VerifyResult is returned by VerifyToken. Authenticated is false — never an
// error — for expired or malformed tokens, so middleware can branch uniformly
// on authentication state.
//
// VerifyResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifyResult struct {
	Authenticated bool      `json:"authenticated"`
	Subject       string    `json:"subject,omitempty"`
	Email         string    `json:"email,omitempty"`
	Roles         []string  `json:"roles,omitempty"`
	Permissions   []string  `json:"permissions,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

// Stats is the Service's introspection snapshot.
//
// Stats instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Stats struct {
	Sessions session.Stats   `json:"sessions"`
	Metrics  MetricsSnapshot `json:"metrics"`
	Dropped  uint64          `json:"droppedEvents"`
}
