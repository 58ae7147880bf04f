package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is an exported constant or variable used by the authentication engine.
var ErrNotFound = errors.New("session not found")

// ErrStoreClosed is an exported constant or variable used by the authentication engine.
var ErrStoreClosed = errors.New("session store closed")

// DefaultMaxAge is the absolute session lifetime applied when Config.MaxAge
// is zero.
const DefaultMaxAge = 24 * time.Hour

// DefaultCleanupInterval drives the recurring expiry sweep.
const DefaultCleanupInterval = time.Hour

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	MaxAge           time.Duration
	InactivityWindow time.Duration
	Rolling          bool
	CleanupInterval  time.Duration

	// OnExpire, when set, is invoked for every session removed by the
	// cleanup sweep or by lazy read-time eviction. It runs outside the
	// store lock and must not call back into the store.
	OnExpire func(Session)
}

func (c Config) withDefaults() Config {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

// Evicted identifies a session removed by a cleanup sweep.
type Evicted struct {
	SessionID string
	UserID    string
}

// Stats is a point-in-time view of the store, returned by [Store.Stats].
type Stats struct {
	Total int
	Users int
}

// Store is the session lifecycle contract shared by [MemoryStore] and
// [RedisStore].
type Store interface {
	Create(ctx context.Context, sess *Session) (*Session, error)
	FindByID(ctx context.Context, id string) (*Session, error)
	FindByUserID(ctx context.Context, userID string) ([]*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	Update(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int, error)
	Touch(ctx context.Context, id string) (bool, error)
	IsValid(ctx context.Context, id string) (bool, error)
	ActiveSessions(ctx context.Context) ([]*Session, error)
	Cleanup(ctx context.Context) ([]Evicted, error)
	Stats(ctx context.Context) (Stats, error)
	Stop()
}
