package authkit

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/davrk/authkit/internal/audit"
	"github.com/davrk/authkit/internal/rate"
	"github.com/davrk/authkit/password"
	"github.com/davrk/authkit/provider"
	"github.com/davrk/authkit/session"
	"github.com/davrk/authkit/token"
)

// Builder defines a public type used by authkit APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	users    UserRepository
	sessions session.Store
	sinks    []EventSink

	oauth map[string]provider.OAuthCredentials

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		oauth:  map[string]provider.OAuthCredentials{},
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the session store, token denylist, and rate limiter with
// Redis so revocations and limits hold across engine instances. Without it
// the Service runs fully in-memory.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserRepository describes the withuserrepository operation and its observable behavior.
//
// WithUserRepository does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserRepository(users UserRepository) *Builder {
	b.users = users
	return b
}

// WithSessionStore overrides the store picked by WithRedis.
//
// WithSessionStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithEventSink attaches a lifecycle event consumer. May be called multiple
// times; every sink receives every event.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithOAuthProvider registers a preset-backed OAuth strategy ("google",
// "github", "microsoft") under its name.
func (b *Builder) WithOAuthProvider(name string, creds provider.OAuthCredentials) *Builder {
	b.oauth[name] = creds
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user repository is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	accessTTL, err := token.ParseExpiry(b.config.JWT.AccessTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("access token expiry: %w", err)
	}
	refreshTTL, err := token.ParseExpiry(b.config.JWT.RefreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("refresh token expiry: %w", err)
	}

	hasher, err := password.NewHasher(password.Config{Cost: b.config.Password.SaltRounds})
	if err != nil {
		return nil, err
	}
	policy := password.NewPolicy(password.PolicyConfig{
		MinLength:        b.config.Password.MinLength,
		RequireUppercase: b.config.Password.RequireUppercase,
		RequireLowercase: b.config.Password.RequireLowercase,
		RequireNumbers:   b.config.Password.RequireNumbers,
		RequireSymbols:   b.config.Password.RequireSymbols,
	})
	reset, err := password.NewResetIssuer(password.ResetConfig{
		Secret: b.config.JWT.Secret,
		TTL:    b.config.Password.ResetTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	var denylist token.Denylist
	if b.redis != nil {
		denylist = token.NewRedisDenylist(b.redis, "akd")
	} else {
		denylist = token.NewMemoryDenylist()
	}
	tokens, err := token.NewManager(token.Config{
		Secret:     b.config.JWT.Secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Issuer:     b.config.JWT.Issuer,
		Audience:   b.config.JWT.Audience,
		Leeway:     b.config.JWT.Leeway,
		Denylist:   denylist,
	})
	if err != nil {
		return nil, err
	}

	var limiter rate.Limiter
	policyCfg := rate.Policy{
		Enabled:       b.config.RateLimit.Enabled,
		Window:        b.config.RateLimit.Window,
		MaxAttempts:   b.config.RateLimit.MaxAttempts,
		BlockDuration: b.config.RateLimit.BlockDuration,
	}
	if b.redis != nil {
		limiter = rate.NewRedisLimiter(b.redis, policyCfg)
	} else {
		limiter = rate.NewMemoryLimiter(policyCfg)
	}

	local, err := provider.NewLocal(provider.LocalConfig{
		Users:  b.users,
		Hasher: hasher,
		Policy: policy,
	})
	if err != nil {
		return nil, err
	}
	factory := provider.NewFactory()
	factory.Register(local)
	for name, creds := range b.oauth {
		if _, err := factory.RegisterOAuth(name, creds, b.users); err != nil {
			return nil, err
		}
	}

	svc := &Service{
		config:    b.config,
		users:     b.users,
		providers: factory,
		local:     local,
		tokens:    tokens,
		hasher:    hasher,
		policy:    policy,
		reset:     reset,
		limiter:   limiter,
		bus:       internalaudit.NewBus(internalaudit.Config(b.config.Audit), b.sinks...),
		metrics:   NewMetrics(b.config.Metrics),
	}

	sessCfg := session.Config{
		MaxAge:           b.config.Session.MaxAge,
		InactivityWindow: b.config.Session.InactivityWindow,
		Rolling:          b.config.Session.Rolling,
		CleanupInterval:  b.config.Session.CleanupInterval,
		OnExpire:         svc.onSessionExpire,
	}
	switch {
	case b.sessions != nil:
		svc.sessions = b.sessions
	case b.redis != nil:
		svc.sessions = session.NewRedisStore(b.redis, "ak", sessCfg)
	default:
		svc.sessions = session.NewMemoryStore(sessCfg)
	}

	b.built = true
	return svc, nil
}
