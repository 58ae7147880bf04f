package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore is the multi-process [Store]. Sessions are stored as JSON
// blobs keyed by session ID with a TTL equal to the absolute lifetime;
// a per-user set provides O(1) per-principal enumeration. Redis owns
// absolute expiry, so Cleanup only prunes stale per-user index members.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	config Config
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a [RedisStore] with the given key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		config: cfg.withDefaults(),
		now:    time.Now,
	}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":s:" + id }

func (s *RedisStore) userKey(userID string) string { return s.prefix + ":u:" + userID }

func (s *RedisStore) usersKey() string { return s.prefix + ":users" }

// Create persists the session under both the blob key and the per-user set.
func (s *RedisStore) Create(ctx context.Context, sess *Session) (*Session, error) {
	now := s.now()

	stored := sess.clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.IssuedAt.IsZero() {
		stored.IssuedAt = now
	}
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = now.Add(s.config.MaxAge)
	}
	if stored.LastActivityAt.IsZero() {
		stored.LastActivityAt = now
	}
	stored.Active = true

	if err := s.save(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrNotFound
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
		pipe.SAdd(ctx, s.usersKey(), sess.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// FindByID returns the session or [ErrNotFound]. The inactivity bound is
// checked here because Redis TTL only covers the absolute one.
func (s *RedisStore) FindByID(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.expired(s.now(), s.config.InactivityWindow) {
		if err := s.remove(ctx, sess); err != nil {
			return nil, err
		}
		if s.config.OnExpire != nil {
			s.config.OnExpire(*sess)
		}
		return nil, ErrNotFound
	}
	return sess, nil
}

// FindByUserID enumerates the per-user index and prunes members whose blobs
// have already expired out of Redis.
func (s *RedisStore) FindByUserID(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var out []*Session
	for _, id := range ids {
		sess, err := s.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = s.redis.SRem(ctx, s.userKey(userID), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// FindByRefreshToken scans the user index sets for the owning session.
func (s *RedisStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNotFound
	}

	sessions, err := s.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.RefreshToken == refreshToken {
			return sess, nil
		}
	}
	return nil, ErrNotFound
}

// Update rewrites the stored blob, preserving the absolute expiry unless
// rolling mode re-derives it.
func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	current, err := s.load(ctx, sess.ID)
	if err != nil {
		return err
	}

	updated := sess.clone()
	updated.UserID = current.UserID
	if s.config.Rolling {
		updated.ExpiresAt = s.now().Add(s.config.MaxAge)
	} else {
		updated.ExpiresAt = current.ExpiresAt
	}
	return s.save(ctx, updated)
}

func (s *RedisStore) remove(ctx context.Context, sess *Session) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sess.ID))
		pipe.SRem(ctx, s.userKey(sess.UserID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, sess)
}

// DeleteByUserID drops every session owned by the principal.
func (s *RedisStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count := 0
	for _, id := range ids {
		deleted, err := s.redis.Del(ctx, s.key(id)).Result()
		if err != nil {
			return count, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		count += int(deleted)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.userKey(userID))
		pipe.SRem(ctx, s.usersKey(), userID)
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// Touch refreshes LastActivityAt while keeping the remaining TTL intact.
func (s *RedisStore) Touch(ctx context.Context, id string) (bool, error) {
	sess, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sess.expired(s.now(), s.config.InactivityWindow) {
		return false, nil
	}

	sess.LastActivityAt = s.now()
	data, err := json.Marshal(sess)
	if err != nil {
		return false, err
	}
	if err := s.redis.Set(ctx, s.key(id), data, redis.KeepTTL).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}

// IsValid reports validity without evicting.
func (s *RedisStore) IsValid(ctx context.Context, id string) (bool, error) {
	sess, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !sess.expired(s.now(), s.config.InactivityWindow), nil
}

// ActiveSessions walks every per-user index.
func (s *RedisStore) ActiveSessions(ctx context.Context) ([]*Session, error) {
	users, err := s.redis.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var out []*Session
	for _, userID := range users {
		sessions, err := s.FindByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, sessions...)
	}
	return out, nil
}

// Cleanup prunes index members whose session blobs Redis already expired,
// and evicts sessions past their inactivity window.
func (s *RedisStore) Cleanup(ctx context.Context) ([]Evicted, error) {
	users, err := s.redis.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var evicted []Evicted
	for _, userID := range users {
		ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
		if err != nil {
			return evicted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		live := 0
		for _, id := range ids {
			sess, err := s.load(ctx, id)
			if errors.Is(err, ErrNotFound) {
				_ = s.redis.SRem(ctx, s.userKey(userID), id).Err()
				evicted = append(evicted, Evicted{SessionID: id, UserID: userID})
				continue
			}
			if err != nil {
				return evicted, err
			}
			if sess.expired(s.now(), s.config.InactivityWindow) {
				if err := s.remove(ctx, sess); err != nil {
					return evicted, err
				}
				evicted = append(evicted, Evicted{SessionID: id, UserID: userID})
				if s.config.OnExpire != nil {
					s.config.OnExpire(*sess)
				}
				continue
			}
			live++
		}
		if live == 0 {
			_ = s.redis.SRem(ctx, s.usersKey(), userID).Err()
		}
	}
	return evicted, nil
}

// Stats counts live sessions across all user indexes.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	users, err := s.redis.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	stats := Stats{}
	for _, userID := range users {
		sessions, err := s.FindByUserID(ctx, userID)
		if err != nil {
			return stats, err
		}
		if len(sessions) > 0 {
			stats.Users++
			stats.Total += len(sessions)
		}
	}
	return stats, nil
}

// Stop is a no-op: Redis owns expiry, so there is no timer to release.
func (s *RedisStore) Stop() {}
