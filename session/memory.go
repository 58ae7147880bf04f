package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process [Store]. Both indexes are guarded by a
// single mutex and always change together; the reference behavior assumes
// single-writer-at-a-time semantics per session ID, which a global lock
// satisfies trivially.
type MemoryStore struct {
	config Config

	mu     sync.Mutex
	byID   map[string]*Session
	byUser map[string]map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a [MemoryStore] and starts its recurring cleanup
// timer. Callers own the returned store's lifecycle and must call Stop to
// release the timer.
func NewMemoryStore(cfg Config) *MemoryStore {
	s := &MemoryStore{
		config: cfg.withDefaults(),
		byID:   make(map[string]*Session),
		byUser: make(map[string]map[string]struct{}),
		done:   make(chan struct{}),
		now:    time.Now,
	}

	go s.janitor()

	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background())
		case <-s.done:
			return
		}
	}
}

// Stop releases the cleanup timer. The store remains readable afterwards;
// only the background sweep halts.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Create fills in identity and lifecycle fields on the partial session and
// stores it under both indexes.
func (s *MemoryStore) Create(_ context.Context, sess *Session) (*Session, error) {
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

	s.mu.Lock()
	s.byID[stored.ID] = stored
	users, ok := s.byUser[stored.UserID]
	if !ok {
		users = make(map[string]struct{})
		s.byUser[stored.UserID] = users
	}
	users[stored.ID] = struct{}{}
	s.mu.Unlock()

	return stored.clone(), nil
}

// FindByID returns the session or [ErrNotFound]. Expired sessions are
// deleted on the spot rather than returned stale.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Session, error) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.byID[id]
	if ok && sess.expired(now, s.config.InactivityWindow) {
		s.removeLocked(sess)
		s.mu.Unlock()
		s.notifyExpired(*sess)
		return nil, ErrNotFound
	}
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	out := sess.clone()
	s.mu.Unlock()

	return out, nil
}

// FindByUserID returns every live session owned by the principal. Expired
// ones encountered along the way are evicted.
func (s *MemoryStore) FindByUserID(_ context.Context, userID string) ([]*Session, error) {
	now := s.now()

	var (
		out     []*Session
		evicted []Session
	)

	s.mu.Lock()
	for id := range s.byUser[userID] {
		sess, ok := s.byID[id]
		if !ok {
			delete(s.byUser[userID], id)
			continue
		}
		if sess.expired(now, s.config.InactivityWindow) {
			s.removeLocked(sess)
			evicted = append(evicted, *sess)
			continue
		}
		out = append(out, sess.clone())
	}
	s.mu.Unlock()

	for _, e := range evicted {
		s.notifyExpired(e)
	}
	return out, nil
}

// FindByRefreshToken locates the session that owns the given refresh token
// value, with the same lazy-eviction behavior as FindByID.
func (s *MemoryStore) FindByRefreshToken(_ context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNotFound
	}
	now := s.now()

	s.mu.Lock()
	for _, sess := range s.byID {
		if sess.RefreshToken != refreshToken {
			continue
		}
		if sess.expired(now, s.config.InactivityWindow) {
			s.removeLocked(sess)
			s.mu.Unlock()
			s.notifyExpired(*sess)
			return nil, ErrNotFound
		}
		out := sess.clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	return nil, ErrNotFound
}

// Update replaces the stored session. In rolling mode the absolute expiry
// is re-derived from now; otherwise ExpiresAt is preserved as stored.
func (s *MemoryStore) Update(_ context.Context, sess *Session) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[sess.ID]
	if !ok {
		return ErrNotFound
	}

	updated := sess.clone()
	updated.UserID = current.UserID
	if s.config.Rolling {
		updated.ExpiresAt = now.Add(s.config.MaxAge)
	} else {
		updated.ExpiresAt = current.ExpiresAt
	}
	s.byID[sess.ID] = updated

	return nil
}

// Delete removes the session from both indexes. Deleting a missing session
// is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[id]; ok {
		s.removeLocked(sess)
	}
	return nil
}

// DeleteByUserID removes every session owned by the principal and returns
// how many were dropped.
func (s *MemoryStore) DeleteByUserID(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id := range s.byUser[userID] {
		if sess, ok := s.byID[id]; ok {
			s.removeLocked(sess)
			count++
		}
	}
	delete(s.byUser, userID)

	return count, nil
}

// Touch refreshes LastActivityAt without extending the absolute expiry.
func (s *MemoryStore) Touch(_ context.Context, id string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok || sess.expired(now, s.config.InactivityWindow) {
		return false, nil
	}
	sess.LastActivityAt = now

	return true, nil
}

// IsValid reports whether the session exists and satisfies both validity
// bounds. It does not evict.
func (s *MemoryStore) IsValid(_ context.Context, id string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	return ok && !sess.expired(now, s.config.InactivityWindow), nil
}

// ActiveSessions returns every currently valid session.
func (s *MemoryStore) ActiveSessions(_ context.Context) ([]*Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Session
	for _, sess := range s.byID {
		if !sess.expired(now, s.config.InactivityWindow) {
			out = append(out, sess.clone())
		}
	}
	return out, nil
}

// Cleanup performs a full expiry sweep and reports what it removed.
// Calling it twice in a row with no new expiries is a no-op the second time.
func (s *MemoryStore) Cleanup(_ context.Context) ([]Evicted, error) {
	now := s.now()

	var (
		evicted []Evicted
		expired []Session
	)

	s.mu.Lock()
	for _, sess := range s.byID {
		if sess.expired(now, s.config.InactivityWindow) {
			s.removeLocked(sess)
			evicted = append(evicted, Evicted{SessionID: sess.ID, UserID: sess.UserID})
			expired = append(expired, *sess)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.notifyExpired(e)
	}
	return evicted, nil
}

// Stats describes the stats operation and its observable behavior.
//
// Stats does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{Total: len(s.byID), Users: len(s.byUser)}, nil
}

// removeLocked deletes the session from both indexes. Callers hold s.mu.
func (s *MemoryStore) removeLocked(sess *Session) {
	delete(s.byID, sess.ID)
	if users, ok := s.byUser[sess.UserID]; ok {
		delete(users, sess.ID)
		if len(users) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}
}

func (s *MemoryStore) notifyExpired(sess Session) {
	if s.config.OnExpire != nil {
		s.config.OnExpire(sess)
	}
}
