package provider

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepository is a map-backed [UserRepository] for tests, examples, and
// single-process deployments. Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	byName  map[string]string
}

// NewMemoryRepository describes the newmemoryrepository operation and its
// observable behavior.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    map[string]*User{},
		byEmail: map[string]string{},
		byName:  map[string]string{},
	}
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or
// security checks fail.
func (m *MemoryRepository) FindByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// FindByEmail describes the findbyemail operation and its observable behavior.
func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.FindByID(ctx, id)
}

// FindByUsername describes the findbyusername operation and its observable behavior.
func (m *MemoryRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byName[username]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.FindByID(ctx, id)
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or
// security checks fail.
func (m *MemoryRepository) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, exists := m.byEmail[email]; exists {
		return ErrUserExists
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[email] = u.ID
	if u.Username != "" {
		m.byName[u.Username] = u.ID
	}
	return nil
}

// Update describes the update operation and its observable behavior.
func (m *MemoryRepository) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.byEmail, strings.ToLower(old.Email))
	delete(m.byName, old.Username)
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[strings.ToLower(u.Email)] = u.ID
	if u.Username != "" {
		m.byName[u.Username] = u.ID
	}
	return nil
}

// Delete describes the delete operation and its observable behavior.
func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.byEmail, strings.ToLower(u.Email))
	delete(m.byName, u.Username)
	delete(m.byID, id)
	return nil
}

// SetPassword describes the setpassword operation and its observable behavior.
func (m *MemoryRepository) SetPassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}
