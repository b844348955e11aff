// Package store provides the user and session persistence implementations:
// in-memory for tests and development, Redis for sessions, Postgres for
// users.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"concierge/internal/session"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

// In-memory stores favor clarity over performance. They are the default when
// no external storage is configured.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]session.User
	byEmail map[string]id.UserID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]session.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *session.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = *user
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*session.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*session.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	user := s.users[userID]
	copied := user
	return &copied, nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *session.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !strings.EqualFold(existing.Email, user.Email) {
		delete(s.byEmail, strings.ToLower(existing.Email))
		s.byEmail[strings.ToLower(user.Email)] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]session.Session
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]session.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := sess
	return &copied, nil
}

func (s *InMemorySessionStore) Touch(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// LastSeenAt is monotonic; a stale touch never rewinds it.
	if at.After(sess.LastSeenAt) {
		sess.LastSeenAt = at
		s.sessions[sessionID] = sess
	}
	return nil
}

func (s *InMemorySessionStore) Revoke(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sess.RevokedAt != nil {
		return sentinel.ErrInvalidState
	}
	sess.RevokedAt = &at
	s.sessions[sessionID] = sess
	return nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*session.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			copied := sess
			result = append(result, &copied)
		}
	}
	return result, nil
}
