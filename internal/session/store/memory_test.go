package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"concierge/internal/session"
	id "concierge/pkg/domain"
	"concierge/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = NewInMemorySessionStore()
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func makeSession(userID id.UserID) *session.Session {
	now := time.Now()
	return &session.Session{
		ID:         id.SessionID(uuid.New()),
		UserID:     userID,
		DeviceName: "Chrome 120 on Linux",
		IPAddress:  "203.0.113.7",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		LastSeenAt: now,
	}
}

func (s *SessionStoreSuite) TestSessionLookup() {
	s.Run("returns stored session when found", func() {
		sess := makeSession(id.UserID(uuid.New()))
		s.Require().NoError(s.store.Create(context.Background(), sess))

		found, err := s.store.FindByID(context.Background(), sess.ID)
		s.Require().NoError(err)
		s.Equal(sess, found)
	})

	s.Run("returns ErrNotFound when session does not exist", func() {
		_, err := s.store.FindByID(context.Background(), id.SessionID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestTouchIsMonotonic() {
	sess := makeSession(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(context.Background(), sess))

	later := sess.LastSeenAt.Add(time.Minute)
	s.Require().NoError(s.store.Touch(context.Background(), sess.ID, later))

	// A stale touch must not rewind LastSeenAt.
	s.Require().NoError(s.store.Touch(context.Background(), sess.ID, sess.LastSeenAt))

	found, err := s.store.FindByID(context.Background(), sess.ID)
	s.Require().NoError(err)
	s.True(found.LastSeenAt.Equal(later))
}

func (s *SessionStoreSuite) TestSessionRevocation() {
	s.Run("revokes active session and sets RevokedAt", func() {
		sess := makeSession(id.UserID(uuid.New()))
		s.Require().NoError(s.store.Create(context.Background(), sess))

		err := s.store.Revoke(context.Background(), sess.ID, time.Now())
		s.Require().NoError(err)

		found, err := s.store.FindByID(context.Background(), sess.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.RevokedAt)
		s.False(found.Active(time.Now()))
	})

	s.Run("revoking an already-revoked session returns ErrInvalidState", func() {
		sess := makeSession(id.UserID(uuid.New()))
		s.Require().NoError(s.store.Create(context.Background(), sess))
		s.Require().NoError(s.store.Revoke(context.Background(), sess.ID, time.Now()))

		err := s.store.Revoke(context.Background(), sess.ID, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("revoking a non-existent session returns ErrNotFound", func() {
		err := s.store.Revoke(context.Background(), id.SessionID(uuid.New()), time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestListByUser() {
	userID := id.UserID(uuid.New())
	otherID := id.UserID(uuid.New())

	mine := makeSession(userID)
	other := makeSession(otherID)
	s.Require().NoError(s.store.Create(context.Background(), mine))
	s.Require().NoError(s.store.Create(context.Background(), other))

	sessions, err := s.store.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(mine.ID, sessions[0].ID)
}

type UserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemoryUserStore()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) TestCreateAndLookup() {
	user := &session.User{
		ID:    id.UserID(uuid.New()),
		Email: "Guest@Example.com",
		Name:  "Guest",
		Role:  session.RoleGuest,
	}
	s.Require().NoError(s.store.Create(context.Background(), user))

	s.Run("finds by ID", func() {
		found, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		s.Equal(user.Email, found.Email)
	})

	s.Run("finds by email case-insensitively", func() {
		found, err := s.store.FindByEmail(context.Background(), "guest@example.com")
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)
	})

	s.Run("rejects duplicate email", func() {
		dup := &session.User{ID: id.UserID(uuid.New()), Email: "guest@example.com"}
		s.Require().ErrorIs(s.store.Create(context.Background(), dup), sentinel.ErrConflict)
	})
}

func (s *UserStoreSuite) TestUpdate() {
	user := &session.User{
		ID:    id.UserID(uuid.New()),
		Email: "guest@example.com",
		Role:  session.RoleGuest,
	}
	s.Require().NoError(s.store.Create(context.Background(), user))

	user.Verified = true
	user.DocumentNumber = "12345678"
	s.Require().NoError(s.store.Update(context.Background(), user))

	found, err := s.store.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.True(found.Verified)
	s.Equal("12345678", found.DocumentNumber)
}

func (s *UserStoreSuite) TestUpdatePersistsCallerClock() {
	// The service pins the clock per request; the store must persist that
	// timestamp verbatim, never substitute its own.
	user := &session.User{
		ID:        id.UserID(uuid.New()),
		Email:     "guest@example.com",
		Role:      session.RoleGuest,
		UpdatedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Create(context.Background(), user))

	updated := user.UpdatedAt.Add(time.Hour)
	user.Name = "Ana"
	user.UpdatedAt = updated
	s.Require().NoError(s.store.Update(context.Background(), user))

	found, err := s.store.FindByID(context.Background(), user.ID)
	s.Require().NoError(err)
	s.True(found.UpdatedAt.Equal(updated))
}

func (s *UserStoreSuite) TestUpdateMissingUser() {
	user := &session.User{ID: id.UserID(uuid.New()), Email: "nobody@example.com"}
	s.Require().ErrorIs(s.store.Update(context.Background(), user), sentinel.ErrNotFound)
}
