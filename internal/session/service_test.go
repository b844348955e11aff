package session_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	jwttoken "concierge/internal/jwt_token"
	"concierge/internal/lockout"
	"concierge/internal/session"
	"concierge/internal/session/store"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/audit/store/memory"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/requestcontext"
)

type fakeIDP struct {
	identity *session.ExternalIdentity
	err      error
}

func (f *fakeIDP) Verify(context.Context, string) (*session.ExternalIdentity, error) {
	return f.identity, f.err
}

type ServiceSuite struct {
	suite.Suite
	users    *store.InMemoryUserStore
	sessions *store.InMemorySessionStore
	idp      *fakeIDP
	svc      *session.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = store.NewInMemoryUserStore()
	s.sessions = store.NewInMemorySessionStore()
	s.idp = &fakeIDP{identity: &session.ExternalIdentity{Email: "ana@example.com", Name: "Ana"}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = session.NewService(
		s.users,
		s.sessions,
		jwttoken.NewJWTService("test-key", "concierge", "concierge-web"),
		s.idp,
		lockout.New(3, time.Minute, 15*time.Minute),
		publisher.NewPublisher(memory.NewInMemoryStore()),
		logger,
		time.Hour,
	)
}

func (s *ServiceSuite) login() *session.LoginResult {
	result, err := s.svc.ExchangeCredential(context.Background(), "idp-credential", session.Meta{
		DeviceName: "Chrome 120 on Linux",
		IPAddress:  "203.0.113.7",
	})
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestBootstrap() {
	s.Run("empty token resolves to anonymous", func() {
		snap, err := s.svc.Bootstrap(context.Background(), "")
		s.Require().NoError(err)
		s.Equal(session.StateAnonymous, snap.State)
		s.Nil(snap.Principal)
	})

	s.Run("garbage token fails closed to anonymous", func() {
		snap, err := s.svc.Bootstrap(context.Background(), "not-a-jwt")
		s.Require().NoError(err)
		s.Equal(session.StateAnonymous, snap.State)
	})

	s.Run("valid token resolves to authenticated principal", func() {
		result := s.login()

		snap, err := s.svc.Bootstrap(context.Background(), result.Token)
		s.Require().NoError(err)
		s.Equal(session.StateAuthenticated, snap.State)
		s.Require().NotNil(snap.Principal)
		s.Equal("ana@example.com", snap.Principal.Email)
		s.False(snap.Principal.IsVerified())
	})

	s.Run("revoked session fails closed to anonymous", func() {
		result := s.login()
		s.Require().NoError(s.svc.Logout(context.Background(), result.Token))

		snap, err := s.svc.Bootstrap(context.Background(), result.Token)
		s.Require().NoError(err)
		s.Equal(session.StateAnonymous, snap.State)
	})

	s.Run("expired session fails closed to anonymous", func() {
		result := s.login()

		future := requestcontext.WithTime(context.Background(), time.Now().Add(2*time.Hour))
		snap, err := s.svc.Bootstrap(future, result.Token)
		s.Require().NoError(err)
		s.Equal(session.StateAnonymous, snap.State)
	})
}

func (s *ServiceSuite) TestExchangeCredential() {
	s.Run("creates user on first login", func() {
		result := s.login()
		s.NotEmpty(result.Token)
		s.Equal(session.RoleGuest, result.Principal.Role)
	})

	s.Run("reuses the user on subsequent logins", func() {
		first := s.login()
		second := s.login()
		s.Equal(first.Principal.ID, second.Principal.ID)
		s.NotEqual(first.SessionID, second.SessionID)
	})

	s.Run("provider failure surfaces as unavailable and leaves no session", func() {
		s.idp.identity = nil
		s.idp.err = dErrors.New(dErrors.CodeUnavailable, "provider down")

		_, err := s.svc.ExchangeCredential(context.Background(), "cred", session.Meta{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("empty credential is rejected", func() {
		_, err := s.svc.ExchangeCredential(context.Background(), "", session.Meta{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestLoginLocal() {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	s.Require().NoError(err)

	staff := &session.User{
		ID:           id.UserID(uuid.New()),
		Email:        "staff@example.com",
		Name:         "Front Desk",
		Role:         session.RoleStaff,
		PasswordHash: hash,
	}
	s.Require().NoError(s.users.Create(context.Background(), staff))

	s.Run("accepts correct password", func() {
		result, err := s.svc.LoginLocal(context.Background(), "staff@example.com", "s3cret", session.Meta{})
		s.Require().NoError(err)
		s.Equal(session.RoleStaff, result.Principal.Role)
	})

	s.Run("rejects wrong password and unknown account identically", func() {
		_, err := s.svc.LoginLocal(context.Background(), "staff@example.com", "wrong", session.Meta{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err2 := s.svc.LoginLocal(context.Background(), "nobody@example.com", "whatever", session.Meta{})
		s.Require().Error(err2)
		s.Equal(err.Error(), err2.Error())
	})

	s.Run("locks out after repeated failures", func() {
		for range 3 {
			_, _ = s.svc.LoginLocal(context.Background(), "locked@example.com", "wrong", session.Meta{IPAddress: "10.0.0.1"})
		}
		_, err := s.svc.LoginLocal(context.Background(), "locked@example.com", "wrong", session.Meta{IPAddress: "10.0.0.1"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestRefreshIsIdempotent() {
	result := s.login()

	first, err := s.svc.Refresh(context.Background(), result.Principal.ID)
	s.Require().NoError(err)
	second, err := s.svc.Refresh(context.Background(), result.Principal.ID)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	result := s.login()
	s.Require().NoError(s.svc.Logout(context.Background(), result.Token))
	s.Require().NoError(s.svc.Logout(context.Background(), result.Token))
	s.Require().NoError(s.svc.Logout(context.Background(), "garbage"))
}

func (s *ServiceSuite) TestPatchLocal() {
	p := &session.Principal{Email: "ana@example.com", Name: "Ana"}
	newName := "Ana María"

	merged := s.svc.PatchLocal(p, session.PrincipalPatch{Name: &newName})
	s.Equal("Ana María", merged.Name)
	s.Equal("ana@example.com", merged.Email)
	// Original snapshot untouched.
	s.Equal("Ana", p.Name)
}

func (s *ServiceSuite) TestSessionsListing() {
	first := s.login()
	second := s.login()

	summaries, err := s.svc.Sessions(context.Background(), first.Principal.ID, second.SessionID)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)

	var currentCount int
	for _, summary := range summaries {
		if summary.IsCurrent {
			currentCount++
			s.Equal(second.SessionID.String(), summary.SessionID)
		}
	}
	s.Equal(1, currentCount)
}
