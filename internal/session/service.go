// Package session is the single source of truth for "who is logged in". It
// resolves persisted tokens into one of three states (unknown, anonymous,
// authenticated) and owns login, logout, and principal refresh.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	jwttoken "concierge/internal/jwt_token"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/sentinel"
	"concierge/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error
	Revoke(ctx context.Context, sessionID id.SessionID, at time.Time) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*Session, error)
}

// TokenService issues and validates the opaque-to-the-client access tokens.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID, sessionID uuid.UUID, role string, expiresIn time.Duration) (string, error)
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// CredentialVerifier asserts an external identity provider credential.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*ExternalIdentity, error)
}

// LoginLimiter throttles local credential logins per key.
type LoginLimiter interface {
	Allowed(key string, now time.Time) bool
	RecordFailure(key string, now time.Time)
	Reset(key string)
}

// Service coordinates session state. All failure paths of Bootstrap fail
// closed to Anonymous; Unknown is returned only when resolution itself did
// not complete (caller context cancelled).
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenService
	idp      CredentialVerifier
	lockout  LoginLimiter
	audit    *publisher.Publisher
	logger   *slog.Logger
	tokenTTL time.Duration

	// Collapses concurrent bootstraps for the same token into one store
	// round trip.
	group singleflight.Group
}

func NewService(
	users UserStore,
	sessions SessionStore,
	tokens TokenService,
	idp CredentialVerifier,
	lockout LoginLimiter,
	auditPub *publisher.Publisher,
	logger *slog.Logger,
	tokenTTL time.Duration,
) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		idp:      idp,
		lockout:  lockout,
		audit:    auditPub,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Bootstrap resolves a persisted token into a session snapshot. An empty
// token is Anonymous; an invalid, expired, or revoked one fails closed to
// Anonymous. The snapshot is Unknown only when the caller's context was
// cancelled before resolution finished, so a disposed caller never observes
// a decision it should not act on.
func (s *Service) Bootstrap(ctx context.Context, token string) (Snapshot, error) {
	if token == "" {
		return Anonymous(), nil
	}

	v, _, _ := s.group.Do(token, func() (any, error) {
		return s.resolve(ctx, token), nil
	})

	if ctx.Err() != nil {
		return Unknown(), ctx.Err()
	}
	return v.(Snapshot), nil
}

func (s *Service) resolve(ctx context.Context, token string) Snapshot {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		// Expired or tampered token: recover locally, not an error to the user.
		return Anonymous()
	}

	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return Anonymous()
	}

	now := requestcontext.Now(ctx)

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "session lookup failed, failing closed",
				"session_id", sessionID,
				"error", err,
			)
		}
		return Anonymous()
	}
	if !sess.Active(now) {
		return Anonymous()
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "principal lookup failed, failing closed",
			"user_id", sess.UserID,
			"error", err,
		)
		return Anonymous()
	}

	// Best effort; a failed touch must not block an otherwise valid session.
	if err := s.sessions.Touch(ctx, sessionID, now); err != nil {
		s.logger.WarnContext(ctx, "session touch failed", "session_id", sessionID, "error", err)
	}

	return Authenticated(user.Principal())
}

// LoginResult is returned by both login paths.
type LoginResult struct {
	Token     string
	SessionID id.SessionID
	Principal *Principal
}

// ExchangeCredential trades an external identity provider credential for a
// session token. The user record is created on first login. On failure no
// session is left behind.
func (s *Service) ExchangeCredential(ctx context.Context, credential string, meta Meta) (*LoginResult, error) {
	if credential == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}

	identity, err := s.idp.Verify(ctx, credential)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unavailable")
	}

	user, err := s.findOrCreateUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, user, meta)
}

// LoginLocal authenticates a staff account with email and password, guarded
// by the failed-attempt lockout.
func (s *Service) LoginLocal(ctx context.Context, email, password string, meta Meta) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := requestcontext.Now(ctx)
	lockKey := email + "|" + meta.IPAddress

	if s.lockout != nil && !s.lockout.Allowed(lockKey, now) {
		s.emit(ctx, audit.Event{
			Action:  string(audit.EventLoginLocked),
			Subject: email,
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "too many failed attempts, try again later")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil || len(user.PasswordHash) == 0 {
		return nil, s.failLogin(ctx, lockKey, email, now)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, s.failLogin(ctx, lockKey, email, now)
	}

	if s.lockout != nil {
		s.lockout.Reset(lockKey)
	}
	return s.startSession(ctx, user, meta)
}

func (s *Service) failLogin(ctx context.Context, lockKey, email string, now time.Time) error {
	if s.lockout != nil {
		s.lockout.RecordFailure(lockKey, now)
	}
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventLoginFailed),
		Subject: email,
	})
	// One message for unknown account and wrong password alike.
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Logout revokes the session behind the token. Idempotent from the caller's
// view: an already-dead token is a successful logout.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil
	}

	now := requestcontext.Now(ctx)
	if err := s.sessions.Revoke(ctx, sessionID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}

	s.emit(ctx, audit.Event{Action: string(audit.EventSessionRevoked)})
	return nil
}

// Refresh re-fetches the principal without touching session state. Used after
// a remediation flow mutates the stored user. Idempotent: two refreshes with
// no intervening change yield the same principal.
func (s *Service) Refresh(ctx context.Context, userID id.UserID) (*Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user.Principal(), nil
}

// PatchLocal optimistically merges profile fields into a principal snapshot
// without a round trip. The input principal is not mutated.
func (s *Service) PatchLocal(p *Principal, patch PrincipalPatch) *Principal {
	if p == nil {
		return nil
	}
	merged := *p
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Email != nil {
		merged.Email = *patch.Email
	}
	return &merged
}

// UpdateProfile persists a profile patch and returns the updated principal.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, patch PrincipalPatch) (*Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	user.UpdatedAt = requestcontext.Now(ctx)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return user.Principal(), nil
}

// Sessions lists the user's sessions as client-facing summaries, current one
// flagged.
func (s *Service) Sessions(ctx context.Context, userID id.UserID, current id.SessionID) ([]Summary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	now := requestcontext.Now(ctx)
	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		if !sess.Active(now) {
			continue
		}
		summaries = append(summaries, Summary{
			SessionID:    sess.ID.String(),
			Device:       sess.DeviceName,
			IPAddress:    sess.IPAddress,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastSeenAt,
			IsCurrent:    sess.ID == current,
		})
	}
	return summaries, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, identity *ExternalIdentity) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity provider returned no email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	now := requestcontext.Now(ctx)
	user = &User{
		ID:        id.UserID(uuid.New()),
		Email:     email,
		Name:      identity.Name,
		Role:      RoleGuest,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.emit(ctx, audit.Event{
		UserID:  user.ID,
		Action:  string(audit.EventUserCreated),
		Subject: email,
	})
	return user, nil
}

func (s *Service) startSession(ctx context.Context, user *User, meta Meta) (*LoginResult, error) {
	now := requestcontext.Now(ctx)
	sess := &Session{
		ID:         id.SessionID(uuid.New()),
		UserID:     user.ID,
		DeviceName: meta.DeviceName,
		IPAddress:  meta.IPAddress,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.tokenTTL),
		LastSeenAt: now,
	}

	token, err := s.tokens.GenerateAccessToken(uuid.UUID(user.ID), uuid.UUID(sess.ID), string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.emit(ctx, audit.Event{
		UserID:   user.ID,
		Action:   string(audit.EventSessionCreated),
		Subject:  user.Email,
		ClientIP: meta.IPAddress,
	})

	return &LoginResult{
		Token:     token,
		SessionID: sess.ID,
		Principal: user.Principal(),
	}, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if event.DeviceID == "" {
		event.DeviceID = requestcontext.DeviceID(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
