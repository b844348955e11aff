// Package verify runs the identity verification flow: a guest proves who they
// are with their national identity document (DNI) and birth date, checked
// against the civil registry. Guests must be adults; verification is what
// unlocks reservations.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"

	"concierge/internal/redirect"
	"concierge/internal/session"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/sentinel"
	"concierge/pkg/requestcontext"
)

const (
	dniLength  = 8
	adultAge   = 18
	dateLayout = "2006-01-02"
)

// Record is what the civil registry asserts about a document number.
type Record struct {
	FullName  string
	BirthDate time.Time
}

// RegistryLookup resolves a document number against the civil registry.
// Implementations return domain errors: CodeNotFound for unknown documents,
// CodeUnavailable when the registry cannot be reached.
type RegistryLookup interface {
	Lookup(ctx context.Context, documentNumber string) (*Record, error)
}

// PrincipalRefresher re-reads the principal after the stored user changed.
type PrincipalRefresher interface {
	Refresh(ctx context.Context, userID id.UserID) (*session.Principal, error)
}

// Result carries the refreshed principal and where the client should go next.
type Result struct {
	Principal  *session.Principal
	RedirectTo string
}

type Service struct {
	users          session.UserStore
	refresher      PrincipalRefresher
	registry       RegistryLookup
	memory         redirect.Memory
	audit          *publisher.Publisher
	logger         *slog.Logger
	defaultLanding string
}

func NewService(
	users session.UserStore,
	refresher PrincipalRefresher,
	registry RegistryLookup,
	memory redirect.Memory,
	auditPub *publisher.Publisher,
	logger *slog.Logger,
	defaultLanding string,
) *Service {
	if defaultLanding == "" {
		defaultLanding = "/rooms"
	}
	return &Service{
		users:          users,
		refresher:      refresher,
		registry:       registry,
		memory:         memory,
		audit:          auditPub,
		logger:         logger,
		defaultLanding: defaultLanding,
	}
}

// ValidateDNI checks the document number format: exactly eight digits.
func ValidateDNI(dni string) error {
	if len(dni) != dniLength || !govalidator.IsNumeric(dni) {
		return dErrors.New(dErrors.CodeInvalidInput, "document number must be exactly 8 digits")
	}
	return nil
}

// AgeOn computes full years of age at the given instant. Someone turning 18
// on the day of the check counts as 18.
func AgeOn(birthDate, on time.Time) int {
	years := on.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(on) {
		years--
	}
	return years
}

// Verify checks the document against the registry and marks the user verified.
// Underage is terminal: retrying cannot change a birth date. Registry outages
// are not: the caller may try again. On success the remembered redirect path
// for redirectKey is consumed, falling back to the default landing page.
func (s *Service) Verify(ctx context.Context, userID id.UserID, dni, birthDate, redirectKey string) (*Result, error) {
	if err := ValidateDNI(dni); err != nil {
		return nil, err
	}
	claimed, err := time.Parse(dateLayout, birthDate)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "birth date must be formatted YYYY-MM-DD")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	// A second submit after success is a no-op, not an error. The redirect
	// slot was already consumed the first time.
	if user.Verified {
		return s.finish(ctx, userID, redirectKey)
	}

	record, err := s.registry.Lookup(ctx, dni)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "civil registry unavailable")
	}

	if !sameDay(record.BirthDate, claimed) {
		s.emit(ctx, userID, audit.EventVerificationRejected, "birth date mismatch")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "birth date does not match the registry")
	}

	now := requestcontext.Now(ctx)
	if AgeOn(record.BirthDate, now) < adultAge {
		s.emit(ctx, userID, audit.EventVerificationRejected, "underage")
		return nil, dErrors.New(dErrors.CodeUnderage, "guests must be at least 18 years old")
	}

	birth := record.BirthDate
	user.Verified = true
	user.DocumentNumber = dni
	user.BirthDate = &birth
	if record.FullName != "" {
		user.Name = record.FullName
	}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification")
	}

	s.emit(ctx, userID, audit.EventIdentityVerified, "")
	return s.finish(ctx, userID, redirectKey)
}

func (s *Service) finish(ctx context.Context, userID id.UserID, redirectKey string) (*Result, error) {
	principal, err := s.refresher.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	redirectTo := s.defaultLanding
	if s.memory != nil && redirectKey != "" {
		target, err := s.memory.ConsumeOrDefault(ctx, redirectKey, s.defaultLanding)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to consume redirect path", "error", err)
		} else {
			redirectTo = target
		}
	}

	return &Result{Principal: principal, RedirectTo: redirectTo}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *Service) emit(ctx context.Context, userID id.UserID, action audit.AuditEvent, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		DeviceID:  requestcontext.DeviceID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
