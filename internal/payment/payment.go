// Package payment records the payment that confirms a reservation. One
// payment per reservation, and it must match the quoted total exactly.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"concierge/internal/reservation"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/sentinel"
	"concierge/pkg/requestcontext"
)

// Method is how the guest paid.
type Method string

const (
	MethodCard Method = "card"
	MethodCash Method = "cash"
)

// ParseMethod validates a wire-level payment method.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodCard, MethodCash:
		return Method(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "payment method must be card or cash")
	}
}

// Payment is one recorded payment.
type Payment struct {
	ID            id.PaymentID     `json:"id"`
	ReservationID id.ReservationID `json:"reservation_id"`
	AmountCents   int64            `json:"amount_cents"`
	Method        Method           `json:"method"`
	PaidAt        time.Time        `json:"paid_at"`
}

type Store interface {
	Create(ctx context.Context, p *Payment) error
	FindByReservation(ctx context.Context, resID id.ReservationID) (*Payment, error)
}

// Reservations is the slice of the reservation layer payments need.
type Reservations interface {
	Get(ctx context.Context, resID id.ReservationID, callerID id.UserID, isStaff bool) (*reservation.Reservation, error)
	Confirm(ctx context.Context, resID id.ReservationID) error
}

type Service struct {
	store        Store
	reservations Reservations
	audit        *publisher.Publisher
	logger       *slog.Logger
}

func NewService(store Store, reservations Reservations, auditPub *publisher.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, reservations: reservations, audit: auditPub, logger: logger}
}

// Record accepts a payment for the caller's pending reservation. The amount
// must equal the quoted total; a mismatch is rejected rather than partially
// applied. On success the reservation is confirmed.
func (s *Service) Record(ctx context.Context, callerID id.UserID, resID id.ReservationID, amountCents int64, method Method) (*Payment, error) {
	res, err := s.reservations.Get(ctx, resID, callerID, false)
	if err != nil {
		return nil, err
	}

	switch res.Status {
	case reservation.StatusPending:
		// payable
	case reservation.StatusConfirmed:
		return nil, dErrors.New(dErrors.CodeConflict, "reservation is already paid")
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reservation is cancelled")
	}

	if amountCents != res.TotalCents {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount does not match the quoted total")
	}

	p := &Payment{
		ID:            id.PaymentID(uuid.New()),
		ReservationID: resID,
		AmountCents:   amountCents,
		Method:        method,
		PaidAt:        requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "reservation is already paid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	if err := s.reservations.Confirm(ctx, resID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm reservation")
	}

	s.emit(ctx, callerID, resID)
	return p, nil
}

// ForReservation returns the payment behind a reservation the caller may see.
func (s *Service) ForReservation(ctx context.Context, callerID id.UserID, resID id.ReservationID, isStaff bool) (*Payment, error) {
	if _, err := s.reservations.Get(ctx, resID, callerID, isStaff); err != nil {
		return nil, err
	}

	p, err := s.store.FindByReservation(ctx, resID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

func (s *Service) emit(ctx context.Context, userID id.UserID, resID id.ReservationID) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Action:    string(audit.EventPaymentRecorded),
		Subject:   resID.String(),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
