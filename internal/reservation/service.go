package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"concierge/internal/rooms"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/sentinel"
	"concierge/pkg/requestcontext"
)

const maxStayNights = 30

type Store interface {
	Create(ctx context.Context, res *Reservation) error
	FindByID(ctx context.Context, resID id.ReservationID) (*Reservation, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Reservation, error)
	ListByRoom(ctx context.Context, roomID id.RoomID) ([]*Reservation, error)
	ListAll(ctx context.Context) ([]*Reservation, error)
	UpdateStatus(ctx context.Context, resID id.ReservationID, status Status, at time.Time) error
}

// RoomCatalog is the slice of the room service reservations need.
type RoomCatalog interface {
	Get(ctx context.Context, roomID id.RoomID) (*rooms.Room, error)
}

type Service struct {
	store  Store
	rooms  RoomCatalog
	audit  *publisher.Publisher
	logger *slog.Logger
}

func NewService(store Store, catalog RoomCatalog, auditPub *publisher.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, rooms: catalog, audit: auditPub, logger: logger}
}

// CreateRequest is the domain request for a new reservation.
type CreateRequest struct {
	UserID   id.UserID
	RoomID   id.RoomID
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
	Services []Extra
}

// QuoteStay prices a prospective stay without holding it.
func (s *Service) QuoteStay(ctx context.Context, roomID id.RoomID, checkIn, checkOut time.Time, services []Extra) (*Quote, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := validateDates(checkIn, checkOut, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	quote := ComputeQuote(room.NightlyRateCents, nights(checkIn, checkOut), services)
	return &quote, nil
}

// Create holds a stay for the user at the quoted price. The room must be
// available and free of overlapping holds for the requested nights.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	now := requestcontext.Now(ctx)
	if err := validateDates(req.CheckIn, req.CheckOut, now); err != nil {
		return nil, err
	}

	room, err := s.rooms.Get(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.Available {
		return nil, dErrors.New(dErrors.CodeConflict, "room is not available")
	}
	if req.Guests <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guest count must be positive")
	}
	if req.Guests > room.Capacity {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guest count exceeds room capacity")
	}

	existing, err := s.store.ListByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check room occupancy")
	}
	for _, other := range existing {
		if other.Status != StatusCancelled && other.Overlaps(req.CheckIn, req.CheckOut) {
			return nil, dErrors.New(dErrors.CodeConflict, "room is already reserved for those dates")
		}
	}

	quote := ComputeQuote(room.NightlyRateCents, nights(req.CheckIn, req.CheckOut), req.Services)
	res := &Reservation{
		ID:         id.ReservationID(uuid.New()),
		UserID:     req.UserID,
		RoomID:     req.RoomID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Guests:     req.Guests,
		Services:   quote.Services,
		Status:     StatusPending,
		TotalCents: quote.TotalCents,
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, res); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create reservation")
	}

	s.emit(ctx, req.UserID, audit.EventReservationCreated, res.ID.String(), "")
	return res, nil
}

// Get returns a reservation visible to the caller: its owner, or staff.
func (s *Service) Get(ctx context.Context, resID id.ReservationID, callerID id.UserID, isStaff bool) (*Reservation, error) {
	res, err := s.store.FindByID(ctx, resID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "reservation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reservation")
	}
	if !isStaff && res.UserID != callerID {
		// Hide existence from other guests.
		return nil, dErrors.New(dErrors.CodeNotFound, "reservation not found")
	}
	return res, nil
}

// ListByUser returns the caller's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Reservation, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reservations")
	}
	return list, nil
}

// ListAll returns every reservation. Staff only; the router enforces it.
func (s *Service) ListAll(ctx context.Context) ([]*Reservation, error) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reservations")
	}
	return list, nil
}

// Confirm marks a pending reservation paid. Called by the payment flow after
// the amount check passed.
func (s *Service) Confirm(ctx context.Context, resID id.ReservationID) error {
	if err := s.store.UpdateStatus(ctx, resID, StatusConfirmed, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "reservation not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm reservation")
	}
	return nil
}

// Cancel voids a reservation before check-in. Owners cancel their own; staff
// cancel any.
func (s *Service) Cancel(ctx context.Context, resID id.ReservationID, callerID id.UserID, isStaff bool) error {
	res, err := s.Get(ctx, resID, callerID, isStaff)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	if res.Status == StatusCancelled {
		return nil
	}
	if !now.Before(res.CheckIn) {
		return dErrors.New(dErrors.CodeInvalidInput, "reservation can no longer be cancelled")
	}

	if err := s.store.UpdateStatus(ctx, resID, StatusCancelled, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel reservation")
	}

	s.emit(ctx, res.UserID, audit.EventReservationCancelled, resID.String(), "")
	return nil
}

func validateDates(checkIn, checkOut time.Time, now time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "check-in and check-out dates are required")
	}
	if !checkOut.After(checkIn) {
		return dErrors.New(dErrors.CodeInvalidInput, "check-out must be after check-in")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if checkIn.Before(today) {
		return dErrors.New(dErrors.CodeInvalidInput, "check-in must not be in the past")
	}
	if nights(checkIn, checkOut) > maxStayNights {
		return dErrors.New(dErrors.CodeInvalidInput, "stays are limited to 30 nights")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, userID id.UserID, action audit.AuditEvent, subject, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Action:    string(action),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
