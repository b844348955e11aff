package rooms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/sentinel"
	"concierge/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, room *Room) error
	FindByID(ctx context.Context, roomID id.RoomID) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
	Update(ctx context.Context, room *Room) error
	Delete(ctx context.Context, roomID id.RoomID) error
}

type Service struct {
	store  Store
	audit  *publisher.Publisher
	logger *slog.Logger
}

func NewService(store Store, auditPub *publisher.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditPub, logger: logger}
}

// List returns rooms for the public catalog. availableOnly hides rooms taken
// out of service.
func (s *Service) List(ctx context.Context, availableOnly bool) ([]*Room, error) {
	rooms, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rooms")
	}
	if !availableOnly {
		return rooms, nil
	}

	filtered := rooms[:0]
	for _, room := range rooms {
		if room.Available {
			filtered = append(filtered, room)
		}
	}
	return filtered, nil
}

func (s *Service) Get(ctx context.Context, roomID id.RoomID) (*Room, error) {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "room not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load room")
	}
	return room, nil
}

// Create adds a room to the catalog.
func (s *Service) Create(ctx context.Context, room *Room) (*Room, error) {
	if room.Number == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "room number is required")
	}
	if room.NightlyRateCents <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "nightly rate must be positive")
	}
	if room.Capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "capacity must be positive")
	}

	now := requestcontext.Now(ctx)
	room.ID = id.RoomID(uuid.New())
	room.CreatedAt = now
	room.UpdatedAt = now

	if err := s.store.Create(ctx, room); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "room number already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create room")
	}

	s.emit(ctx, audit.EventRoomCreated, room.Number)
	return room, nil
}

// Update applies a patch to an existing room.
func (s *Service) Update(ctx context.Context, roomID id.RoomID, patch RoomPatch) (*Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if patch.Description != nil {
		room.Description = *patch.Description
	}
	if patch.Capacity != nil {
		if *patch.Capacity <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "capacity must be positive")
		}
		room.Capacity = *patch.Capacity
	}
	if patch.NightlyRateCents != nil {
		if *patch.NightlyRateCents <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "nightly rate must be positive")
		}
		room.NightlyRateCents = *patch.NightlyRateCents
	}
	if patch.Available != nil {
		room.Available = *patch.Available
	}
	room.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, room); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update room")
	}

	s.emit(ctx, audit.EventRoomUpdated, room.Number)
	return room, nil
}

// Delete removes a room from the catalog.
func (s *Service) Delete(ctx context.Context, roomID id.RoomID) error {
	if err := s.store.Delete(ctx, roomID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "room not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete room")
	}

	s.emit(ctx, audit.EventRoomDeleted, roomID.String())
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(action),
		Subject:   subject,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
