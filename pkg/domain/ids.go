// Package domain holds typed identifiers shared across features. Distinct ID
// types keep a RoomID from ever being passed where a UserID is expected; the
// compiler enforces what code review would otherwise have to catch.
package domain

import (
	"github.com/google/uuid"

	dErrors "concierge/pkg/domain-errors"
)

type (
	UserID        uuid.UUID
	SessionID     uuid.UUID
	RoomID        uuid.UUID
	ReservationID uuid.UUID
	PaymentID     uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id RoomID) String() string        { return uuid.UUID(id).String() }
func (id ReservationID) String() string { return uuid.UUID(id).String() }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RoomID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ReservationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's text marshaling, and without it
// encoding/json renders the underlying byte array. Delegate explicitly so IDs
// cross the wire as canonical UUID strings.

func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id RoomID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ReservationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PaymentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error        { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *SessionID) UnmarshalText(data []byte) error     { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *RoomID) UnmarshalText(data []byte) error        { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *ReservationID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *PaymentID) UnmarshalText(data []byte) error     { return (*uuid.UUID)(id).UnmarshalText(data) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session")
	return SessionID(parsed), err
}

func ParseRoomID(raw string) (RoomID, error) {
	parsed, err := parseUUID(raw, "room")
	return RoomID(parsed), err
}

func ParseReservationID(raw string) (ReservationID, error) {
	parsed, err := parseUUID(raw, "reservation")
	return ReservationID(parsed), err
}
