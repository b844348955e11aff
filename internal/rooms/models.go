// Package rooms manages the hotel room catalog. Browsing is public; managing
// the catalog is staff work.
package rooms

import (
	"time"

	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
)

// RoomType classifies a room for search and pricing.
type RoomType string

const (
	TypeSingle RoomType = "single"
	TypeDouble RoomType = "double"
	TypeSuite  RoomType = "suite"
)

// ParseRoomType validates a wire-level room type.
func ParseRoomType(raw string) (RoomType, error) {
	switch RoomType(raw) {
	case TypeSingle, TypeDouble, TypeSuite:
		return RoomType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "room type must be single, double, or suite")
	}
}

// Room is one bookable room. Rates are stored in cents to keep arithmetic
// exact.
type Room struct {
	ID               id.RoomID `json:"id"`
	Number           string    `json:"number"`
	Type             RoomType  `json:"type"`
	Description      string    `json:"description,omitempty"`
	Capacity         int       `json:"capacity"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	Available        bool      `json:"available"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RoomPatch carries optional fields for updates. Nil fields are untouched.
type RoomPatch struct {
	Description      *string
	Capacity         *int
	NightlyRateCents *int64
	Available        *bool
}
