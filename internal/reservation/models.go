// Package reservation manages bookings: quoting a stay, holding it until
// payment, and cancelling. Only verified guests may reserve.
package reservation

import (
	"time"

	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
)

// Status is the reservation lifecycle. A reservation is created pending and
// becomes confirmed when its payment is recorded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Extra is an add-on service for a stay.
type Extra string

const (
	ExtraBreakfast    Extra = "breakfast"
	ExtraParking      Extra = "parking"
	ExtraLaundry      Extra = "laundry"
	ExtraLateCheckout Extra = "late_checkout"
)

// ParseExtra validates a wire-level service name.
func ParseExtra(raw string) (Extra, error) {
	switch Extra(raw) {
	case ExtraBreakfast, ExtraParking, ExtraLaundry, ExtraLateCheckout:
		return Extra(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown service: "+raw)
	}
}

// Reservation is one held or confirmed stay. Dates are nights, not instants:
// CheckIn is the first night, CheckOut the morning of departure.
type Reservation struct {
	ID          id.ReservationID `json:"id"`
	UserID      id.UserID        `json:"user_id"`
	RoomID      id.RoomID        `json:"room_id"`
	CheckIn     time.Time        `json:"check_in"`
	CheckOut    time.Time        `json:"check_out"`
	Guests      int              `json:"guests"`
	Services    []Extra          `json:"services,omitempty"`
	Status      Status           `json:"status"`
	TotalCents  int64            `json:"total_cents"`
	CreatedAt   time.Time        `json:"created_at"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// Nights is the number of nights between check-in and check-out.
func (r *Reservation) Nights() int {
	return nights(r.CheckIn, r.CheckOut)
}

// Overlaps reports whether two date ranges share at least one night.
func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return r.CheckIn.Before(checkOut) && checkIn.Before(r.CheckOut)
}

func nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}
