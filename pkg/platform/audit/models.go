// Package audit defines the audit event model and the Store contract that
// sinks implement. Domain services emit events through the publisher; where
// they land (memory, Kafka) is wiring.
package audit

import (
	"context"
	"time"

	id "concierge/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	Subject   string
	Reason    string
	// DeviceID keys events for visitors who are not authenticated yet
	// (blocked navigations, failed logins).
	DeviceID  string
	ClientIP  string
	RequestID string
}

// AuditEvent enumerates the actions this service records.
type AuditEvent string

const (
	EventUserCreated          AuditEvent = "user_created"
	EventSessionCreated       AuditEvent = "session_created"
	EventSessionRevoked       AuditEvent = "session_revoked"
	EventLoginFailed          AuditEvent = "login_failed"
	EventLoginLocked          AuditEvent = "login_locked"
	EventNavigationBlocked    AuditEvent = "navigation_blocked"
	EventIdentityVerified     AuditEvent = "identity_verified"
	EventVerificationRejected AuditEvent = "verification_rejected"
	EventReservationCreated   AuditEvent = "reservation_created"
	EventReservationCancelled AuditEvent = "reservation_cancelled"
	EventPaymentRecorded      AuditEvent = "payment_recorded"
	EventRoomCreated          AuditEvent = "room_created"
	EventRoomUpdated          AuditEvent = "room_updated"
	EventRoomDeleted          AuditEvent = "room_deleted"
)

// Store persists audit events. Implementations must be safe for concurrent
// use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
