package session

import (
	"time"

	id "concierge/pkg/domain"
)

// Role distinguishes hotel guests from staff. Staff may manage rooms and see
// every reservation.
type Role string

const (
	RoleGuest Role = "guest"
	RoleStaff Role = "staff"
)

// State is the three-valued session union. Unknown means resolution has not
// completed; gates must suspend judgment on it, never treat it as Anonymous.
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Principal is the authenticated user's identity record as resolved against
// the user store. A non-nil Principal implies a previously successful
// authentication exchange.
type Principal struct {
	ID             id.UserID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	Verified       bool      `json:"verified"`
	DocumentNumber string    `json:"document_number,omitempty"`
}

// IsVerified is the single definition of the "identity verified" business
// rule. Gates and handlers go through here rather than reading the flag.
func (p *Principal) IsVerified() bool {
	return p != nil && p.Verified
}

// Snapshot pairs a State with its Principal. Principal is non-nil exactly
// when State is StateAuthenticated.
type Snapshot struct {
	State     State
	Principal *Principal
}

func Unknown() Snapshot   { return Snapshot{State: StateUnknown} }
func Anonymous() Snapshot { return Snapshot{State: StateAnonymous} }
func Authenticated(p *Principal) Snapshot {
	return Snapshot{State: StateAuthenticated, Principal: p}
}

// User is the stored identity record. PasswordHash is set only for staff
// accounts with local credentials.
type User struct {
	ID             id.UserID
	Email          string
	Name           string
	Role           Role
	Verified       bool
	DocumentNumber string
	BirthDate      *time.Time
	PasswordHash   []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal projects the stored user onto the client-facing identity record.
func (u *User) Principal() *Principal {
	return &Principal{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		Verified:       u.Verified,
		DocumentNumber: u.DocumentNumber,
	}
}

// Session is one authenticated device. Revocation is a tombstone, not a
// delete, so listings can show history until expiry cleanup.
type Session struct {
	ID         id.SessionID
	UserID     id.UserID
	DeviceName string
	IPAddress  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
	RevokedAt  *time.Time
}

// Active reports whether the session may still authenticate requests at the
// given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Summary is the client-facing view of a session for the devices listing.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}

// PrincipalPatch carries optional profile fields for PatchLocal. Nil fields
// are left untouched.
type PrincipalPatch struct {
	Name  *string
	Email *string
}

// Meta captures client metadata recorded on the session at login.
type Meta struct {
	DeviceName string
	IPAddress  string
}

// ExternalIdentity is what the external identity provider asserts about a
// credential.
type ExternalIdentity struct {
	Email string
	Name  string
}
