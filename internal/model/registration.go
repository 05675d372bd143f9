package model

import "time"

// Registration statuses.  PENDING means seats are reserved through a hold
// that still awaits payment; CONFIRMED means payment went through;
// CANCELLED is terminal and frees the seats.
const (
	RegistrationPending   = "PENDING"
	RegistrationConfirmed = "CONFIRMED"
	RegistrationCancelled = "CANCELLED"
)

// Registration is a member's claim on seats in one session.  It always
// accounts for the primary attendee plus the guests attached to it, so a
// non-cancelled registration occupies 1 + guest count seats.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – session being attended.
//  OwnerID   – the authenticated member who created it.
//  Status    – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Registration struct {
	ID        uint64    // registrations.id
	SessionID uint64    // registrations.session_id
	OwnerID   uint64    // registrations.owner_id
	Status    string    // registrations.status
	CreatedAt time.Time // registrations.created_at
	UpdatedAt time.Time // registrations.updated_at
}

// ValidRegistrationTransition reports whether a registration may move from
// one status to another.  PENDING can become CONFIRMED or CANCELLED, a
// CONFIRMED registration can still be cancelled by its owner, and CANCELLED
// is terminal.  Nothing re-enters PENDING.
func ValidRegistrationTransition(from, to string) bool {
	switch from {
	case RegistrationPending:
		return to == RegistrationConfirmed || to == RegistrationCancelled
	case RegistrationConfirmed:
		return to == RegistrationCancelled
	default:
		return false
	}
}
