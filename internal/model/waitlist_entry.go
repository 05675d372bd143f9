package model

import "time"

// Waitlist entry kinds.  A NEW_SPOT entry is a member with no registration
// waiting for a single seat; an ADD_GUESTS entry belongs to an existing
// registration whose extra guests did not fit.
const (
	WaitlistNewSpot   = "NEW_SPOT"
	WaitlistAddGuests = "ADD_GUESTS"
)

// WaitlistEntry records unmet demand for seats in a session.  Entries are
// served strictly by ascending position regardless of kind; positions are
// allocated from the session's counter and never reused, so reducing an
// entry keeps its place in line.
//
// Fields:
//  ID             – primary key identifier.
//  SessionID      – session being waited on.
//  Kind           – NEW_SPOT or ADD_GUESTS.
//  OwnerID        – member who queued.
//  RegistrationID – owning registration for ADD_GUESTS entries (nil for NEW_SPOT).
//  RequestedSeats – seats still wanted; always >= 1 while the entry exists.
//  Position       – FIFO order within the session.
//  CreatedAt      – creation timestamp.
type WaitlistEntry struct {
	ID             uint64    // waitlist_entries.id
	SessionID      uint64    // waitlist_entries.session_id
	Kind           string    // waitlist_entries.kind
	OwnerID        uint64    // waitlist_entries.owner_id
	RegistrationID *uint64   // waitlist_entries.registration_id (nullable)
	RequestedSeats uint32    // waitlist_entries.requested_seats
	Position       uint64    // waitlist_entries.position
	CreatedAt      time.Time // waitlist_entries.created_at
}
