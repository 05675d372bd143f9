package model

import "time"

// SessionStatus enumerates the lifecycle states of a play session.
const (
	SessionOpen   = "OPEN"
	SessionClosed = "CLOSED"
)

// Session represents a scheduled play session that members register for.
// The pair capacity/occupied is the seat ledger: occupied counts every seat
// claimed by a confirmed registration or by a hold that is still awaiting
// payment, and 0 <= occupied <= capacity must hold at all times.  The
// occupied column is only ever changed while the session row is locked.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display name of the session.
//  StartsAt        – when the session takes place (UTC).
//  Capacity        – total number of seats; immutable once created.
//  Occupied        – seats currently claimed (ledger value).
//  PriceCents      – price per attendee slot in cents.
//  NextWaitlistPos – next FIFO position to hand out; never reused.
//  Status          – OPEN or CLOSED.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Session struct {
	ID              uint64    // sessions.id
	Title           string    // sessions.title
	StartsAt        time.Time // sessions.starts_at
	Capacity        uint32    // sessions.capacity
	Occupied        uint32    // sessions.occupied
	PriceCents      uint32    // sessions.price_cents
	NextWaitlistPos uint64    // sessions.next_waitlist_pos
	Status          string    // sessions.status
	CreatedAt       time.Time // sessions.created_at
	UpdatedAt       time.Time // sessions.updated_at
}

// Available returns the number of seats that can still be reserved.
func (s *Session) Available() uint32 {
	if s.Occupied >= s.Capacity {
		return 0
	}
	return s.Capacity - s.Occupied
}
