package model

import "time"

// Guest is one admitted guest seat attached to a registration.  The name is
// a mutable label assigned by the member after admission and has no effect
// on seat accounting; deleting a guest frees exactly one seat.
//
// While a guest's admitting hold is still awaiting payment, HoldID points
// at it; settling the hold clears the link.  An unpaid hold that lapses
// takes exactly its linked guests with it.
//
// Fields:
//  ID             – primary key identifier.
//  RegistrationID – owning registration; guests never outlive it.
//  HoldID         – admitting hold while payment is outstanding (nil once settled).
//  Name           – display label, may be empty until the member names it.
//  CreatedAt      – creation timestamp.
type Guest struct {
	ID             uint64    // guests.id
	RegistrationID uint64    // guests.registration_id
	HoldID         *uint64   // guests.hold_id (nullable)
	Name           string    // guests.name
	CreatedAt      time.Time // guests.created_at
}
