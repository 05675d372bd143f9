package booking

import "github.com/oakbridge/club-sessions/internal/model"

// ReservationOutcome reports what CreateRegistration did.  A primary
// registration is all or nothing: either every requested seat was granted
// (Registration and Hold set) or none was and the member joined the queue
// (Entry set).  GrantedSeats + WaitlistedSeats equals the seats requested.
type ReservationOutcome struct {
	Registration    *model.Registration
	Hold            *model.Hold
	Entry           *model.WaitlistEntry
	GrantedSeats    uint32
	WaitlistedSeats uint32
}

// Waitlisted reports whether the member ended up in the queue instead of a
// registration.
func (o *ReservationOutcome) Waitlisted() bool { return o.Entry != nil }

// GuestAdmission reports the split result of AddGuests.  Granted guests got
// seats under Hold (their rows are GuestIDs); the remainder was merged into
// the registration's ADD_GUESTS queue entry.  Granted + Waitlisted equals
// the count requested.
type GuestAdmission struct {
	Granted    uint32
	Waitlisted uint32
	GuestIDs   []uint64
	Hold       *model.Hold
	Entry      *model.WaitlistEntry
}
