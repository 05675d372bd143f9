package model

import "time"

// Hold kinds correspond to the operation that reserved the seats.
const (
	HoldNewRegistration   = "NEW_REGISTRATION"
	HoldAddGuests         = "ADD_GUESTS"
	HoldWaitlistPromotion = "WAITLIST_PROMOTION"
)

// Hold statuses.
const (
	HoldAwaitingPayment = "AWAITING_PAYMENT"
	HoldConfirmed       = "CONFIRMED"
	HoldExpired         = "EXPIRED"
	HoldCancelled       = "CANCELLED"
)

// Payment modes.  POINTS settles synchronously against the member's point
// account; CARD awaits an external gateway signal; MIXED debits the points
// portion up front and awaits the card remainder.
const (
	PayCard   = "CARD"
	PayPoints = "POINTS"
	PayMixed  = "MIXED"
)

// Hold is a temporary, expiring claim on seats pending payment confirmation.
// It is the only thing that increments a session's occupied counter.  Card
// and mixed holds carry an expiry 24 hours after creation; once that passes
// they must be treated as expired before any capacity computation.
//
// Fields:
//  ID               – primary key identifier.
//  SessionID        – session the seats belong to.
//  RegistrationID   – registration the seats are for.
//  Kind             – NEW_REGISTRATION, ADD_GUESTS or WAITLIST_PROMOTION.
//  Seats            – number of seats held; >= 1.
//  PaymentMode      – CARD, POINTS or MIXED.
//  AmountCents      – total charge for the held seats.
//  PointsCents      – portion already debited from the point account.
//  PaymentRef       – uuid handed to the payment gateway, 1:1 with this hold.
//  Status           – AWAITING_PAYMENT, CONFIRMED, EXPIRED or CANCELLED.
//  ExpiresAt        – when an unconfirmed hold lapses (nil for points holds).
//  ExpiryNotifiedAt – when the expiry warning event was emitted, if ever.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Hold struct {
	ID               uint64     // holds.id
	SessionID        uint64     // holds.session_id
	RegistrationID   uint64     // holds.registration_id
	Kind             string     // holds.kind
	Seats            uint32     // holds.seats
	PaymentMode      string     // holds.payment_mode
	AmountCents      uint32     // holds.amount_cents
	PointsCents      uint32     // holds.points_cents
	PaymentRef       string     // holds.payment_ref
	Status           string     // holds.status
	ExpiresAt        *time.Time // holds.expires_at (nullable)
	ExpiryNotifiedAt *time.Time // holds.expiry_notified_at (nullable)
	CreatedAt        time.Time  // holds.created_at
	UpdatedAt        time.Time  // holds.updated_at
}

// ExpiredBy reports whether the hold should be treated as expired at the
// given instant.  Only unconfirmed holds with an expiry can lapse.
func (h *Hold) ExpiredBy(now time.Time) bool {
	return h.Status == HoldAwaitingPayment && h.ExpiresAt != nil && !now.Before(*h.ExpiresAt)
}
