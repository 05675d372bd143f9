// Package queue defines the notification payloads exchanged over the
// message broker.  The booking engine publishes these; the notification
// collaborator (email, push) consumes them.  The engine never sends
// messages to members itself.
package queue

// Event types carried in the envelope.
const (
	TypeSeatPromoted          = "seat.promoted"
	TypeHoldExpiring          = "hold.expiring"
	TypeRegistrationConfirmed = "registration.confirmed"
)

// Envelope wraps every published notification so a single durable queue can
// carry all event kinds.  Exactly one payload field is set, matching Type.
type Envelope struct {
	Type                  string                      `json:"type"`
	SeatPromoted          *SeatPromotedEvent          `json:"seat_promoted,omitempty"`
	HoldExpiring          *HoldExpiringEvent          `json:"hold_expiring,omitempty"`
	RegistrationConfirmed *RegistrationConfirmedEvent `json:"registration_confirmed,omitempty"`
}

// SeatPromotedEvent is published when the promotion engine moves waitlisted
// seats into a real reservation.  It carries enough for the notification
// layer to tell the member their spot opened up and payment is due.
type SeatPromotedEvent struct {
	SessionID      uint64 `json:"session_id"`
	SessionTitle   string `json:"session_title"`
	UserID         uint64 `json:"user_id"`
	RegistrationID uint64 `json:"registration_id"`
	Seats          uint32 `json:"seats"`
	HoldRef        string `json:"hold_ref"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	PromotedAt     string `json:"promoted_at"`
}

// HoldExpiringEvent warns that an unpaid hold is about to lapse.  Emitted
// at most once per hold.
type HoldExpiringEvent struct {
	SessionID      uint64 `json:"session_id"`
	UserID         uint64 `json:"user_id"`
	RegistrationID uint64 `json:"registration_id"`
	Seats          uint32 `json:"seats"`
	HoldRef        string `json:"hold_ref"`
	ExpiresAt      string `json:"expires_at"`
}

// RegistrationConfirmedEvent is published when payment lands and a
// registration's seats become permanently occupied.
type RegistrationConfirmedEvent struct {
	SessionID      uint64 `json:"session_id"`
	SessionTitle   string `json:"session_title"`
	UserID         uint64 `json:"user_id"`
	RegistrationID uint64 `json:"registration_id"`
	Seats          uint32 `json:"seats"`
	AmountCents    uint32 `json:"amount_cents"`
	ConfirmedAt    string `json:"confirmed_at"`
}
