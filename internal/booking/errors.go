package booking

import "errors"

// Sentinel errors returned by the engine.  Handlers map these to HTTP
// statuses with errors.Is; repository sentinels (not found, forbidden,
// underflow) pass through unchanged.
var (
	// ErrAlreadyRegistered means the member already holds a non-cancelled
	// registration for the session.
	ErrAlreadyRegistered = errors.New("member already registered for this session")

	// ErrAlreadyCancelled signals that a cancellation found nothing left to
	// do.  It is a no-op signal rather than a failure: the seats were
	// already freed and must not be freed again.
	ErrAlreadyCancelled = errors.New("registration already cancelled")

	// ErrAlreadyWaitlisted means the member already has a NEW_SPOT entry in
	// the session's queue.
	ErrAlreadyWaitlisted = errors.New("member already on the waitlist")

	// ErrInvalidState means the operation is not legal for the current
	// registration or hold status.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrHoldExpired means the hold lapsed before the gateway signal
	// arrived; its seats have already been released.
	ErrHoldExpired = errors.New("hold has expired")

	// ErrPaymentFailed means a synchronous points debit was declined and
	// the reservation was rolled back with it.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrSessionClosed means the session no longer accepts new
	// registrations or guests.  Existing holds and promotions still settle.
	ErrSessionClosed = errors.New("session is closed for booking")

	// ErrTooManySeats means a single request asked for more seats than the
	// per-request cap allows.
	ErrTooManySeats = errors.New("requested seats exceed the per-request limit")
)
