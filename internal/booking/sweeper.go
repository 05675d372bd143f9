package booking

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/queue"
)

// StartSweeper launches the background loop that lapses overdue holds and
// warns members whose holds are close to expiry.  The lazy per-transaction
// sweep already keeps actively traded sessions clean; this loop covers
// quiet sessions nobody is touching.  Stops when ctx is cancelled.
func (e *Engine) StartSweeper(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sweepOnce(ctx)
			}
		}
	}()
}

// sweepOnce expires overdue holds session by session, each under its own
// row lock, and offers the freed seats to that session's waitlist.  Then
// it emits a one-time hold.expiring warning for every hold that enters
// the warn window.
func (e *Engine) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()
	sessionIDs, err := e.holds.SessionsWithExpiredHolds(ctx, now)
	if err != nil {
		log.Printf("hold sweeper: listing sessions: %v", err)
		return
	}
	for _, id := range sessionIDs {
		// expiry and the promotion it triggers both run in the transaction
		// preamble; the body has nothing left to do
		err := e.inSessionTx(ctx, id, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
			return nil, nil
		})
		if err != nil {
			log.Printf("hold sweeper: session %d: %v", id, err)
		}
	}
	e.warnExpiring(ctx, now)
}

// warnExpiring publishes hold.expiring for unconfirmed holds that lapse
// within the warn window.  expiry_notified_at makes the warning
// once-per-hold even across sweeper restarts.
func (e *Engine) warnExpiring(ctx context.Context, now time.Time) {
	soon, err := e.holds.ExpiringSoon(ctx, now, e.warnWindow)
	if err != nil {
		log.Printf("hold sweeper: listing expiring holds: %v", err)
		return
	}
	for i := range soon {
		h := &soon[i]
		reg, err := e.regs.GetByID(ctx, h.RegistrationID)
		if err != nil {
			log.Printf("hold sweeper: hold %d registration: %v", h.ID, err)
			continue
		}
		e.notifier.HoldExpiring(ctx, queue.HoldExpiringEvent{
			SessionID:      h.SessionID,
			UserID:         reg.OwnerID,
			RegistrationID: reg.ID,
			Seats:          h.Seats,
			HoldRef:        h.PaymentRef,
			ExpiresAt:      h.ExpiresAt.Format(time.RFC3339),
		})
		if err := e.holds.MarkExpiryNotified(ctx, h.ID, now); err != nil {
			log.Printf("hold sweeper: marking hold %d notified: %v", h.ID, err)
		}
	}
}
