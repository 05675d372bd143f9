package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/queue"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// promotionGrant is one planned step of a promotion walk: the entry at the
// head of the remaining queue and how many of its seats fit.
type promotionGrant struct {
	Entry model.WaitlistEntry
	Seats uint32
}

// planPromotions walks entries in ascending position and grants each
// min(requested, still available) until availability runs out.  An entry
// is never skipped in favour of a smaller one behind it: a partial grant
// to the head that exhausts availability ends the walk.  The sum of all
// granted seats never exceeds available.
func planPromotions(entries []model.WaitlistEntry, available uint32) []promotionGrant {
	grants := make([]promotionGrant, 0, len(entries))
	for _, e := range entries {
		if available == 0 {
			break
		}
		seats := e.RequestedSeats
		if seats > available {
			seats = available
		}
		if seats == 0 {
			continue
		}
		grants = append(grants, promotionGrant{Entry: e, Seats: seats})
		available -= seats
	}
	return grants
}

// promoteTx serves the session's waitlist from whatever capacity is free,
// inside the transaction that freed it.  Promoted members do not pay on
// the spot: each grant reserves seats under a WAITLIST_PROMOTION card hold
// and the member settles through the usual gateway flow.  A seat.promoted
// event per grant fires after commit.
func (e *Engine) promoteTx(ctx context.Context, tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
	entries, err := e.waitlist.ListBySessionTx(ctx, tx, s.ID)
	if err != nil {
		return nil, err
	}
	grants := planPromotions(entries, s.Available())
	events := make([]func(), 0, len(grants))
	for _, g := range grants {
		granted, err := e.sessions.ReserveSeatsTx(ctx, tx, s, g.Seats)
		if err != nil {
			return nil, err
		}
		if granted != g.Seats {
			// the plan was computed under the same lock, so a short
			// grant here means the ledger and plan disagree
			return nil, repository.ErrLedgerUnderflow
		}

		var regID uint64
		switch g.Entry.Kind {
		case model.WaitlistNewSpot:
			reg, err := e.regs.CreateTx(ctx, tx, s.ID, g.Entry.OwnerID)
			if err != nil {
				return nil, err
			}
			regID = reg.ID
		case model.WaitlistAddGuests:
			regID = *g.Entry.RegistrationID
		}

		hold := &model.Hold{
			SessionID:      s.ID,
			RegistrationID: regID,
			Kind:           model.HoldWaitlistPromotion,
			Seats:          g.Seats,
			PaymentMode:    model.PayCard,
			AmountCents:    s.PriceCents * g.Seats,
			PaymentRef:     newPaymentRef(),
			Status:         model.HoldAwaitingPayment,
		}
		exp := now.Add(e.holdTTL)
		hold.ExpiresAt = &exp
		if err := e.holds.CreateTx(ctx, tx, hold); err != nil {
			return nil, err
		}
		if g.Entry.Kind == model.WaitlistAddGuests {
			if _, err := e.guests.CreateBatchTx(ctx, tx, regID, hold.ID, g.Seats); err != nil {
				return nil, err
			}
		}

		if g.Seats >= g.Entry.RequestedSeats {
			err = e.waitlist.DeleteTx(ctx, tx, g.Entry.ID)
		} else {
			err = e.waitlist.ReduceTx(ctx, tx, g.Entry.ID, g.Seats)
		}
		if err != nil {
			return nil, err
		}

		ev := queue.SeatPromotedEvent{
			SessionID:      s.ID,
			SessionTitle:   s.Title,
			UserID:         g.Entry.OwnerID,
			RegistrationID: regID,
			Seats:          g.Seats,
			HoldRef:        hold.PaymentRef,
			ExpiresAt:      exp.Format(time.RFC3339),
			PromotedAt:     now.Format(time.RFC3339),
		}
		events = append(events, func() { e.notifier.SeatPromoted(ctx, ev) })
	}
	return events, nil
}
