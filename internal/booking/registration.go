package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// CreateRegistration books the member plus guestCount guests into a
// session.  The primary registration is all or nothing: either all
// 1+guestCount seats are granted under a single hold, or none are and the
// member joins the waitlist as a NEW_SPOT entry for one seat.  Capacity
// freed by hold expiry is offered to the waitlist before the newcomer by
// the transaction preamble, so nobody jumps the queue by retrying.
func (e *Engine) CreateRegistration(ctx context.Context, ownerID, sessionID uint64, guestCount uint32, mode string) (*ReservationOutcome, error) {
	if guestCount >= maxPartySeats {
		return nil, ErrTooManySeats
	}
	var out *ReservationOutcome
	err := e.inSessionTx(ctx, sessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		if s.Status != model.SessionOpen {
			return nil, ErrSessionClosed
		}
		active, err := e.regs.ActiveByOwnerAndSessionTx(ctx, tx, ownerID, s.ID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrAlreadyRegistered
		}

		need := 1 + guestCount
		if s.Available() < need {
			existing, err := e.waitlist.FindByOwnerTx(ctx, tx, s.ID, ownerID, model.WaitlistNewSpot)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, ErrAlreadyWaitlisted
			}
			pos, err := e.sessions.NextWaitlistPositionTx(ctx, tx, s)
			if err != nil {
				return nil, err
			}
			entry := &model.WaitlistEntry{
				SessionID:      s.ID,
				Kind:           model.WaitlistNewSpot,
				OwnerID:        ownerID,
				RequestedSeats: 1,
				Position:       pos,
			}
			if err := e.waitlist.CreateTx(ctx, tx, entry); err != nil {
				return nil, err
			}
			out = &ReservationOutcome{Entry: entry, WaitlistedSeats: need}
			return nil, nil
		}

		granted, err := e.sessions.ReserveSeatsTx(ctx, tx, s, need)
		if err != nil {
			return nil, err
		}
		if granted != need {
			return nil, repository.ErrLedgerUnderflow
		}
		reg, err := e.regs.CreateTx(ctx, tx, s.ID, ownerID)
		if err != nil {
			return nil, err
		}
		hold, err := e.createHoldTx(ctx, tx, s, reg.ID, ownerID, model.HoldNewRegistration, need, mode, now)
		if err != nil {
			return nil, err
		}
		if _, err := e.guests.CreateBatchTx(ctx, tx, reg.ID, hold.ID, guestCount); err != nil {
			return nil, err
		}
		var events []func()
		if hold.Status == model.HoldConfirmed {
			if err := e.guests.SettleByHoldTx(ctx, tx, hold.ID); err != nil {
				return nil, err
			}
			if err := e.setRegistrationStatusTx(ctx, tx, reg, model.RegistrationConfirmed); err != nil {
				return nil, err
			}
			ev := confirmedEvent(s, reg, hold, now)
			events = append(events, func() { e.notifier.RegistrationConfirmed(ctx, ev) })
		}
		out = &ReservationOutcome{Registration: reg, Hold: hold, GrantedSeats: need}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel frees every seat a registration occupies and serves the waitlist
// from them, all in one transaction.  Cancelling an already cancelled
// registration returns ErrAlreadyCancelled and changes nothing; the seats
// were freed the first time.
func (e *Engine) Cancel(ctx context.Context, ownerID, regID uint64) error {
	stub, err := e.regs.GetByID(ctx, regID)
	if err != nil {
		return err
	}
	if stub.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	return e.inSessionTx(ctx, stub.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		reg, err := e.regs.GetByIDTx(ctx, tx, regID)
		if err != nil {
			return nil, err
		}
		if reg.Status == model.RegistrationCancelled {
			return nil, ErrAlreadyCancelled
		}
		if err := e.cancelRegistrationTx(ctx, tx, s, reg); err != nil {
			return nil, err
		}
		return e.promoteTx(ctx, tx, s, now)
	})
}

// cancelRegistrationTx releases everything a non-cancelled registration
// accounts for: its outstanding holds lapse (seats, unsettled guests and
// points portions come back) and its settled seats return to the ledger.
// The remaining guest rows are deleted with it; a guest row never outlives
// a non-cancelled registration.  The registration ends CANCELLED and its
// queued guest demand is dropped.  Promotion is the caller's job.
func (e *Engine) cancelRegistrationTx(ctx context.Context, tx *sql.Tx, s *model.Session, reg *model.Registration) error {
	awaiting, err := e.holds.AwaitingByRegistrationTx(ctx, tx, reg.ID)
	if err != nil {
		return err
	}
	for i := range awaiting {
		if err := e.lapseHoldSeatsTx(ctx, tx, s, &awaiting[i], model.HoldCancelled); err != nil {
			return err
		}
	}
	settled, err := e.guests.CountSettledTx(ctx, tx, reg.ID)
	if err != nil {
		return err
	}
	toRelease := settled
	if reg.Status == model.RegistrationConfirmed {
		toRelease++ // the member's own settled seat
	}
	if toRelease > 0 {
		if err := e.sessions.ReleaseSeatsTx(ctx, tx, s, toRelease); err != nil {
			return err
		}
	}
	if err := e.guests.DeleteByRegistrationTx(ctx, tx, reg.ID); err != nil {
		return err
	}
	if err := e.setRegistrationStatusTx(ctx, tx, reg, model.RegistrationCancelled); err != nil {
		return err
	}
	return e.waitlist.DeleteByRegistrationTx(ctx, tx, reg.ID)
}
