package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// AddGuests admits up to count extra guests onto an existing registration.
// Unlike the primary registration this is a partial operation: whatever
// fits is granted under a new ADD_GUESTS hold and the rest merges into the
// registration's ADD_GUESTS waitlist entry, growing it in place so the
// member keeps their position in line.  Granted + Waitlisted always equals
// count.
func (e *Engine) AddGuests(ctx context.Context, ownerID, regID uint64, count uint32, mode string) (*GuestAdmission, error) {
	if count > maxPartySeats {
		return nil, ErrTooManySeats
	}
	stub, err := e.regs.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	if stub.OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	var out *GuestAdmission
	err = e.inSessionTx(ctx, stub.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		if s.Status != model.SessionOpen {
			return nil, ErrSessionClosed
		}
		reg, err := e.regs.GetByIDTx(ctx, tx, regID)
		if err != nil {
			return nil, err
		}
		if reg.Status == model.RegistrationCancelled {
			return nil, ErrInvalidState
		}

		out = &GuestAdmission{}
		granted, err := e.sessions.ReserveSeatsTx(ctx, tx, s, count)
		if err != nil {
			return nil, err
		}
		if granted > 0 {
			hold, err := e.createHoldTx(ctx, tx, s, reg.ID, ownerID, model.HoldAddGuests, granted, mode, now)
			if err != nil {
				return nil, err
			}
			ids, err := e.guests.CreateBatchTx(ctx, tx, reg.ID, hold.ID, granted)
			if err != nil {
				return nil, err
			}
			if hold.Status == model.HoldConfirmed {
				if err := e.guests.SettleByHoldTx(ctx, tx, hold.ID); err != nil {
					return nil, err
				}
			}
			out.Granted = granted
			out.GuestIDs = ids
			out.Hold = hold
		}

		if rest := count - granted; rest > 0 {
			entry, err := e.waitlist.FindByOwnerTx(ctx, tx, s.ID, ownerID, model.WaitlistAddGuests)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				if err := e.waitlist.GrowTx(ctx, tx, entry.ID, rest); err != nil {
					return nil, err
				}
				entry.RequestedSeats += rest
			} else {
				pos, err := e.sessions.NextWaitlistPositionTx(ctx, tx, s)
				if err != nil {
					return nil, err
				}
				entry = &model.WaitlistEntry{
					SessionID:      s.ID,
					Kind:           model.WaitlistAddGuests,
					OwnerID:        ownerID,
					RegistrationID: &reg.ID,
					RequestedSeats: rest,
					Position:       pos,
				}
				if err := e.waitlist.CreateTx(ctx, tx, entry); err != nil {
					return nil, err
				}
			}
			out.Waitlisted = rest
			out.Entry = entry
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveGuests drops the named settled guests from a registration and
// frees exactly one seat per deleted row, serving the waitlist from the
// freed capacity.  Guests still tied to an unpaid hold are skipped; they
// leave through that hold's cancellation instead.  Returns how many seats
// came free.
func (e *Engine) RemoveGuests(ctx context.Context, ownerID, regID uint64, guestIDs []uint64) (uint32, error) {
	stub, err := e.regs.GetByID(ctx, regID)
	if err != nil {
		return 0, err
	}
	if stub.OwnerID != ownerID {
		return 0, repository.ErrForbidden
	}
	var freed uint32
	err = e.inSessionTx(ctx, stub.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		reg, err := e.regs.GetByIDTx(ctx, tx, regID)
		if err != nil {
			return nil, err
		}
		if reg.Status == model.RegistrationCancelled {
			return nil, ErrInvalidState
		}
		freed, err = e.guests.DeleteBatchTx(ctx, tx, regID, guestIDs)
		if err != nil {
			return nil, err
		}
		if freed > 0 {
			if err := e.sessions.ReleaseSeatsTx(ctx, tx, s, freed); err != nil {
				return nil, err
			}
		}
		return e.promoteTx(ctx, tx, s, now)
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}
