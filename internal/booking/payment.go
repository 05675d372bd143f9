package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/queue"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// newPaymentRef mints the identifier handed to the payment gateway.  One
// ref maps to exactly one hold for its whole lifetime.
func newPaymentRef() string { return uuid.NewString() }

func confirmedEvent(s *model.Session, reg *model.Registration, h *model.Hold, now time.Time) queue.RegistrationConfirmedEvent {
	return queue.RegistrationConfirmedEvent{
		SessionID:      s.ID,
		SessionTitle:   s.Title,
		UserID:         reg.OwnerID,
		RegistrationID: reg.ID,
		Seats:          h.Seats,
		AmountCents:    h.AmountCents,
		ConfirmedAt:    now.Format(time.RFC3339),
	}
}

// splitMixed divides a mixed payment between the point account and the
// card: points cover as much as the balance allows, the card takes the
// rest.  points + card always equals amount.
func splitMixed(amountCents uint32, balanceCents int64) (points, card uint32) {
	if balanceCents <= 0 {
		return 0, amountCents
	}
	if balanceCents >= int64(amountCents) {
		return amountCents, 0
	}
	points = uint32(balanceCents)
	return points, amountCents - points
}

// createHoldTx reserves already-granted seats against a payment outcome.
// Points settle synchronously: the debit runs inside this transaction and
// a declined debit rolls the whole reservation back as ErrPaymentFailed.
// Card and mixed-remainder holds await the gateway and expire after the
// hold TTL.
func (e *Engine) createHoldTx(ctx context.Context, tx *sql.Tx, s *model.Session, regID, ownerID uint64, kind string, seats uint32, mode string, now time.Time) (*model.Hold, error) {
	amount := s.PriceCents * seats
	h := &model.Hold{
		SessionID:      s.ID,
		RegistrationID: regID,
		Kind:           kind,
		Seats:          seats,
		PaymentMode:    mode,
		AmountCents:    amount,
		PaymentRef:     newPaymentRef(),
	}

	switch mode {
	case model.PayPoints:
		h.PointsCents = amount
	case model.PayCard:
		h.PointsCents = 0
	case model.PayMixed:
		bal, err := e.points.BalanceTx(ctx, tx, ownerID)
		if err != nil {
			return nil, err
		}
		h.PointsCents, _ = splitMixed(amount, bal)
	default:
		return nil, ErrInvalidState
	}

	if h.PointsCents > 0 {
		if err := e.points.DebitTx(ctx, tx, ownerID, int64(h.PointsCents)); err != nil {
			if errors.Is(err, repository.ErrInsufficientPoints) {
				return nil, ErrPaymentFailed
			}
			return nil, err
		}
	}

	if h.PointsCents == amount {
		h.Status = model.HoldConfirmed
	} else {
		h.Status = model.HoldAwaitingPayment
		exp := now.Add(e.holdTTL)
		h.ExpiresAt = &exp
	}
	if err := e.holds.CreateTx(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// lapseHoldSeatsTx undoes everything an unconfirmed hold claimed: its
// unsettled guest rows, its seats in the ledger and its debited points
// portion.  The hold moves to the given terminal status.  The caller
// decides what happens to the registration.
func (e *Engine) lapseHoldSeatsTx(ctx context.Context, tx *sql.Tx, s *model.Session, h *model.Hold, status string) error {
	if _, err := e.guests.DeleteByHoldTx(ctx, tx, h.ID); err != nil {
		return err
	}
	if err := e.sessions.ReleaseSeatsTx(ctx, tx, s, h.Seats); err != nil {
		return err
	}
	if h.PointsCents > 0 {
		reg, err := e.regs.GetByIDTx(ctx, tx, h.RegistrationID)
		if err != nil {
			return err
		}
		if err := e.points.CreditTx(ctx, tx, reg.OwnerID, int64(h.PointsCents)); err != nil {
			return err
		}
	}
	return e.holds.UpdateStatusTx(ctx, tx, h.ID, status)
}

// expireStaleHoldsTx lapses every overdue hold of the locked session and
// returns how many it lapsed.  It runs at the top of every booking
// transaction, so no capacity decision is ever made while an expired hold
// still counts as occupied; a non-zero return tells inSessionTx that
// seats came free and the waitlist must be served.  Lapsing the primary
// hold of a still-pending registration cancels the registration with it.
func (e *Engine) expireStaleHoldsTx(ctx context.Context, tx *sql.Tx, s *model.Session, now time.Time) (int, error) {
	stale, err := e.holds.ExpiredBySessionTx(ctx, tx, s.ID, now)
	if err != nil {
		return 0, err
	}
	lapsed := 0
	for i := range stale {
		h := &stale[i]
		// Cancelling one hold's registration can lapse sibling holds from
		// this same batch, so re-check before touching the ledger again.
		cur, err := e.holds.GetByIDTx(ctx, tx, h.ID)
		if err != nil {
			return lapsed, err
		}
		if cur.Status != model.HoldAwaitingPayment {
			continue
		}
		if err := e.lapseHoldSeatsTx(ctx, tx, s, h, model.HoldExpired); err != nil {
			return lapsed, err
		}
		lapsed++
		if h.Kind == model.HoldAddGuests {
			continue
		}
		reg, err := e.regs.GetByIDTx(ctx, tx, h.RegistrationID)
		if err != nil {
			return lapsed, err
		}
		if reg.Status == model.RegistrationPending {
			if err := e.cancelRegistrationTx(ctx, tx, s, reg); err != nil {
				return lapsed, err
			}
		}
	}
	return lapsed, nil
}

// ConfirmHold settles the hold behind a gateway payment reference.  The
// seats it reserved become permanent: linked guests settle and a primary
// hold flips its registration to CONFIRMED.  Confirming twice is a no-op
// so gateway retries stay safe; confirming a lapsed hold reports
// ErrHoldExpired because its seats are already gone.
func (e *Engine) ConfirmHold(ctx context.Context, ref string) (*model.Hold, error) {
	stub, err := e.holds.GetByPaymentRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	var confirmed *model.Hold
	err = e.inSessionTx(ctx, stub.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		h, err := e.holds.GetByIDTx(ctx, tx, stub.ID)
		if err != nil {
			return nil, err
		}
		confirmed = h
		switch h.Status {
		case model.HoldConfirmed:
			return nil, nil
		case model.HoldExpired:
			return nil, ErrHoldExpired
		case model.HoldCancelled:
			return nil, ErrInvalidState
		}
		if err := e.holds.UpdateStatusTx(ctx, tx, h.ID, model.HoldConfirmed); err != nil {
			return nil, err
		}
		h.Status = model.HoldConfirmed
		if err := e.guests.SettleByHoldTx(ctx, tx, h.ID); err != nil {
			return nil, err
		}
		reg, err := e.regs.GetByIDTx(ctx, tx, h.RegistrationID)
		if err != nil {
			return nil, err
		}
		if h.Kind != model.HoldAddGuests && reg.Status == model.RegistrationPending {
			if err := e.setRegistrationStatusTx(ctx, tx, reg, model.RegistrationConfirmed); err != nil {
				return nil, err
			}
		}
		ev := confirmedEvent(s, reg, h, now)
		return []func(){func() { e.notifier.RegistrationConfirmed(ctx, ev) }}, nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// CancelHold abandons the hold behind a gateway payment reference, for
// example when the member backs out of the gateway checkout.  Seats,
// guests and any points portion come back and the freed capacity is
// offered to the waitlist in the same transaction.
func (e *Engine) CancelHold(ctx context.Context, ref string) error {
	stub, err := e.holds.GetByPaymentRef(ctx, ref)
	if err != nil {
		return err
	}
	return e.inSessionTx(ctx, stub.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		h, err := e.holds.GetByIDTx(ctx, tx, stub.ID)
		if err != nil {
			return nil, err
		}
		switch h.Status {
		case model.HoldCancelled:
			return nil, nil
		case model.HoldExpired:
			return nil, ErrHoldExpired
		case model.HoldConfirmed:
			return nil, ErrInvalidState
		}
		if err := e.lapseHoldSeatsTx(ctx, tx, s, h, model.HoldCancelled); err != nil {
			return nil, err
		}
		if h.Kind != model.HoldAddGuests {
			reg, err := e.regs.GetByIDTx(ctx, tx, h.RegistrationID)
			if err != nil {
				return nil, err
			}
			if reg.Status == model.RegistrationPending {
				if err := e.cancelRegistrationTx(ctx, tx, s, reg); err != nil {
					return nil, err
				}
			}
		}
		return e.promoteTx(ctx, tx, s, now)
	})
}
