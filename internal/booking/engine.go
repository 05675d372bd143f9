// Package booking implements the seat ledger, registrations, the FIFO
// waitlist, promotion and payment holds for play sessions.  Every mutation
// runs in a single database transaction that starts by locking the
// session row, which serialises all capacity changes per session while
// leaving other sessions untouched.
package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/queue"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// Notifier publishes booking events to the message broker after the
// owning transaction commits.  Implementations must not block the caller
// on broker failures; a lost notification never invalidates a booking.
type Notifier interface {
	SeatPromoted(ctx context.Context, ev queue.SeatPromotedEvent)
	HoldExpiring(ctx context.Context, ev queue.HoldExpiringEvent)
	RegistrationConfirmed(ctx context.Context, ev queue.RegistrationConfirmedEvent)
}

// Engine coordinates the repositories into the booking operations.  It is
// safe for concurrent use; per-session ordering comes from the row lock,
// not from the engine.
type Engine struct {
	db       *sql.DB
	sessions *repository.SessionRepo
	regs     *repository.RegistrationRepo
	guests   *repository.GuestRepo
	waitlist *repository.WaitlistRepo
	holds    *repository.HoldRepo
	points   *repository.PointsRepo
	notifier Notifier

	holdTTL    time.Duration // lifetime of an unpaid card hold
	warnWindow time.Duration // how far ahead of expiry the warning goes out
}

// NewEngine constructs an Engine.  All dependencies must be non-nil.
func NewEngine(
	db *sql.DB,
	sessions *repository.SessionRepo,
	regs *repository.RegistrationRepo,
	guests *repository.GuestRepo,
	waitlist *repository.WaitlistRepo,
	holds *repository.HoldRepo,
	points *repository.PointsRepo,
	notifier Notifier,
	holdTTL, warnWindow time.Duration,
) *Engine {
	if db == nil || sessions == nil || regs == nil || guests == nil || waitlist == nil || holds == nil || points == nil || notifier == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{
		db:         db,
		sessions:   sessions,
		regs:       regs,
		guests:     guests,
		waitlist:   waitlist,
		holds:      holds,
		points:     points,
		notifier:   notifier,
		holdTTL:    holdTTL,
		warnWindow: warnWindow,
	}
}

// maxPartySeats caps the seats a single request may claim.  The cap keeps
// seat arithmetic well inside uint32 range and bounds the guest batch
// insert; a party larger than this can never fit a session anyway.
const maxPartySeats = 50

// inSessionTx runs fn under the session row lock.  Before fn sees the
// session, overdue holds are lapsed and any capacity they freed is offered
// to the waitlist, so fn computes from settled state and never observes
// free seats sitting ahead of a populated queue.  fn returns notification
// closures to fire after commit; nothing is published for a rolled-back
// transaction.
func (e *Engine) inSessionTx(ctx context.Context, sessionID uint64, fn func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error)) error {
	now := time.Now().UTC()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	s, err := e.sessions.LockForUpdateTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	lapsed, err := e.expireStaleHoldsTx(ctx, tx, s, now)
	if err != nil {
		return err
	}
	var events []func()
	if lapsed > 0 {
		events, err = e.promoteTx(ctx, tx, s, now)
		if err != nil {
			return err
		}
	}
	more, err := fn(tx, s, now)
	if err != nil {
		return err
	}
	events = append(events, more...)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	for _, fire := range events {
		fire()
	}
	return nil
}

// setRegistrationStatusTx persists a status change after checking it
// against the registration lifecycle.  An illegal transition means the
// caller raced a terminal state and gets ErrInvalidState.
func (e *Engine) setRegistrationStatusTx(ctx context.Context, tx *sql.Tx, reg *model.Registration, to string) error {
	if !model.ValidRegistrationTransition(reg.Status, to) {
		return ErrInvalidState
	}
	if err := e.regs.UpdateStatusTx(ctx, tx, reg.ID, to); err != nil {
		return err
	}
	reg.Status = to
	return nil
}
