package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// ReduceWaitlist shrinks the member's queue entry by `by` seats without
// losing its position; asking for fewer seats never costs a place in
// line.  Reducing to zero or past it removes the entry.  No seats change
// hands, so nothing is promoted.
func (e *Engine) ReduceWaitlist(ctx context.Context, ownerID, entryID uint64, by uint32) error {
	entry, err := e.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	return e.inSessionTx(ctx, entry.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		return nil, e.waitlist.ReduceTx(ctx, tx, entryID, by)
	})
}

// LeaveWaitlist removes the member's queue entry outright.
func (e *Engine) LeaveWaitlist(ctx context.Context, ownerID, entryID uint64) error {
	entry, err := e.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	return e.inSessionTx(ctx, entry.SessionID, func(tx *sql.Tx, s *model.Session, now time.Time) ([]func(), error) {
		return nil, e.waitlist.DeleteTx(ctx, tx, entryID)
	})
}
