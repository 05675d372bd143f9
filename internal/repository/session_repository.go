package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
)

// SessionRepo provides data access to the sessions table.  It owns the seat
// ledger: the occupied column is read and written exclusively through the
// *Tx methods below, all of which require the caller to hold the session
// row lock taken by LockForUpdateTx.  Serialisation is therefore per
// session; transactions touching different sessions never contend.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session and returns its generated ID.  Capacity must
// be positive; the ledger starts empty.
func (r *SessionRepo) Create(ctx context.Context, title string, startsAt time.Time, capacity, priceCents uint32) (uint64, error) {
	const q = `INSERT INTO sessions (title, starts_at, capacity, price_cents) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, title, startsAt.UTC().Format("2006-01-02 15:04:05"), capacity, priceCents)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a session without locking it.  Use this for reads only;
// mutation paths must go through LockForUpdateTx.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT id, title, starts_at, capacity, occupied, price_cents, next_waitlist_pos, status, created_at, updated_at
	           FROM sessions WHERE id = ?`
	var s model.Session
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &s.StartsAt, &s.Capacity, &s.Occupied,
		&s.PriceCents, &s.NextWaitlistPos, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns all sessions ordered by start time ascending.
func (r *SessionRepo) List(ctx context.Context) ([]model.Session, error) {
	const q = `SELECT id, title, starts_at, capacity, occupied, price_cents, next_waitlist_pos, status, created_at, updated_at
	           FROM sessions ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(
			&s.ID, &s.Title, &s.StartsAt, &s.Capacity, &s.Occupied,
			&s.PriceCents, &s.NextWaitlistPos, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SetStatus flips a session between OPEN and CLOSED.  Closing stops new
// registrations and guest additions; existing holds and waitlist
// promotions keep settling.
func (r *SessionRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE sessions SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

// LockForUpdateTx loads a session under an exclusive row lock.  Every
// booking mutation starts here: while the transaction is open no other
// transaction can read-for-update or write this session, which makes the
// check-and-increment on occupied a single atomic step.
func (r *SessionRepo) LockForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT id, title, starts_at, capacity, occupied, price_cents, next_waitlist_pos, status, created_at, updated_at
	           FROM sessions WHERE id = ? FOR UPDATE`
	var s model.Session
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &s.StartsAt, &s.Capacity, &s.Occupied,
		&s.PriceCents, &s.NextWaitlistPos, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ReserveSeatsTx grants up to `seats` seats from the locked session's
// remaining capacity and advances the occupied counter by the granted
// amount.  It returns the granted count, which may be zero when the session
// is full.  granted + remainder always equals the requested seats; the
// caller routes the remainder to the waitlist.  The session must have been
// loaded by LockForUpdateTx in the same transaction.
func (r *SessionRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, s *model.Session, seats uint32) (uint32, error) {
	granted := seats
	if avail := s.Available(); granted > avail {
		granted = avail
	}
	if granted == 0 {
		return 0, nil
	}
	const q = `UPDATE sessions SET occupied = occupied + ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, granted, s.ID); err != nil {
		return 0, err
	}
	s.Occupied += granted
	return granted, nil
}

// ReleaseSeatsTx returns seats to the locked session's pool.  Callers must
// never release more than they hold; a release that would underflow the
// ledger aborts with ErrLedgerUnderflow so the transaction rolls back.
func (r *SessionRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, s *model.Session, seats uint32) error {
	if seats == 0 {
		return nil
	}
	if seats > s.Occupied {
		return ErrLedgerUnderflow
	}
	const q = `UPDATE sessions SET occupied = occupied - ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, seats, s.ID); err != nil {
		return err
	}
	s.Occupied -= seats
	return nil
}

// NextWaitlistPositionTx hands out the session's next FIFO position and
// bumps the counter.  Positions are strictly increasing and never reused,
// even after entries are deleted, so fairness survives churn.
func (r *SessionRepo) NextWaitlistPositionTx(ctx context.Context, tx *sql.Tx, s *model.Session) (uint64, error) {
	pos := s.NextWaitlistPos
	const q = `UPDATE sessions SET next_waitlist_pos = next_waitlist_pos + 1 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, s.ID); err != nil {
		return 0, err
	}
	s.NextWaitlistPos++
	return pos, nil
}
