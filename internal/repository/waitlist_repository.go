package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oakbridge/club-sessions/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.  All
// mutations run inside the booking transaction that holds the session row
// lock, so position allocation and entry consumption are serialised with
// the seat ledger they feed.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// CreateTx persists a new entry at the given position and returns it with
// the generated ID.  Position must come from SessionRepo.NextWaitlistPositionTx.
func (r *WaitlistRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (session_id, kind, owner_id, registration_id, requested_seats, position)
	           VALUES (?, ?, ?, ?, ?, ?)`
	var regID interface{}
	if e.RegistrationID != nil {
		regID = *e.RegistrationID
	}
	res, err := tx.ExecContext(ctx, q, e.SessionID, e.Kind, e.OwnerID, regID, e.RequestedSeats, e.Position)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListBySessionTx returns a session's entries ordered by ascending position.
// The promotion engine walks exactly this order; serving it any other way
// would break FIFO fairness.
func (r *WaitlistRepo) ListBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT id, session_id, kind, owner_id, registration_id, requested_seats, position, created_at
	           FROM waitlist_entries WHERE session_id = ? ORDER BY position ASC`
	rows, err := tx.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWaitlistRows(rows)
}

// ListBySession is the unlocked variant used by read-only views.
func (r *WaitlistRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT id, session_id, kind, owner_id, registration_id, requested_seats, position, created_at
	           FROM waitlist_entries WHERE session_id = ? ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWaitlistRows(rows)
}

func scanWaitlistRows(rows *sql.Rows) ([]model.WaitlistEntry, error) {
	entries := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		var regID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.OwnerID, &regID, &e.RequestedSeats, &e.Position, &e.CreatedAt); err != nil {
			return nil, err
		}
		if regID.Valid {
			v := uint64(regID.Int64)
			e.RegistrationID = &v
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetByID returns a single entry or ErrWaitlistEntryNotFound.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT id, session_id, kind, owner_id, registration_id, requested_seats, position, created_at
	           FROM waitlist_entries WHERE id = ?`
	var e model.WaitlistEntry
	var regID sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.SessionID, &e.Kind, &e.OwnerID, &regID, &e.RequestedSeats, &e.Position, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWaitlistEntryNotFound
		}
		return nil, err
	}
	if regID.Valid {
		v := uint64(regID.Int64)
		e.RegistrationID = &v
	}
	return &e, nil
}

// FindByOwnerTx locates the owner's entry of a given kind in a session, or
// nil when none exists.  For NEW_SPOT this backs the duplicate-join check;
// for ADD_GUESTS it finds the entry to merge additional seats into.
func (r *WaitlistRepo) FindByOwnerTx(ctx context.Context, tx *sql.Tx, sessionID, ownerID uint64, kind string) (*model.WaitlistEntry, error) {
	const q = `SELECT id, session_id, kind, owner_id, registration_id, requested_seats, position, created_at
	           FROM waitlist_entries WHERE session_id = ? AND owner_id = ? AND kind = ? LIMIT 1`
	var e model.WaitlistEntry
	var regID sql.NullInt64
	err := tx.QueryRowContext(ctx, q, sessionID, ownerID, kind).Scan(&e.ID, &e.SessionID, &e.Kind, &e.OwnerID, &regID, &e.RequestedSeats, &e.Position, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if regID.Valid {
		v := uint64(regID.Int64)
		e.RegistrationID = &v
	}
	return &e, nil
}

// ReduceTx lowers an entry's requested seats by `by`, deleting the row when
// it reaches zero.  Position is never touched, so a partially served entry
// keeps its place at the head of the line.
func (r *WaitlistRepo) ReduceTx(ctx context.Context, tx *sql.Tx, id uint64, by uint32) error {
	var remaining uint32
	err := tx.QueryRowContext(ctx, `SELECT requested_seats FROM waitlist_entries WHERE id = ?`, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrWaitlistEntryNotFound
		}
		return err
	}
	if by >= remaining {
		_, err = tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, id)
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE waitlist_entries SET requested_seats = requested_seats - ? WHERE id = ?`, by, id)
	return err
}

// GrowTx raises an ADD_GUESTS entry's requested seats when further guest
// requests merge into it.
func (r *WaitlistRepo) GrowTx(ctx context.Context, tx *sql.Tx, id uint64, by uint32) error {
	_, err := tx.ExecContext(ctx, `UPDATE waitlist_entries SET requested_seats = requested_seats + ? WHERE id = ?`, by, id)
	return err
}

// DeleteTx removes an entry outright (user leaves the queue, or the
// promotion engine consumed it in full).
func (r *WaitlistRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, id)
	return err
}

// DeleteByRegistrationTx drops any entries tied to a registration.  Called
// when the registration is cancelled so its queued guest demand does not
// outlive it.
func (r *WaitlistRepo) DeleteByRegistrationTx(ctx context.Context, tx *sql.Tx, registrationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE registration_id = ?`, registrationID)
	return err
}
