package repository

import (
	"context"
	"database/sql"

	"github.com/oakbridge/club-sessions/internal/model"
)

// GuestRepo provides data access to the guests table.  Every guest row is
// one occupied seat; rows are created when guest seats are granted and
// deleted when the member removes guests, each deletion freeing exactly
// one seat through the engine.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// CreateBatchTx inserts `count` unnamed guest rows for a registration in a
// single statement and returns their generated IDs in insertion order.  The
// member assigns names afterwards; admission only allocates the seats.
// The rows stay linked to the admitting hold until it settles.
func (r *GuestRepo) CreateBatchTx(ctx context.Context, tx *sql.Tx, registrationID, holdID uint64, count uint32) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	query := `INSERT INTO guests (registration_id, hold_id) VALUES `
	args := make([]interface{}, 0, count*2)
	for i := uint32(0); i < count; i++ {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, registrationID, holdID)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	// MySQL returns the first ID of a multi-row insert; with
	// innodb_autoinc_lock_mode <= 1 the rest are consecutive.
	ids := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		ids = append(ids, uint64(first)+uint64(i))
	}
	return ids, nil
}

// ListByRegistration returns a registration's guests ordered by ID.
func (r *GuestRepo) ListByRegistration(ctx context.Context, registrationID uint64) ([]model.Guest, error) {
	const q = `SELECT id, registration_id, hold_id, name, created_at FROM guests WHERE registration_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guests := make([]model.Guest, 0)
	for rows.Next() {
		var g model.Guest
		var holdID sql.NullInt64
		if err := rows.Scan(&g.ID, &g.RegistrationID, &holdID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		if holdID.Valid {
			v := uint64(holdID.Int64)
			g.HoldID = &v
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// SettleByHoldTx detaches a confirmed hold's guests from it.  Settled
// guests count toward the registration's own seats in the conservation
// invariant instead of the hold's.
func (r *GuestRepo) SettleByHoldTx(ctx context.Context, tx *sql.Tx, holdID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE guests SET hold_id = NULL WHERE hold_id = ?`, holdID)
	return err
}

// DeleteByHoldTx removes the guests admitted by a hold that lapsed unpaid
// and returns how many seats that frees.
func (r *GuestRepo) DeleteByHoldTx(ctx context.Context, tx *sql.Tx, holdID uint64) (uint32, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE hold_id = ?`, holdID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// DeleteByRegistrationTx removes every remaining guest row of a
// registration.  Runs when the registration is cancelled, so no guest row
// ever references a cancelled registration.
func (r *GuestRepo) DeleteByRegistrationTx(ctx context.Context, tx *sql.Tx, registrationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE registration_id = ?`, registrationID)
	return err
}

// CountSettledTx returns the registration's guests whose admission is fully
// paid (no outstanding hold link).
func (r *GuestRepo) CountSettledTx(ctx context.Context, tx *sql.Tx, registrationID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guests WHERE registration_id = ? AND hold_id IS NULL`, registrationID).Scan(&n)
	return n, err
}

// Rename updates a guest's label.  Names never affect seat accounting, so
// this runs outside any booking transaction.  The owner check walks through
// the registration to stop members renaming each other's guests.
func (r *GuestRepo) Rename(ctx context.Context, guestID, ownerID uint64, name string) error {
	const q = `UPDATE guests g
	           JOIN registrations reg ON reg.id = g.registration_id
	           SET g.name = ?
	           WHERE g.id = ? AND reg.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, name, guestID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrForbidden
	}
	return nil
}

// DeleteBatchTx removes the named settled guests from a registration and
// returns how many rows were actually deleted.  IDs that do not belong to
// the registration, or whose admission still has an outstanding hold, are
// ignored rather than failing the whole batch; the returned count is what
// the engine releases from the ledger.
func (r *GuestRepo) DeleteBatchTx(ctx context.Context, tx *sql.Tx, registrationID uint64, guestIDs []uint64) (uint32, error) {
	if len(guestIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM guests WHERE registration_id = ? AND hold_id IS NULL AND id IN (`
	args := make([]interface{}, 0, len(guestIDs)+1)
	args = append(args, registrationID)
	for i, id := range guestIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// Count returns the number of guests attached to a registration.  It reads
// without a transaction and is meant for roster views, not seat accounting.
func (r *GuestRepo) Count(ctx context.Context, registrationID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guests WHERE registration_id = ?`, registrationID).Scan(&n)
	return n, err
}
