package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
)

// HoldRepo provides data access to the holds table.  Holds tie reserved
// seats to a payment outcome: they are created inside the reservation
// transaction and resolved later by the gateway webhook, the sweeper, or a
// synchronous points debit.  All timestamps are UTC.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the given database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateTx inserts a hold within the provided transaction and populates its
// generated ID.  ExpiresAt is nil for points holds, which settle at creation.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	const q = `INSERT INTO holds
	           (session_id, registration_id, kind, seats, payment_mode, amount_cents, points_cents, payment_ref, status, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var expires interface{}
	if h.ExpiresAt != nil {
		expires = h.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := tx.ExecContext(ctx, q,
		h.SessionID, h.RegistrationID, h.Kind, h.Seats, h.PaymentMode,
		h.AmountCents, h.PointsCents, h.PaymentRef, h.Status, expires,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

const holdColumns = `id, session_id, registration_id, kind, seats, payment_mode,
	amount_cents, points_cents, payment_ref, status, expires_at, expiry_notified_at, created_at, updated_at`

func scanHold(row *sql.Row) (*model.Hold, error) {
	var h model.Hold
	var expires, notified sql.NullTime
	err := row.Scan(
		&h.ID, &h.SessionID, &h.RegistrationID, &h.Kind, &h.Seats, &h.PaymentMode,
		&h.AmountCents, &h.PointsCents, &h.PaymentRef, &h.Status, &expires, &notified,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		h.ExpiresAt = &t
	}
	if notified.Valid {
		t := notified.Time
		h.ExpiryNotifiedAt = &t
	}
	return &h, nil
}

// GetByPaymentRef resolves the hold associated with a gateway payment
// session.  The reference is unique, assigned at hold creation.
func (r *HoldRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Hold, error) {
	return scanHold(r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds WHERE payment_ref = ?`, ref))
}

// GetByIDTx loads a hold inside the booking transaction.
func (r *HoldRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Hold, error) {
	return scanHold(tx.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds WHERE id = ?`, id))
}

// AwaitingByRegistrationTx returns a registration's unconfirmed holds.
// Cancelling a registration lapses each of these so their seats and points
// portions come back.
func (r *HoldRepo) AwaitingByRegistrationTx(ctx context.Context, tx *sql.Tx, registrationID uint64) ([]model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds WHERE registration_id = ? AND status = ?`
	rows, err := tx.QueryContext(ctx, q, registrationID, model.HoldAwaitingPayment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHoldRows(rows)
}

// UpdateStatusTx resolves a hold to CONFIRMED, EXPIRED or CANCELLED.
func (r *HoldRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE holds SET status = ? WHERE id = ?`, status, id)
	return err
}

// ExpiredBySessionTx returns the session's AWAITING_PAYMENT holds whose
// expiry has passed.  Every booking transaction calls this right after
// taking the session lock so stale holds are settled before any capacity
// computation; an expired hold's seats are never double-counted as both
// held and available.
func (r *HoldRepo) ExpiredBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64, now time.Time) ([]model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds
	           WHERE session_id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?`
	rows, err := tx.QueryContext(ctx, q, sessionID, model.HoldAwaitingPayment, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHoldRows(rows)
}

// SessionsWithExpiredHolds lists the distinct sessions that currently have
// overdue unconfirmed holds.  The background sweeper uses it to know which
// session locks to take; the expiry itself still happens per session under
// that lock.
func (r *HoldRepo) SessionsWithExpiredHolds(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT DISTINCT session_id FROM holds
	           WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?`
	rows, err := r.db.QueryContext(ctx, q, model.HoldAwaitingPayment, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExpiringSoon returns unconfirmed holds that lapse within the warn window
// and have not had a warning emitted yet.  The sweeper notifies each at
// most once via MarkExpiryNotified.
func (r *HoldRepo) ExpiringSoon(ctx context.Context, now time.Time, window time.Duration) ([]model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds
	           WHERE status = ? AND expiry_notified_at IS NULL
	             AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?`
	until := now.Add(window)
	rows, err := r.db.QueryContext(ctx, q, model.HoldAwaitingPayment,
		now.UTC().Format("2006-01-02 15:04:05"), until.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHoldRows(rows)
}

// MarkExpiryNotified records that the expiry warning for a hold went out.
func (r *HoldRepo) MarkExpiryNotified(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE holds SET expiry_notified_at = ? WHERE id = ? AND expiry_notified_at IS NULL`,
		at.UTC().Format("2006-01-02 15:04:05"), id)
	return err
}

func scanHoldRows(rows *sql.Rows) ([]model.Hold, error) {
	holds := make([]model.Hold, 0)
	for rows.Next() {
		var h model.Hold
		var expires, notified sql.NullTime
		if err := rows.Scan(
			&h.ID, &h.SessionID, &h.RegistrationID, &h.Kind, &h.Seats, &h.PaymentMode,
			&h.AmountCents, &h.PointsCents, &h.PaymentRef, &h.Status, &expires, &notified,
			&h.CreatedAt, &h.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if expires.Valid {
			t := expires.Time
			h.ExpiresAt = &t
		}
		if notified.Valid {
			t := notified.Time
			h.ExpiryNotifiedAt = &t
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
