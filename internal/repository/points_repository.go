package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oakbridge/club-sessions/internal/model"
)

// PointsRepo is the rewards-points ledger.  The booking engine debits it
// synchronously when a hold is paid with points and refunds the debited
// portion when a mixed hold expires or is cancelled.  Debits run inside the
// booking transaction so a failed debit rolls the seat reservation back
// with it.
type PointsRepo struct {
	db *sql.DB
}

// NewPointsRepo returns a new PointsRepo bound to the given database.
func NewPointsRepo(db *sql.DB) *PointsRepo { return &PointsRepo{db: db} }

// Balance returns the member's current balance in cents.  Members without
// an account row have a zero balance.
func (r *PointsRepo) Balance(ctx context.Context, userID uint64) (int64, error) {
	var acct model.PointAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, balance_cents, updated_at FROM point_accounts WHERE user_id = ?`,
		userID).Scan(&acct.UserID, &acct.BalanceCents, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return acct.BalanceCents, err
}

// BalanceTx reads the balance inside the booking transaction, for sizing
// the points portion of a mixed payment before the guarded debit.
func (r *PointsRepo) BalanceTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	var bal int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM point_accounts WHERE user_id = ?`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

// DebitTx atomically subtracts amount from the member's balance.  The
// guarded UPDATE only matches when the balance covers the amount, so a
// declined debit is reported as ErrInsufficientPoints without ever driving
// the balance negative.
func (r *PointsRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	if amountCents <= 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE point_accounts SET balance_cents = balance_cents - ? WHERE user_id = ? AND balance_cents >= ?`,
		amountCents, userID, amountCents)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientPoints
	}
	return nil
}

// CreditTx adds amount to the member's balance, creating the account row if
// it does not exist.  Used to refund the points portion of a lapsed hold.
func (r *PointsRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	if amountCents <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO point_accounts (user_id, balance_cents) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE balance_cents = balance_cents + VALUES(balance_cents)`,
		userID, amountCents)
	return err
}
