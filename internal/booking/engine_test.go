package booking

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/queue"
	"github.com/oakbridge/club-sessions/internal/repository"
)

type recordingNotifier struct {
	promoted  []queue.SeatPromotedEvent
	expiring  []queue.HoldExpiringEvent
	confirmed []queue.RegistrationConfirmedEvent
}

func (n *recordingNotifier) SeatPromoted(_ context.Context, ev queue.SeatPromotedEvent) {
	n.promoted = append(n.promoted, ev)
}

func (n *recordingNotifier) HoldExpiring(_ context.Context, ev queue.HoldExpiringEvent) {
	n.expiring = append(n.expiring, ev)
}

func (n *recordingNotifier) RegistrationConfirmed(_ context.Context, ev queue.RegistrationConfirmedEvent) {
	n.confirmed = append(n.confirmed, ev)
}

func newMockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	n := &recordingNotifier{}
	eng := NewEngine(db,
		repository.NewSessionRepo(db),
		repository.NewRegistrationRepo(db),
		repository.NewGuestRepo(db),
		repository.NewWaitlistRepo(db),
		repository.NewHoldRepo(db),
		repository.NewPointsRepo(db),
		n, 24*time.Hour, time.Hour)
	return eng, mock, n
}

var (
	sessionCols = []string{"id", "title", "starts_at", "capacity", "occupied", "price_cents",
		"next_waitlist_pos", "status", "created_at", "updated_at"}
	registrationCols = []string{"id", "session_id", "owner_id", "status", "created_at", "updated_at"}
	holdCols         = []string{"id", "session_id", "registration_id", "kind", "seats", "payment_mode",
		"amount_cents", "points_cents", "payment_ref", "status", "expires_at", "expiry_notified_at",
		"created_at", "updated_at"}
	waitlistCols = []string{"id", "session_id", "kind", "owner_id", "registration_id",
		"requested_seats", "position", "created_at"}
)

func sessionRow(capacity, occupied, priceCents uint32, nextPos uint64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(sessionCols).
		AddRow(1, "Friday Night Doubles", now, capacity, occupied, priceCents, nextPos, model.SessionOpen, now, now)
}

func registrationRow(id, sessionID, ownerID uint64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(registrationCols).AddRow(id, sessionID, ownerID, status, now, now)
}

func TestPartySizeCapRejectsOversizedRequests(t *testing.T) {
	// the cap fires before any arithmetic or database work, so a huge
	// guest count can never wrap 1+guestCount around to zero
	var e Engine
	ctx := context.Background()

	_, err := e.CreateRegistration(ctx, 9, 1, math.MaxUint32, model.PayCard)
	assert.ErrorIs(t, err, ErrTooManySeats)

	_, err = e.CreateRegistration(ctx, 9, 1, maxPartySeats, model.PayCard)
	assert.ErrorIs(t, err, ErrTooManySeats)

	_, err = e.AddGuests(ctx, 9, 4, maxPartySeats+1, model.PayCard)
	assert.ErrorIs(t, err, ErrTooManySeats)
}

func TestAddGuestsPartialAdmissionConservesCount(t *testing.T) {
	eng, mock, _ := newMockEngine(t)

	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationConfirmed))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM sessions WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(sessionRow(10, 8, 500, 7))
	mock.ExpectQuery(`FROM holds WHERE session_id = \? AND status = \?`).
		WillReturnRows(sqlmock.NewRows(holdCols))
	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationConfirmed))

	// only 2 of the 5 requested seats fit
	mock.ExpectExec(`UPDATE sessions SET occupied = occupied \+ \?`).WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO holds`).
		WithArgs(1, 4, model.HoldAddGuests, 2, model.PayCard, 1000, 0,
			sqlmock.AnyArg(), model.HoldAwaitingPayment, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec(`INSERT INTO guests`).WithArgs(4, 77, 4, 77).
		WillReturnResult(sqlmock.NewResult(300, 2))

	// the remaining 3 join the queue as a fresh ADD_GUESTS entry
	mock.ExpectQuery(`FROM waitlist_entries WHERE session_id = \? AND owner_id = \? AND kind = \?`).
		WithArgs(1, 9, model.WaitlistAddGuests).
		WillReturnRows(sqlmock.NewRows(waitlistCols))
	mock.ExpectExec(`UPDATE sessions SET next_waitlist_pos`).WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO waitlist_entries`).
		WithArgs(1, model.WaitlistAddGuests, 9, 4, 3, 7).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectCommit()

	out, err := eng.AddGuests(context.Background(), 9, 4, 5, model.PayCard)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), out.Granted)
	assert.Equal(t, uint32(3), out.Waitlisted)
	assert.Equal(t, uint32(5), out.Granted+out.Waitlisted)
	assert.Equal(t, []uint64{300, 301}, out.GuestIDs)
	require.NotNil(t, out.Hold)
	assert.Equal(t, uint32(1000), out.Hold.AmountCents)
	require.NotNil(t, out.Entry)
	assert.Equal(t, uint32(3), out.Entry.RequestedSeats)
	assert.Equal(t, uint64(7), out.Entry.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelDeletesGuestRowsWithRegistration(t *testing.T) {
	eng, mock, _ := newMockEngine(t)

	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationConfirmed))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM sessions WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(sessionRow(10, 10, 500, 7))
	mock.ExpectQuery(`FROM holds WHERE session_id = \? AND status = \?`).
		WillReturnRows(sqlmock.NewRows(holdCols))
	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationConfirmed))

	mock.ExpectQuery(`FROM holds WHERE registration_id = \? AND status = \?`).
		WithArgs(4, model.HoldAwaitingPayment).
		WillReturnRows(sqlmock.NewRows(holdCols))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM guests WHERE registration_id = \? AND hold_id IS NULL`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	// member plus two settled guests come back to the ledger
	mock.ExpectExec(`UPDATE sessions SET occupied = occupied - \?`).WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// and the guest rows go with the registration
	mock.ExpectExec(`DELETE FROM guests WHERE registration_id = \?`).WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE registrations SET status = \?`).
		WithArgs(model.RegistrationCancelled, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE registration_id = \?`).WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`FROM waitlist_entries WHERE session_id = \? ORDER BY position`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(waitlistCols))
	mock.ExpectCommit()

	require.NoError(t, eng.Cancel(context.Background(), 9, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTwiceIsNoOp(t *testing.T) {
	eng, mock, _ := newMockEngine(t)

	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationCancelled))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM sessions WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(sessionRow(10, 9, 500, 7))
	mock.ExpectQuery(`FROM holds WHERE session_id = \? AND status = \?`).
		WillReturnRows(sqlmock.NewRows(holdCols))
	mock.ExpectQuery(`FROM registrations WHERE id = \?`).WithArgs(4).
		WillReturnRows(registrationRow(4, 1, 9, model.RegistrationCancelled))
	mock.ExpectRollback()

	err := eng.Cancel(context.Background(), 9, 4)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	// no UPDATE on occupied ran, so the seats were not freed twice
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLazyExpiryServesWaitlistInTheSameTransaction(t *testing.T) {
	// an overdue hold lapsing in the transaction preamble must hand its
	// seats straight to the queue, even when the operation that took the
	// lock does not touch capacity itself
	eng, mock, n := newMockEngine(t)
	now := time.Now()
	past := now.Add(-time.Minute)

	mock.ExpectQuery(`FROM waitlist_entries WHERE id = \?`).WithArgs(6).
		WillReturnRows(sqlmock.NewRows(waitlistCols).
			AddRow(6, 1, model.WaitlistAddGuests, 9, 4, 4, 3, now))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM sessions WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(sessionRow(10, 10, 500, 7))
	mock.ExpectQuery(`FROM holds WHERE session_id = \? AND status = \?`).
		WillReturnRows(sqlmock.NewRows(holdCols).
			AddRow(70, 1, 4, model.HoldAddGuests, 1, model.PayCard, 500, 0, "ref-70",
				model.HoldAwaitingPayment, past, nil, now, now))
	mock.ExpectQuery(`FROM holds WHERE id = \?`).WithArgs(70).
		WillReturnRows(sqlmock.NewRows(holdCols).
			AddRow(70, 1, 4, model.HoldAddGuests, 1, model.PayCard, 500, 0, "ref-70",
				model.HoldAwaitingPayment, past, nil, now, now))
	mock.ExpectExec(`DELETE FROM guests WHERE hold_id = \?`).WithArgs(70).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET occupied = occupied - \?`).WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE holds SET status = \?`).WithArgs(model.HoldExpired, 70).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// the freed seat goes to the head of the queue, not the later entry
	mock.ExpectQuery(`FROM waitlist_entries WHERE session_id = \? ORDER BY position`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(waitlistCols).
			AddRow(5, 1, model.WaitlistNewSpot, 8, nil, 1, 2, now).
			AddRow(6, 1, model.WaitlistAddGuests, 9, 4, 4, 3, now))
	mock.ExpectExec(`UPDATE sessions SET occupied = occupied \+ \?`).WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO registrations`).WithArgs(1, 8, model.RegistrationPending).
		WillReturnResult(sqlmock.NewResult(90, 1))
	mock.ExpectExec(`INSERT INTO holds`).
		WithArgs(1, 90, model.HoldWaitlistPromotion, 1, model.PayCard, 500, 0,
			sqlmock.AnyArg(), model.HoldAwaitingPayment, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(91, 1))
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE id = \?`).WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// the operation body itself: the member leaves their own entry
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE id = \?`).WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, eng.LeaveWaitlist(context.Background(), 9, 6))
	require.Len(t, n.promoted, 1)
	assert.Equal(t, uint64(8), n.promoted[0].UserID)
	assert.Equal(t, uint64(90), n.promoted[0].RegistrationID)
	assert.Equal(t, uint32(1), n.promoted[0].Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
