package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oakbridge/club-sessions/internal/model"
)

// RegistrationRepo provides CRUD operations for registrations.  Creation
// and status changes always happen inside the booking transaction that
// holds the session row lock; plain reads go through the pool directly.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// CreateTx inserts a PENDING registration within the scope of an existing
// transaction and populates the generated ID on the returned value.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, sessionID, ownerID uint64) (*model.Registration, error) {
	const q = `INSERT INTO registrations (session_id, owner_id, status) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, sessionID, ownerID, model.RegistrationPending)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Registration{
		ID:        uint64(id),
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    model.RegistrationPending,
	}, nil
}

// GetByID returns a registration or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	return scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT id, session_id, owner_id, status, created_at, updated_at FROM registrations WHERE id = ?`, id))
}

// GetByIDTx loads a registration inside the booking transaction.  The
// session row lock already serialises access, so no FOR UPDATE is needed
// on the registration itself.
func (r *RegistrationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Registration, error) {
	return scanRegistration(tx.QueryRowContext(ctx,
		`SELECT id, session_id, owner_id, status, created_at, updated_at FROM registrations WHERE id = ?`, id))
}

func scanRegistration(row *sql.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.SessionID, &reg.OwnerID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// UpdateStatusTx moves a registration to a new status.  Legality of the
// transition is the engine's responsibility; the repository only persists it.
func (r *RegistrationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	const q = `UPDATE registrations SET status = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, status, id)
	return err
}

// ActiveByOwnerAndSessionTx reports whether the owner already has a
// non-cancelled registration for the session.  Used to reject duplicate
// primary registrations before touching the ledger.
func (r *RegistrationRepo) ActiveByOwnerAndSessionTx(ctx context.Context, tx *sql.Tx, ownerID, sessionID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM registrations WHERE owner_id = ? AND session_id = ? AND status <> ?)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, ownerID, sessionID, model.RegistrationCancelled).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// RegistrationDetail is the member-facing view of one registration with its
// session context and guest list.
type RegistrationDetail struct {
	ID           uint64   `json:"id"`
	SessionID    uint64   `json:"session_id"`
	SessionTitle string   `json:"session_title"`
	StartsAt     string   `json:"starts_at"`
	Status       string   `json:"status"`
	Seats        uint32   `json:"seats"`
	Guests       []struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	} `json:"guests"`
	CreatedAt time.Time `json:"created_at"`
}

// ListByOwner returns all of a member's registrations, newest first, with
// their guests attached.  When none exist an empty slice is returned.
func (r *RegistrationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]RegistrationDetail, error) {
	const q = `SELECT reg.id, reg.session_id, s.title, s.starts_at, reg.status, reg.created_at,
	                  1 + (SELECT COUNT(*) FROM guests g WHERE g.registration_id = reg.id)
	           FROM registrations reg
	           JOIN sessions s ON s.id = reg.session_id
	           WHERE reg.owner_id = ?
	           ORDER BY reg.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RegistrationDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d RegistrationDetail
		var startsAt time.Time
		if err := rows.Scan(&d.ID, &d.SessionID, &d.SessionTitle, &startsAt, &d.Status, &d.CreatedAt, &d.Seats); err != nil {
			return nil, err
		}
		d.StartsAt = startsAt.UTC().Format(time.RFC3339)
		d.Guests = []struct {
			ID   uint64 `json:"id"`
			Name string `json:"name"`
		}{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	// Populate guests for all registrations in a single query.
	ids := make([]interface{}, 0, len(details))
	placeholders := ""
	for i, d := range details {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		ids = append(ids, d.ID)
	}
	guestQ := `SELECT registration_id, id, name FROM guests
	           WHERE registration_id IN (` + placeholders + `) ORDER BY registration_id, id`
	grows, err := r.db.QueryContext(ctx, guestQ, ids...)
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	for grows.Next() {
		var regID, gid uint64
		var name string
		if err := grows.Scan(&regID, &gid, &name); err != nil {
			return nil, err
		}
		idx, ok := index[regID]
		if !ok {
			continue
		}
		details[idx].Guests = append(details[idx].Guests, struct {
			ID   uint64 `json:"id"`
			Name string `json:"name"`
		}{ID: gid, Name: name})
	}
	return details, grows.Err()
}

// ListBySession returns every registration for a session, oldest first.
// Used by the admin roster view.
func (r *RegistrationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Registration, error) {
	const q = `SELECT id, session_id, owner_id, status, created_at, updated_at
	           FROM registrations WHERE session_id = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]model.Registration, 0)
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.SessionID, &reg.OwnerID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
