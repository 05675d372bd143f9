package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// AdminHandler serves the staff endpoints: creating sessions and reading
// full rosters and waitlists.  RequireRole(ADMIN) guards these routes.
type AdminHandler struct {
	Sessions *repository.SessionRepo
	Regs     *repository.RegistrationRepo
	Guests   *repository.GuestRepo
	Waitlist *repository.WaitlistRepo
}

func NewAdminHandler(sessions *repository.SessionRepo, regs *repository.RegistrationRepo, guests *repository.GuestRepo, waitlist *repository.WaitlistRepo) *AdminHandler {
	if sessions == nil || regs == nil || guests == nil || waitlist == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Sessions: sessions, Regs: regs, Guests: guests, Waitlist: waitlist}
}

// CreateSession handles POST /v1/admin/sessions.  Capacity is fixed at
// creation; the ledger never allows occupied to pass it.
func (h *AdminHandler) CreateSession(c echo.Context) error {
	var body struct {
		Title      string `json:"title"`
		StartsAt   string `json:"starts_at"`
		Capacity   uint32 `json:"capacity"`
		PriceCents uint32 `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if body.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	id, err := h.Sessions.Create(c.Request().Context(), body.Title, startsAt.UTC(), body.Capacity, body.PriceCents)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// SetSessionStatus handles PATCH /v1/admin/sessions/:id/status with
// {"status": "OPEN"|"CLOSED"}.  Closing stops new registrations and guest
// additions; already granted holds and waitlist promotions keep settling.
func (h *AdminHandler) SetSessionStatus(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))
	if status != model.SessionOpen && status != model.SessionClosed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be OPEN or CLOSED"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, sessionID); err != nil {
		return writeBookingErr(c, err)
	}
	if err := h.Sessions.SetStatus(ctx, sessionID, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": sessionID, "status": status})
}

// SessionRegistrations handles GET /v1/admin/sessions/:id/registrations.
func (h *AdminHandler) SessionRegistrations(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, sessionID); err != nil {
		return writeBookingErr(c, err)
	}
	regs, err := h.Regs.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	type regPart struct {
		ID        uint64    `json:"id"`
		OwnerID   uint64    `json:"owner_id"`
		Status    string    `json:"status"`
		Seats     uint32    `json:"seats"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]regPart, 0, len(regs))
	for _, r := range regs {
		n, err := h.Guests.Count(ctx, r.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, regPart{ID: r.ID, OwnerID: r.OwnerID, Status: r.Status, Seats: 1 + n, CreatedAt: r.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SessionWaitlist handles GET /v1/admin/sessions/:id/waitlist, in serving
// order.
func (h *AdminHandler) SessionWaitlist(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, sessionID); err != nil {
		return writeBookingErr(c, err)
	}
	entries, err := h.Waitlist.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	type entryPart struct {
		ID             uint64  `json:"id"`
		Kind           string  `json:"kind"`
		OwnerID        uint64  `json:"owner_id"`
		RegistrationID *uint64 `json:"registration_id,omitempty"`
		RequestedSeats uint32  `json:"requested_seats"`
		Position       uint64  `json:"position"`
	}
	out := make([]entryPart, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, entryPart{
			ID: e.ID, Kind: e.Kind, OwnerID: e.OwnerID,
			RegistrationID: e.RegistrationID,
			RequestedSeats: e.RequestedSeats, Position: e.Position,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
