// This file defines the member-facing booking endpoints: creating and
// cancelling registrations, managing guests and the waitlist.  All the
// capacity logic lives in the booking engine; handlers only translate
// HTTP to engine calls and outcomes back to JSON.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/booking"
	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// BookingHandler serves the authenticated member endpoints.
type BookingHandler struct {
	Engine   *booking.Engine
	Regs     *repository.RegistrationRepo
	Guests   *repository.GuestRepo
	Waitlist *repository.WaitlistRepo
}

func NewBookingHandler(engine *booking.Engine, regs *repository.RegistrationRepo, guests *repository.GuestRepo, waitlist *repository.WaitlistRepo) *BookingHandler {
	if engine == nil || regs == nil || guests == nil || waitlist == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Regs: regs, Guests: guests, Waitlist: waitlist}
}

type holdPart struct {
	PaymentRef  string `json:"payment_ref"`
	Status      string `json:"status"`
	AmountCents uint32 `json:"amount_cents"`
	PointsCents uint32 `json:"points_cents"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

func holdJSON(h *model.Hold) *holdPart {
	if h == nil {
		return nil
	}
	p := &holdPart{
		PaymentRef:  h.PaymentRef,
		Status:      h.Status,
		AmountCents: h.AmountCents,
		PointsCents: h.PointsCents,
	}
	if h.ExpiresAt != nil {
		p.ExpiresAt = h.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return p
}

type waitlistPart struct {
	ID             uint64 `json:"id"`
	Kind           string `json:"kind"`
	RequestedSeats uint32 `json:"requested_seats"`
	Position       uint64 `json:"position"`
}

func waitlistJSON(e *model.WaitlistEntry) *waitlistPart {
	if e == nil {
		return nil
	}
	return &waitlistPart{ID: e.ID, Kind: e.Kind, RequestedSeats: e.RequestedSeats, Position: e.Position}
}

func paymentMode(raw string) (string, bool) {
	mode := strings.ToUpper(strings.TrimSpace(raw))
	if mode == "" {
		mode = model.PayCard
	}
	switch mode {
	case model.PayCard, model.PayPoints, model.PayMixed:
		return mode, true
	}
	return "", false
}

// CreateRegistration handles POST /v1/sessions/:id/registrations.  The
// outcome is binary: either every seat was granted under one hold, or the
// member was queued and the body says so.
func (h *BookingHandler) CreateRegistration(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Guests      uint32 `json:"guests"`
		PaymentMode string `json:"payment_mode"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	mode, ok := paymentMode(body.PaymentMode)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment_mode"})
	}

	out, err := h.Engine.CreateRegistration(c.Request().Context(), userID, sessionID, body.Guests, mode)
	if err != nil {
		return writeBookingErr(c, err)
	}
	if out.Waitlisted() {
		return c.JSON(http.StatusAccepted, echo.Map{
			"outcome":          "waitlisted",
			"requested_seats":  out.WaitlistedSeats,
			"waitlist":         waitlistJSON(out.Entry),
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"outcome":         "reserved",
		"registration_id": out.Registration.ID,
		"status":          out.Registration.Status,
		"seats":           out.GrantedSeats,
		"hold":            holdJSON(out.Hold),
	})
}

// MyRegistrations handles GET /v1/my/registrations.
func (h *BookingHandler) MyRegistrations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Regs.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRegistration handles GET /v1/registrations/:id.  Owners see their own
// registrations; admins see any.
func (h *BookingHandler) GetRegistration(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx := c.Request().Context()
	reg, err := h.Regs.GetByID(ctx, regID)
	if err != nil {
		return writeBookingErr(c, err)
	}
	role, _ := c.Get("role").(string)
	if reg.OwnerID != userID && role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	guests, err := h.Guests.ListByRegistration(ctx, regID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	type guestPart struct {
		ID      uint64 `json:"id"`
		Name    string `json:"name"`
		Settled bool   `json:"settled"`
	}
	gs := make([]guestPart, 0, len(guests))
	for _, g := range guests {
		gs = append(gs, guestPart{ID: g.ID, Name: g.Name, Settled: g.HoldID == nil})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":         reg.ID,
		"session_id": reg.SessionID,
		"status":     reg.Status,
		"guests":     gs,
		"created_at": reg.CreatedAt,
	})
}

// CancelRegistration handles DELETE /v1/registrations/:id.  Cancelling an
// already cancelled registration is a 200 no-op, not an error, so clients
// can retry safely.
func (h *BookingHandler) CancelRegistration(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	err = h.Engine.Cancel(c.Request().Context(), userID, regID)
	if errors.Is(err, booking.ErrAlreadyCancelled) {
		return c.JSON(http.StatusOK, echo.Map{"status": "already_cancelled"})
	}
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// AddGuests handles POST /v1/registrations/:id/guests.  The response always
// reports the split: how many seats were granted now and how many joined
// the queue.
func (h *BookingHandler) AddGuests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var body struct {
		Count       uint32 `json:"count"`
		PaymentMode string `json:"payment_mode"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Count == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be at least 1"})
	}
	mode, ok := paymentMode(body.PaymentMode)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment_mode"})
	}

	out, err := h.Engine.AddGuests(c.Request().Context(), userID, regID, body.Count, mode)
	if err != nil {
		return writeBookingErr(c, err)
	}
	status := http.StatusCreated
	if out.Granted == 0 {
		status = http.StatusAccepted
	}
	return c.JSON(status, echo.Map{
		"granted":    out.Granted,
		"waitlisted": out.Waitlisted,
		"guest_ids":  out.GuestIDs,
		"hold":       holdJSON(out.Hold),
		"waitlist":   waitlistJSON(out.Entry),
	})
}

// RenameGuest handles PATCH /v1/guests/:id.
func (h *BookingHandler) RenameGuest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	guestID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guest id"})
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if err := h.Guests.Rename(c.Request().Context(), guestID, userID, strings.TrimSpace(body.Name)); err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "renamed"})
}

// RemoveGuests handles DELETE /v1/registrations/:id/guests.  Each removed
// guest frees exactly one seat; the response says how many actually came
// free after ownership and settlement checks.
func (h *BookingHandler) RemoveGuests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var body struct {
		GuestIDs []uint64 `json:"guest_ids"`
	}
	if err := c.Bind(&body); err != nil || len(body.GuestIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_ids required"})
	}
	freed, err := h.Engine.RemoveGuests(c.Request().Context(), userID, regID, body.GuestIDs)
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": freed})
}

// MyWaitlist handles GET /v1/sessions/:id/waitlist/me, showing the member's
// entries and positions in one session.
func (h *BookingHandler) MyWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	entries, err := h.Waitlist.ListBySession(c.Request().Context(), sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	mine := make([]*waitlistPart, 0, 2)
	var ahead uint32
	for i := range entries {
		e := &entries[i]
		if e.OwnerID == userID {
			mine = append(mine, waitlistJSON(e))
		} else if len(mine) == 0 {
			ahead += e.RequestedSeats
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": mine, "seats_ahead": ahead})
}

// ReduceWaitlist handles PATCH /v1/waitlist/:id with {"reduce": n}.
// The entry keeps its position; reducing to zero removes it.
func (h *BookingHandler) ReduceWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist entry id"})
	}
	var body struct {
		Reduce uint32 `json:"reduce"`
	}
	if err := c.Bind(&body); err != nil || body.Reduce == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reduce must be at least 1"})
	}
	if err := h.Engine.ReduceWaitlist(c.Request().Context(), userID, entryID, body.Reduce); err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "reduced"})
}

// LeaveWaitlist handles DELETE /v1/waitlist/:id.
func (h *BookingHandler) LeaveWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist entry id"})
	}
	if err := h.Engine.LeaveWaitlist(c.Request().Context(), userID, entryID); err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "removed"})
}
