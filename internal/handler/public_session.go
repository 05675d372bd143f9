// This file defines the public browsing API: listing sessions and checking
// seat availability without authentication.  Responses carry only fields
// safe for public consumption; the availability numbers come straight from
// the seat ledger and sit behind the short-TTL response cache.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/repository"
)

// PublicHandler serves unauthenticated session browsing.
type PublicHandler struct {
	Sessions *repository.SessionRepo
	Waitlist *repository.WaitlistRepo
}

func NewPublicHandler(sessions *repository.SessionRepo, waitlist *repository.WaitlistRepo) *PublicHandler {
	if sessions == nil || waitlist == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Sessions: sessions, Waitlist: waitlist}
}

// PublicSession is a session in list responses.
type PublicSession struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	Capacity   uint32    `json:"capacity"`
	Available  uint32    `json:"available"`
	PriceCents uint32    `json:"price_cents"`
	Status     string    `json:"status"`
}

// ListSessions handles GET /v1/sessions.
func (h *PublicHandler) ListSessions(c echo.Context) error {
	sessions, err := h.Sessions.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicSession, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		out = append(out, PublicSession{
			ID:         s.ID,
			Title:      s.Title,
			StartsAt:   s.StartsAt,
			Capacity:   s.Capacity,
			Available:  s.Available(),
			PriceCents: s.PriceCents,
			Status:     s.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Availability handles GET /v1/sessions/:id/availability.  The numbers may
// trail the ledger by the cache TTL; a reservation attempt always gets the
// authoritative answer.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return writeBookingErr(c, err)
	}
	entries, err := h.Waitlist.ListBySession(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var queued uint32
	for _, e := range entries {
		queued += e.RequestedSeats
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":     s.ID,
		"capacity":       s.Capacity,
		"occupied":       s.Occupied,
		"available":      s.Available(),
		"waitlist_seats": queued,
		"status":         s.Status,
	})
}
