package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/model"
	"github.com/oakbridge/club-sessions/internal/repository"
	"github.com/oakbridge/club-sessions/internal/utils"
)

// PassHandler renders check-in artifacts for confirmed registrations: a
// bare QR PNG and a printable PDF session pass.  The QR encodes only the
// registration ID; the desk validates against the database at the door.
type PassHandler struct {
	Sessions *repository.SessionRepo
	Regs     *repository.RegistrationRepo
	Guests   *repository.GuestRepo
	Users    *repository.UserRepo
}

func NewPassHandler(sessions *repository.SessionRepo, regs *repository.RegistrationRepo, guests *repository.GuestRepo, users *repository.UserRepo) *PassHandler {
	if sessions == nil || regs == nil || guests == nil || users == nil {
		panic("nil repository passed to NewPassHandler")
	}
	return &PassHandler{Sessions: sessions, Regs: regs, Guests: guests, Users: users}
}

// loadConfirmed fetches the registration and enforces ownership plus the
// CONFIRMED requirement shared by both pass endpoints.
func (h *PassHandler) loadConfirmed(c echo.Context) (*model.Registration, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Regs.GetByID(c.Request().Context(), regID)
	if err != nil {
		return nil, writeBookingErr(c, err)
	}
	if reg.OwnerID != userID {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if reg.Status != model.RegistrationConfirmed {
		return nil, c.JSON(http.StatusConflict, echo.Map{"error": "registration is not confirmed"})
	}
	return reg, nil
}

func checkInCode(regID uint64) string { return fmt.Sprintf("REG-%d", regID) }

// CheckInQR handles GET /v1/registrations/:id/qr with a PNG body.
func (h *PassHandler) CheckInQR(c echo.Context) error {
	reg, errResp := h.loadConfirmed(c)
	if reg == nil {
		return errResp
	}
	png, err := utils.CheckInQRPNG(checkInCode(reg.ID), 300)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// SessionPass handles GET /v1/registrations/:id/pass with a PDF body.
func (h *PassHandler) SessionPass(c echo.Context) error {
	reg, errResp := h.loadConfirmed(c)
	if reg == nil {
		return errResp
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, reg.SessionID)
	if err != nil {
		return writeBookingErr(c, err)
	}
	u, err := h.Users.GetByID(ctx, reg.OwnerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	// only settled guests are admitted by the pass
	settled := uint32(1)
	guests, err := h.Guests.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	for _, g := range guests {
		if g.HoldID == nil {
			settled++
		}
	}
	pdf, err := utils.SessionPassPDF(utils.PassData{
		CheckInCode:  checkInCode(reg.ID),
		SessionTitle: s.Title,
		StartsAt:     s.StartsAt,
		MemberEmail:  u.Email,
		Seats:        settled,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-pass-%d.pdf", reg.ID))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
