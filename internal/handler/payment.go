package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/booking"
)

// PaymentHandler receives the payment gateway's webhook signals.  The
// gateway authenticates with a shared secret in X-Gateway-Token rather
// than a member JWT; each signal references the payment_ref minted when
// the hold was created.
type PaymentHandler struct {
	Engine       *booking.Engine
	GatewayToken string
}

func NewPaymentHandler(engine *booking.Engine, token string) *PaymentHandler {
	if engine == nil || token == "" {
		panic("missing dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Engine: engine, GatewayToken: token}
}

func (h *PaymentHandler) authorized(c echo.Context) bool {
	got := strings.TrimSpace(c.Request().Header.Get("X-Gateway-Token"))
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.GatewayToken)) == 1
}

// Succeeded handles POST /v1/payments/:ref/succeeded.  Confirming twice is
// safe; confirming after the hold lapsed reports 410 so the gateway can
// trigger its refund flow.
func (h *PaymentHandler) Succeeded(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid gateway token"})
	}
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment ref"})
	}
	hold, err := h.Engine.ConfirmHold(c.Request().Context(), ref)
	if err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_ref": hold.PaymentRef,
		"status":      hold.Status,
	})
}

// Cancelled handles POST /v1/payments/:ref/cancelled.
func (h *PaymentHandler) Cancelled(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid gateway token"})
	}
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment ref"})
	}
	if err := h.Engine.CancelHold(c.Request().Context(), ref); err != nil {
		return writeBookingErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}
