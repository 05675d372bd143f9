// Package handler contains the HTTP layer.  Handlers bind and validate
// requests, call the booking engine or repositories, and translate the
// outcome to JSON.  They assume JWT authentication and role checks ran in
// middleware and read the authenticated member from the Echo context.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/booking"
	"github.com/oakbridge/club-sessions/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses the named path parameter as a positive integer ID.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// writeBookingErr maps engine and repository errors onto the API's status
// codes.  Idempotent cancellation is deliberately not here: handlers turn
// ErrAlreadyCancelled into a 200 no-op themselves.
func writeBookingErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrWaitlistEntryNotFound),
		errors.Is(err, repository.ErrHoldNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrTooManySeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrAlreadyRegistered),
		errors.Is(err, booking.ErrAlreadyWaitlisted),
		errors.Is(err, booking.ErrSessionClosed),
		errors.Is(err, booking.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrPaymentFailed),
		errors.Is(err, repository.ErrInsufficientPoints):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
