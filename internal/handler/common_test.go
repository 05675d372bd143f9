package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakbridge/club-sessions/internal/booking"
	"github.com/oakbridge/club-sessions/internal/repository"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetUserID(t *testing.T) {
	c, _ := newTestContext()

	// JWT claims arrive as float64
	c.Set("user_id", float64(7))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	c.Set("user_id", "42")
	id, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	c.Set("user_id", nil)
	_, err = getUserID(c)
	assert.Error(t, err)
}

func TestPathID(t *testing.T) {
	c, _ := newTestContext()
	c.SetParamNames("id")
	c.SetParamValues("15")
	id, ok := pathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint64(15), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		c.SetParamValues(bad)
		_, ok := pathID(c, "id")
		assert.False(t, ok, "value %q should be rejected", bad)
	}
}

func TestWriteBookingErrStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrSessionNotFound, http.StatusNotFound},
		{repository.ErrRegistrationNotFound, http.StatusNotFound},
		{repository.ErrHoldNotFound, http.StatusNotFound},
		{booking.ErrTooManySeats, http.StatusBadRequest},
		{repository.ErrForbidden, http.StatusForbidden},
		{booking.ErrAlreadyRegistered, http.StatusConflict},
		{booking.ErrAlreadyWaitlisted, http.StatusConflict},
		{booking.ErrSessionClosed, http.StatusConflict},
		{booking.ErrInvalidState, http.StatusConflict},
		{booking.ErrHoldExpired, http.StatusGone},
		{booking.ErrPaymentFailed, http.StatusPaymentRequired},
		{repository.ErrInsufficientPoints, http.StatusPaymentRequired},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newTestContext()
		require.NoError(t, writeBookingErr(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}
