package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionAvailable(t *testing.T) {
	assert.Equal(t, uint32(10), (&Session{Capacity: 10, Occupied: 0}).Available())
	assert.Equal(t, uint32(3), (&Session{Capacity: 10, Occupied: 7}).Available())
	assert.Equal(t, uint32(0), (&Session{Capacity: 10, Occupied: 10}).Available())
	// a corrupted ledger must still not report negative availability
	assert.Equal(t, uint32(0), (&Session{Capacity: 10, Occupied: 12}).Available())
}

func TestValidRegistrationTransition(t *testing.T) {
	assert.True(t, ValidRegistrationTransition(RegistrationPending, RegistrationConfirmed))
	assert.True(t, ValidRegistrationTransition(RegistrationPending, RegistrationCancelled))
	assert.True(t, ValidRegistrationTransition(RegistrationConfirmed, RegistrationCancelled))

	assert.False(t, ValidRegistrationTransition(RegistrationCancelled, RegistrationPending))
	assert.False(t, ValidRegistrationTransition(RegistrationCancelled, RegistrationConfirmed))
	assert.False(t, ValidRegistrationTransition(RegistrationConfirmed, RegistrationPending))
	assert.False(t, ValidRegistrationTransition("", RegistrationConfirmed))
}

func TestHoldExpiredBy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Hold{Status: HoldAwaitingPayment, ExpiresAt: &past}).ExpiredBy(now))
	assert.True(t, (&Hold{Status: HoldAwaitingPayment, ExpiresAt: &now}).ExpiredBy(now))
	assert.False(t, (&Hold{Status: HoldAwaitingPayment, ExpiresAt: &future}).ExpiredBy(now))
	// points holds carry no expiry and never lapse
	assert.False(t, (&Hold{Status: HoldAwaitingPayment}).ExpiredBy(now))
	// resolved holds stay resolved no matter the clock
	assert.False(t, (&Hold{Status: HoldConfirmed, ExpiresAt: &past}).ExpiredBy(now))
	assert.False(t, (&Hold{Status: HoldCancelled, ExpiresAt: &past}).ExpiredBy(now))
}
