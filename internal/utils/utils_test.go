package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("open sesame", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "open sesame"))
	assert.False(t, VerifyPassword(hash, "open says me"))
	assert.False(t, VerifyPassword("not a hash", "open sesame"))
}

func TestAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("secret", 42, "MEMBER", 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	tok, err := jwt.Parse(at.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "MEMBER", claims["role"])
	assert.InDelta(t, time.Now().Add(15*time.Minute).Unix(), int64(claims["exp"].(float64)), 5)
}

func TestRefreshTokenHashingIsStable(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))

	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestCheckInQRPNG(t *testing.T) {
	png, err := CheckInQRPNG("reg-123", 150)
	require.NoError(t, err)
	// PNG magic bytes
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestSessionPassPDF(t *testing.T) {
	out, err := SessionPassPDF(PassData{
		CheckInCode:  "reg-123",
		SessionTitle: "Tuesday Night Chess",
		StartsAt:     time.Date(2026, 6, 2, 19, 0, 0, 0, time.UTC),
		MemberEmail:  "member@example.com",
		Seats:        3,
	})
	require.NoError(t, err)
	require.Greater(t, len(out), 4)
	assert.Equal(t, "%PDF", string(out[:4]))
}
