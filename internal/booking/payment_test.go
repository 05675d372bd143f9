package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMixedCoversAmountExactly(t *testing.T) {
	cases := []struct {
		name    string
		amount  uint32
		balance int64
		points  uint32
		card    uint32
	}{
		{"empty balance goes all card", 1000, 0, 0, 1000},
		{"negative balance goes all card", 1000, -50, 0, 1000},
		{"balance covers everything", 1000, 5000, 1000, 0},
		{"balance exactly matches", 1000, 1000, 1000, 0},
		{"partial balance splits", 1000, 300, 300, 700},
		{"zero amount", 0, 500, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			points, card := splitMixed(tc.amount, tc.balance)
			assert.Equal(t, tc.points, points)
			assert.Equal(t, tc.card, card)
			assert.Equal(t, tc.amount, points+card)
		})
	}
}
