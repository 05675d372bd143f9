package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakbridge/club-sessions/internal/model"
)

func entry(id uint64, kind string, seats uint32, pos uint64) model.WaitlistEntry {
	return model.WaitlistEntry{ID: id, SessionID: 1, Kind: kind, OwnerID: id, RequestedSeats: seats, Position: pos}
}

func TestPlanPromotionsServesInPositionOrder(t *testing.T) {
	entries := []model.WaitlistEntry{
		entry(10, model.WaitlistNewSpot, 1, 3),
		entry(11, model.WaitlistAddGuests, 2, 5),
		entry(12, model.WaitlistNewSpot, 1, 9),
	}
	grants := planPromotions(entries, 4)
	require.Len(t, grants, 3)
	assert.Equal(t, uint64(10), grants[0].Entry.ID)
	assert.Equal(t, uint64(11), grants[1].Entry.ID)
	assert.Equal(t, uint64(12), grants[2].Entry.ID)
	assert.Equal(t, uint32(1), grants[0].Seats)
	assert.Equal(t, uint32(2), grants[1].Seats)
	assert.Equal(t, uint32(1), grants[2].Seats)
}

func TestPlanPromotionsNeverSkipsAheadOfAPartialHead(t *testing.T) {
	// the head wants 5 but only 2 are free; the single-seat entry behind
	// it must not sneak past
	entries := []model.WaitlistEntry{
		entry(1, model.WaitlistAddGuests, 5, 1),
		entry(2, model.WaitlistNewSpot, 1, 2),
	}
	grants := planPromotions(entries, 2)
	require.Len(t, grants, 1)
	assert.Equal(t, uint64(1), grants[0].Entry.ID)
	assert.Equal(t, uint32(2), grants[0].Seats)
}

func TestPlanPromotionsNeverGrantsMoreThanAvailable(t *testing.T) {
	entries := []model.WaitlistEntry{
		entry(1, model.WaitlistAddGuests, 3, 1),
		entry(2, model.WaitlistAddGuests, 3, 2),
		entry(3, model.WaitlistNewSpot, 1, 3),
	}
	for avail := uint32(0); avail <= 8; avail++ {
		grants := planPromotions(entries, avail)
		var total uint32
		for _, g := range grants {
			total += g.Seats
		}
		assert.LessOrEqual(t, total, avail)
	}
}

func TestPlanPromotionsExactFitConsumesWholeQueue(t *testing.T) {
	entries := []model.WaitlistEntry{
		entry(1, model.WaitlistNewSpot, 1, 1),
		entry(2, model.WaitlistAddGuests, 2, 2),
	}
	grants := planPromotions(entries, 3)
	require.Len(t, grants, 2)
	assert.Equal(t, uint32(1), grants[0].Seats)
	assert.Equal(t, uint32(2), grants[1].Seats)
}

func TestPlanPromotionsEmptyInputs(t *testing.T) {
	assert.Empty(t, planPromotions(nil, 10))
	assert.Empty(t, planPromotions([]model.WaitlistEntry{entry(1, model.WaitlistNewSpot, 1, 1)}, 0))
}
