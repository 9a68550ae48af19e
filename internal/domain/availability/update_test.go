package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoRoomSnapshot() Snapshot {
	return Snapshot{
		"roomType1": {
			{Date: "2019-01-01", Quantity: 10},
			{Date: "2019-01-02", Quantity: 10},
		},
		"roomType2": {
			{Date: "2019-01-01", Quantity: 5},
			{Date: "2019-01-02", Quantity: 5},
		},
	}
}

func mustUpdate(t *testing.T, ids []string, arrival, departure string) Update {
	t.Helper()
	u, err := NewUpdate(ids, arrival, departure)
	require.NoError(t, err)
	return u
}

func repeat(id string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = id
	}
	return out
}

func TestApplyUpdateDecrementsEveryNightWithMultiplicity(t *testing.T) {
	s := twoRoomSnapshot()
	u := mustUpdate(t, []string{"roomType1", "roomType2", "roomType2"}, "2019-01-01", "2019-01-03")

	next, err := ApplyUpdate(s, u)
	require.NoError(t, err)

	assert.Equal(t, Snapshot{
		"roomType1": {
			{Date: "2019-01-01", Quantity: 9},
			{Date: "2019-01-02", Quantity: 9},
		},
		"roomType2": {
			{Date: "2019-01-01", Quantity: 3},
			{Date: "2019-01-02", Quantity: 3},
		},
	}, next)
	assert.Equal(t, twoRoomSnapshot(), s, "input snapshot must stay untouched")
}

func TestApplyUpdateExcludesDepartureDay(t *testing.T) {
	s := twoRoomSnapshot()
	u := mustUpdate(t, []string{"roomType1", "roomType2", "roomType2"}, "2019-01-01", "2019-01-02")

	next, err := ApplyUpdate(s, u)
	require.NoError(t, err)

	assert.Equal(t, 9, next["roomType1"][0].Quantity)
	assert.Equal(t, 10, next["roomType1"][1].Quantity)
	assert.Equal(t, 3, next["roomType2"][0].Quantity)
	assert.Equal(t, 5, next["roomType2"][1].Quantity)
}

func TestApplyUpdateRejects(t *testing.T) {
	tests := []struct {
		name      string
		ids       []string
		arrival   string
		departure string
		reason    string
	}{
		{name: "unknown room type", ids: []string{"roomType1", "roomTypeX"}, arrival: "2019-01-01", departure: "2019-01-02", reason: ReasonUnknownRoomType},
		{name: "unknown date", ids: []string{"roomType1"}, arrival: "2021-01-01", departure: "2021-01-02", reason: ReasonUnknownDate},
		{name: "range past horizon", ids: []string{"roomType1"}, arrival: "2019-01-02", departure: "2019-01-04", reason: ReasonUnknownDate},
		{name: "overbooking", ids: repeat("roomType1", 100), arrival: "2019-01-01", departure: "2019-01-02", reason: ReasonOverbooking},
		{name: "cumulative overbooking after a valid room type", ids: append([]string{"roomType1"}, repeat("roomType2", 6)...), arrival: "2019-01-01", departure: "2019-01-03", reason: ReasonOverbooking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := twoRoomSnapshot()
			next, err := ApplyUpdate(s, mustUpdate(t, tt.ids, tt.arrival, tt.departure))

			require.ErrorIs(t, err, ErrInvalidUpdate)
			var invalid *InvalidUpdateError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.reason, invalid.Reason)
			assert.Nil(t, next)
			assert.Equal(t, twoRoomSnapshot(), s)
		})
	}
}

func TestApplyUpdateReportsOverbookingDetails(t *testing.T) {
	_, err := ApplyUpdate(twoRoomSnapshot(), mustUpdate(t, repeat("roomType2", 6), "2019-01-01", "2019-01-02"))

	var invalid *InvalidUpdateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "roomType2", invalid.RoomTypeID)
	assert.Equal(t, "2019-01-01", invalid.Date)
	assert.Equal(t, 6, invalid.Requested)
	assert.Equal(t, 5, invalid.Available)
}

func TestApplyUpdateAllowsDrainingToZero(t *testing.T) {
	next, err := ApplyUpdate(twoRoomSnapshot(), mustUpdate(t, repeat("roomType2", 5), "2019-01-01", "2019-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 0, next["roomType2"][0].Quantity)
	assert.Equal(t, 0, next["roomType2"][1].Quantity)
}

func TestNewUpdateRejectsInvalidRange(t *testing.T) {
	_, err := NewUpdate([]string{"roomType1"}, "2019-01-02", "2019-01-01")
	require.ErrorIs(t, err, ErrInvalidUpdate)

	var invalid *InvalidUpdateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, ReasonInvalidRange, invalid.Reason)
}
