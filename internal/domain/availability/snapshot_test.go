package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneCopiesRestrictions(t *testing.T) {
	s := restrictedSnapshot()
	c := s.Clone()
	c["roomType1"][1].Restrictions.NoArrival = false
	c["roomType1"][0].Quantity = 0

	assert.True(t, s["roomType1"][1].Restrictions.NoArrival)
	assert.Equal(t, 10, s["roomType1"][0].Quantity)
}

func TestDayLookup(t *testing.T) {
	s := restrictedSnapshot()

	day, ok := s.Day("roomType1", "2019-01-03")
	assert.True(t, ok)
	assert.Equal(t, "2019-01-03", day.Date)

	_, ok = s.Day("roomType1", "2019-02-01")
	assert.False(t, ok)
	_, ok = s.Day("missing", "2019-01-03")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, restrictedSnapshot().Validate())

	gap := Snapshot{"a": {{Date: "2019-01-01", Quantity: 1}, {Date: "2019-01-03", Quantity: 1}}}
	assert.ErrorIs(t, gap.Validate(), ErrMalformedSnapshot)

	negative := Snapshot{"a": {{Date: "2019-01-01", Quantity: -1}}}
	assert.ErrorIs(t, negative.Validate(), ErrMalformedSnapshot)

	badDate := Snapshot{"a": {{Date: "Jan 1", Quantity: 1}}}
	assert.ErrorIs(t, badDate.Validate(), ErrMalformedSnapshot)
}

func TestRoomTypesSorted(t *testing.T) {
	assert.Equal(t, []string{"roomType1", "roomType2"}, twoRoomSnapshot().RoomTypes())
}

func TestNormalizeOrdersDaysForLookup(t *testing.T) {
	s := Snapshot{"double": {
		{Date: "2026-03-03", Quantity: 3},
		{Date: "2026-03-01", Quantity: 1},
		{Date: " 2026-03-02", Quantity: 2},
	}}
	_, ok := s.Day("double", "2026-03-01")
	require.False(t, ok, "lookups assume date order")

	require.NoError(t, s.Normalize())
	for i, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		day, ok := s.Day("double", date)
		require.True(t, ok, date)
		assert.Equal(t, i+1, day.Quantity)
	}
	assert.NoError(t, s.Validate())
}

func TestNormalizeRejectsUnusableDates(t *testing.T) {
	dup := Snapshot{"double": {{Date: "2026-03-01"}, {Date: "2026-03-01"}}}
	assert.ErrorIs(t, dup.Normalize(), ErrMalformedSnapshot)

	bad := Snapshot{"double": {{Date: "03/01/2026"}}}
	assert.ErrorIs(t, bad.Normalize(), ErrMalformedSnapshot)
}
