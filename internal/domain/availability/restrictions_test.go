package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restrictedSnapshot() Snapshot {
	return Snapshot{
		"roomType1": {
			{Date: "2019-01-01", Quantity: 10},
			{Date: "2019-01-02", Quantity: 10, Restrictions: &Restrictions{NoArrival: true}},
			{Date: "2019-01-03", Quantity: 10},
			{Date: "2019-01-04", Quantity: 10, Restrictions: &Restrictions{NoDeparture: true}},
		},
	}
}

func TestCheckRestrictionsNoArrival(t *testing.T) {
	err := CheckRestrictions(restrictedSnapshot(), mustUpdate(t, []string{"roomType1"}, "2019-01-02", "2019-01-03"))

	require.ErrorIs(t, err, ErrRestrictionsViolated)
	var violated *RestrictionsViolatedError
	require.ErrorAs(t, err, &violated)
	assert.Equal(t, NoArrival, violated.Restriction)
	assert.Equal(t, "2019-01-02", violated.Date)
}

func TestCheckRestrictionsNoDeparture(t *testing.T) {
	err := CheckRestrictions(restrictedSnapshot(), mustUpdate(t, []string{"roomType1"}, "2019-01-01", "2019-01-04"))

	var violated *RestrictionsViolatedError
	require.ErrorAs(t, err, &violated)
	assert.Equal(t, NoDeparture, violated.Restriction)
	assert.Equal(t, "2019-01-04", violated.Date)
}

func TestCheckRestrictionsPassesWithoutViolation(t *testing.T) {
	assert.NoError(t, CheckRestrictions(restrictedSnapshot(), mustUpdate(t, []string{"roomType1"}, "2019-01-01", "2019-01-03")))
}

func TestCheckRestrictionsIgnoresInteriorDays(t *testing.T) {
	// 01-02 is no-arrival and 01-04 is no-departure, but both are occupied nights here.
	s := restrictedSnapshot()
	s["roomType1"] = append(s["roomType1"], DayRecord{Date: "2019-01-05", Quantity: 10})

	assert.NoError(t, CheckRestrictions(s, mustUpdate(t, []string{"roomType1"}, "2019-01-01", "2019-01-05")))
}

func TestCheckRestrictionsSkipsUnknownRoomTypesAndDates(t *testing.T) {
	assert.NoError(t, CheckRestrictions(restrictedSnapshot(), mustUpdate(t, []string{"roomTypeX"}, "2019-01-02", "2019-01-04")))
	assert.NoError(t, CheckRestrictions(restrictedSnapshot(), mustUpdate(t, []string{"roomType1"}, "2019-01-03", "2019-01-09")))
}
