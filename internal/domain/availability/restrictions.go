package availability

// CheckRestrictions rejects stays that start on a no-arrival day or end on a
// no-departure day. Nights between the boundaries are not checked, and room types
// or dates missing from the snapshot are left to ApplyUpdate.
func CheckRestrictions(s Snapshot, u Update) error {
	arrival, departure := u.Stay.Arrival(), u.Stay.Departure()
	for _, id := range u.RoomTypeIDs {
		if day, ok := s.Day(id, arrival); ok && day.Restrictions != nil && day.Restrictions.NoArrival {
			return &RestrictionsViolatedError{RoomTypeID: id, Date: arrival, Restriction: NoArrival}
		}
		if day, ok := s.Day(id, departure); ok && day.Restrictions != nil && day.Restrictions.NoDeparture {
			return &RestrictionsViolatedError{RoomTypeID: id, Date: departure, Restriction: NoDeparture}
		}
	}
	return nil
}
