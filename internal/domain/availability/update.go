package availability

import (
	"availsync/internal/domain/shared/daterange"
)

// Update consumes one unit of each listed room type for every night of Stay.
// A room type listed n times consumes n units.
type Update struct {
	RoomTypeIDs []string
	Stay        daterange.DateRange
}

func NewUpdate(roomTypeIDs []string, arrival, departure string) (Update, error) {
	stay, err := daterange.Parse(arrival, departure)
	if err != nil {
		return Update{}, &InvalidUpdateError{Reason: ReasonInvalidRange, Err: err}
	}
	return Update{RoomTypeIDs: append([]string(nil), roomTypeIDs...), Stay: stay}, nil
}

// ApplyUpdate returns a new snapshot with the update applied. The input is never
// modified; on error no partial result is returned.
func ApplyUpdate(s Snapshot, u Update) (Snapshot, error) {
	demand := make(map[string]int, len(u.RoomTypeIDs))
	order := make([]string, 0, len(u.RoomTypeIDs))
	for _, id := range u.RoomTypeIDs {
		if _, ok := s[id]; !ok {
			return nil, &InvalidUpdateError{Reason: ReasonUnknownRoomType, RoomTypeID: id}
		}
		if demand[id] == 0 {
			order = append(order, id)
		}
		demand[id]++
	}

	nights := u.Stay.Days()
	next := s.Clone()
	for _, id := range order {
		days := next[id]
		want := demand[id]
		for _, date := range nights {
			i, ok := indexOf(days, date)
			if !ok {
				return nil, &InvalidUpdateError{Reason: ReasonUnknownDate, RoomTypeID: id, Date: date}
			}
			if days[i].Quantity < want {
				return nil, &InvalidUpdateError{
					Reason:     ReasonOverbooking,
					RoomTypeID: id,
					Date:       date,
					Requested:  want,
					Available:  days[i].Quantity,
				}
			}
			days[i].Quantity -= want
		}
	}
	return next, nil
}
