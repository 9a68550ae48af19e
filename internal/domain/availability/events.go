package availability

import (
	"time"
)

type Updated struct {
	HotelID     string    `json:"hotel_id"`
	RoomTypeIDs []string  `json:"room_type_ids"`
	Arrival     string    `json:"arrival"`
	Departure   string    `json:"departure"`
	At          time.Time `json:"at"`
}

func (e Updated) EventName() string     { return "availability.updated" }
func (e Updated) AggregateID() string   { return e.HotelID }
func (e Updated) OccurredAt() time.Time { return e.At }

type UpdateRejected struct {
	HotelID     string    `json:"hotel_id"`
	RoomTypeIDs []string  `json:"room_type_ids"`
	Arrival     string    `json:"arrival"`
	Departure   string    `json:"departure"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

func (e UpdateRejected) EventName() string     { return "availability.update_rejected" }
func (e UpdateRejected) AggregateID() string   { return e.HotelID }
func (e UpdateRejected) OccurredAt() time.Time { return e.At }

func UpdatedEvent(hotelID string, u Update, at time.Time) Updated {
	return Updated{
		HotelID:     hotelID,
		RoomTypeIDs: append([]string(nil), u.RoomTypeIDs...),
		Arrival:     u.Stay.Arrival(),
		Departure:   u.Stay.Departure(),
		At:          at.UTC(),
	}
}

func UpdateRejectedEvent(hotelID string, u Update, reason error, at time.Time) UpdateRejected {
	return UpdateRejected{
		HotelID:     hotelID,
		RoomTypeIDs: append([]string(nil), u.RoomTypeIDs...),
		Arrival:     u.Stay.Arrival(),
		Departure:   u.Stay.Departure(),
		Reason:      reason.Error(),
		At:          at.UTC(),
	}
}
