package dto

import (
	domainavailability "availsync/internal/domain/availability"
)

// Availability is the document exchanged with API clients and the remote platform.
type Availability struct {
	HotelID      string                      `json:"hotel_id,omitempty"`
	Availability domainavailability.Snapshot `json:"availability"`
}

type UpdateResult struct {
	RoomTypeIDs []string `json:"room_type_ids"`
	Arrival     string   `json:"arrival"`
	Departure   string   `json:"departure"`
	Nights      int      `json:"nights"`
}
