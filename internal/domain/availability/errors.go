package availability

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUpdate        = errors.New("availability: invalid update")
	ErrRestrictionsViolated = errors.New("availability: restrictions violated")
	ErrMalformedSnapshot    = errors.New("availability: malformed snapshot")
)

// Reasons carried by InvalidUpdateError.
const (
	ReasonInvalidRange    = "invalid_range"
	ReasonUnknownRoomType = "unknown_room_type"
	ReasonUnknownDate     = "unknown_date"
	ReasonOverbooking     = "overbooking"
)

// InvalidUpdateError reports a structurally inconsistent update request.
// It matches ErrInvalidUpdate with errors.Is.
type InvalidUpdateError struct {
	Reason     string
	RoomTypeID string
	Date       string
	Requested  int
	Available  int
	Err        error
}

func (e *InvalidUpdateError) Error() string {
	switch e.Reason {
	case ReasonUnknownRoomType:
		return fmt.Sprintf("availability: unknown room type %q", e.RoomTypeID)
	case ReasonUnknownDate:
		return fmt.Sprintf("availability: room type %q has no record for %s", e.RoomTypeID, e.Date)
	case ReasonOverbooking:
		return fmt.Sprintf("availability: room type %q overbooked on %s (requested %d, available %d)", e.RoomTypeID, e.Date, e.Requested, e.Available)
	case ReasonInvalidRange:
		if e.Err != nil {
			return "availability: invalid date range: " + e.Err.Error()
		}
		return "availability: invalid date range"
	default:
		return ErrInvalidUpdate.Error()
	}
}

func (e *InvalidUpdateError) Is(target error) bool { return target == ErrInvalidUpdate }

func (e *InvalidUpdateError) Unwrap() error { return e.Err }

type Restriction string

const (
	NoArrival   Restriction = "no_arrival"
	NoDeparture Restriction = "no_departure"
)

// RestrictionsViolatedError reports a stay boundary falling on a restricted day.
// It matches ErrRestrictionsViolated with errors.Is.
type RestrictionsViolatedError struct {
	RoomTypeID  string
	Date        string
	Restriction Restriction
}

func (e *RestrictionsViolatedError) Error() string {
	return fmt.Sprintf("availability: room type %q does not allow %s on %s", e.RoomTypeID, e.Restriction, e.Date)
}

func (e *RestrictionsViolatedError) Is(target error) bool { return target == ErrRestrictionsViolated }
