package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"availsync/internal/app/middleware"
	domainavailability "availsync/internal/domain/availability"
)

// RequestValidator rejects update commands that cannot name a stay.
type RequestValidator struct {
	MaxRoomTypes int
}

func (v RequestValidator) Validate(_ context.Context, message any) error {
	cmd, ok := message.(UpdateAvailabilityCommand)
	if !ok {
		return nil
	}
	if len(cmd.RoomTypeIDs) == 0 {
		return fmt.Errorf("%w: room_type_ids must not be empty", middleware.ErrValidation)
	}
	if v.MaxRoomTypes > 0 && len(cmd.RoomTypeIDs) > v.MaxRoomTypes {
		return fmt.Errorf("%w: at most %d room types per update", middleware.ErrValidation, v.MaxRoomTypes)
	}
	for i, id := range cmd.RoomTypeIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: room_type_ids[%d] is blank", middleware.ErrValidation, i)
		}
	}
	if strings.TrimSpace(cmd.Arrival) == "" || strings.TrimSpace(cmd.Departure) == "" {
		return fmt.Errorf("%w: arrival and departure are required", middleware.ErrValidation)
	}
	return nil
}

// Error codes remembered by the idempotency store.
const (
	codeInvalidUpdate        = "invalid_update"
	codeRestrictionsViolated = "restrictions_violated"
)

// rejection is the replayable shape of a domain rejection.
type rejection struct {
	Reason      string `json:"reason,omitempty"`
	RoomTypeID  string `json:"room_type_id,omitempty"`
	Date        string `json:"date,omitempty"`
	Requested   int    `json:"requested,omitempty"`
	Available   int    `json:"available,omitempty"`
	Restriction string `json:"restriction,omitempty"`
	Cause       string `json:"cause,omitempty"`
}

// ErrorCodec caches domain rejections only; store failures may succeed on retry.
// Replayed rejections come back as the same typed errors the updater returned.
type ErrorCodec struct{}

func (ErrorCodec) Encode(err error) (string, []byte, bool) {
	var invalid *domainavailability.InvalidUpdateError
	var violated *domainavailability.RestrictionsViolatedError
	switch {
	case errors.As(err, &invalid):
		r := rejection{
			Reason:     invalid.Reason,
			RoomTypeID: invalid.RoomTypeID,
			Date:       invalid.Date,
			Requested:  invalid.Requested,
			Available:  invalid.Available,
		}
		if invalid.Err != nil {
			r.Cause = invalid.Err.Error()
		}
		return codeInvalidUpdate, encodeRejection(r), true
	case errors.As(err, &violated):
		return codeRestrictionsViolated, encodeRejection(rejection{
			RoomTypeID:  violated.RoomTypeID,
			Date:        violated.Date,
			Restriction: string(violated.Restriction),
		}), true
	case errors.Is(err, domainavailability.ErrInvalidUpdate):
		return codeInvalidUpdate, nil, true
	case errors.Is(err, domainavailability.ErrRestrictionsViolated):
		return codeRestrictionsViolated, nil, true
	default:
		return "", nil, false
	}
}

func (ErrorCodec) Decode(code string, detail []byte, message string) error {
	var r rejection
	typed := len(detail) > 0 && json.Unmarshal(detail, &r) == nil
	switch code {
	case codeInvalidUpdate:
		if !typed {
			return fmt.Errorf("%w: %s", domainavailability.ErrInvalidUpdate, message)
		}
		out := &domainavailability.InvalidUpdateError{
			Reason:     r.Reason,
			RoomTypeID: r.RoomTypeID,
			Date:       r.Date,
			Requested:  r.Requested,
			Available:  r.Available,
		}
		if r.Cause != "" {
			out.Err = errors.New(r.Cause)
		}
		return out
	case codeRestrictionsViolated:
		if !typed {
			return fmt.Errorf("%w: %s", domainavailability.ErrRestrictionsViolated, message)
		}
		return &domainavailability.RestrictionsViolatedError{
			RoomTypeID:  r.RoomTypeID,
			Date:        r.Date,
			Restriction: domainavailability.Restriction(r.Restriction),
		}
	default:
		return errors.New(message)
	}
}

func encodeRejection(r rejection) []byte {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return raw
}

var (
	_ middleware.Validator  = RequestValidator{}
	_ middleware.ErrorCodec = ErrorCodec{}
)
