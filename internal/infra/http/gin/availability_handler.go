package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"availsync/internal/app/commands"
	"availsync/internal/app/dto"
	availabilityapp "availsync/internal/app/handlers/availability"
	"availsync/internal/app/middleware"
	"availsync/internal/app/queries"
	appservice "availsync/internal/app/services/availability"
	domainavailability "availsync/internal/domain/availability"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type updateRequest struct {
	RoomTypeIDs []string `json:"room_type_ids"`
	Arrival     string   `json:"arrival"`
	Departure   string   `json:"departure"`
}

type errorBody struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Reason      string `json:"reason,omitempty"`
	RoomTypeID  string `json:"room_type_id,omitempty"`
	Date        string `json:"date,omitempty"`
	Restriction string `json:"restriction,omitempty"`
}

func (h AvailabilityHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
		return
	}
	cmd := availabilityapp.UpdateAvailabilityCommand{
		RoomTypeIDs:     req.RoomTypeIDs,
		Arrival:         req.Arrival,
		Departure:       req.Departure,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	if _, err := commands.Dispatch[availabilityapp.UpdateAvailabilityCommand, *dto.UpdateResult](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AvailabilityHandler) Snapshot(c *gin.Context) {
	result, err := queries.Ask[availabilityapp.GetSnapshotQuery, dto.Availability](c.Request.Context(), h.Queries, availabilityapp.GetSnapshotQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := mapError(err)
	c.AbortWithStatusJSON(status, body)
}

func mapError(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var invalid *domainavailability.InvalidUpdateError
	var violated *domainavailability.RestrictionsViolatedError
	var storeErr *appservice.StoreError
	switch {
	case errors.Is(err, middleware.ErrValidation):
		body.Code = "validation_failed"
		return http.StatusBadRequest, body
	case errors.Is(err, middleware.ErrUnauthorized):
		body.Code = "unauthorized"
		return http.StatusUnauthorized, body
	case errors.Is(err, middleware.ErrIdempotencyInProgress):
		body.Code = "idempotency_in_progress"
		return http.StatusConflict, body
	case errors.As(err, &invalid):
		body.Code = "invalid_update"
		body.Reason = invalid.Reason
		body.RoomTypeID = invalid.RoomTypeID
		body.Date = invalid.Date
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domainavailability.ErrInvalidUpdate):
		body.Code = "invalid_update"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &violated):
		body.Code = "restrictions_violated"
		body.RoomTypeID = violated.RoomTypeID
		body.Date = violated.Date
		body.Restriction = string(violated.Restriction)
		return http.StatusConflict, body
	case errors.Is(err, domainavailability.ErrRestrictionsViolated):
		body.Code = "restrictions_violated"
		return http.StatusConflict, body
	case errors.As(err, &storeErr):
		body.Code = "store_unavailable"
		return http.StatusBadGateway, body
	case errors.Is(err, context.DeadlineExceeded):
		body.Code = "timeout"
		return http.StatusGatewayTimeout, body
	default:
		body.Code = "internal"
		return http.StatusInternalServerError, body
	}
}

var _ AvailabilityHTTP = AvailabilityHandler{}
