package availability

import (
	"context"

	"availsync/internal/app/commands"
	"availsync/internal/app/dto"
	"availsync/internal/app/middleware"
	domainavailability "availsync/internal/domain/availability"
)

const updateAvailabilityKey = "availability.update"

type UpdateAvailabilityCommand struct {
	RoomTypeIDs     []string
	Arrival         string
	Departure       string
	IdempotencyKeyV string
}

func (c UpdateAvailabilityCommand) Key() string { return updateAvailabilityKey }

func (c UpdateAvailabilityCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c UpdateAvailabilityCommand) ResultPrototype() any { return &dto.UpdateResult{} }

// Updater is the serialized update pipeline.
type Updater interface {
	UpdateAvailability(ctx context.Context, roomTypeIDs []string, arrival, departure string) error
	Snapshot(ctx context.Context) (domainavailability.Snapshot, error)
}

type UpdateAvailabilityHandler struct {
	Updater Updater
}

func (h *UpdateAvailabilityHandler) Handle(ctx context.Context, cmd UpdateAvailabilityCommand) (*dto.UpdateResult, error) {
	update, err := domainavailability.NewUpdate(cmd.RoomTypeIDs, cmd.Arrival, cmd.Departure)
	if err != nil {
		return nil, err
	}
	if err := h.Updater.UpdateAvailability(ctx, update.RoomTypeIDs, cmd.Arrival, cmd.Departure); err != nil {
		return nil, err
	}
	return &dto.UpdateResult{
		RoomTypeIDs: update.RoomTypeIDs,
		Arrival:     update.Stay.Arrival(),
		Departure:   update.Stay.Departure(),
		Nights:      update.Stay.Nights(),
	}, nil
}

var _ commands.Handler[UpdateAvailabilityCommand, *dto.UpdateResult] = (*UpdateAvailabilityHandler)(nil)
var _ middleware.IdempotentCommand = UpdateAvailabilityCommand{}
