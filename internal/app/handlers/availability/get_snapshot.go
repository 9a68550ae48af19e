package availability

import (
	"context"

	"availsync/internal/app/dto"
	"availsync/internal/app/queries"
)

const getSnapshotKey = "availability.snapshot"

type GetSnapshotQuery struct{}

func (q GetSnapshotQuery) Key() string { return getSnapshotKey }

type GetSnapshotHandler struct {
	HotelID string
	Updater Updater
}

func (h *GetSnapshotHandler) Handle(ctx context.Context, _ GetSnapshotQuery) (dto.Availability, error) {
	snapshot, err := h.Updater.Snapshot(ctx)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.Availability{HotelID: h.HotelID, Availability: snapshot}, nil
}

var _ queries.Handler[GetSnapshotQuery, dto.Availability] = (*GetSnapshotHandler)(nil)
