package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"availsync/internal/app/middleware"
	domainavailability "availsync/internal/domain/availability"
)

func TestAvailabilityDocumentRoundTripsThroughBSON(t *testing.T) {
	snapshot := domainavailability.Snapshot{
		"single": {{Date: "2026-03-01", Quantity: 1}},
		"double": {
			{Date: "2026-03-01", Quantity: 2, Restrictions: &domainavailability.Restrictions{NoArrival: true}},
			{Date: "2026-03-02", Quantity: 0},
		},
		"suite": {},
	}
	doc := newAvailabilityDocument("hotel-1", snapshot)
	assert.Equal(t, "hotel-1", doc.ID)
	require.Len(t, doc.RoomTypes, 3)
	assert.Equal(t, "double", doc.RoomTypes[0].ID, "room types are stored in sorted order")

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded availabilityDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	assert.Equal(t, snapshot, decoded.toSnapshot())
}

func TestIdempotencyDocumentKeepsRejectionDetail(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := middleware.IdempotencyRecord{
		Key:         "k",
		Error:       "overbooked",
		ErrorCode:   "invalid_update",
		ErrorDetail: []byte(`{"reason":"overbooking"}`),
		OccurredAt:  at,
	}
	raw, err := bson.Marshal(newIdempotencyDocument(rec, at))
	require.NoError(t, err)
	var decoded idempotencyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, rec, decoded.toRecord())
	assert.False(t, decoded.Pending, "saved outcomes replace the reservation")
}

func TestIdempotencyReservationDecodesAsPending(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(idempotencyDocument{ID: "k", Pending: true, OccurredAt: at, CreatedAt: at})
	require.NoError(t, err)
	var decoded idempotencyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, middleware.IdempotencyRecord{Key: "k", Pending: true, OccurredAt: at}, decoded.toRecord())
}
