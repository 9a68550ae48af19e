package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "availsync/internal/domain/availability"
)

var ErrAvailabilityNotFound = errors.New("mongo: availability document not found")

// AvailabilityStore keeps one document per hotel in the availability collection.
type AvailabilityStore struct {
	col     *mongo.Collection
	hotelID string
}

func NewAvailabilityStore(db *mongo.Database, hotelID string) *AvailabilityStore {
	return &AvailabilityStore{col: db.Collection("availability"), hotelID: hotelID}
}

func (s *AvailabilityStore) Fetch(ctx context.Context) (domainavailability.Snapshot, error) {
	var doc availabilityDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": s.hotelID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: hotel %s", ErrAvailabilityNotFound, s.hotelID)
		}
		return nil, err
	}
	snapshot := doc.toSnapshot()
	if err := snapshot.Normalize(); err != nil {
		return nil, fmt.Errorf("mongo: hotel %s: %w", s.hotelID, err)
	}
	return snapshot, nil
}

func (s *AvailabilityStore) Persist(ctx context.Context, snapshot domainavailability.Snapshot) error {
	doc := newAvailabilityDocument(s.hotelID, snapshot)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type availabilityDocument struct {
	ID        string             `bson:"_id"`
	RoomTypes []roomTypeDocument `bson:"room_types"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type roomTypeDocument struct {
	ID   string                         `bson:"id"`
	Days []domainavailability.DayRecord `bson:"days"`
}

func newAvailabilityDocument(hotelID string, snapshot domainavailability.Snapshot) availabilityDocument {
	doc := availabilityDocument{ID: hotelID, UpdatedAt: time.Now().UTC()}
	for _, id := range snapshot.RoomTypes() {
		doc.RoomTypes = append(doc.RoomTypes, roomTypeDocument{ID: id, Days: snapshot[id]})
	}
	return doc
}

func (d availabilityDocument) toSnapshot() domainavailability.Snapshot {
	out := make(domainavailability.Snapshot, len(d.RoomTypes))
	for _, rt := range d.RoomTypes {
		days := rt.Days
		if days == nil {
			days = []domainavailability.DayRecord{}
		}
		out[rt.ID] = days
	}
	return out
}

var _ domainavailability.Store = (*AvailabilityStore)(nil)
