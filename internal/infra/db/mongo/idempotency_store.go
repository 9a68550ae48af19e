package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"availsync/internal/app/middleware"
)

// reserveAttempts bounds the insert/lookup race with a concurrent Release.
const reserveAttempts = 3

// IdempotencyStore keeps one document per key in app_idempotency. Reservations and
// outcomes share the document; a TTL index on created_at expires both.
type IdempotencyStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	col := db.Collection("app_idempotency")
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	})
	if err != nil {
		return nil, err
	}
	return &IdempotencyStore{col: col, now: time.Now}, nil
}

// Reserve inserts a pending document; the unique _id makes the insert the claim.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, at time.Time) (middleware.IdempotencyRecord, bool, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		_, err := s.col.InsertOne(ctx, idempotencyDocument{
			ID:         key,
			Pending:    true,
			OccurredAt: at,
			CreatedAt:  s.now().UTC(),
		})
		if err == nil {
			return middleware.IdempotencyRecord{}, true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return middleware.IdempotencyRecord{}, false, err
		}
		var doc idempotencyDocument
		err = s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Released between our insert and lookup.
			continue
		}
		if err != nil {
			return middleware.IdempotencyRecord{}, false, err
		}
		return doc.toRecord(), false, nil
	}
	return middleware.IdempotencyRecord{Key: key, Pending: true}, false, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := newIdempotencyDocument(rec, s.now().UTC())
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// Release deletes key only while it is still a pending reservation.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "pending": true})
	return err
}

type idempotencyDocument struct {
	ID          string    `bson:"_id"`
	Pending     bool      `bson:"pending"`
	Payload     []byte    `bson:"payload,omitempty"`
	Error       string    `bson:"error,omitempty"`
	ErrorCode   string    `bson:"error_code,omitempty"`
	ErrorDetail []byte    `bson:"error_detail,omitempty"`
	OccurredAt  time.Time `bson:"occurred_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

func newIdempotencyDocument(rec middleware.IdempotencyRecord, createdAt time.Time) idempotencyDocument {
	return idempotencyDocument{
		ID:          rec.Key,
		Payload:     rec.Payload,
		Error:       rec.Error,
		ErrorCode:   rec.ErrorCode,
		ErrorDetail: rec.ErrorDetail,
		OccurredAt:  rec.OccurredAt,
		CreatedAt:   createdAt,
	}
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{
		Key:         d.ID,
		Pending:     d.Pending,
		Payload:     d.Payload,
		Error:       d.Error,
		ErrorCode:   d.ErrorCode,
		ErrorDetail: d.ErrorDetail,
		OccurredAt:  d.OccurredAt,
	}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
