package memory

import (
	"context"
	"sync"
	"time"

	"availsync/internal/app/middleware"
)

// IdempotencyStore keeps command outcomes per key. A key is reserved atomically
// before its command runs, so concurrent callers with the same key never both run.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, at time.Time) (middleware.IdempotencyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, taken := s.records[key]; taken {
		return cloneRecord(rec), false, nil
	}
	s.records[key] = middleware.IdempotencyRecord{Key: key, Pending: true, OccurredAt: at}
	return middleware.IdempotencyRecord{}, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	rec = cloneRecord(rec)
	rec.Pending = false
	s.mu.Lock()
	s.records[rec.Key] = rec
	s.mu.Unlock()
	return nil
}

// Release forgets key only while it is still pending; settled outcomes stay.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok && rec.Pending {
		delete(s.records, key)
	}
	return nil
}

func cloneRecord(rec middleware.IdempotencyRecord) middleware.IdempotencyRecord {
	rec.Payload = append([]byte(nil), rec.Payload...)
	rec.ErrorDetail = append([]byte(nil), rec.ErrorDetail...)
	return rec
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
