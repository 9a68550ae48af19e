package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	domainavailability "availsync/internal/domain/availability"
)

var ErrAvailabilityNotFound = errors.New("redis: availability hash not found")

// AvailabilityStore keeps a hotel's snapshot in one hash: field = room type id,
// value = JSON array of day records.
type AvailabilityStore struct {
	client goredis.Cmdable
	key    string
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewAvailabilityStore(client goredis.Cmdable, prefix, hotelID string) *AvailabilityStore {
	if prefix == "" {
		prefix = "availability"
	}
	return &AvailabilityStore{client: client, key: prefix + ":" + hotelID}
}

func (s *AvailabilityStore) Fetch(ctx context.Context) (domainavailability.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", s.key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAvailabilityNotFound, s.key)
	}
	return decodeFields(fields)
}

// Persist replaces the whole hash in one MULTI/EXEC so readers never see a partial snapshot.
func (s *AvailabilityStore) Persist(ctx context.Context, snapshot domainavailability.Snapshot) error {
	values, err := encodeFields(snapshot)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: replace %s: %w", s.key, err)
	}
	return nil
}

func (s *AvailabilityStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func encodeFields(snapshot domainavailability.Snapshot) (map[string]any, error) {
	values := make(map[string]any, len(snapshot))
	for id, days := range snapshot {
		if days == nil {
			days = []domainavailability.DayRecord{}
		}
		raw, err := json.Marshal(days)
		if err != nil {
			return nil, fmt.Errorf("redis: encode room type %s: %w", id, err)
		}
		values[id] = string(raw)
	}
	return values, nil
}

func decodeFields(fields map[string]string) (domainavailability.Snapshot, error) {
	out := make(domainavailability.Snapshot, len(fields))
	for id, raw := range fields {
		var days []domainavailability.DayRecord
		if err := json.Unmarshal([]byte(raw), &days); err != nil {
			return nil, fmt.Errorf("redis: decode room type %s: %w", id, err)
		}
		out[id] = days
	}
	if err := out.Normalize(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return out, nil
}

var _ domainavailability.Store = (*AvailabilityStore)(nil)
