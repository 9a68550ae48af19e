package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	domainavailability "availsync/internal/domain/availability"
)

// AvailabilityStore keeps one snapshot in process memory. Fetch and Persist copy,
// so callers never share records with the store.
type AvailabilityStore struct {
	mu       sync.RWMutex
	snapshot domainavailability.Snapshot
}

func NewAvailabilityStore(seed domainavailability.Snapshot) *AvailabilityStore {
	if seed == nil {
		seed = domainavailability.Snapshot{}
	}
	return &AvailabilityStore{snapshot: seed.Clone()}
}

func (s *AvailabilityStore) Fetch(ctx context.Context) (domainavailability.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone(), nil
}

func (s *AvailabilityStore) Persist(ctx context.Context, snapshot domainavailability.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot.Clone()
	return nil
}

func (s *AvailabilityStore) Ping(context.Context) error { return nil }

// LoadSnapshotFile reads a JSON snapshot, either bare or wrapped in {"availability": ...}.
func LoadSnapshotFile(path string) (domainavailability.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read seed: %w", err)
	}
	var wrapped struct {
		Availability domainavailability.Snapshot `json:"availability"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Availability != nil {
		if err := wrapped.Availability.Validate(); err != nil {
			return nil, fmt.Errorf("memory: seed %s: %w", path, err)
		}
		return wrapped.Availability, nil
	}
	var snapshot domainavailability.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("memory: decode seed %s: %w", path, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("memory: seed %s: %w", path, err)
	}
	return snapshot, nil
}

var _ domainavailability.Store = (*AvailabilityStore)(nil)
