package memory

import (
	"context"
	"sync"
)

// InboxStore remembers processed event ids for one consumer.
type InboxStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInboxStore() *InboxStore {
	return &InboxStore{seen: make(map[string]struct{})}
}

// Seen records eventID and reports whether it was already recorded.
func (s *InboxStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return true, nil
	}
	s.seen[eventID] = struct{}{}
	return false, nil
}

// Forget drops eventID so a redelivery is processed again.
func (s *InboxStore) Forget(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}
