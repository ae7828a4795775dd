package allowlist

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a process-local allowlist. Used directly when no Redis
// is configured, and as the fallback half of the failover store.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{members: make(map[string]map[string]struct{})}
}

func (s *InMemoryStore) Add(_ context.Context, communityID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	community, ok := s.members[communityID]
	if !ok {
		community = make(map[string]struct{})
		s.members[communityID] = community
	}
	community[participantID] = struct{}{}
	return nil
}

func (s *InMemoryStore) Contains(_ context.Context, communityID, participantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[communityID][participantID]
	return ok, nil
}

func (s *InMemoryStore) Remove(_ context.Context, communityID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members[communityID], participantID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, communityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.members[communityID]))
	for participantID := range s.members[communityID] {
		out = append(out, participantID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, communityID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.members[communityID]), nil
}
