package memory

import (
	"context"
	"sync"
	"time"

	audit "warden/pkg/platform/audit"
)

// InMemoryStore keeps the audit trail in process memory. Used when no
// database is configured; the trail is lost on restart.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByParticipant returns events touching a participant, newest first.
func (s *InMemoryStore) ListByParticipant(_ context.Context, participantID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ParticipantID == participantID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// ListRecent returns up to limit events for a community, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, communityID string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].CommunityID == communityID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// Stats aggregates a community's trail with a rolling 24 hour window.
func (s *InMemoryStore) Stats(_ context.Context, communityID string) (audit.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	windowStart := time.Now().Add(-24 * time.Hour)

	var stats audit.Stats
	for _, event := range s.events {
		if event.CommunityID != communityID {
			continue
		}
		stats.TotalActions++
		inWindow := event.Timestamp.After(windowStart)
		if inWindow {
			stats.Recent24h.Total++
		}

		switch audit.AuditEvent(event.Action) {
		case audit.EventParticipantDetected:
			stats.Detected++
		case audit.EventParticipantApproved:
			stats.Approved++
			if inWindow {
				stats.Recent24h.Approved++
			}
		case audit.EventParticipantRejected:
			stats.Rejected++
			if inWindow {
				stats.Recent24h.Rejected++
			}
		case audit.EventParticipantTimedOut:
			stats.TimedOut++
			if inWindow {
				stats.Recent24h.TimedOut++
			}
		}
	}
	return stats, nil
}
