// Package registry holds pending approval entries and linearizes their
// resolution. All decision paths (reviewer command, reaction, console,
// timeout) funnel into Resolve under one write lock, so exactly one of any
// set of racing resolvers succeeds per entry.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"warden/internal/approval"
	"warden/pkg/platform/sentinel"
)

type entryKey struct {
	communityID   string
	participantID string
}

// InMemoryRegistry is the process-local registry. Entries do not survive a
// restart; the audit trail and allowlist are the durable surfaces.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	entries  map[entryKey]*approval.PendingApproval
	msgIndex map[string]entryKey
}

// New creates an empty registry.
func New() *InMemoryRegistry {
	return &InMemoryRegistry{
		entries:  make(map[entryKey]*approval.PendingApproval),
		msgIndex: make(map[string]entryKey),
	}
}

// Create inserts a new pending entry.
//
// Errors: sentinel.ErrConflict when a live entry already occupies the key;
// invariant violations from the entry itself. A terminal entry for the same
// key is replaced, covering participants that rejoin after an earlier
// resolution.
func (r *InMemoryRegistry) Create(_ context.Context, entry approval.PendingApproval) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	key := entryKey{entry.CommunityID, entry.ParticipantID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key]; ok {
		if !existing.State.IsTerminal() {
			return sentinel.ErrConflict
		}
		r.unbindLocked(existing)
	}

	stored := entry
	stored.MessageIDs = append([]string(nil), entry.MessageIDs...)
	r.entries[key] = &stored
	return nil
}

// Get returns a copy of the entry for the key.
//
// Errors: sentinel.ErrNotFound when the key has never been seen.
func (r *InMemoryRegistry) Get(_ context.Context, communityID, participantID string) (approval.PendingApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[entryKey{communityID, participantID}]
	if !ok {
		return approval.PendingApproval{}, sentinel.ErrNotFound
	}
	return copyEntry(entry), nil
}

// Resolve transitions a live entry to a terminal state. This is the
// linearization point: under the write lock the first resolver wins and
// every later one gets sentinel.ErrInvalidState.
//
// Errors: sentinel.ErrNotFound when the key is absent,
// sentinel.ErrInvalidState when the entry is already terminal.
func (r *InMemoryRegistry) Resolve(_ context.Context, communityID, participantID string, state approval.State, reviewerID, reason string, at time.Time) (approval.PendingApproval, error) {
	if !state.IsTerminal() {
		return approval.PendingApproval{}, sentinel.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[entryKey{communityID, participantID}]
	if !ok {
		return approval.PendingApproval{}, sentinel.ErrNotFound
	}
	if entry.State.IsTerminal() {
		return approval.PendingApproval{}, sentinel.ErrInvalidState
	}

	entry.State = state
	entry.ReviewerID = reviewerID
	entry.Reason = reason
	entry.ResolvedAt = at
	r.unbindLocked(entry)

	return copyEntry(entry), nil
}

// BindMessage indexes a delivered notification message so reactions on it
// can be traced back to the entry.
//
// Errors: sentinel.ErrNotFound when no live entry exists for the key.
func (r *InMemoryRegistry) BindMessage(_ context.Context, communityID, participantID, messageID string) error {
	key := entryKey{communityID, participantID}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || entry.State.IsTerminal() {
		return sentinel.ErrNotFound
	}

	entry.MessageIDs = append(entry.MessageIDs, messageID)
	r.msgIndex[messageID] = key
	return nil
}

// GetByMessage resolves a notification message ID back to its entry.
//
// Errors: sentinel.ErrNotFound for unknown or unbound messages.
func (r *InMemoryRegistry) GetByMessage(_ context.Context, messageID string) (approval.PendingApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.msgIndex[messageID]
	if !ok {
		return approval.PendingApproval{}, sentinel.ErrNotFound
	}
	entry, ok := r.entries[key]
	if !ok {
		return approval.PendingApproval{}, sentinel.ErrNotFound
	}
	return copyEntry(entry), nil
}

// ListPending returns the live entries for a community ordered by
// detection time, oldest first.
func (r *InMemoryRegistry) ListPending(_ context.Context, communityID string) ([]approval.PendingApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []approval.PendingApproval
	for key, entry := range r.entries {
		if key.communityID != communityID || entry.State.IsTerminal() {
			continue
		}
		out = append(out, copyEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// PendingCount returns the number of live entries across all communities.
func (r *InMemoryRegistry) PendingCount(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.entries {
		if !entry.State.IsTerminal() {
			count++
		}
	}
	return count, nil
}

// unbindLocked drops the message index entries of an entry that can no
// longer accept reactions. Callers hold the write lock.
func (r *InMemoryRegistry) unbindLocked(entry *approval.PendingApproval) {
	for _, msgID := range entry.MessageIDs {
		delete(r.msgIndex, msgID)
	}
}

func copyEntry(entry *approval.PendingApproval) approval.PendingApproval {
	out := *entry
	out.MessageIDs = append([]string(nil), entry.MessageIDs...)
	return out
}
