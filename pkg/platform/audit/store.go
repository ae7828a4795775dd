package audit

import "context"

// Store persists the audit trail. The registry owns live workflow state;
// the store is the durable record that survives restarts.
type Store interface {
	// Append writes one event.
	Append(ctx context.Context, event Event) error

	// ListByParticipant returns every event touching a participant across
	// all communities, newest first.
	ListByParticipant(ctx context.Context, participantID string) ([]Event, error)

	// ListRecent returns up to limit events for a community, newest first.
	ListRecent(ctx context.Context, communityID string, limit int) ([]Event, error)

	// Stats aggregates a community's trail: lifetime totals plus the
	// rolling 24 hour window.
	Stats(ctx context.Context, communityID string) (Stats, error)
}
