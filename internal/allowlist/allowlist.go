// Package allowlist records participants that reviewers have approved for
// a community. An allowlisted participant that rejoins skips the approval
// workflow entirely.
package allowlist

import "context"

// Store is the allowlist persistence contract.
type Store interface {
	// Add marks a participant as approved for a community.
	Add(ctx context.Context, communityID, participantID string) error

	// Contains reports whether a participant is pre-approved.
	Contains(ctx context.Context, communityID, participantID string) (bool, error)

	// Remove withdraws a previous approval.
	Remove(ctx context.Context, communityID, participantID string) error

	// List returns the approved participant IDs for a community.
	List(ctx context.Context, communityID string) ([]string, error)

	// Count returns the number of approved participants for a community.
	Count(ctx context.Context, communityID string) (int, error)
}
