// Package ports defines shared interfaces for the approval module.
// Interfaces are placed here when consumed by multiple packages (engine,
// command layer, ops API) to avoid duplication.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Registry,Notifier,Workflow,AuditPublisher,AuditReader

import (
	"context"
	"log/slog"
	"time"

	"warden/internal/approval"
	"warden/internal/gateway"
	"warden/pkg/platform/audit"
	"warden/pkg/requestcontext"
)

// AuditPublisher emits audit events for workflow operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditReader serves the durable audit trail back to command and API
// surfaces. Implemented by the audit publisher, which delegates to its store.
type AuditReader interface {
	// List returns every event touching a participant, newest first.
	List(ctx context.Context, participantID string) ([]audit.Event, error)

	// ListRecent returns up to limit events for a community, newest first.
	ListRecent(ctx context.Context, communityID string, limit int) ([]audit.Event, error)

	// Stats aggregates a community's trail.
	Stats(ctx context.Context, communityID string) (audit.Stats, error)
}

// Registry stores pending approval entries and linearizes their resolution.
type Registry interface {
	// Create inserts a new pending entry. A live entry for the same
	// (community, participant) pair is a conflict; a terminal one is
	// replaced.
	Create(ctx context.Context, entry approval.PendingApproval) error

	// Get returns the entry for the pair, live or terminal.
	Get(ctx context.Context, communityID, participantID string) (approval.PendingApproval, error)

	// Resolve moves a live entry to a terminal state. Exactly one of any
	// set of racing resolvers succeeds; the rest see an invalid state error.
	Resolve(ctx context.Context, communityID, participantID string, state approval.State, reviewerID, reason string, at time.Time) (approval.PendingApproval, error)

	// BindMessage indexes a delivered notification message so reactions on
	// it can be traced back to the entry.
	BindMessage(ctx context.Context, communityID, participantID, messageID string) error

	// GetByMessage resolves a notification message ID back to its entry.
	GetByMessage(ctx context.Context, messageID string) (approval.PendingApproval, error)

	// ListPending returns a community's live entries, oldest first.
	ListPending(ctx context.Context, communityID string) ([]approval.PendingApproval, error)

	// PendingCount counts live entries across all communities.
	PendingCount(ctx context.Context) (int, error)
}

// Delivery records one notification message that reached a reviewer.
type Delivery struct {
	ReviewerID string
	MessageID  string
}

// Notifier tells reviewers about pending participants and announces
// outcomes in the community.
type Notifier interface {
	// NotifyJoin direct-messages every reviewer about a pending participant
	// and returns the deliveries that succeeded. It fails only when no
	// message reached any reviewer of a non-empty set.
	NotifyJoin(ctx context.Context, entry approval.PendingApproval, reviewers []gateway.Reviewer) ([]Delivery, error)

	// AnnounceOutcome posts the resolution to the community channel.
	AnnounceOutcome(ctx context.Context, entry approval.PendingApproval) error

	// NotifyRemovalFailure direct-messages reviewers that a participant
	// could not be removed and needs manual action.
	NotifyRemovalFailure(ctx context.Context, entry approval.PendingApproval, cause error) error
}

// Status is the operational snapshot of one community's workflow.
type Status struct {
	Pending       []approval.PendingApproval
	AllowlistSize int
	Stats         audit.Stats
}

// Workflow is the engine surface the command layer and the ops API share.
type Workflow interface {
	// OnReviewerDecision resolves a pending entry with a reviewer's verdict
	// and carries out the outcome (allowlist or removal, announcement). The
	// actor must hold the community's reviewer role.
	OnReviewerDecision(ctx context.Context, communityID, participantID, reviewerID string, decision approval.Decision, reason string) (approval.PendingApproval, error)

	// OnConsoleDecision resolves a pending entry with an operator's verdict
	// from the ops API. Operators authenticate against the console rather
	// than the chat platform, so no reviewer role check applies; callers
	// must have verified the actor's credentials already.
	OnConsoleDecision(ctx context.Context, communityID, participantID, actorID string, decision approval.Decision, reason string) (approval.PendingApproval, error)

	// StatusSummary reports a community's pending entries, allowlist size
	// and action statistics.
	StatusSummary(ctx context.Context, communityID string) (Status, error)
}

// LogAudit is a shared helper for recording audit events across the
// approval packages. It logs to the structured logger and emits to the
// audit publisher if available; publish failures are logged, never
// propagated, so the workflow path keeps moving.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	// Add request ID for traceability
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	// Add standard audit fields
	args := append(attrs, "event", event.Action, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
