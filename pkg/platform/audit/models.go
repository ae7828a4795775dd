package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers the decision trail itself: detections and
	// resolutions that reviewers may be asked to account for later.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// unauthorized decision attempts, failed removals, console overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers delivery mechanics useful for debugging:
	// notifications sent or dropped, pre-approved rejoins.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from workflow logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID              string
	Timestamp       time.Time
	Category        EventCategory
	Action          string
	CommunityID     string
	CommunityName   string
	ParticipantID   string
	ParticipantName string
	// ActorID tracks who caused the event: a reviewer ID, an ops API
	// operator, or the system identity for timer-driven outcomes.
	ActorID     string
	ActorName   string
	InviterID   string
	InviterName string
	Reason      string
	// Detail carries action-specific context, e.g. delivered message IDs
	// for reviewers_notified or the client description for console_decision.
	Detail map[string]string
}

type AuditEvent string

const (
	// Workflow events
	EventParticipantDetected    AuditEvent = "participant_detected"
	EventParticipantPreApproved AuditEvent = "participant_pre_approved"
	EventParticipantApproved    AuditEvent = "participant_approved"
	EventParticipantRejected    AuditEvent = "participant_rejected"
	EventParticipantTimedOut    AuditEvent = "participant_timed_out"

	// Removal events
	EventParticipantRemoved       AuditEvent = "participant_removed"
	EventParticipantRemovalFailed AuditEvent = "participant_removal_failed"

	// Access events
	EventDecisionUnauthorized AuditEvent = "decision_unauthorized"
	EventConsoleDecision      AuditEvent = "console_decision"

	// Notification events
	EventReviewersNotified  AuditEvent = "reviewers_notified"
	EventNotificationFailed AuditEvent = "notification_failed"
)

// eventCategories maps each audit event to its category.
// Compliance: the record of what was decided and why, long retention.
// Security: authorization and enforcement failures worth alerting on.
// Operations: delivery mechanics, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventParticipantDetected: CategoryCompliance,
	EventParticipantApproved: CategoryCompliance,
	EventParticipantRejected: CategoryCompliance,
	EventParticipantTimedOut: CategoryCompliance,

	EventParticipantRemovalFailed: CategorySecurity,
	EventDecisionUnauthorized:     CategorySecurity,
	EventConsoleDecision:          CategorySecurity,

	EventParticipantPreApproved: CategoryOperations,
	EventParticipantRemoved:     CategoryOperations,
	EventReviewersNotified:      CategoryOperations,
	EventNotificationFailed:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Stats aggregates the audit trail for one community: lifetime action
// totals plus a rolling 24 hour window.
type Stats struct {
	TotalActions int
	Detected     int
	Approved     int
	Rejected     int
	TimedOut     int
	Recent24h    WindowStats
}

// WindowStats holds the counts inside the rolling window.
type WindowStats struct {
	Total    int
	Approved int
	Rejected int
	TimedOut int
}
