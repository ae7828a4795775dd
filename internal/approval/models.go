// Package approval defines the domain model for the participant approval
// workflow: pending entries, their states, and reviewer decisions.
package approval

import (
	"time"

	dErrors "warden/pkg/domain-errors"
)

// State is the lifecycle position of a pending approval.
// Invariant: an entry moves from StatePending to exactly one terminal state
// and never transitions again.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateTimedOut State = "timed_out"
)

// validStates is the single source of truth for valid states.
var validStates = map[State]bool{
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
	StateTimedOut: true,
}

// ParseState constructs a State from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseState(s string) (State, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "state cannot be empty")
	}
	st := State(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid state")
	}
	return st, nil
}

// IsValid checks if the state is one of the supported enum values.
func (s State) IsValid() bool {
	return validStates[s]
}

// IsTerminal reports whether the state ends the workflow.
func (s State) IsTerminal() bool {
	return s.IsValid() && s != StatePending
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Decision is a reviewer's verdict on a pending participant.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var validDecisions = map[Decision]bool{
	DecisionApprove: true,
	DecisionReject:  true,
}

// ParseDecision constructs a Decision from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDecision(s string) (Decision, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision cannot be empty")
	}
	d := Decision(s)
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid decision")
	}
	return d, nil
}

// IsValid checks if the decision is one of the supported enum values.
func (d Decision) IsValid() bool {
	return validDecisions[d]
}

// Outcome returns the terminal state this decision produces.
func (d Decision) Outcome() State {
	if d == DecisionApprove {
		return StateApproved
	}
	return StateRejected
}

// String returns the string representation of the decision.
func (d Decision) String() string {
	return string(d)
}

// SystemReviewerID attributes resolutions the workflow makes on its own:
// timeouts and the auto-reject taken when no reviewers are reachable.
const SystemReviewerID = "system"

// Reaction emoji reviewers put on notification messages to decide.
const (
	EmojiApprove = "✅"
	EmojiReject  = "❌"
)

// DecisionForEmoji maps a reaction emoji to its decision. The second
// return is false for any emoji that is not a decision.
func DecisionForEmoji(emoji string) (Decision, bool) {
	switch emoji {
	case EmojiApprove:
		return DecisionApprove, true
	case EmojiReject:
		return DecisionReject, true
	}
	return "", false
}

// PendingApproval tracks one automated participant awaiting a verdict.
// Identity is (CommunityID, ParticipantID); the registry guarantees at most
// one live entry per identity.
type PendingApproval struct {
	CommunityID     string
	CommunityName   string
	ParticipantID   string
	ParticipantName string

	// Inviter identity and account age are the context reviewers see
	// before deciding. Inviter fields stay empty when the platform cannot
	// resolve who added the participant.
	InviterID      string
	InviterName    string
	AccountAgeDays int

	DetectedAt time.Time
	Timeout    time.Duration

	State      State
	ReviewerID string
	Reason     string
	ResolvedAt time.Time

	// MessageIDs are the delivered notification messages; reactions on any
	// of them resolve this entry.
	MessageIDs []string
}

// Deadline is the instant the entry times out if nobody decides.
func (p PendingApproval) Deadline() time.Time {
	return p.DetectedAt.Add(p.Timeout)
}

// Remaining reports how much of the approval window is left at now,
// clamped at zero.
func (p PendingApproval) Remaining(now time.Time) time.Duration {
	left := p.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Validate checks the construction invariants for a new entry.
//
// Errors: returns CodeInvariantViolation naming the first violated field.
func (p PendingApproval) Validate() error {
	if p.CommunityID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "community ID cannot be empty")
	}
	if p.ParticipantID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant ID cannot be empty")
	}
	if p.DetectedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "detection time cannot be zero")
	}
	if p.Timeout <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "timeout must be positive")
	}
	if p.State != StatePending {
		return dErrors.New(dErrors.CodeInvariantViolation, "new entries must be pending")
	}
	return nil
}
