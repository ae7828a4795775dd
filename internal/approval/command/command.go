// Package command is the chat surface of the approval workflow: a prefix
// command dispatcher for reviewers and the reaction handler that turns
// emoji on notification messages into decisions.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"warden/internal/approval"
	"warden/internal/approval/ports"
	"warden/internal/gateway"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/identifier"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

const (
	// DefaultPrefix addresses commands to the workflow when no prefix is
	// configured.
	DefaultPrefix = "!approval"

	defaultLogLimit = 20
	maxLogLimit     = 50
)

type handlerFunc func(ctx context.Context, inv invocation) string

// invocation is one parsed command: where it came from and its arguments.
type invocation struct {
	communityID string
	channelID   string
	invokerID   string
	args        []string
}

// Dispatcher routes CommandInvoked events to verb handlers and resolves
// reaction decisions. Replies go back to the invoking channel; a handler
// returning an empty string sends nothing.
type Dispatcher struct {
	workflow  ports.Workflow
	registry  ports.Registry
	directory gateway.Directory
	messenger gateway.Messenger

	auditor   ports.AuditReader
	publisher ports.AuditPublisher
	logger    *slog.Logger
	prefix    string
	clock     func() time.Time

	handlers map[string]handlerFunc
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPrefix overrides the command prefix. Empty or blank values keep the
// default.
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			d.prefix = trimmed
		}
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

// WithAuditReader enables the history and logs verbs.
func WithAuditReader(auditor ports.AuditReader) Option {
	return func(d *Dispatcher) {
		d.auditor = auditor
	}
}

// WithClock injects the time source used to render remaining windows.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func New(
	workflow ports.Workflow,
	registry ports.Registry,
	directory gateway.Directory,
	messenger gateway.Messenger,
	opts ...Option,
) (*Dispatcher, error) {
	if workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}

	d := &Dispatcher{
		workflow:  workflow,
		registry:  registry,
		directory: directory,
		messenger: messenger,
		logger:    slog.Default(),
		prefix:    DefaultPrefix,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.handlers = map[string]handlerFunc{
		"status":  d.handleStatus,
		"approve": d.handleApprove,
		"reject":  d.handleReject,
		"history": d.handleHistory,
		"logs":    d.handleLogs,
		"help":    d.handleHelp,
	}
	return d, nil
}

// OnCommand handles one CommandInvoked event. Text not addressed to the
// configured prefix is ignored. Unauthorized invocations get a quiet
// refusal and a security audit event.
func (d *Dispatcher) OnCommand(ctx context.Context, ev gateway.CommandInvoked) error {
	verb, args, ok := d.parse(ev.Text)
	if !ok {
		return nil
	}

	handler, known := d.handlers[verb]
	if !known {
		return d.reply(ctx, ev, d.usage())
	}

	if verb != "help" {
		isReviewer, err := d.directory.IsReviewer(ctx, ev.CommunityID, ev.InvokerID)
		if err != nil {
			d.logger.WarnContext(ctx, "reviewer check failed",
				"community_id", ev.CommunityID, "invoker_id", ev.InvokerID, "error", err)
			return d.reply(ctx, ev, "Could not verify your reviewer role, try again shortly.")
		}
		if !isReviewer {
			d.auditUnauthorized(ctx, ev.CommunityID, "", ev.InvokerID, map[string]string{"verb": verb})
			return d.reply(ctx, ev, "Only reviewers can use approval commands.")
		}
	}

	reply := handler(ctx, invocation{
		communityID: ev.CommunityID,
		channelID:   ev.ChannelID,
		invokerID:   ev.InvokerID,
		args:        args,
	})
	if reply == "" {
		return nil
	}
	return d.reply(ctx, ev, reply)
}

// OnReaction resolves an approve or reject emoji on a notification
// message. Unknown messages and non-decision emoji are ignored; so is the
// race loser's reaction on an already resolved entry.
func (d *Dispatcher) OnReaction(ctx context.Context, ev gateway.ReactionAdded) error {
	decision, ok := approval.DecisionForEmoji(ev.Emoji)
	if !ok {
		return nil
	}

	entry, err := d.registry.GetByMessage(ctx, ev.MessageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up reacted message")
	}

	isReviewer, err := d.directory.IsReviewer(ctx, entry.CommunityID, ev.ReviewerID)
	if err != nil {
		d.logger.WarnContext(ctx, "reviewer check failed",
			"community_id", entry.CommunityID, "reviewer_id", ev.ReviewerID, "error", err)
		return nil
	}
	if !isReviewer {
		// No reply surface on a DM reaction, so just record it.
		d.auditUnauthorized(ctx, entry.CommunityID, entry.ParticipantID, ev.ReviewerID,
			map[string]string{"via": "reaction"})
		return nil
	}

	if _, err := d.workflow.OnReviewerDecision(ctx, entry.CommunityID, entry.ParticipantID, ev.ReviewerID, decision, ""); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve reaction decision")
	}
	return nil
}

// parse splits text into (verb, args). ok is false when the text is not
// addressed to the prefix. A bare prefix maps to help.
func (d *Dispatcher) parse(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], d.prefix) {
		return "", nil, false
	}
	if len(fields) == 1 {
		return "help", nil, true
	}
	return strings.ToLower(fields[1]), fields[2:], true
}

// -----------------------------------------------------------------------------
// Verb handlers
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleStatus(ctx context.Context, inv invocation) string {
	status, err := d.workflow.StatusSummary(ctx, inv.communityID)
	if err != nil {
		d.logger.ErrorContext(ctx, "status summary failed",
			"community_id", inv.communityID, "error", err)
		return "Could not build the status summary, try again shortly."
	}
	return renderStatus(status, d.clock())
}

func (d *Dispatcher) handleApprove(ctx context.Context, inv invocation) string {
	return d.decide(ctx, inv, approval.DecisionApprove)
}

func (d *Dispatcher) handleReject(ctx context.Context, inv invocation) string {
	return d.decide(ctx, inv, approval.DecisionReject)
}

func (d *Dispatcher) decide(ctx context.Context, inv invocation, decision approval.Decision) string {
	if len(inv.args) == 0 {
		return fmt.Sprintf("Usage: %s %s <participant-id> [reason]", d.prefix, decision)
	}
	participantID, err := identifier.Validate(inv.args[0])
	if err != nil {
		return "That does not look like a participant ID."
	}
	reason := strings.Join(inv.args[1:], " ")

	resolved, err := d.workflow.OnReviewerDecision(ctx, inv.communityID, participantID, inv.invokerID, decision, reason)
	switch {
	case err == nil:
		return decisionReply(resolved)
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return "No pending approval for that participant."
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return "That approval is already resolved."
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return "Only reviewers can decide approvals."
	default:
		d.logger.ErrorContext(ctx, "decision failed",
			"community_id", inv.communityID, "participant_id", participantID, "error", err)
		return "Could not record the decision, try again shortly."
	}
}

func (d *Dispatcher) handleHistory(ctx context.Context, inv invocation) string {
	if d.auditor == nil {
		return "History is not available right now."
	}
	if len(inv.args) != 1 {
		return fmt.Sprintf("Usage: %s history <participant-id>", d.prefix)
	}
	participantID, err := identifier.Validate(inv.args[0])
	if err != nil {
		return "That does not look like a participant ID."
	}

	events, err := d.auditor.List(ctx, participantID)
	if err != nil {
		d.logger.ErrorContext(ctx, "history lookup failed",
			"participant_id", participantID, "error", err)
		return "Could not load the history, try again shortly."
	}
	if len(events) == 0 {
		return "No recorded actions for that participant."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "History for %s:\n", participantID)
	for _, event := range events {
		b.WriteString(renderEvent(event))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) handleLogs(ctx context.Context, inv invocation) string {
	if d.auditor == nil {
		return "Logs are not available right now."
	}
	limit := defaultLogLimit
	if len(inv.args) > 0 {
		parsed, err := strconv.Atoi(inv.args[0])
		if err != nil || parsed < 1 {
			return fmt.Sprintf("Usage: %s logs [limit]", d.prefix)
		}
		limit = min(parsed, maxLogLimit)
	}

	events, err := d.auditor.ListRecent(ctx, inv.communityID, limit)
	if err != nil {
		d.logger.ErrorContext(ctx, "log lookup failed",
			"community_id", inv.communityID, "error", err)
		return "Could not load the logs, try again shortly."
	}

	var b strings.Builder
	if len(events) == 0 {
		b.WriteString("No recorded actions yet.")
	} else {
		fmt.Fprintf(&b, "Last %d actions:\n", len(events))
		for _, event := range events {
			b.WriteString(renderEvent(event))
			b.WriteByte('\n')
		}
	}
	if stats, err := d.auditor.Stats(ctx, inv.communityID); err == nil {
		fmt.Fprintf(&b, "\nLast 24h: %d decided (%d approved, %d rejected, %d timed out).",
			stats.Recent24h.Total, stats.Recent24h.Approved, stats.Recent24h.Rejected, stats.Recent24h.TimedOut)
	}
	return b.String()
}

func (d *Dispatcher) handleHelp(context.Context, invocation) string {
	return d.usage()
}

func (d *Dispatcher) usage() string {
	return fmt.Sprintf(
		"Commands: %[1]s status | %[1]s approve <id> [reason] | %[1]s reject <id> [reason] | %[1]s history <id> | %[1]s logs [limit] | %[1]s help",
		d.prefix,
	)
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

func renderStatus(status ports.Status, now time.Time) string {
	var b strings.Builder
	if len(status.Pending) == 0 {
		b.WriteString("No participants awaiting approval.\n")
	} else {
		fmt.Fprintf(&b, "%d awaiting approval:\n", len(status.Pending))
		for _, entry := range status.Pending {
			fmt.Fprintf(&b, "- %s (ID %s), %s left\n",
				displayName(entry), entry.ParticipantID, entry.Remaining(now).Round(time.Second))
		}
	}
	fmt.Fprintf(&b, "Allowlisted participants: %d\n", status.AllowlistSize)
	fmt.Fprintf(&b, "All time: %d approved, %d rejected, %d timed out.",
		status.Stats.Approved, status.Stats.Rejected, status.Stats.TimedOut)
	return b.String()
}

func renderEvent(event audit.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", event.Timestamp.UTC().Format("2006-01-02 15:04"), event.Action)
	switch {
	case event.ParticipantName != "":
		fmt.Fprintf(&b, " %s", event.ParticipantName)
	case event.ParticipantID != "":
		fmt.Fprintf(&b, " %s", event.ParticipantID)
	}
	if event.ActorID != "" && event.ActorID != approval.SystemReviewerID {
		fmt.Fprintf(&b, " by <@%s>", event.ActorID)
	}
	if event.Reason != "" {
		fmt.Fprintf(&b, " (%s)", event.Reason)
	}
	return b.String()
}

func decisionReply(entry approval.PendingApproval) string {
	if entry.State == approval.StateApproved {
		return fmt.Sprintf("Approved %s (ID %s).", displayName(entry), entry.ParticipantID)
	}
	return fmt.Sprintf("Rejected %s (ID %s), removal under way.", displayName(entry), entry.ParticipantID)
}

func displayName(entry approval.PendingApproval) string {
	if entry.ParticipantName != "" {
		return entry.ParticipantName
	}
	return "participant"
}

func (d *Dispatcher) reply(ctx context.Context, ev gateway.CommandInvoked, text string) error {
	if _, err := d.messenger.SendChannelMessage(ctx, ev.CommunityID, ev.ChannelID, text); err != nil {
		d.logger.WarnContext(ctx, "reply delivery failed",
			"community_id", ev.CommunityID, "channel_id", ev.ChannelID, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver reply")
	}
	return nil
}

func (d *Dispatcher) auditUnauthorized(ctx context.Context, communityID, participantID, actorID string, detail map[string]string) {
	ports.LogAudit(ctx, d.logger, d.publisher, audit.Event{
		Action:        string(audit.EventDecisionUnauthorized),
		CommunityID:   communityID,
		ParticipantID: participantID,
		ActorID:       actorID,
		Reason:        "actor lacks the reviewer role",
		Detail:        detail,
	}, "community_id", communityID, "actor_id", actorID)
}
