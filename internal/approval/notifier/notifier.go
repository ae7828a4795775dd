// Package notifier delivers workflow messages: reviewer DMs when a
// participant needs a verdict, channel announcements when one lands, and
// the manual-action alert when a removal fails.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"warden/internal/approval"
	"warden/internal/approval/ports"
	"warden/internal/gateway"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
)

// defaultFanout bounds concurrent DM sends so a large reviewer roster
// cannot stampede the platform API.
const defaultFanout = 4

type Notifier struct {
	messenger gateway.Messenger
	directory gateway.Directory
	publisher ports.AuditPublisher
	logger    *slog.Logger

	announceChannelID string
	commandPrefix     string
	fanout            int
}

type Option func(*Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(n *Notifier) {
		n.publisher = publisher
	}
}

// WithAnnounceChannel sets the channel resolutions are posted to.
// Empty disables announcements.
func WithAnnounceChannel(channelID string) Option {
	return func(n *Notifier) {
		n.announceChannelID = channelID
	}
}

// WithCommandPrefix sets the prefix shown in the command hint of
// reviewer DMs.
func WithCommandPrefix(prefix string) Option {
	return func(n *Notifier) {
		if prefix != "" {
			n.commandPrefix = prefix
		}
	}
}

// WithFanoutLimit bounds how many DMs are in flight at once.
func WithFanoutLimit(limit int) Option {
	return func(n *Notifier) {
		if limit > 0 {
			n.fanout = limit
		}
	}
}

func New(messenger gateway.Messenger, directory gateway.Directory, opts ...Option) (*Notifier, error) {
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}

	n := &Notifier{
		messenger:     messenger,
		directory:     directory,
		logger:        slog.Default(),
		commandPrefix: "!approval",
		fanout:        defaultFanout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// NotifyJoin direct-messages every reviewer about a pending participant.
// One reviewer's failure never aborts the rest; the returned slice holds
// only the deliveries that succeeded. Zero deliveries to a non-empty
// reviewer set is an error, because nobody can decide what nobody saw.
func (n *Notifier) NotifyJoin(ctx context.Context, entry approval.PendingApproval, reviewers []gateway.Reviewer) ([]ports.Delivery, error) {
	if len(reviewers) == 0 {
		return nil, nil
	}

	message := n.joinMessage(entry)

	var (
		mu        sync.Mutex
		delivered []ports.Delivery
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.fanout)
	for _, reviewer := range reviewers {
		g.Go(func() error {
			messageID, err := n.messenger.SendDirectMessage(gctx, reviewer.ID, message)
			if err != nil {
				// Swallow the error so the remaining sends go out.
				n.logger.WarnContext(gctx, "reviewer notification failed",
					"community_id", entry.CommunityID,
					"participant_id", entry.ParticipantID,
					"reviewer_id", reviewer.ID,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			delivered = append(delivered, ports.Delivery{ReviewerID: reviewer.ID, MessageID: messageID})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(delivered) == 0 {
		n.auditFailure(ctx, entry, fmt.Sprintf("no reviewer reachable out of %d", len(reviewers)))
		return nil, dErrors.New(dErrors.CodeInternal, "no reviewer could be notified")
	}
	return delivered, nil
}

// AnnounceOutcome posts the resolution to the configured community
// channel. With no channel configured this is a no-op.
func (n *Notifier) AnnounceOutcome(ctx context.Context, entry approval.PendingApproval) error {
	if n.announceChannelID == "" {
		return nil
	}

	message := outcomeMessage(entry)
	if message == "" {
		return nil
	}

	if _, err := n.messenger.SendChannelMessage(ctx, entry.CommunityID, n.announceChannelID, message); err != nil {
		n.logger.WarnContext(ctx, "outcome announcement failed",
			"community_id", entry.CommunityID,
			"participant_id", entry.ParticipantID,
			"state", entry.State,
			"error", err,
		)
		n.auditFailure(ctx, entry, "outcome announcement undelivered")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to announce outcome")
	}
	return nil
}

// NotifyRemovalFailure direct-messages reviewers that a participant could
// not be removed and needs manual action.
func (n *Notifier) NotifyRemovalFailure(ctx context.Context, entry approval.PendingApproval, cause error) error {
	reviewers, err := n.directory.Reviewers(ctx, entry.CommunityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve reviewers for removal alert")
	}
	if len(reviewers) == 0 {
		return nil
	}

	message := fmt.Sprintf(
		"%s Could not remove %s (ID %s) from %s: %v. Manual removal is required.",
		approval.EmojiReject, entry.ParticipantName, entry.ParticipantID, communityLabel(entry), cause,
	)

	var deliveredCount int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.fanout)
	for _, reviewer := range reviewers {
		g.Go(func() error {
			if _, err := n.messenger.SendDirectMessage(gctx, reviewer.ID, message); err != nil {
				n.logger.WarnContext(gctx, "removal alert failed",
					"reviewer_id", reviewer.ID,
					"participant_id", entry.ParticipantID,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			deliveredCount++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if deliveredCount == 0 {
		n.auditFailure(ctx, entry, "removal alert undelivered")
		return dErrors.New(dErrors.CodeInternal, "no reviewer could be alerted about the failed removal")
	}
	return nil
}

func (n *Notifier) joinMessage(entry approval.PendingApproval) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated participant awaiting approval in %s.\n", communityLabel(entry))
	fmt.Fprintf(&b, "Name: %s (ID %s)\n", entry.ParticipantName, entry.ParticipantID)
	if entry.InviterID != "" {
		fmt.Fprintf(&b, "Invited by: %s (ID %s)\n", entry.InviterName, entry.InviterID)
	}
	if entry.AccountAgeDays > 0 {
		fmt.Fprintf(&b, "Account age: %d days\n", entry.AccountAgeDays)
	}
	fmt.Fprintf(&b, "React %s to approve or %s to reject, or use `%s approve %s`.\n",
		approval.EmojiApprove, approval.EmojiReject, n.commandPrefix, entry.ParticipantID)
	fmt.Fprintf(&b, "Removed automatically in %s if nobody decides.", formatWindow(entry.Timeout))
	return b.String()
}

func outcomeMessage(entry approval.PendingApproval) string {
	switch entry.State {
	case approval.StateApproved:
		return fmt.Sprintf("%s %s (ID %s) was approved by <@%s>.",
			approval.EmojiApprove, entry.ParticipantName, entry.ParticipantID, entry.ReviewerID)
	case approval.StateRejected:
		message := fmt.Sprintf("%s %s (ID %s) was rejected", approval.EmojiReject, entry.ParticipantName, entry.ParticipantID)
		if entry.ReviewerID == approval.SystemReviewerID {
			message += " automatically"
		} else {
			message += fmt.Sprintf(" by <@%s>", entry.ReviewerID)
		}
		if entry.Reason != "" {
			message += ": " + entry.Reason
		}
		return message + "."
	case approval.StateTimedOut:
		return fmt.Sprintf("⏱ %s (ID %s) was removed after no reviewer decided within %s.",
			entry.ParticipantName, entry.ParticipantID, formatWindow(entry.Timeout))
	}
	return ""
}

func (n *Notifier) auditFailure(ctx context.Context, entry approval.PendingApproval, reason string) {
	ports.LogAudit(ctx, n.logger, n.publisher, audit.Event{
		Action:          string(audit.EventNotificationFailed),
		CommunityID:     entry.CommunityID,
		CommunityName:   entry.CommunityName,
		ParticipantID:   entry.ParticipantID,
		ParticipantName: entry.ParticipantName,
		Reason:          reason,
	},
		"community_id", entry.CommunityID,
		"participant_id", entry.ParticipantID,
	)
}

func communityLabel(entry approval.PendingApproval) string {
	if entry.CommunityName != "" {
		return entry.CommunityName
	}
	return entry.CommunityID
}

// formatWindow trims the zero units time.Duration.String would keep,
// so two minutes renders as "2m" rather than "2m0s".
func formatWindow(d time.Duration) string {
	s := d.Round(time.Second).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
