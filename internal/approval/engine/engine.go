// Package engine drives the approval workflow. It turns detected
// participants into pending entries, carries reviewer verdicts to their
// outcome, and enforces the timeout when nobody decides. All resolution
// paths funnel through the registry, which guarantees exactly one wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/allowlist"
	"warden/internal/approval"
	"warden/internal/approval/metrics"
	"warden/internal/approval/ports"
	"warden/internal/gateway"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// Reasons recorded for resolutions the engine makes on its own.
const (
	reasonNoReviewers = "no reviewers available"
	reasonTimeout     = "approval window expired"
)

// Config carries the workflow knobs.
type Config struct {
	// Timeout is the approval window measured from detection.
	Timeout time.Duration
	// RemovalRetries bounds attempts to remove a participant.
	RemovalRetries int
	// RemovalBackoff separates removal attempts.
	RemovalBackoff time.Duration
	// RequiredCapabilities must all be granted for ValidateCapabilities
	// to pass. Lowercase.
	RequiredCapabilities []string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:              10 * time.Second,
		RemovalRetries:       3,
		RemovalBackoff:       500 * time.Millisecond,
		RequiredCapabilities: []string{"remove_participants", "send_messages"},
	}
}

type timerKey struct {
	communityID   string
	participantID string
}

type Engine struct {
	registry  ports.Registry
	allowlist allowlist.Store
	notifier  ports.Notifier
	remover   gateway.Remover
	directory gateway.Directory

	publisher ports.AuditPublisher
	auditor   ports.AuditReader
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	config    *Config

	mu     sync.Mutex
	timers map[timerKey]*time.Timer
	closed bool
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithAuditReader wires the audit read surface StatusSummary reports
// statistics from.
func WithAuditReader(auditor ports.AuditReader) Option {
	return func(e *Engine) {
		e.auditor = auditor
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithClock injects the time source so tests control observed timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

func New(
	registry ports.Registry,
	allowlist allowlist.Store,
	notifier ports.Notifier,
	remover gateway.Remover,
	directory gateway.Directory,
	opts ...Option,
) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if allowlist == nil {
		return nil, fmt.Errorf("allowlist store is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if remover == nil {
		return nil, fmt.Errorf("remover is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}

	e := &Engine{
		registry:  registry,
		allowlist: allowlist,
		notifier:  notifier,
		remover:   remover,
		directory: directory,
		logger:    slog.Default(),
		tracer:    otel.Tracer("warden/internal/approval/engine"),
		clock:     time.Now,
		config:    DefaultConfig(),
		timers:    make(map[timerKey]*time.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OnParticipantDetected starts the workflow for an automated participant:
// pending entry, detection audit, reviewer notifications, timeout timer.
// Non-automated joins and allowlisted participants skip it. A duplicate
// join for a participant already under review is benign.
func (e *Engine) OnParticipantDetected(ctx context.Context, ev gateway.ParticipantJoined) error {
	if !ev.Automated {
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "approval.participant_detected", trace.WithAttributes(
		attribute.String("community.id", ev.CommunityID),
		attribute.String("participant.id", ev.ParticipantID),
	))
	defer span.End()

	allowed, err := e.allowlist.Contains(ctx, ev.CommunityID, ev.ParticipantID)
	if err != nil {
		// Treat an unreachable allowlist as empty: the participant goes
		// through review rather than slipping in unvetted.
		e.logger.WarnContext(ctx, "allowlist check failed",
			"community_id", ev.CommunityID, "participant_id", ev.ParticipantID, "error", err)
	}
	if allowed {
		e.metrics.IncPreApproved()
		e.audit(ctx, audit.Event{
			Action:          string(audit.EventParticipantPreApproved),
			CommunityID:     ev.CommunityID,
			CommunityName:   ev.CommunityName,
			ParticipantID:   ev.ParticipantID,
			ParticipantName: ev.ParticipantName,
			InviterID:       ev.InviterID,
			InviterName:     ev.InviterName,
		})
		return nil
	}

	entry := approval.PendingApproval{
		CommunityID:     ev.CommunityID,
		CommunityName:   ev.CommunityName,
		ParticipantID:   ev.ParticipantID,
		ParticipantName: ev.ParticipantName,
		InviterID:       ev.InviterID,
		InviterName:     ev.InviterName,
		AccountAgeDays:  ev.AccountAgeDays,
		DetectedAt:      e.clock(),
		Timeout:         e.config.Timeout,
		State:           approval.StatePending,
	}
	if err := e.registry.Create(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			e.logger.InfoContext(ctx, "participant already under review",
				"community_id", ev.CommunityID, "participant_id", ev.ParticipantID)
			return nil
		}
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create pending entry")
	}

	e.metrics.IncDetected()
	e.updatePendingGauge(ctx)

	detected := eventFor(audit.EventParticipantDetected, entry)
	if entry.AccountAgeDays > 0 {
		detected.Detail = map[string]string{"account_age_days": strconv.Itoa(entry.AccountAgeDays)}
	}
	e.audit(ctx, detected)

	reviewers, err := e.directory.Reviewers(ctx, ev.CommunityID)
	switch {
	case err != nil:
		// A lookup hiccup is not proof there are no reviewers. Skip the
		// notifications and let the timeout guard the entry.
		e.logger.WarnContext(ctx, "reviewer lookup failed, relying on the timeout",
			"community_id", ev.CommunityID, "error", err)
	case len(reviewers) == 0:
		return e.rejectUnreviewable(ctx, entry)
	default:
		e.notifyReviewers(ctx, entry, reviewers)
	}

	e.scheduleTimeout(entry)
	return nil
}

// OnReviewerDecision resolves a pending entry with a reviewer's verdict.
//
// Errors: CodeForbidden when the actor is not a reviewer, CodeNotFound
// when nothing is pending, CodeConflict when the entry already resolved.
func (e *Engine) OnReviewerDecision(ctx context.Context, communityID, participantID, reviewerID string, decision approval.Decision, reason string) (approval.PendingApproval, error) {
	ctx, span := e.tracer.Start(ctx, "approval.reviewer_decision", trace.WithAttributes(
		attribute.String("community.id", communityID),
		attribute.String("participant.id", participantID),
		attribute.String("decision", decision.String()),
	))
	defer span.End()

	if !decision.IsValid() {
		return approval.PendingApproval{}, dErrors.New(dErrors.CodeInvalidInput, "invalid decision")
	}

	isReviewer, err := e.directory.IsReviewer(ctx, communityID, reviewerID)
	if err != nil {
		span.RecordError(err)
		return approval.PendingApproval{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check reviewer role")
	}
	if !isReviewer {
		e.audit(ctx, audit.Event{
			Action:        string(audit.EventDecisionUnauthorized),
			CommunityID:   communityID,
			ParticipantID: participantID,
			ActorID:       reviewerID,
			Reason:        "actor lacks the reviewer role",
		})
		return approval.PendingApproval{}, dErrors.New(dErrors.CodeForbidden, "only reviewers can decide approvals")
	}

	return e.resolveDecision(ctx, span, communityID, participantID, reviewerID, decision, reason)
}

// OnConsoleDecision resolves a pending entry with an operator's verdict
// from the ops API. Console operators carry platform credentials rather
// than a chat identity, so the reviewer role check does not apply.
//
// Errors: CodeNotFound when nothing is pending, CodeConflict when the
// entry already resolved.
func (e *Engine) OnConsoleDecision(ctx context.Context, communityID, participantID, actorID string, decision approval.Decision, reason string) (approval.PendingApproval, error) {
	ctx, span := e.tracer.Start(ctx, "approval.console_decision", trace.WithAttributes(
		attribute.String("community.id", communityID),
		attribute.String("participant.id", participantID),
		attribute.String("decision", decision.String()),
	))
	defer span.End()

	if !decision.IsValid() {
		return approval.PendingApproval{}, dErrors.New(dErrors.CodeInvalidInput, "invalid decision")
	}

	return e.resolveDecision(ctx, span, communityID, participantID, actorID, decision, reason)
}

// resolveDecision linearizes a decision through the registry and, on
// winning the race, carries out the outcome. Both decision surfaces
// share it; OnTimeout keeps its own resolve path.
func (e *Engine) resolveDecision(ctx context.Context, span trace.Span, communityID, participantID, actorID string, decision approval.Decision, reason string) (approval.PendingApproval, error) {
	resolved, err := e.registry.Resolve(ctx, communityID, participantID, decision.Outcome(), actorID, reason, e.clock())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return approval.PendingApproval{}, dErrors.New(dErrors.CodeNotFound, "no pending approval for this participant")
		case errors.Is(err, sentinel.ErrInvalidState):
			return approval.PendingApproval{}, dErrors.New(dErrors.CodeConflict, "approval already resolved")
		}
		span.RecordError(err)
		return approval.PendingApproval{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve approval")
	}

	e.cancelTimeout(communityID, participantID)
	e.finalizeResolution(ctx, resolved)
	return resolved, nil
}

// OnTimeout resolves an entry whose approval window expired. It runs on
// the timer goroutine with a fresh context; a reviewer decision that won
// the race makes this a no-op.
func (e *Engine) OnTimeout(communityID, participantID string) {
	ctx, span := e.tracer.Start(context.Background(), "approval.timeout", trace.WithAttributes(
		attribute.String("community.id", communityID),
		attribute.String("participant.id", participantID),
	))
	defer span.End()

	e.dropTimer(communityID, participantID)

	resolved, err := e.registry.Resolve(ctx, communityID, participantID, approval.StateTimedOut, approval.SystemReviewerID, reasonTimeout, e.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			e.logger.DebugContext(ctx, "timer lost the resolution race",
				"community_id", communityID, "participant_id", participantID)
			return
		}
		span.RecordError(err)
		e.logger.ErrorContext(ctx, "timeout resolution failed",
			"community_id", communityID, "participant_id", participantID, "error", err)
		return
	}

	e.finalizeResolution(ctx, resolved)
}

// StatusSummary reports a community's pending entries, allowlist size and
// action statistics. Statistics degrade to zero values when their store
// is unreachable; the pending list is authoritative.
func (e *Engine) StatusSummary(ctx context.Context, communityID string) (ports.Status, error) {
	pending, err := e.registry.ListPending(ctx, communityID)
	if err != nil {
		return ports.Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending approvals")
	}

	status := ports.Status{Pending: pending}

	if count, err := e.allowlist.Count(ctx, communityID); err != nil {
		e.logger.WarnContext(ctx, "allowlist count unavailable", "community_id", communityID, "error", err)
	} else {
		status.AllowlistSize = count
	}

	if e.auditor != nil {
		if stats, err := e.auditor.Stats(ctx, communityID); err != nil {
			e.logger.WarnContext(ctx, "audit stats unavailable", "community_id", communityID, "error", err)
		} else {
			status.Stats = stats
		}
	}
	return status, nil
}

// ValidateCapabilities checks that the platform granted everything the
// workflow needs in a community. The event loop runs it before a
// community's first join is processed; until it passes the community is
// not guarded.
func (e *Engine) ValidateCapabilities(ctx context.Context, communityID string) error {
	granted, err := e.directory.Capabilities(ctx, communityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read capabilities")
	}

	have := make(map[string]bool, len(granted))
	for _, capability := range granted {
		have[strings.ToLower(capability)] = true
	}

	var missing []string
	for _, capability := range e.config.RequiredCapabilities {
		if !have[capability] {
			missing = append(missing, capability)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("missing capabilities: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Close stops all live timers. Pending entries stay in the registry; a
// process restart starts from a clean slate anyway.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for key, timer := range e.timers {
		timer.Stop()
		delete(e.timers, key)
	}
}

// rejectUnreviewable resolves an entry nobody can decide. Leaving it
// pending would only postpone the same removal to the timeout.
func (e *Engine) rejectUnreviewable(ctx context.Context, entry approval.PendingApproval) error {
	resolved, err := e.registry.Resolve(ctx, entry.CommunityID, entry.ParticipantID,
		approval.StateRejected, approval.SystemReviewerID, reasonNoReviewers, e.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to auto-reject participant")
	}

	e.logger.InfoContext(ctx, "auto-rejected participant, no reviewers reachable",
		"community_id", entry.CommunityID, "participant_id", entry.ParticipantID)
	e.finalizeResolution(ctx, resolved)
	return nil
}

func (e *Engine) notifyReviewers(ctx context.Context, entry approval.PendingApproval, reviewers []gateway.Reviewer) {
	deliveries, err := e.notifier.NotifyJoin(ctx, entry, reviewers)
	if err != nil {
		// The notifier audited the failure; the timeout still guards the
		// entry.
		e.logger.WarnContext(ctx, "join notification failed, relying on the timeout",
			"community_id", entry.CommunityID, "participant_id", entry.ParticipantID, "error", err)
		return
	}

	for _, delivery := range deliveries {
		if err := e.registry.BindMessage(ctx, entry.CommunityID, entry.ParticipantID, delivery.MessageID); err != nil {
			// The entry resolved while messages were in flight.
			e.logger.DebugContext(ctx, "notification binding skipped",
				"message_id", delivery.MessageID, "error", err)
		}
	}

	notified := eventFor(audit.EventReviewersNotified, entry)
	notified.Detail = map[string]string{"delivered": strconv.Itoa(len(deliveries))}
	e.audit(ctx, notified)
}

// finalizeResolution carries out a terminal state: allowlist or removal,
// audit, announcement, metrics. The resolution itself already happened;
// nothing here can undo it.
func (e *Engine) finalizeResolution(ctx context.Context, resolved approval.PendingApproval) {
	e.metrics.IncResolved(resolved.State.String())
	e.metrics.ObserveResolution(resolved.ResolvedAt.Sub(resolved.DetectedAt))
	e.updatePendingGauge(ctx)

	switch resolved.State {
	case approval.StateApproved:
		if err := e.allowlist.Add(ctx, resolved.CommunityID, resolved.ParticipantID); err != nil {
			e.logger.WarnContext(ctx, "allowlist update failed",
				"community_id", resolved.CommunityID, "participant_id", resolved.ParticipantID, "error", err)
		}
		e.audit(ctx, eventFor(audit.EventParticipantApproved, resolved))

	case approval.StateRejected:
		e.audit(ctx, eventFor(audit.EventParticipantRejected, resolved))
		e.removeResolved(ctx, resolved)

	case approval.StateTimedOut:
		timedOut := eventFor(audit.EventParticipantTimedOut, resolved)
		timedOut.Detail = map[string]string{"window": resolved.Timeout.String()}
		e.audit(ctx, timedOut)
		e.removeResolved(ctx, resolved)
	}

	if err := e.notifier.AnnounceOutcome(ctx, resolved); err != nil {
		e.logger.DebugContext(ctx, "outcome announcement failed",
			"community_id", resolved.CommunityID, "participant_id", resolved.ParticipantID, "error", err)
	}
}

func (e *Engine) removeResolved(ctx context.Context, resolved approval.PendingApproval) {
	reason := resolved.Reason
	if reason == "" {
		reason = "approval " + resolved.State.String()
	}
	if err := e.removeParticipant(ctx, resolved, reason); err != nil {
		e.logger.ErrorContext(ctx, "participant removal failed",
			"community_id", resolved.CommunityID, "participant_id", resolved.ParticipantID, "error", err)
	}
}

// removeParticipant kicks with bounded retries. Exhausting them audits a
// security event and alerts reviewers; the terminal state stands either
// way.
func (e *Engine) removeParticipant(ctx context.Context, entry approval.PendingApproval, reason string) error {
	var lastErr error
	for attempt := 1; attempt <= e.config.RemovalRetries; attempt++ {
		lastErr = e.remover.RemoveParticipant(ctx, entry.CommunityID, entry.ParticipantID, reason)
		if lastErr == nil {
			removed := eventFor(audit.EventParticipantRemoved, entry)
			removed.Detail = map[string]string{"attempts": strconv.Itoa(attempt)}
			e.audit(ctx, removed)
			return nil
		}
		if attempt == e.config.RemovalRetries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = e.config.RemovalRetries
		case <-time.After(e.config.RemovalBackoff):
		}
	}

	e.metrics.IncRemovalFailure()
	failed := eventFor(audit.EventParticipantRemovalFailed, entry)
	failed.Reason = lastErr.Error()
	e.audit(ctx, failed)

	if err := e.notifier.NotifyRemovalFailure(ctx, entry, lastErr); err != nil {
		e.logger.WarnContext(ctx, "removal failure alert undelivered",
			"community_id", entry.CommunityID, "participant_id", entry.ParticipantID, "error", err)
	}
	return dErrors.Wrap(lastErr, dErrors.CodeInternal, "failed to remove participant")
}

// -----------------------------------------------------------------------------
// Timers
// -----------------------------------------------------------------------------

func (e *Engine) scheduleTimeout(entry approval.PendingApproval) {
	key := timerKey{entry.CommunityID, entry.ParticipantID}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if old, ok := e.timers[key]; ok {
		old.Stop()
	}
	e.timers[key] = time.AfterFunc(entry.Remaining(e.clock()), func() {
		e.OnTimeout(entry.CommunityID, entry.ParticipantID)
	})
}

// cancelTimeout is best-effort: a timer that already fired lost the
// Resolve race and exits harmlessly.
func (e *Engine) cancelTimeout(communityID, participantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := timerKey{communityID, participantID}
	if timer, ok := e.timers[key]; ok {
		timer.Stop()
		delete(e.timers, key)
	}
}

func (e *Engine) dropTimer(communityID, participantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.timers, timerKey{communityID, participantID})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (e *Engine) updatePendingGauge(ctx context.Context) {
	if e.metrics == nil {
		return
	}
	count, err := e.registry.PendingCount(ctx)
	if err != nil {
		return
	}
	e.metrics.SetPending(count)
}

func (e *Engine) audit(ctx context.Context, event audit.Event) {
	ports.LogAudit(ctx, e.logger, e.publisher, event,
		"community_id", event.CommunityID,
		"participant_id", event.ParticipantID,
	)
}

func eventFor(action audit.AuditEvent, entry approval.PendingApproval) audit.Event {
	return audit.Event{
		Action:          string(action),
		CommunityID:     entry.CommunityID,
		CommunityName:   entry.CommunityName,
		ParticipantID:   entry.ParticipantID,
		ParticipantName: entry.ParticipantName,
		ActorID:         entry.ReviewerID,
		InviterID:       entry.InviterID,
		InviterName:     entry.InviterName,
		Reason:          entry.Reason,
	}
}
