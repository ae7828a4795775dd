// Package handler is the ops REST surface of the approval workflow:
// status and pending listings, audit reads, and the console decision
// route operators reach for when the chat surface is unavailable.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/approval/ports"
	"warden/internal/platform/device"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/identifier"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/httputil"
	authmw "warden/pkg/platform/middleware/auth"
	"warden/pkg/requestcontext"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 50
)

type Handler struct {
	workflow ports.Workflow
	auditor  ports.AuditReader

	publisher  ports.AuditPublisher
	logger     *slog.Logger
	validator  authmw.TokenValidator
	opsKeyHash string
	devices    *device.Service
	clock      func() time.Time
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(h *Handler) {
		h.publisher = publisher
	}
}

// WithTokenValidator enables bearer auth. Without it every guarded route
// answers 503.
func WithTokenValidator(validator authmw.TokenValidator) Option {
	return func(h *Handler) {
		h.validator = validator
	}
}

// WithOpsKeyHash enables ops-key auth on the decision route.
func WithOpsKeyHash(hash string) Option {
	return func(h *Handler) {
		h.opsKeyHash = hash
	}
}

func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func New(workflow ports.Workflow, auditor ports.AuditReader, opts ...Option) (*Handler, error) {
	if workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit reader is required")
	}

	h := &Handler{
		workflow: workflow,
		auditor:  auditor,
		logger:   slog.Default(),
		devices:  device.NewService(true),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the ops routes. Reads require a bearer token; the
// decision route also accepts the ops key.
func (h *Handler) Register(r chi.Router) {
	requireOperator := authmw.RequireOperator(h.validator, h.logger)
	requireDecider := authmw.RequireOperatorOrOpsKey(h.validator, h.opsKeyHash, h.logger)

	r.Route("/communities/{communityID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireOperator)
			r.Get("/status", h.handleStatus)
			r.Get("/pending", h.handlePending)
			r.Get("/logs", h.handleLogs)
		})
		r.With(requireDecider).Post("/participants/{participantID}/decision", h.handleDecision)
	})
	r.With(requireOperator).Get("/participants/{participantID}/history", h.handleHistory)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	communityID := chi.URLParam(r, "communityID")

	status, err := h.workflow.StatusSummary(ctx, communityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "status summary failed",
			"request_id", requestcontext.RequestID(ctx),
			"community_id", communityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(communityID, status, h.clock()))
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	communityID := chi.URLParam(r, "communityID")

	status, err := h.workflow.StatusSummary(ctx, communityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"community_id", communityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	now := h.clock()
	resp := pendingResponse{
		CommunityID: communityID,
		Pending:     make([]entryResponse, 0, len(status.Pending)),
	}
	for _, entry := range status.Pending {
		resp.Pending = append(resp.Pending, toEntryResponse(entry, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	communityID := chi.URLParam(r, "communityID")

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxLogLimit)
	}

	events, err := h.auditor.ListRecent(ctx, communityID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "log listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"community_id", communityID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, logsResponse{
		CommunityID: communityID,
		Events:      toEventResponses(events),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participantID, err := identifier.Validate(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.auditor.List(ctx, participantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"participant_id", participantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load participant history"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, historyResponse{
		ParticipantID: participantID,
		Events:        toEventResponses(events),
	})
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		// Unreachable when the auth middleware is configured correctly.
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	communityID := chi.URLParam(r, "communityID")
	participantID, err := identifier.Validate(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[decisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	decision := req.decision()

	resolved, err := h.workflow.OnConsoleDecision(ctx, communityID, participantID, actorID, decision, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "console decision failed",
			"request_id", requestID,
			"community_id", communityID,
			"participant_id", participantID,
			"actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditConsoleDecision(ctx, resolved.CommunityName, communityID, participantID, actorID, decision.String(), req.Reason)

	h.logger.InfoContext(ctx, "console decision recorded",
		"request_id", requestID,
		"community_id", communityID,
		"participant_id", participantID,
		"actor_id", actorID,
		"decision", decision.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toEntryResponse(resolved, h.clock()))
}

// auditConsoleDecision records that a decision arrived over the ops API
// rather than from the chat surface, including which client made it. The
// fingerprint lets an operator reviewing the trail correlate decisions
// from one client even when the display name is generic.
func (h *Handler) auditConsoleDecision(ctx context.Context, communityName, communityID, participantID, actorID, decision, reason string) {
	userAgent := requestcontext.UserAgent(ctx)
	detail := map[string]string{
		"decision":  decision,
		"client":    device.ParseUserAgent(userAgent),
		"client_ip": requestcontext.ClientIP(ctx),
	}
	if fingerprint := h.devices.ComputeFingerprint(userAgent); fingerprint != "" {
		detail["client_fingerprint"] = fingerprint
	}

	ports.LogAudit(ctx, h.logger, h.publisher, audit.Event{
		Action:        string(audit.EventConsoleDecision),
		CommunityID:   communityID,
		CommunityName: communityName,
		ParticipantID: participantID,
		ActorID:       actorID,
		Reason:        reason,
		Detail:        detail,
	}, "community_id", communityID, "participant_id", participantID, "actor_id", actorID)
}
