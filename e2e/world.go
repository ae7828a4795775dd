// Package e2e drives warden end to end: gateway events in, decisions
// through reactions, commands and the ops API, audit trail out. The
// scenarios live in features/ and run through godog.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"warden/internal/allowlist"
	"warden/internal/approval/command"
	"warden/internal/approval/engine"
	apihandler "warden/internal/approval/handler"
	"warden/internal/approval/notifier"
	"warden/internal/approval/registry"
	"warden/internal/gateway"
	gatewaymemory "warden/internal/gateway/memory"
	httpapi "warden/internal/http"
	"warden/internal/platform/token"
	"warden/pkg/platform/audit/publisher"
	auditmemory "warden/pkg/platform/audit/store/memory"
)

const (
	communityID   = "820000000000000001"
	communityName = "Gopher Hangout"
	channelID     = "600000000000000001"
	inviterID     = "100000000000000042"
	inviterName   = "carol"
	opsSigningKey = "e2e-signing-key"
)

// world is one scenario's warden: the in-memory gateway stands in for the
// chat platform and an httptest server fronts the ops API. Assembly is
// deferred until the first event so Given steps can still shape the
// community and the approval window.
type world struct {
	gw     *gatewaymemory.Gateway
	reg    *registry.InMemoryRegistry
	allow  *allowlist.InMemoryStore
	audits *publisher.Publisher
	eng    *engine.Engine
	disp   *command.Dispatcher
	tokens *token.Service
	server *httptest.Server

	window    time.Duration
	validated bool

	users           map[string]string // display name -> user ID
	participants    map[string]string // display name -> participant ID
	reviewerNames   []string
	nextUserID      int
	lastParticipant string

	lastStatus int
	lastBody   []byte
}

func newWorld() *world {
	return &world{
		gw:           gatewaymemory.New(),
		window:       5 * time.Second,
		users:        make(map[string]string),
		participants: make(map[string]string),
	}
}

// start wires the engine, dispatcher and ops API the way cmd/server does,
// minus the external dependencies. Idempotent.
func (w *world) start() error {
	if w.server != nil {
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w.reg = registry.New()
	w.allow = allowlist.NewInMemory()
	w.audits = publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(logger))

	notif, err := notifier.New(w.gw, w.gw,
		notifier.WithLogger(logger),
		notifier.WithAuditPublisher(w.audits),
	)
	if err != nil {
		return fmt.Errorf("assemble notifier: %w", err)
	}

	cfg := engine.DefaultConfig()
	cfg.Timeout = w.window
	cfg.RemovalBackoff = 10 * time.Millisecond
	w.eng, err = engine.New(w.reg, w.allow, notif, w.gw, w.gw,
		engine.WithLogger(logger),
		engine.WithConfig(cfg),
		engine.WithAuditPublisher(w.audits),
		engine.WithAuditReader(w.audits),
	)
	if err != nil {
		return fmt.Errorf("assemble engine: %w", err)
	}

	w.disp, err = command.New(w.eng, w.reg, w.gw, w.gw,
		command.WithLogger(logger),
		command.WithAuditPublisher(w.audits),
		command.WithAuditReader(w.audits),
	)
	if err != nil {
		return fmt.Errorf("assemble dispatcher: %w", err)
	}

	w.tokens = token.New(opsSigningKey, "warden", "warden-ops")
	api, err := apihandler.New(w.eng, w.audits,
		apihandler.WithLogger(logger),
		apihandler.WithAuditPublisher(w.audits),
		apihandler.WithTokenValidator(token.NewMiddlewareAdapter(w.tokens)),
	)
	if err != nil {
		return fmt.Errorf("assemble api handler: %w", err)
	}

	w.server = httptest.NewServer(httpapi.New(api))
	return nil
}

func (w *world) close() {
	if w.server != nil {
		w.server.Close()
	}
	if w.eng != nil {
		w.eng.Close()
	}
	if w.audits != nil {
		w.audits.Close()
	}
	w.gw.Close()
}

// userID hands out a stable platform ID for a display name.
func (w *world) userID(name string) string {
	if id, ok := w.users[name]; ok {
		return id
	}
	w.nextUserID++
	id := fmt.Sprintf("10000000000000%04d", w.nextUserID)
	w.users[name] = id
	return id
}

func (w *world) participantID(name string) string {
	if id, ok := w.participants[name]; ok {
		return id
	}
	id := fmt.Sprintf("90000000000000%04d", len(w.participants)+1)
	w.participants[name] = id
	return id
}

// join runs the same gate cmd/server applies: capabilities are validated on
// a community's first event before the engine sees it.
func (w *world) join(ctx context.Context, ev gateway.ParticipantJoined) error {
	if err := w.start(); err != nil {
		return err
	}
	if !w.validated {
		if err := w.eng.ValidateCapabilities(ctx, ev.CommunityID); err != nil {
			return fmt.Errorf("community is not guarded: %w", err)
		}
		w.validated = true
	}
	return w.eng.OnParticipantDetected(ctx, ev)
}

// -----------------------------------------------------------------------------
// HTTP
// -----------------------------------------------------------------------------

func (w *world) get(path string, authorized bool) error {
	req, err := http.NewRequest(http.MethodGet, w.server.URL+path, nil)
	if err != nil {
		return err
	}
	return w.do(req, authorized)
}

func (w *world) post(path, body string) error {
	req, err := http.NewRequest(http.MethodPost, w.server.URL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return w.do(req, true)
}

func (w *world) do(req *http.Request, authorized bool) error {
	if authorized {
		bearer, err := w.tokens.Issue("op-e2e", time.Hour)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	w.lastStatus = resp.StatusCode
	w.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (w *world) statusPath() string {
	return "/api/v1/communities/" + communityID + "/status"
}

// pendingIDs fetches the status page and returns the pending participant IDs.
func (w *world) pendingIDs() ([]string, error) {
	if err := w.get(w.statusPath(), true); err != nil {
		return nil, err
	}
	if w.lastStatus != http.StatusOK {
		return nil, fmt.Errorf("status page answered %d", w.lastStatus)
	}
	var resp struct {
		Pending []struct {
			ParticipantID string `json:"participant_id"`
		} `json:"pending"`
	}
	if err := json.Unmarshal(w.lastBody, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Pending))
	for _, p := range resp.Pending {
		ids = append(ids, p.ParticipantID)
	}
	return ids, nil
}

// recentActions fetches the community audit log and returns the actions seen.
func (w *world) recentActions() ([]string, error) {
	if err := w.get("/api/v1/communities/"+communityID+"/logs?limit=50", true); err != nil {
		return nil, err
	}
	if w.lastStatus != http.StatusOK {
		return nil, fmt.Errorf("audit log answered %d", w.lastStatus)
	}
	var resp struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	if err := json.Unmarshal(w.lastBody, &resp); err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(resp.Events))
	for _, ev := range resp.Events {
		actions = append(actions, ev.Action)
	}
	return actions, nil
}

// eventually retries probe until it passes or the wait runs out. Timer
// firings and removal retries land on their own goroutines, so outcome
// assertions poll instead of assuming the resolution already happened.
func (w *world) eventually(wait time.Duration, probe func() error) error {
	deadline := time.Now().Add(wait)
	for {
		err := probe()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}
