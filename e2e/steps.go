package e2e

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"warden/internal/approval/command"
	"warden/internal/approval/engine"
	"warden/internal/gateway"
)

// InitializeScenario gives every scenario a fresh world and tears it down
// afterwards.
func InitializeScenario(sc *godog.ScenarioContext) {
	w := newWorld()
	RegisterSteps(sc, w)
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		w.close()
		return ctx, err
	})
}

// RegisterSteps binds the feature vocabulary to the world.
func RegisterSteps(sc *godog.ScenarioContext, w *world) {
	sc.Step(`^a community where warden holds the required capabilities$`, w.communityGrantsCapabilities)
	sc.Step(`^"([^"]*)" and "([^"]*)" hold the reviewer role$`, w.reviewersHoldRole)
	sc.Step(`^the approval window is (\d+)ms$`, w.approvalWindowIs)

	sc.Step(`^the (automated|human) participant "([^"]*)" (?:joins|joined|rejoins)$`, w.participantJoins)
	sc.Step(`^"([^"]*)" reacts with "([^"]*)" to the review notification$`, w.reviewerReacts)
	sc.Step(`^"([^"]*)" issues the command "([^"]*)" for the participant$`, w.memberIssuesCommand)
	sc.Step(`^"([^"]*)" issues the command "([^"]*)" for the participant with reason "([^"]*)"$`, w.memberIssuesCommandWithReason)
	sc.Step(`^an operator (approves|rejects) the participant over the ops API$`, w.operatorDecides)
	sc.Step(`^the status page is requested without credentials$`, w.statusWithoutCredentials)
	sc.Step(`^the approval window lapses$`, w.approvalWindowLapses)

	sc.Step(`^the participant is pending review$`, w.participantIsPending)
	sc.Step(`^no participant is pending review$`, w.noParticipantIsPending)
	sc.Step(`^the participant is (approved|rejected|timed out)$`, w.participantResolved)
	sc.Step(`^each reviewer receives a direct message mentioning "([^"]*)"$`, w.reviewersWereNotified)
	sc.Step(`^the participant is removed from the community$`, w.participantRemoved)
	sc.Step(`^the participant remains in the community$`, w.participantRemains)
	sc.Step(`^the audit log records "([^"]*)"$`, w.auditLogRecords)
	sc.Step(`^the audit log does not record "([^"]*)"$`, w.auditLogDoesNotRecord)
	sc.Step(`^the ops API answers (\d+)$`, w.opsAPIAnswers)
}

// -----------------------------------------------------------------------------
// Givens
// -----------------------------------------------------------------------------

func (w *world) communityGrantsCapabilities() error {
	w.gw.SetCapabilities(communityID, engine.DefaultConfig().RequiredCapabilities...)
	return nil
}

func (w *world) reviewersHoldRole(first, second string) error {
	w.reviewerNames = []string{first, second}
	w.gw.SetReviewers(communityID,
		gateway.Reviewer{ID: w.userID(first), Name: first},
		gateway.Reviewer{ID: w.userID(second), Name: second},
	)
	return nil
}

func (w *world) approvalWindowIs(ms int) error {
	if w.server != nil {
		return fmt.Errorf("the approval window must be set before the first event")
	}
	w.window = time.Duration(ms) * time.Millisecond
	return nil
}

// -----------------------------------------------------------------------------
// Events and decisions
// -----------------------------------------------------------------------------

func (w *world) participantJoins(ctx context.Context, kind, name string) error {
	pid := w.participantID(name)
	err := w.join(ctx, gateway.ParticipantJoined{
		CommunityID:     communityID,
		CommunityName:   communityName,
		ParticipantID:   pid,
		ParticipantName: name,
		Automated:       kind == "automated",
		InviterID:       inviterID,
		InviterName:     inviterName,
		AccountAgeDays:  3,
		At:              time.Now(),
	})
	if err != nil {
		return err
	}
	w.lastParticipant = pid
	return nil
}

func (w *world) reviewerReacts(ctx context.Context, name, emoji string) error {
	id, ok := w.users[name]
	if !ok {
		return fmt.Errorf("unknown user %q", name)
	}
	msgs := w.gw.DirectMessages(id)
	if len(msgs) == 0 {
		return fmt.Errorf("%s received no review notification", name)
	}
	return w.disp.OnReaction(ctx, gateway.ReactionAdded{
		MessageID:  msgs[len(msgs)-1].ID,
		Emoji:      emoji,
		ReviewerID: id,
		At:         time.Now(),
	})
}

func (w *world) memberIssuesCommand(ctx context.Context, name, verb string) error {
	return w.memberIssuesCommandWithReason(ctx, name, verb, "")
}

func (w *world) memberIssuesCommandWithReason(ctx context.Context, name, verb, reason string) error {
	if err := w.start(); err != nil {
		return err
	}
	text := fmt.Sprintf("%s %s %s", command.DefaultPrefix, verb, w.lastParticipant)
	if reason != "" {
		text += " " + reason
	}
	return w.disp.OnCommand(ctx, gateway.CommandInvoked{
		CommunityID: communityID,
		ChannelID:   channelID,
		InvokerID:   w.userID(name),
		Text:        text,
		At:          time.Now(),
	})
}

func (w *world) operatorDecides(verb string) error {
	decision := "approve"
	if verb == "rejects" {
		decision = "reject"
	}
	path := fmt.Sprintf("/api/v1/communities/%s/participants/%s/decision", communityID, w.lastParticipant)
	return w.post(path, fmt.Sprintf(`{"decision": %q}`, decision))
}

func (w *world) statusWithoutCredentials() error {
	if err := w.start(); err != nil {
		return err
	}
	return w.get(w.statusPath(), false)
}

func (w *world) approvalWindowLapses() error {
	return w.eventually(w.window+2*time.Second, func() error {
		pending, err := w.pendingIDs()
		if err != nil {
			return err
		}
		if len(pending) != 0 {
			return fmt.Errorf("still pending: %v", pending)
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Outcomes
// -----------------------------------------------------------------------------

func (w *world) participantIsPending() error {
	return w.eventually(2*time.Second, func() error {
		pending, err := w.pendingIDs()
		if err != nil {
			return err
		}
		if !slices.Contains(pending, w.lastParticipant) {
			return fmt.Errorf("participant %s is not pending", w.lastParticipant)
		}
		return nil
	})
}

func (w *world) noParticipantIsPending() error {
	pending, err := w.pendingIDs()
	if err != nil {
		return err
	}
	if len(pending) != 0 {
		return fmt.Errorf("expected nothing pending, got %v", pending)
	}
	return nil
}

func (w *world) participantResolved(outcome string) error {
	actions := map[string]string{
		"approved":  "participant_approved",
		"rejected":  "participant_rejected",
		"timed out": "participant_timed_out",
	}
	want := actions[outcome]
	path := fmt.Sprintf("/api/v1/communities/%s/participants/%s/history", communityID, w.lastParticipant)
	return w.eventually(3*time.Second, func() error {
		if err := w.get(path, true); err != nil {
			return err
		}
		if w.lastStatus != http.StatusOK {
			return fmt.Errorf("history answered %d", w.lastStatus)
		}
		if !strings.Contains(string(w.lastBody), fmt.Sprintf("%q", want)) {
			return fmt.Errorf("history has no %s event", want)
		}
		return nil
	})
}

func (w *world) reviewersWereNotified(name string) error {
	for _, reviewer := range w.reviewerNames {
		msgs := w.gw.DirectMessages(w.users[reviewer])
		if len(msgs) == 0 {
			return fmt.Errorf("%s received no direct message", reviewer)
		}
		if !strings.Contains(msgs[len(msgs)-1].Body, name) {
			return fmt.Errorf("notification to %s does not mention %s", reviewer, name)
		}
	}
	return nil
}

func (w *world) participantRemoved() error {
	return w.eventually(3*time.Second, func() error {
		for _, removal := range w.gw.Removals() {
			if removal.CommunityID == communityID && removal.ParticipantID == w.lastParticipant {
				return nil
			}
		}
		return fmt.Errorf("participant %s was not removed", w.lastParticipant)
	})
}

func (w *world) participantRemains() error {
	for _, removal := range w.gw.Removals() {
		if removal.ParticipantID == w.lastParticipant {
			return fmt.Errorf("participant %s was removed", w.lastParticipant)
		}
	}
	return nil
}

func (w *world) auditLogRecords(action string) error {
	return w.eventually(3*time.Second, func() error {
		actions, err := w.recentActions()
		if err != nil {
			return err
		}
		if !slices.Contains(actions, action) {
			return fmt.Errorf("audit log has no %s event, saw %v", action, actions)
		}
		return nil
	})
}

func (w *world) auditLogDoesNotRecord(action string) error {
	actions, err := w.recentActions()
	if err != nil {
		return err
	}
	if slices.Contains(actions, action) {
		return fmt.Errorf("audit log unexpectedly records %s", action)
	}
	return nil
}

func (w *world) opsAPIAnswers(code int) error {
	if w.lastStatus != code {
		return fmt.Errorf("ops API answered %d, want %d: %s", w.lastStatus, code, w.lastBody)
	}
	return nil
}
