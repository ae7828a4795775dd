// Package memory provides an in-process gateway for tests and local runs.
// Tests script it: push events, preload reviewers and capabilities, inject
// action failures, then assert on the recorded actions.
package memory

import (
	"context"
	"fmt"
	"sync"

	"warden/internal/gateway"
)

// Removal records one RemoveParticipant call.
type Removal struct {
	CommunityID   string
	ParticipantID string
	Reason        string
}

// Message records one delivered message.
type Message struct {
	ID          string
	RecipientID string // user for DMs, channel for channel messages
	CommunityID string // empty for DMs
	Body        string
}

// Gateway implements gateway.EventSource, Remover, Messenger, and Directory.
type Gateway struct {
	mu sync.Mutex

	events  chan gateway.Event
	closed  bool
	pushers sync.WaitGroup

	reviewers    map[string][]gateway.Reviewer // communityID -> reviewers
	admins       map[string]bool               // userID -> admin anywhere
	capabilities map[string][]string           // communityID -> capabilities

	removals        []Removal
	directMessages  []Message
	channelMessages []Message
	nextMessageID   int

	removeErr  error
	dmErrs     map[string]error // userID -> error
	channelErr error
}

// New creates an empty gateway with a buffered event stream.
func New() *Gateway {
	return &Gateway{
		events:       make(chan gateway.Event, 64),
		reviewers:    make(map[string][]gateway.Reviewer),
		admins:       make(map[string]bool),
		capabilities: make(map[string][]string),
		dmErrs:       make(map[string]error),
	}
}

// Events implements gateway.EventSource.
func (g *Gateway) Events() <-chan gateway.Event { return g.events }

// Push delivers an event to the stream. The send happens outside the
// mutex, so a full buffer parks only the pusher, never the rest of the
// fake.
func (g *Gateway) Push(evt gateway.Event) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.pushers.Add(1)
	g.mu.Unlock()
	defer g.pushers.Done()

	g.events <- evt
}

// Close ends the event stream once in-flight pushes have landed. Pushes
// arriving after Close are dropped.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.pushers.Wait()
	close(g.events)
}

// -----------------------------------------------------------------------------
// Scripting
// -----------------------------------------------------------------------------

// SetReviewers replaces the reviewer list for a community.
func (g *Gateway) SetReviewers(communityID string, reviewers ...gateway.Reviewer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reviewers[communityID] = reviewers
}

// SetAdmin marks a user as having administrative rights.
func (g *Gateway) SetAdmin(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.admins[userID] = true
}

// SetCapabilities replaces warden's capabilities in a community.
func (g *Gateway) SetCapabilities(communityID string, caps ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.capabilities[communityID] = caps
}

// FailRemovals makes RemoveParticipant return err until cleared with nil.
func (g *Gateway) FailRemovals(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeErr = err
}

// FailDirectMessages makes DMs to userID return err until cleared with nil.
func (g *Gateway) FailDirectMessages(userID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.dmErrs, userID)
		return
	}
	g.dmErrs[userID] = err
}

// FailChannelMessages makes channel sends return err until cleared with nil.
func (g *Gateway) FailChannelMessages(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channelErr = err
}

// -----------------------------------------------------------------------------
// Actions
// -----------------------------------------------------------------------------

// RemoveParticipant implements gateway.Remover.
func (g *Gateway) RemoveParticipant(ctx context.Context, communityID, participantID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.removeErr != nil {
		return g.removeErr
	}
	g.removals = append(g.removals, Removal{
		CommunityID:   communityID,
		ParticipantID: participantID,
		Reason:        reason,
	})
	return nil
}

// SendDirectMessage implements gateway.Messenger.
func (g *Gateway) SendDirectMessage(ctx context.Context, userID, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.dmErrs[userID]; err != nil {
		return "", err
	}
	g.nextMessageID++
	msg := Message{
		ID:          fmt.Sprintf("gw-msg-%d", g.nextMessageID),
		RecipientID: userID,
		Body:        message,
	}
	g.directMessages = append(g.directMessages, msg)
	return msg.ID, nil
}

// SendChannelMessage implements gateway.Messenger.
func (g *Gateway) SendChannelMessage(ctx context.Context, communityID, channelID, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.channelErr != nil {
		return "", g.channelErr
	}
	g.nextMessageID++
	msg := Message{
		ID:          fmt.Sprintf("gw-msg-%d", g.nextMessageID),
		RecipientID: channelID,
		CommunityID: communityID,
		Body:        message,
	}
	g.channelMessages = append(g.channelMessages, msg)
	return msg.ID, nil
}

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

// Reviewers implements gateway.Directory.
func (g *Gateway) Reviewers(ctx context.Context, communityID string) ([]gateway.Reviewer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.Reviewer, len(g.reviewers[communityID]))
	copy(out, g.reviewers[communityID])
	return out, nil
}

// IsReviewer implements gateway.Directory.
func (g *Gateway) IsReviewer(ctx context.Context, communityID, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.admins[userID] {
		return true, nil
	}
	for _, r := range g.reviewers[communityID] {
		if r.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Capabilities implements gateway.Directory.
func (g *Gateway) Capabilities(ctx context.Context, communityID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.capabilities[communityID]))
	copy(out, g.capabilities[communityID])
	return out, nil
}

// -----------------------------------------------------------------------------
// Assertions
// -----------------------------------------------------------------------------

// Removals returns a copy of the recorded removals.
func (g *Gateway) Removals() []Removal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Removal, len(g.removals))
	copy(out, g.removals)
	return out
}

// DirectMessages returns a copy of the recorded DMs, optionally filtered by
// recipient.
func (g *Gateway) DirectMessages(userID string) []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Message
	for _, m := range g.directMessages {
		if userID == "" || m.RecipientID == userID {
			out = append(out, m)
		}
	}
	return out
}

// ChannelMessages returns a copy of the recorded channel messages.
func (g *Gateway) ChannelMessages() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Message, len(g.channelMessages))
	copy(out, g.channelMessages)
	return out
}
