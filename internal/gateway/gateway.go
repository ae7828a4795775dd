// Package gateway defines the contract between warden and the chat
// platform. Events flow in, actions flow out; nothing in this repository
// talks to a concrete platform SDK. A scriptable in-memory implementation
// lives in the memory subpackage.
package gateway

import (
	"context"
	"time"
)

// EventKind discriminates gateway events.
type EventKind string

const (
	KindParticipantJoined EventKind = "participant_joined"
	KindReactionAdded     EventKind = "reaction_added"
	KindCommandInvoked    EventKind = "command_invoked"
)

// Event is anything the platform pushes at warden.
type Event interface {
	Kind() EventKind
}

// ParticipantJoined fires when any participant enters a community. The
// Automated flag is the platform's own classification; warden trusts it and
// applies no detection heuristics of its own.
type ParticipantJoined struct {
	CommunityID     string
	CommunityName   string
	ParticipantID   string
	ParticipantName string
	Automated       bool
	InviterID       string
	InviterName     string
	AccountAgeDays  int
	At              time.Time
}

func (ParticipantJoined) Kind() EventKind { return KindParticipantJoined }

// ReactionAdded fires when a user reacts to a message warden sent.
type ReactionAdded struct {
	MessageID  string
	Emoji      string
	ReviewerID string
	At         time.Time
}

func (ReactionAdded) Kind() EventKind { return KindReactionAdded }

// CommandInvoked fires when a user sends a message in a channel warden can
// read. Text is the raw message; the command layer decides whether it is
// addressed to warden.
type CommandInvoked struct {
	CommunityID string
	ChannelID   string
	InvokerID   string
	Text        string
	At          time.Time
}

func (CommandInvoked) Kind() EventKind { return KindCommandInvoked }

// EventSource delivers platform events. The channel closes when the
// gateway shuts down.
type EventSource interface {
	Events() <-chan Event
}

// Remover removes participants from communities.
type Remover interface {
	RemoveParticipant(ctx context.Context, communityID, participantID, reason string) error
}

// Messenger delivers messages. Both methods return the platform message ID
// of the delivered message so reactions can be traced back to it.
type Messenger interface {
	SendDirectMessage(ctx context.Context, userID, message string) (string, error)
	SendChannelMessage(ctx context.Context, communityID, channelID, message string) (string, error)
}

// Reviewer is a community member allowed to decide approvals.
type Reviewer struct {
	ID   string
	Name string
}

// Directory answers membership and permission questions about a community.
type Directory interface {
	// Reviewers lists the human members holding the reviewer role.
	Reviewers(ctx context.Context, communityID string) ([]Reviewer, error)
	// IsReviewer reports whether the user holds the reviewer role or has
	// administrative rights in the community.
	IsReviewer(ctx context.Context, communityID, userID string) (bool, error)
	// Capabilities lists what the platform lets warden do in the community.
	Capabilities(ctx context.Context, communityID string) ([]string, error)
}
