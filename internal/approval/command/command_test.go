package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"warden/internal/approval"
	"warden/internal/approval/ports"
	"warden/internal/approval/ports/mocks"
	"warden/internal/approval/registry"
	"warden/internal/gateway"
	"warden/internal/gateway/memory"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
)

const participantID = "200000000000000001"

var errPlatformDown = errors.New("platform unavailable")

func invocationOf(text string) gateway.CommandInvoked {
	return gateway.CommandInvoked{
		CommunityID: "guild-1",
		ChannelID:   "general",
		InvokerID:   "rev-1",
		Text:        text,
	}
}

type CommandSuite struct {
	suite.Suite

	ctrl       *gomock.Controller
	workflow   *mocks.MockWorkflow
	auditor    *mocks.MockAuditReader
	publisher  *mocks.MockAuditPublisher
	registry   *registry.InMemoryRegistry
	gw         *memory.Gateway
	dispatcher *Dispatcher
	now        time.Time
}

func TestCommandSuite(t *testing.T) {
	suite.Run(t, new(CommandSuite))
}

func (s *CommandSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.workflow = mocks.NewMockWorkflow(s.ctrl)
	s.auditor = mocks.NewMockAuditReader(s.ctrl)
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.registry = registry.New()
	s.gw = memory.New()
	s.gw.SetReviewers("guild-1", gateway.Reviewer{ID: "rev-1", Name: "mod-one"})
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.dispatcher, err = New(s.workflow, s.registry, s.gw, s.gw,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.publisher),
		WithAuditReader(s.auditor),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *CommandSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CommandSuite) lastReply() string {
	replies := s.gw.ChannelMessages()
	s.Require().NotEmpty(replies, "expected a reply")
	return replies[len(replies)-1].Body
}

func (s *CommandSuite) TestNew() {
	s.Run("workflow is required", func() {
		_, err := New(nil, s.registry, s.gw, s.gw)
		s.EqualError(err, "workflow is required")
	})
	s.Run("registry is required", func() {
		_, err := New(s.workflow, nil, s.gw, s.gw)
		s.EqualError(err, "registry is required")
	})
	s.Run("directory is required", func() {
		_, err := New(s.workflow, s.registry, nil, s.gw)
		s.EqualError(err, "directory is required")
	})
	s.Run("messenger is required", func() {
		_, err := New(s.workflow, s.registry, s.gw, nil)
		s.EqualError(err, "messenger is required")
	})
}

func (s *CommandSuite) TestIgnoresUnrelatedChatter() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("gm everyone")))
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("")))
	s.Empty(s.gw.ChannelMessages())
}

func (s *CommandSuite) TestPrefixAndVerbAreCaseInsensitive() {
	s.workflow.EXPECT().StatusSummary(gomock.Any(), "guild-1").Return(ports.Status{}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!Approval STATUS")))
	s.Contains(s.lastReply(), "No participants awaiting approval")
}

func (s *CommandSuite) TestBarePrefixShowsHelp() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval")))
	s.Contains(s.lastReply(), "approve <id> [reason]")
}

func (s *CommandSuite) TestUnknownVerbShowsUsage() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval banana")))
	s.Contains(s.lastReply(), "Commands:")
}

func (s *CommandSuite) TestHelpSkipsReviewerGate() {
	ev := invocationOf("!approval help")
	ev.InvokerID = "stranger-42"

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), ev))
	s.Contains(s.lastReply(), "Commands:")
}

func (s *CommandSuite) TestNonReviewerGetsQuietRefusal() {
	ev := invocationOf("!approval approve " + participantID)
	ev.InvokerID = "stranger-42"

	var audited audit.Event
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			audited = event
			return nil
		})

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), ev))

	s.Contains(s.lastReply(), "Only reviewers")
	s.Equal(string(audit.EventDecisionUnauthorized), audited.Action)
	s.Equal("stranger-42", audited.ActorID)
	s.Equal("approve", audited.Detail["verb"])
}

func (s *CommandSuite) TestApproveHappyPath() {
	s.workflow.EXPECT().
		OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionApprove, "looks fine").
		Return(approval.PendingApproval{
			CommunityID:     "guild-1",
			ParticipantID:   participantID,
			ParticipantName: "helper-bot",
			State:           approval.StateApproved,
			ReviewerID:      "rev-1",
		}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval approve "+participantID+" looks fine")))
	s.Equal("Approved helper-bot (ID "+participantID+").", s.lastReply())
}

func (s *CommandSuite) TestMentionWrappedIDIsNormalized() {
	s.workflow.EXPECT().
		OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionReject, "spam links").
		Return(approval.PendingApproval{
			CommunityID:   "guild-1",
			ParticipantID: participantID,
			State:         approval.StateRejected,
		}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval reject <@"+participantID+"> spam links")))
	s.Contains(s.lastReply(), "Rejected")
}

func (s *CommandSuite) TestDecisionValidatesParticipantID() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval approve not-an-id")))
	s.Contains(s.lastReply(), "does not look like a participant ID")
}

func (s *CommandSuite) TestDecisionWithoutArgsShowsUsage() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval approve")))
	s.Contains(s.lastReply(), "Usage: !approval approve")
}

func (s *CommandSuite) TestDecisionErrorsMapToReplies() {
	cases := []struct {
		name  string
		err   error
		reply string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "no pending approval for this participant"), "No pending approval"},
		{"already resolved", dErrors.New(dErrors.CodeConflict, "approval already resolved"), "already resolved"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "only reviewers can decide approvals"), "Only reviewers"},
		{"internal", errPlatformDown, "try again shortly"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.workflow.EXPECT().
				OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionApprove, "").
				Return(approval.PendingApproval{}, tc.err)

			s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
				invocationOf("!approval approve "+participantID)))
			s.Contains(s.lastReply(), tc.reply)
		})
	}
}

func (s *CommandSuite) TestStatusRendersSummary() {
	s.workflow.EXPECT().StatusSummary(gomock.Any(), "guild-1").Return(ports.Status{
		Pending: []approval.PendingApproval{{
			CommunityID:     "guild-1",
			ParticipantID:   participantID,
			ParticipantName: "helper-bot",
			DetectedAt:      s.now.Add(-4 * time.Second),
			Timeout:         10 * time.Second,
			State:           approval.StatePending,
		}},
		AllowlistSize: 3,
		Stats:         audit.Stats{Approved: 12, Rejected: 5, TimedOut: 2},
	}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval status")))

	reply := s.lastReply()
	s.Contains(reply, "1 awaiting approval")
	s.Contains(reply, "helper-bot (ID "+participantID+"), 6s left")
	s.Contains(reply, "Allowlisted participants: 3")
	s.Contains(reply, "12 approved, 5 rejected, 2 timed out")
}

func (s *CommandSuite) TestHistoryListsParticipantTrail() {
	s.auditor.EXPECT().List(gomock.Any(), participantID).Return([]audit.Event{
		{
			Timestamp:       time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC),
			Action:          string(audit.EventParticipantApproved),
			ParticipantName: "helper-bot",
			ActorID:         "rev-1",
			Reason:          "looks fine",
		},
		{
			Timestamp:       time.Date(2025, 5, 30, 9, 10, 0, 0, time.UTC),
			Action:          string(audit.EventParticipantDetected),
			ParticipantName: "helper-bot",
		},
	}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval history "+participantID)))

	reply := s.lastReply()
	s.Contains(reply, "2025-05-30 09:15 participant_approved helper-bot by <@rev-1> (looks fine)")
	s.Contains(reply, "2025-05-30 09:10 participant_detected helper-bot")
}

func (s *CommandSuite) TestHistoryWithNoTrail() {
	s.auditor.EXPECT().List(gomock.Any(), participantID).Return(nil, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(),
		invocationOf("!approval history "+participantID)))
	s.Contains(s.lastReply(), "No recorded actions")
}

func (s *CommandSuite) TestLogsUsesDefaultLimit() {
	s.auditor.EXPECT().ListRecent(gomock.Any(), "guild-1", 20).Return([]audit.Event{{
		Timestamp: s.now,
		Action:    string(audit.EventParticipantTimedOut),
	}}, nil)
	s.auditor.EXPECT().Stats(gomock.Any(), "guild-1").Return(audit.Stats{
		Recent24h: audit.WindowStats{Total: 4, Approved: 2, Rejected: 1, TimedOut: 1},
	}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval logs")))

	reply := s.lastReply()
	s.Contains(reply, "participant_timed_out")
	s.Contains(reply, "Last 24h: 4 decided (2 approved, 1 rejected, 1 timed out).")
}

func (s *CommandSuite) TestLogsClampsLimit() {
	s.auditor.EXPECT().ListRecent(gomock.Any(), "guild-1", 50).Return(nil, nil)
	s.auditor.EXPECT().Stats(gomock.Any(), "guild-1").Return(audit.Stats{}, nil)

	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval logs 500")))
	s.Contains(s.lastReply(), "No recorded actions yet")
}

func (s *CommandSuite) TestLogsRejectsBadLimit() {
	s.Require().NoError(s.dispatcher.OnCommand(context.Background(), invocationOf("!approval logs abc")))
	s.Contains(s.lastReply(), "Usage: !approval logs [limit]")
}

func (s *CommandSuite) TestCustomPrefix() {
	dispatcher, err := New(s.workflow, s.registry, s.gw, s.gw,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPrefix("!warden"),
	)
	s.Require().NoError(err)

	s.Require().NoError(dispatcher.OnCommand(context.Background(), invocationOf("!approval help")))
	s.Empty(s.gw.ChannelMessages())

	s.Require().NoError(dispatcher.OnCommand(context.Background(), invocationOf("!warden help")))
	s.Contains(s.lastReply(), "!warden status")
}

func (s *CommandSuite) TestReplyFailureSurfaces() {
	s.gw.FailChannelMessages(errPlatformDown)

	err := s.dispatcher.OnCommand(context.Background(), invocationOf("!approval help"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *CommandSuite) bindEntry(messageID string) approval.PendingApproval {
	s.T().Helper()
	entry := approval.PendingApproval{
		CommunityID:     "guild-1",
		ParticipantID:   participantID,
		ParticipantName: "helper-bot",
		DetectedAt:      s.now,
		Timeout:         10 * time.Second,
		State:           approval.StatePending,
	}
	s.Require().NoError(s.registry.Create(context.Background(), entry))
	s.Require().NoError(s.registry.BindMessage(context.Background(), entry.CommunityID, entry.ParticipantID, messageID))
	return entry
}

func (s *CommandSuite) TestReactionApproves() {
	s.bindEntry("msg-1")
	s.workflow.EXPECT().
		OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionApprove, "").
		Return(approval.PendingApproval{State: approval.StateApproved}, nil)

	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-1",
		Emoji:      approval.EmojiApprove,
		ReviewerID: "rev-1",
	}))
}

func (s *CommandSuite) TestReactionRejects() {
	s.bindEntry("msg-1")
	s.workflow.EXPECT().
		OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionReject, "").
		Return(approval.PendingApproval{State: approval.StateRejected}, nil)

	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-1",
		Emoji:      approval.EmojiReject,
		ReviewerID: "rev-1",
	}))
}

func (s *CommandSuite) TestReactionIgnoresOtherEmoji() {
	s.bindEntry("msg-1")

	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-1",
		Emoji:      "👍",
		ReviewerID: "rev-1",
	}))
}

func (s *CommandSuite) TestReactionOnUnknownMessageIsIgnored() {
	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-unseen",
		Emoji:      approval.EmojiApprove,
		ReviewerID: "rev-1",
	}))
}

func (s *CommandSuite) TestReactionFromNonReviewerIsAudited() {
	s.bindEntry("msg-1")

	var audited audit.Event
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			audited = event
			return nil
		})

	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-1",
		Emoji:      approval.EmojiApprove,
		ReviewerID: "stranger-42",
	}))

	s.Equal(string(audit.EventDecisionUnauthorized), audited.Action)
	s.Equal(participantID, audited.ParticipantID)
	s.Equal("reaction", audited.Detail["via"])
}

func (s *CommandSuite) TestReactionRaceLoserIsSilent() {
	s.bindEntry("msg-1")
	s.workflow.EXPECT().
		OnReviewerDecision(gomock.Any(), "guild-1", participantID, "rev-1", approval.DecisionReject, "").
		Return(approval.PendingApproval{}, dErrors.New(dErrors.CodeConflict, "approval already resolved"))

	s.Require().NoError(s.dispatcher.OnReaction(context.Background(), gateway.ReactionAdded{
		MessageID:  "msg-1",
		Emoji:      approval.EmojiReject,
		ReviewerID: "rev-1",
	}))
}
