package notifier

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
	"warden/internal/approval/ports/mocks"
	"warden/internal/gateway"
	"warden/internal/gateway/memory"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
)

var errPlatformDown = errors.New("platform unavailable")

func pendingEntry() approval.PendingApproval {
	return approval.PendingApproval{
		CommunityID:     "guild-1",
		CommunityName:   "Gopher Hangout",
		ParticipantID:   "200000000000000001",
		ParticipantName: "helper-bot",
		InviterID:       "100000000000000001",
		InviterName:     "alice",
		AccountAgeDays:  3,
		DetectedAt:      time.Now(),
		Timeout:         10 * time.Second,
		State:           approval.StatePending,
	}
}

type NotifierSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	gw        *memory.Gateway
	publisher *mocks.MockAuditPublisher
	notifier  *Notifier
}

func TestNotifierSuite(t *testing.T) {
	suite.Run(t, new(NotifierSuite))
}

func (s *NotifierSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gw = memory.New()
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.notifier, _ = New(s.gw, s.gw,
		WithLogger(logger),
		WithAuditPublisher(s.publisher),
		WithAnnounceChannel("mod-log"),
		WithFanoutLimit(2),
	)
}

func (s *NotifierSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *NotifierSuite) TestNew() {
	s.Run("nil messenger returns error", func() {
		_, err := New(nil, s.gw)
		s.Error(err)
		s.Contains(err.Error(), "messenger is required")
	})

	s.Run("nil directory returns error", func() {
		_, err := New(s.gw, nil)
		s.Error(err)
		s.Contains(err.Error(), "directory is required")
	})

	s.Run("valid dependencies return configured notifier", func() {
		n, err := New(s.gw, s.gw)
		s.NoError(err)
		s.NotNil(n)
	})
}

func (s *NotifierSuite) TestNotifyJoinDeliversToAllReviewers() {
	reviewers := []gateway.Reviewer{
		{ID: "rev-1", Name: "alice"},
		{ID: "rev-2", Name: "bob"},
		{ID: "rev-3", Name: "carol"},
	}

	delivered, err := s.notifier.NotifyJoin(context.Background(), pendingEntry(), reviewers)

	s.Require().NoError(err)
	s.Len(delivered, 3)

	seen := map[string]bool{}
	for _, d := range delivered {
		seen[d.ReviewerID] = true
		s.NotEmpty(d.MessageID)
	}
	s.True(seen["rev-1"] && seen["rev-2"] && seen["rev-3"])

	dms := s.gw.DirectMessages("rev-1")
	s.Require().Len(dms, 1)
	s.Contains(dms[0].Body, "helper-bot")
	s.Contains(dms[0].Body, "200000000000000001")
	s.Contains(dms[0].Body, "Invited by: alice")
	s.Contains(dms[0].Body, "Account age: 3 days")
	s.Contains(dms[0].Body, approval.EmojiApprove)
	s.Contains(dms[0].Body, approval.EmojiReject)
	s.Contains(dms[0].Body, "!approval approve 200000000000000001")
	s.Contains(dms[0].Body, "10s")
}

func (s *NotifierSuite) TestNotifyJoinWithNoReviewersIsANoOp() {
	delivered, err := s.notifier.NotifyJoin(context.Background(), pendingEntry(), nil)

	s.NoError(err)
	s.Empty(delivered)
	s.Empty(s.gw.DirectMessages(""))
}

func (s *NotifierSuite) TestNotifyJoinSurvivesPartialFailure() {
	s.gw.FailDirectMessages("rev-2", errPlatformDown)
	reviewers := []gateway.Reviewer{
		{ID: "rev-1", Name: "alice"},
		{ID: "rev-2", Name: "bob"},
		{ID: "rev-3", Name: "carol"},
	}

	delivered, err := s.notifier.NotifyJoin(context.Background(), pendingEntry(), reviewers)

	s.Require().NoError(err)
	s.Len(delivered, 2)
	for _, d := range delivered {
		s.NotEqual("rev-2", d.ReviewerID)
	}
}

func (s *NotifierSuite) TestNotifyJoinFailsWhenNobodyReachable() {
	s.gw.FailDirectMessages("rev-1", errPlatformDown)
	s.gw.FailDirectMessages("rev-2", errPlatformDown)

	var captured audit.Event
	s.publisher.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			captured = event
			return nil
		})

	delivered, err := s.notifier.NotifyJoin(context.Background(), pendingEntry(), []gateway.Reviewer{
		{ID: "rev-1"}, {ID: "rev-2"},
	})

	s.Empty(delivered)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(string(audit.EventNotificationFailed), captured.Action)
	s.Equal("guild-1", captured.CommunityID)
}

func (s *NotifierSuite) TestAnnounceOutcomeApproved() {
	entry := pendingEntry()
	entry.State = approval.StateApproved
	entry.ReviewerID = "rev-1"

	s.Require().NoError(s.notifier.AnnounceOutcome(context.Background(), entry))

	msgs := s.gw.ChannelMessages()
	s.Require().Len(msgs, 1)
	s.Equal("mod-log", msgs[0].RecipientID)
	s.Equal("guild-1", msgs[0].CommunityID)
	s.Contains(msgs[0].Body, "approved")
	s.Contains(msgs[0].Body, "rev-1")
}

func (s *NotifierSuite) TestAnnounceOutcomeRejectedIncludesReason() {
	entry := pendingEntry()
	entry.State = approval.StateRejected
	entry.ReviewerID = "rev-2"
	entry.Reason = "unsolicited spam bot"

	s.Require().NoError(s.notifier.AnnounceOutcome(context.Background(), entry))

	msgs := s.gw.ChannelMessages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0].Body, "rejected")
	s.Contains(msgs[0].Body, "unsolicited spam bot")
}

func (s *NotifierSuite) TestAnnounceOutcomeTimedOutNamesTheWindow() {
	entry := pendingEntry()
	entry.State = approval.StateTimedOut
	entry.ReviewerID = approval.SystemReviewerID
	entry.Timeout = 2 * time.Minute

	s.Require().NoError(s.notifier.AnnounceOutcome(context.Background(), entry))

	msgs := s.gw.ChannelMessages()
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0].Body, "2m")
}

func (s *NotifierSuite) TestAnnounceOutcomeSkippedWithoutChannel() {
	n, err := New(s.gw, s.gw)
	s.Require().NoError(err)

	entry := pendingEntry()
	entry.State = approval.StateApproved

	s.NoError(n.AnnounceOutcome(context.Background(), entry))
	s.Empty(s.gw.ChannelMessages())
}

func (s *NotifierSuite) TestAnnounceOutcomeFailureIsAuditedAndReturned() {
	s.gw.FailChannelMessages(errPlatformDown)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	entry := pendingEntry()
	entry.State = approval.StateApproved
	entry.ReviewerID = "rev-1"

	err := s.notifier.AnnounceOutcome(context.Background(), entry)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *NotifierSuite) TestNotifyRemovalFailureAlertsReviewers() {
	s.gw.SetReviewers("guild-1",
		gateway.Reviewer{ID: "rev-1", Name: "alice"},
		gateway.Reviewer{ID: "rev-2", Name: "bob"},
	)

	err := s.notifier.NotifyRemovalFailure(context.Background(), pendingEntry(), errPlatformDown)

	s.Require().NoError(err)
	s.Len(s.gw.DirectMessages(""), 2)

	dms := s.gw.DirectMessages("rev-2")
	s.Require().Len(dms, 1)
	s.Contains(dms[0].Body, "Manual removal is required")
	s.Contains(dms[0].Body, "helper-bot")
	s.Contains(dms[0].Body, "platform unavailable")
}

func (s *NotifierSuite) TestNotifyRemovalFailureWithNoReviewersIsANoOp() {
	err := s.notifier.NotifyRemovalFailure(context.Background(), pendingEntry(), errPlatformDown)

	s.NoError(err)
	s.Empty(s.gw.DirectMessages(""))
}
