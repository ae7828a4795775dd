//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/audit/store/postgres"
	txcontext "warden/pkg/platform/tx"
	"warden/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	now      time.Time
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.store = postgres.New(s.postgres.DB, postgres.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newEvent(action audit.AuditEvent, communityID, participantID string, at time.Time) audit.Event {
	return audit.Event{
		ID:              uuid.NewString(),
		Timestamp:       at,
		Action:          string(action),
		CommunityID:     communityID,
		CommunityName:   "Test Community",
		ParticipantID:   participantID,
		ParticipantName: "helper-bot",
	}
}

func (s *PostgresStoreSuite) TestAppendAndListByParticipant() {
	ctx := context.Background()

	first := s.newEvent(audit.EventParticipantDetected, "c1", "p1", s.now.Add(-2*time.Minute))
	first.InviterID = "300000000000000001"
	first.InviterName = "inviter"
	s.Require().NoError(s.store.Append(ctx, first))

	second := s.newEvent(audit.EventParticipantApproved, "c1", "p1", s.now.Add(-time.Minute))
	second.ActorID = "400000000000000001"
	second.ActorName = "reviewer"
	second.Reason = "looks legitimate"
	second.Detail = map[string]string{"source": "reaction"}
	s.Require().NoError(s.store.Append(ctx, second))

	s.Require().NoError(s.store.Append(ctx,
		s.newEvent(audit.EventParticipantDetected, "c1", "p2", s.now)))

	events, err := s.store.ListByParticipant(ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(string(audit.EventParticipantApproved), events[0].Action, "newest first")
	s.Equal("400000000000000001", events[0].ActorID)
	s.Equal("reviewer", events[0].ActorName)
	s.Equal("looks legitimate", events[0].Reason)
	s.Equal(map[string]string{"source": "reaction"}, events[0].Detail)
	s.Equal(string(audit.CategoryCompliance), string(events[0].Category), "category derived from action")

	s.Equal(string(audit.EventParticipantDetected), events[1].Action)
	s.Equal("300000000000000001", events[1].InviterID)
	s.Empty(events[1].ActorID)
	s.Nil(events[1].Detail)
}

func (s *PostgresStoreSuite) TestListRecentHonorsLimitAndCommunity() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := s.newEvent(audit.EventParticipantDetected, "c1", "p1", s.now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Append(ctx, event))
	}
	s.Require().NoError(s.store.Append(ctx,
		s.newEvent(audit.EventParticipantDetected, "c2", "p2", s.now)))

	events, err := s.store.ListRecent(ctx, "c1", 3)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.True(events[0].Timestamp.After(events[1].Timestamp), "newest first")

	all, err := s.store.ListRecent(ctx, "c1", 50)
	s.Require().NoError(err)
	s.Len(all, 5)
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantDetected, "c1", "p1", s.now.Add(-48*time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantRejected, "c1", "p1", s.now.Add(-48*time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantDetected, "c1", "p2", s.now.Add(-time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantApproved, "c1", "p2", s.now.Add(-time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantTimedOut, "c1", "p3", s.now.Add(-time.Minute))))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantApproved, "c2", "p4", s.now)))

	stats, err := s.store.Stats(ctx, "c1")
	s.Require().NoError(err)

	s.Equal(5, stats.TotalActions)
	s.Equal(2, stats.Detected)
	s.Equal(1, stats.Approved)
	s.Equal(1, stats.Rejected)
	s.Equal(1, stats.TimedOut)

	s.Equal(3, stats.Recent24h.Total, "events older than the window are excluded")
	s.Equal(1, stats.Recent24h.Approved)
	s.Equal(0, stats.Recent24h.Rejected)
	s.Equal(1, stats.Recent24h.TimedOut)
}

func (s *PostgresStoreSuite) TestAppendIsIdempotentPerID() {
	ctx := context.Background()

	event := s.newEvent(audit.EventParticipantDetected, "c1", "p1", s.now)
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByParticipant(ctx, "p1")
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestAppendStampsMissingFields() {
	ctx := context.Background()

	event := audit.Event{
		Action:        string(audit.EventParticipantDetected),
		CommunityID:   "c1",
		ParticipantID: "p1",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByParticipant(ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.NotEmpty(events[0].ID, "missing ID gets generated")
	s.True(events[0].Timestamp.Equal(s.now), "zero timestamp stamped from the clock")
}

func (s *PostgresStoreSuite) TestAppendHonorsAmbientTransaction() {
	ctx := context.Background()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txCtx := txcontext.WithTx(ctx, tx)
	s.Require().NoError(s.store.Append(txCtx, s.newEvent(audit.EventParticipantDetected, "c1", "p1", s.now)))
	s.Require().NoError(tx.Rollback())

	events, err := s.store.ListByParticipant(ctx, "p1")
	s.Require().NoError(err)
	s.Empty(events, "rolled back append leaves no row")
}

func (s *PostgresStoreSuite) TestPurgeKeepsComplianceTrail() {
	ctx := context.Background()

	old := s.now.Add(-30 * 24 * time.Hour)
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventReviewersNotified, "c1", "p1", old)))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventDecisionUnauthorized, "c1", "p1", old)))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventParticipantApproved, "c1", "p1", old)))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(audit.EventReviewersNotified, "c1", "p2", s.now.Add(-time.Hour))))

	deleted, err := s.store.Purge(ctx, s.now.Add(-7*24*time.Hour),
		[]audit.EventCategory{audit.CategoryOperations, audit.CategorySecurity})
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	events, err := s.store.ListByParticipant(ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventParticipantApproved), events[0].Action, "compliance trail survives")
}

func (s *PostgresStoreSuite) TestConcurrentAppends() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := s.newEvent(audit.EventParticipantDetected, "c1", uuid.NewString(), s.now)
			if err := s.store.Append(ctx, event); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())

	events, err := s.store.ListRecent(ctx, "c1", goroutines+1)
	s.Require().NoError(err)
	s.Len(events, goroutines)
}
