//go:build integration

package allowlist_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"warden/internal/allowlist"
	"warden/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *allowlist.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = allowlist.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAddContainsRemove() {
	ctx := context.Background()

	ok, err := s.store.Contains(ctx, "100000000000000001", "200000000000000001")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Add(ctx, "100000000000000001", "200000000000000001"))

	ok, err = s.store.Contains(ctx, "100000000000000001", "200000000000000001")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Contains(ctx, "100000000000000002", "200000000000000001")
	s.Require().NoError(err)
	s.False(ok, "approvals are scoped per community")

	s.Require().NoError(s.store.Remove(ctx, "100000000000000001", "200000000000000001"))

	ok, err = s.store.Contains(ctx, "100000000000000001", "200000000000000001")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestAddIsIdempotent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "100000000000000001", "200000000000000001"))
	s.Require().NoError(s.store.Add(ctx, "100000000000000001", "200000000000000001"))

	members, err := s.store.List(ctx, "100000000000000001")
	s.Require().NoError(err)
	s.Len(members, 1)
}

func (s *RedisStoreSuite) TestList() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "100000000000000001", "200000000000000001"))
	s.Require().NoError(s.store.Add(ctx, "100000000000000001", "200000000000000002"))
	s.Require().NoError(s.store.Add(ctx, "100000000000000002", "200000000000000003"))

	members, err := s.store.List(ctx, "100000000000000001")
	s.Require().NoError(err)
	s.ElementsMatch(members, []string{"200000000000000001", "200000000000000002"})

	count, err := s.store.Count(ctx, "100000000000000001")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.store.Count(ctx, "100000000000000003")
	s.Require().NoError(err)
	s.Zero(count)
}
