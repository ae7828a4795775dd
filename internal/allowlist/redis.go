package allowlist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix; one set per community.
const allowlistKeyPrefix = "warden:allowlist:"

// RedisStore is the durable allowlist for distributed deployments: every
// instance guarding a community sees the same approvals, and they survive
// restarts.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed allowlist over an externally managed
// client.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func allowlistKey(communityID string) string {
	return allowlistKeyPrefix + communityID
}

func (s *RedisStore) Add(ctx context.Context, communityID, participantID string) error {
	if err := s.client.SAdd(ctx, allowlistKey(communityID), participantID).Err(); err != nil {
		return fmt.Errorf("allowlist add: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, communityID, participantID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, allowlistKey(communityID), participantID).Result()
	if err != nil {
		return false, fmt.Errorf("allowlist check: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Remove(ctx context.Context, communityID, participantID string) error {
	if err := s.client.SRem(ctx, allowlistKey(communityID), participantID).Err(); err != nil {
		return fmt.Errorf("allowlist remove: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, communityID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, allowlistKey(communityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("allowlist list: %w", err)
	}
	return members, nil
}

func (s *RedisStore) Count(ctx context.Context, communityID string) (int, error) {
	n, err := s.client.SCard(ctx, allowlistKey(communityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("allowlist count: %w", err)
	}
	return int(n), nil
}
