package allowlist

import (
	"context"
	"log/slog"

	"warden/pkg/platform/circuit"
)

// FailoverStore pairs a durable primary (Redis) with an in-memory
// fallback. Writes go to both, so the fallback stays warm; when the
// breaker opens, reads are served from the fallback until the primary
// proves itself again. Writes keep probing the primary even while open,
// which is what eventually closes the breaker.
type FailoverStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFailover wires a primary and fallback behind a breaker. A nil
// breaker gets the defaults (5 failures to open, 2 successes to close).
func NewFailover(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FailoverStore {
	if breaker == nil {
		breaker = circuit.New("allowlist")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *FailoverStore) Add(ctx context.Context, communityID, participantID string) error {
	if err := s.fallback.Add(ctx, communityID, participantID); err != nil {
		return err
	}
	if err := s.primary.Add(ctx, communityID, participantID); err != nil {
		s.recordFailure(ctx, err)
		return nil
	}
	s.recordSuccess(ctx)
	return nil
}

func (s *FailoverStore) Remove(ctx context.Context, communityID, participantID string) error {
	if err := s.fallback.Remove(ctx, communityID, participantID); err != nil {
		return err
	}
	if err := s.primary.Remove(ctx, communityID, participantID); err != nil {
		s.recordFailure(ctx, err)
		return nil
	}
	s.recordSuccess(ctx)
	return nil
}

func (s *FailoverStore) Contains(ctx context.Context, communityID, participantID string) (bool, error) {
	if s.breaker.IsOpen() {
		return s.fallback.Contains(ctx, communityID, participantID)
	}
	ok, err := s.primary.Contains(ctx, communityID, participantID)
	if err != nil {
		s.recordFailure(ctx, err)
		return s.fallback.Contains(ctx, communityID, participantID)
	}
	s.recordSuccess(ctx)
	if ok {
		return true, nil
	}
	// The primary can trail the fallback right after a failover window.
	return s.fallback.Contains(ctx, communityID, participantID)
}

func (s *FailoverStore) List(ctx context.Context, communityID string) ([]string, error) {
	if s.breaker.IsOpen() {
		return s.fallback.List(ctx, communityID)
	}
	members, err := s.primary.List(ctx, communityID)
	if err != nil {
		s.recordFailure(ctx, err)
		return s.fallback.List(ctx, communityID)
	}
	s.recordSuccess(ctx)
	return members, nil
}

func (s *FailoverStore) recordFailure(ctx context.Context, err error) {
	_, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "allowlist primary unavailable, serving from memory",
			"breaker", s.breaker.Name(), "error", err)
		return
	}
	s.logger.DebugContext(ctx, "allowlist primary error", "error", err)
}

func (s *FailoverStore) recordSuccess(ctx context.Context) {
	_, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "allowlist primary recovered",
			"breaker", s.breaker.Name())
	}
}

func (s *FailoverStore) Count(ctx context.Context, communityID string) (int, error) {
	if s.breaker.IsOpen() {
		return s.fallback.Count(ctx, communityID)
	}
	count, err := s.primary.Count(ctx, communityID)
	if err != nil {
		s.recordFailure(ctx, err)
		return s.fallback.Count(ctx, communityID)
	}
	s.recordSuccess(ctx)
	return count, nil
}
