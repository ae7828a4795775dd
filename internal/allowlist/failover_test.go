package allowlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/platform/circuit"
)

// flakyStore wraps an InMemoryStore and fails on demand.
type flakyStore struct {
	*InMemoryStore
	failing bool
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) Add(ctx context.Context, communityID, participantID string) error {
	if f.failing {
		return errStoreDown
	}
	return f.InMemoryStore.Add(ctx, communityID, participantID)
}

func (f *flakyStore) Contains(ctx context.Context, communityID, participantID string) (bool, error) {
	if f.failing {
		return false, errStoreDown
	}
	return f.InMemoryStore.Contains(ctx, communityID, participantID)
}

func (f *flakyStore) Remove(ctx context.Context, communityID, participantID string) error {
	if f.failing {
		return errStoreDown
	}
	return f.InMemoryStore.Remove(ctx, communityID, participantID)
}

func (f *flakyStore) List(ctx context.Context, communityID string) ([]string, error) {
	if f.failing {
		return nil, errStoreDown
	}
	return f.InMemoryStore.List(ctx, communityID)
}

func (f *flakyStore) Count(ctx context.Context, communityID string) (int, error) {
	if f.failing {
		return 0, errStoreDown
	}
	return f.InMemoryStore.Count(ctx, communityID)
}

func TestFailoverStore_HealthyPrimary(t *testing.T) {
	primary := &flakyStore{InMemoryStore: NewInMemory()}
	fallback := NewInMemory()
	store := NewFailover(primary, fallback, nil, nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c1", "p1"))

	ok, err := store.Contains(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Writes land in both halves
	primaryHas, _ := primary.InMemoryStore.Contains(ctx, "c1", "p1")
	fallbackHas, _ := fallback.Contains(ctx, "c1", "p1")
	assert.True(t, primaryHas)
	assert.True(t, fallbackHas)
}

func TestFailoverStore_ServesFallbackWhilePrimaryDown(t *testing.T) {
	primary := &flakyStore{InMemoryStore: NewInMemory()}
	fallback := NewInMemory()
	breaker := circuit.New("allowlist", circuit.WithFailureThreshold(2))
	store := NewFailover(primary, fallback, breaker, nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c1", "p1"))

	primary.failing = true

	// Each read records a failure and falls back; the answer stays right.
	for i := 0; i < 3; i++ {
		ok, err := store.Contains(ctx, "c1", "p1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.True(t, breaker.IsOpen(), "breaker opens after threshold failures")

	// Writes during the outage still succeed via the fallback.
	require.NoError(t, store.Add(ctx, "c1", "p2"))
	ok, err := store.Contains(ctx, "c1", "p2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailoverStore_RecoversWhenPrimaryReturns(t *testing.T) {
	primary := &flakyStore{InMemoryStore: NewInMemory()}
	fallback := NewInMemory()
	breaker := circuit.New("allowlist",
		circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	store := NewFailover(primary, fallback, breaker, nil)
	ctx := context.Background()

	primary.failing = true
	_, err := store.Contains(ctx, "c1", "p1")
	require.NoError(t, err)
	require.True(t, breaker.IsOpen())

	primary.failing = false

	// Writes keep probing the primary while the breaker is open.
	require.NoError(t, store.Add(ctx, "c1", "p1"))
	require.NoError(t, store.Add(ctx, "c1", "p2"))
	assert.False(t, breaker.IsOpen(), "successful probes close the breaker")

	ok, err := store.Contains(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailoverStore_ReadsUnionAfterFailoverWindow(t *testing.T) {
	primary := &flakyStore{InMemoryStore: NewInMemory()}
	fallback := NewInMemory()
	store := NewFailover(primary, fallback, nil, nil)
	ctx := context.Background()

	// An approval recorded while the primary was down exists only in the
	// fallback.
	require.NoError(t, fallback.Add(ctx, "c1", "p1"))

	ok, err := store.Contains(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.True(t, ok, "fallback-only approvals still count")
}
