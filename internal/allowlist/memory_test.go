package allowlist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	t.Run("contains for unknown participant is false", func(t *testing.T) {
		ok, err := store.Contains(ctx, "c1", "p1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("add then contains round-trips", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, "c1", "p1"))

		ok, err := store.Contains(ctx, "c1", "p1")
		require.NoError(t, err)
		assert.True(t, ok)

		other, err := store.Contains(ctx, "c2", "p1")
		require.NoError(t, err)
		assert.False(t, other, "approvals are scoped per community")
	})

	t.Run("remove withdraws the approval", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, "c1", "p2"))
		require.NoError(t, store.Remove(ctx, "c1", "p2"))

		ok, err := store.Contains(ctx, "c1", "p2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("list returns sorted members", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, "c3", "p2"))
		require.NoError(t, store.Add(ctx, "c3", "p1"))

		members, err := store.List(ctx, "c3")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2"}, members)
	})

	t.Run("count tracks community membership", func(t *testing.T) {
		count, err := store.Count(ctx, "c3")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = store.Count(ctx, "unknown")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			assert.NoError(t, store.Add(ctx, "c1", id))
			_, err := store.Contains(ctx, "c1", id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	members, err := store.List(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, members, 26)
}
