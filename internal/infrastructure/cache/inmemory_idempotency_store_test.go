package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		fresh, err := store.MarkProcessed(ctx, "budget-notify:PURCHASE_ORDER:2026-03-10", time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)

		again, err := store.MarkProcessed(ctx, "budget-notify:PURCHASE_ORDER:2026-03-10", time.Hour)
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(ctx, "key", time.Millisecond)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		fresh, err := store.MarkProcessed(ctx, "key", time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("is processed reflects expiry", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(ctx, "key", time.Millisecond)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "key")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
