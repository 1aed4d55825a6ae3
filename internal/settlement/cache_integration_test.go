//go:build integration

package settlement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repute/internal/settlement"
	"repute/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	cache := settlement.NewRedisCache(rc.Client)
	ctx := context.Background()

	t.Run("unknown reference is not finalized", func(t *testing.T) {
		finalized, err := cache.IsFinalized(ctx, "tx-unknown")
		require.NoError(t, err)
		assert.False(t, finalized)
	})

	t.Run("marked reference reads back finalized", func(t *testing.T) {
		require.NoError(t, cache.MarkFinalized(ctx, "tx1"))

		finalized, err := cache.IsFinalized(ctx, "tx1")
		require.NoError(t, err)
		assert.True(t, finalized)
	})

	t.Run("references do not bleed into each other", func(t *testing.T) {
		require.NoError(t, cache.MarkFinalized(ctx, "tx2"))

		finalized, err := cache.IsFinalized(ctx, "tx3")
		require.NoError(t, err)
		assert.False(t, finalized)
	})
}
