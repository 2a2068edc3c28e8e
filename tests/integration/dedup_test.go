package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/dedup"
	"lookout/internal/ledger"
)

func TestDedupServiceAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, true, false, false)
	led := ledger.NewPostgresLedger(infra.PostgresDB)
	svc := dedup.NewService(dedup.NewSeenCache(100, 90), led, createTestLogger())

	ctx := context.Background()

	t.Run("novel event", func(t *testing.T) {
		decision, err := svc.Check(ctx, "dedup-evt-1")
		require.NoError(t, err)
		assert.False(t, decision.Duplicate)
		assert.False(t, decision.Degraded)
	})

	t.Run("duplicate via cache after remember", func(t *testing.T) {
		require.NoError(t, led.Append(ctx, createTestRecord("dedup-evt-2", true)))
		svc.Remember("dedup-evt-2")

		decision, err := svc.Check(ctx, "dedup-evt-2")
		require.NoError(t, err)
		assert.True(t, decision.Duplicate)
		assert.Equal(t, "cache", decision.Via)
	})

	t.Run("duplicate via ledger survives cold cache", func(t *testing.T) {
		require.NoError(t, led.Append(ctx, createTestRecord("dedup-evt-3", false)))

		// A fresh service simulates a restart: the cache is empty but the
		// ledger still answers.
		fresh := dedup.NewService(dedup.NewSeenCache(100, 90), led, createTestLogger())

		decision, err := fresh.Check(ctx, "dedup-evt-3")
		require.NoError(t, err)
		assert.True(t, decision.Duplicate)
		assert.Equal(t, "ledger", decision.Via)

		// The hit is backfilled, so the second check never leaves the cache.
		decision, err = fresh.Check(ctx, "dedup-evt-3")
		require.NoError(t, err)
		assert.True(t, decision.Duplicate)
		assert.Equal(t, "cache", decision.Via)
	})
}
