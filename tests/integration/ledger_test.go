package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/ledger"
	"lookout/pkg/errors"
	"lookout/pkg/models"
)

func TestPostgresLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, true, false, false)
	runLedgerSuite(t, ledger.NewPostgresLedger(infra.PostgresDB))
}

func TestRedisLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, false, false, true)
	runLedgerSuite(t, ledger.NewRedisLedger(infra.RedisClient))
}

func TestMongoLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, false, true, false)
	runLedgerSuite(t, ledger.NewMongoLedger(infra.MongoDB))
}

// runLedgerSuite exercises the behavior every backend must share: insert-only
// appends, conflict on duplicate event ids and exists checks that only see
// durable records.
func runLedgerSuite(t *testing.T, led ledger.Ledger) {
	ctx := context.Background()

	t.Run("exists returns false for unknown event", func(t *testing.T) {
		exists, err := led.Exists(ctx, "ledger-unknown")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("append then exists", func(t *testing.T) {
		rec := createTestRecord("ledger-evt-1", true)
		require.NoError(t, led.Append(ctx, rec))

		exists, err := led.Exists(ctx, "ledger-evt-1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate append conflicts", func(t *testing.T) {
		rec := createTestRecord("ledger-evt-2", false)
		require.NoError(t, led.Append(ctx, rec))

		dup := createTestRecord("ledger-evt-2", true)
		err := led.Append(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))

		// The original record is untouched.
		exists, err := led.Exists(ctx, "ledger-evt-2")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("recent records are newest first", func(t *testing.T) {
		require.NoError(t, led.Append(ctx, createTestRecord("ledger-evt-3", false)))
		require.NoError(t, led.Append(ctx, createTestRecord("ledger-evt-4", true)))

		records, err := led.RecentRecords(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, records)

		for i := 1; i < len(records); i++ {
			assert.False(t, records[i-1].RecordedAt.Before(records[i].RecordedAt),
				"records must be ordered newest first")
		}
	})

	t.Run("stats count notified records", func(t *testing.T) {
		stats, err := led.Stats(ctx)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, stats.TotalRecords, int64(4))
		assert.GreaterOrEqual(t, stats.NotifiedRecords, int64(2))
		assert.LessOrEqual(t, stats.NotifiedRecords, stats.TotalRecords)
	})
}

func TestCircuitBreakerLedgerPassThrough(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, true, false, false)

	led, err := ledger.New(
		testLedgerConfig("postgres"),
		testCircuitBreakerConfig(),
		ledger.Backends{Postgres: infra.PostgresDB},
	)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, led.Append(ctx, createTestRecord("cb-evt-1", true)))

	// Conflicts pass through the breaker without tripping it.
	for i := 0; i < 10; i++ {
		err := led.Append(ctx, createTestRecord("cb-evt-1", true))
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	}

	exists, err := led.Exists(ctx, "cb-evt-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestModelsValidation(t *testing.T) {
	ev := createTestEvent("validate-evt-1", models.CategoryMention)
	require.NoError(t, models.ValidateEvent(&ev))

	ev.ID = ""
	require.Error(t, models.ValidateEvent(&ev))
}
