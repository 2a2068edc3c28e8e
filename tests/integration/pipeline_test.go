package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/classifier"
	"lookout/internal/config"
	"lookout/internal/dedup"
	"lookout/internal/ledger"
	"lookout/internal/notifier"
	"lookout/internal/pipeline"
	"lookout/pkg/models"
)

// TestPipelineEndToEnd walks real events through the full path: eligibility,
// dedup against a real postgres ledger, CEL classification and webhook
// dispatch.
func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, true, false, false)
	log := createTestLogger()

	var mu sync.Mutex
	var delivered []models.Alert
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert models.Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		mu.Lock()
		delivered = append(delivered, alert)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	led, err := ledger.New(
		testLedgerConfig("postgres"),
		testCircuitBreakerConfig(),
		ledger.Backends{Postgres: infra.PostgresDB},
	)
	require.NoError(t, err)

	dedupSvc := dedup.NewService(dedup.NewSeenCache(100, 90), led, log)

	filter, err := pipeline.NewFilter(config.FilterConfig{
		Categories: []string{"mention", "review_requested"},
	}, log)
	require.NoError(t, err)

	cls, err := classifier.New(config.ClassifierConfig{
		Type:    "cel",
		Timeout: time.Second,
		CEL: config.ClassifierCELConfig{
			Expression: `category == "mention"`,
		},
	})
	require.NoError(t, err)

	not, err := notifier.New(config.NotifierConfig{
		Type:    "webhook",
		Timeout: 2 * time.Second,
		Webhook: config.WebhookConfig{URL: webhook.URL},
	}, config.BrokerConfig{}, nil)
	require.NoError(t, err)

	orch := pipeline.NewOrchestrator(filter, dedupSvc, cls, led, not, time.Second, log)
	ctx := context.Background()

	t.Run("important event is ledgered and dispatched once", func(t *testing.T) {
		ev := createTestEvent("pipe-evt-1", models.CategoryMention)

		result, err := orch.ProcessEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, pipeline.OutcomeDispatched, result.Outcome)

		// A replay of the same event must not produce a second alert.
		result, err = orch.ProcessEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, pipeline.OutcomeSkipped, result.Outcome)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, delivered, 1)
		assert.Equal(t, "pipe-evt-1", delivered[0].EventID)
	})

	t.Run("unimportant event is ledgered without an alert", func(t *testing.T) {
		ev := createTestEvent("pipe-evt-2", models.CategoryReviewRequested)

		result, err := orch.ProcessEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, pipeline.OutcomeDone, result.Outcome)

		exists, err := led.Exists(ctx, "pipe-evt-2")
		require.NoError(t, err)
		assert.True(t, exists)

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, delivered, 1)
	})

	t.Run("ineligible category never reaches the ledger", func(t *testing.T) {
		ev := createTestEvent("pipe-evt-3", models.CategoryAuthored)

		result, err := orch.ProcessEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, pipeline.OutcomeSkipped, result.Outcome)

		exists, err := led.Exists(ctx, "pipe-evt-3")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
