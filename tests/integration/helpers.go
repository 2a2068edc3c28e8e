package integration

import (
	"time"

	"github.com/google/uuid"

	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/models"
)

const (
	containerStartupTimeout = 60
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestEvent(id string, category models.Category) models.Event {
	return models.Event{
		ID:           id,
		Category:     category,
		Origin:       models.Origin{Name: "backend", URL: "https://git.example.com/org/backend"},
		SubjectTitle: "Flaky deploy pipeline",
		SubjectKind:  "Issue",
		UpdatedAt:    time.Now(),
		Link:         "https://git.example.com/org/backend/issues/42",
	}
}

func testLedgerConfig(backend string) config.LedgerConfig {
	return config.LedgerConfig{
		Backend:     backend,
		RecentLimit: 100,
	}
}

func testCircuitBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      5 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

func createTestRecord(eventID string, notified bool) *models.ProcessedRecord {
	return &models.ProcessedRecord{
		ID:            uuid.New().String(),
		EventID:       eventID,
		Notified:      notified,
		VerdictReason: "direct mention",
		SourceName:    "backend",
		Category:      models.CategoryMention,
		SubjectTitle:  "Flaky deploy pipeline",
		RecordedAt:    time.Now(),
	}
}
