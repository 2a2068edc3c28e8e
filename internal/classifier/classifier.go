package classifier

import (
	"context"

	"lookout/pkg/models"
)

// Classifier decides whether an event is worth alerting on. Implementations
// return a classification error on failure; the pipeline substitutes a
// not-important verdict so the event is still ledgered.
type Classifier interface {
	Classify(ctx context.Context, ev models.Event) (models.Verdict, error)
}

// FallbackVerdict is the substitute verdict recorded when classification
// fails. Never important: a missed alert for one event beats alerting on
// garbage.
func FallbackVerdict() models.Verdict {
	return models.Verdict{
		Important: false,
		Reason:    "classification failed",
	}
}
