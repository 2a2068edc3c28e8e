package dedup

import (
	"context"
	"time"

	"lookout/internal/ledger"
	"lookout/internal/logger"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/tracing"
)

// Decision is the outcome of a dedup check. Via names the layer that decided
// ("cache" or "ledger"). Degraded marks a novel verdict produced while the
// ledger was unreachable; such verdicts may cause a duplicate alert and the
// caller must log them.
type Decision struct {
	Duplicate bool
	Degraded  bool
	Via       string
}

// Service answers "have we processed this event before". The seen cache
// short-circuits known ids; the ledger is the authority for misses. When the
// ledger is unavailable the event is treated as novel rather than dropped:
// a duplicate alert is the cheaper failure next to a silently lost one.
type Service struct {
	cache  *SeenCache
	ledger ledger.Ledger
	logger logger.Logger
}

func NewService(cache *SeenCache, led ledger.Ledger, log logger.Logger) *Service {
	return &Service{
		cache:  cache,
		ledger: led,
		logger: log,
	}
}

func (s *Service) Check(ctx context.Context, eventID string) (Decision, error) {
	ctx, span := tracing.GetTracer("lookout-dedup").Start(ctx, "dedup.check")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	start := time.Now()

	if s.cache.Contains(eventID) {
		s.recordMetrics(time.Since(start), "duplicate", "cache")
		return Decision{Duplicate: true, Via: "cache"}, nil
	}

	exists, err := s.ledger.Exists(ctx, eventID)
	if err != nil {
		if pkgerrors.IsStoreUnavailable(err) {
			s.recordMetrics(time.Since(start), "degraded", "ledger")
			metrics.FallbackUsageTotal.WithLabelValues("dedup", "novel_on_store_error", "store_unavailable").Inc()
			s.logger.WarnwCtx(ctx, "Ledger unavailable during dedup check, treating event as novel",
				"event_id", eventID,
				"error", err,
			)
			return Decision{Duplicate: false, Degraded: true, Via: "ledger"}, nil
		}
		s.recordMetrics(time.Since(start), "error", "ledger")
		return Decision{}, err
	}

	if exists {
		// Backfill so the next occurrence is answered without a store trip.
		s.cache.Add(eventID)
		s.recordMetrics(time.Since(start), "duplicate", "ledger")
		return Decision{Duplicate: true, Via: "ledger"}, nil
	}

	s.recordMetrics(time.Since(start), "novel", "ledger")
	return Decision{Duplicate: false, Via: "ledger"}, nil
}

// Remember marks an event id as seen. Called after its record is durably in
// the ledger, never before.
func (s *Service) Remember(eventID string) {
	s.cache.Add(eventID)
}

func (s *Service) CacheSize() int {
	return s.cache.Len()
}

func (s *Service) recordMetrics(duration time.Duration, result, via string) {
	metrics.DedupChecksTotal.WithLabelValues(result, via).Inc()
	metrics.ObserveDedupCheckDuration(duration, result)
}
