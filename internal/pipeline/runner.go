package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lookout/internal/logger"
	"lookout/internal/source"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
)

// Runner drives the pipeline on a fixed tick. Batches never overlap: the
// loop is strictly sequential, and a pass that overruns the interval simply
// delays the next one. Each batch runs under its own timeout so one stuck
// pass cannot wedge the loop forever.
type Runner struct {
	source       source.Source
	orchestrator *Orchestrator
	pollInterval time.Duration
	batchTimeout time.Duration
	logger       logger.Logger
}

func NewRunner(src source.Source, orch *Orchestrator, pollInterval, batchTimeout time.Duration, log logger.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchTimeout <= 0 {
		batchTimeout = pollInterval - pollInterval/10
	}
	return &Runner{
		source:       src,
		orchestrator: orch,
		pollInterval: pollInterval,
		batchTimeout: batchTimeout,
		logger:       log,
	}
}

// Run blocks until ctx is canceled. The first batch starts immediately.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.runBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Pipeline runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runBatch(ctx)
		}
	}
}

func (r *Runner) runBatch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	batchCtx, cancel := context.WithTimeout(ctx, r.batchTimeout)
	defer cancel()

	batchID := uuid.New().String()
	batchCtx = logging.WithBatchID(batchCtx, batchID)

	start := time.Now()
	status := r.processBatch(batchCtx, batchID)
	duration := time.Since(start)

	// The source checkpoint only advances when every fetched event reached a
	// terminal state. An aborted or timed-out batch leaves it untouched so
	// the same events are served again on the next tick.
	if status == "success" || status == "empty" {
		if c, ok := r.source.(source.Checkpointer); ok {
			c.CommitCheckpoint()
		}
	}

	metrics.BatchesTotal.WithLabelValues(status).Inc()
	metrics.ObserveBatchDuration(duration)
}

// processBatch returns the batch status label. A ledger write failure aborts
// the remainder of the batch; unprocessed events will be refetched on the
// next tick and deduped as usual.
func (r *Runner) processBatch(ctx context.Context, batchID string) string {
	events, err := r.source.Fetch(ctx)
	if err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to fetch events",
			"error", err,
		)
		return "fetch_failed"
	}

	if len(events) == 0 {
		return "empty"
	}

	r.logger.InfowCtx(ctx, "Processing batch",
		"events", len(events),
	)

	outcomes := make(map[Outcome]int, 4)
	for _, ev := range events {
		evCtx := logging.WithEventID(ctx, ev.ID)

		result, err := r.orchestrator.ProcessEvent(evCtx, ev)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.WarnwCtx(ctx, "Batch timed out",
					"processed", outcomesTotal(outcomes),
					"total", len(events),
				)
				return "timeout"
			}
			r.logger.ErrorwCtx(evCtx, "Aborting batch after ledger write failure",
				"error", err,
			)
			return "aborted"
		}
		outcomes[result.Outcome]++
	}

	r.logger.InfowCtx(ctx, "Batch complete",
		"events", len(events),
		"skipped", outcomes[OutcomeSkipped],
		"done", outcomes[OutcomeDone],
		"dispatched", outcomes[OutcomeDispatched],
		"delivery_failed", outcomes[OutcomeDeliveryFailed],
	)

	return "success"
}

func outcomesTotal(outcomes map[Outcome]int) int {
	total := 0
	for _, n := range outcomes {
		total += n
	}
	return total
}
