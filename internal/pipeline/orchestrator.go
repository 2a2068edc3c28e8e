package pipeline

import (
	"context"
	"time"

	"lookout/internal/classifier"
	"lookout/internal/dedup"
	pkgledger "lookout/internal/ledger"
	"lookout/internal/logger"
	"lookout/internal/notifier"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/tracing"
)

// Outcome is the terminal state of one event's pass through the pipeline.
type Outcome string

const (
	// OutcomeSkipped: dropped before ledgering, either filtered out, a known
	// duplicate, or beaten to the ledger by a concurrent append.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDone: ledgered, verdict not important, nothing to deliver.
	OutcomeDone Outcome = "done"
	// OutcomeDispatched: ledgered and alert delivered.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeDeliveryFailed: ledgered but the alert could not be delivered.
	// Terminal; the record stands and the alert is not retried.
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	// OutcomeLedgerWriteFailed: the record could not be written. The only
	// outcome that escalates to the runner.
	OutcomeLedgerWriteFailed Outcome = "ledger_write_failed"
)

// Result carries the outcome plus the flags a caller may want to log.
type Result struct {
	Outcome  Outcome
	Degraded bool
	Verdict  models.Verdict
}

// Orchestrator walks a single event through dedup, classification,
// ledgering and dispatch. The ledger append happens before dispatch: the
// at-most-one-alert guarantee rests on the record being durable first.
type Orchestrator struct {
	filter          *Filter
	dedup           *dedup.Service
	classifier      classifier.Classifier
	ledger          pkgledger.Ledger
	notifier        notifier.Notifier
	classifyTimeout time.Duration
	logger          logger.Logger
}

func NewOrchestrator(
	filter *Filter,
	dedupSvc *dedup.Service,
	cls classifier.Classifier,
	led pkgledger.Ledger,
	not notifier.Notifier,
	classifyTimeout time.Duration,
	log logger.Logger,
) *Orchestrator {
	if classifyTimeout <= 0 {
		classifyTimeout = 5 * time.Second
	}
	return &Orchestrator{
		filter:          filter,
		dedup:           dedupSvc,
		classifier:      cls,
		ledger:          led,
		notifier:        not,
		classifyTimeout: classifyTimeout,
		logger:          log,
	}
}

// ProcessEvent runs one event to a terminal state. It returns an error only
// for the escalated ledger-write failure and for context cancellation;
// every other failure is absorbed into the outcome.
func (o *Orchestrator) ProcessEvent(ctx context.Context, ev models.Event) (Result, error) {
	ctx, span := tracing.GetTracer("lookout-pipeline").Start(ctx, "pipeline.process_event")
	defer span.End()

	start := time.Now()
	result, err := o.process(ctx, ev)
	if err == nil {
		metrics.EventsProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()
		metrics.ObserveEventProcessingDuration(time.Since(start), string(result.Outcome))
	} else {
		metrics.EventsProcessedTotal.WithLabelValues(string(OutcomeLedgerWriteFailed)).Inc()
		metrics.ObserveEventProcessingDuration(time.Since(start), string(OutcomeLedgerWriteFailed))
	}
	return result, err
}

func (o *Orchestrator) process(ctx context.Context, ev models.Event) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if !o.filter.Eligible(ctx, ev) {
		o.logger.DebugwCtx(ctx, "Event filtered out",
			"event_id", ev.ID,
			"category", ev.Category,
		)
		return Result{Outcome: OutcomeSkipped}, nil
	}

	decision, err := o.dedup.Check(ctx, ev.ID)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		// Non-store dedup failures are unexpected; skip rather than risk a
		// duplicate record for an event we could not reason about.
		o.logger.ErrorwCtx(ctx, "Dedup check failed",
			"event_id", ev.ID,
			"error", err,
		)
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if decision.Duplicate {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if decision.Degraded {
		o.logger.WarnwCtx(ctx, "Processing event under degraded dedup, duplicate alert possible",
			"event_id", ev.ID,
		)
	}

	verdict := o.classify(ctx, ev)

	record := &models.ProcessedRecord{
		EventID:       ev.ID,
		Notified:      verdict.Important,
		VerdictReason: verdict.Reason,
		SourceName:    ev.Origin.Name,
		Category:      ev.Category,
		SubjectTitle:  ev.SubjectTitle,
	}

	if err := o.ledger.Append(ctx, record); err != nil {
		if pkgerrors.IsConflict(err) {
			// Someone else recorded this event between our check and append.
			// Their record wins; no alert from this pass.
			o.logger.InfowCtx(ctx, "Ledger append conflicted, event already recorded",
				"event_id", ev.ID,
			)
			o.dedup.Remember(ev.ID)
			return Result{Outcome: OutcomeSkipped, Degraded: decision.Degraded}, nil
		}

		metrics.LedgerWriteFailuresTotal.Inc()
		o.logger.ErrorwCtx(ctx, "Ledger append failed",
			"event_id", ev.ID,
			"error", err,
		)
		return Result{Outcome: OutcomeLedgerWriteFailed, Degraded: decision.Degraded},
			pkgerrors.ErrLedgerWrite.WithCause(err).WithDetail("event_id", ev.ID)
	}

	o.dedup.Remember(ev.ID)

	if !verdict.Important {
		return Result{Outcome: OutcomeDone, Degraded: decision.Degraded, Verdict: verdict}, nil
	}

	alert := models.NewAlert(ev, verdict)
	if err := o.notifier.Notify(ctx, alert); err != nil {
		// The record already says notified; delivery is not retried.
		o.logger.ErrorwCtx(ctx, "Alert delivery failed",
			"event_id", ev.ID,
			"error", err,
		)
		return Result{Outcome: OutcomeDeliveryFailed, Degraded: decision.Degraded, Verdict: verdict}, nil
	}

	return Result{Outcome: OutcomeDispatched, Degraded: decision.Degraded, Verdict: verdict}, nil
}

// classify never fails the pipeline: a classifier error yields the
// substitute not-important verdict and the event is still ledgered.
func (o *Orchestrator) classify(ctx context.Context, ev models.Event) models.Verdict {
	classifyCtx, cancel := context.WithTimeout(ctx, o.classifyTimeout)
	defer cancel()

	verdict, err := o.classifier.Classify(classifyCtx, ev)
	if err != nil {
		o.logger.WarnwCtx(ctx, "Classification failed, using fallback verdict",
			"event_id", ev.ID,
			"error", err,
		)
		return classifier.FallbackVerdict()
	}
	return verdict
}
