package ledger

import (
	"fmt"

	"context"

	"github.com/sony/gobreaker"

	"lookout/internal/config"
	"lookout/pkg/circuitbreaker"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

// CircuitBreakerLedger guards the backing store with a breaker and records
// per-operation metrics. With the breaker disabled it is a transparent
// instrumented pass-through.
type CircuitBreakerLedger struct {
	next Ledger
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerLedger(next Ledger, cfg config.CircuitBreakerConfig) *CircuitBreakerLedger {
	if !cfg.Enabled {
		return &CircuitBreakerLedger{next: next, cb: nil}
	}

	cbConfig := circuitbreaker.DefaultConfig("ledger")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerLedger{
		next: next,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (l *CircuitBreakerLedger) State() string {
	if l.cb == nil {
		return "disabled"
	}
	return l.cb.State().String()
}

func (l *CircuitBreakerLedger) IsOpen() bool {
	if l.cb == nil {
		return false
	}
	return l.cb.IsOpen()
}

func (l *CircuitBreakerLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	if l.cb == nil {
		found, err := l.next.Exists(ctx, eventID)
		recordOperation("exists", err)
		return found, err
	}

	result, err := l.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return l.next.Exists(ctx, eventID)
	})
	recordOperation("exists", err)
	if err != nil {
		return false, l.wrapError(err, "exists")
	}

	found, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("ledger returned invalid result type")
	}
	return found, nil
}

func (l *CircuitBreakerLedger) Append(ctx context.Context, record *models.ProcessedRecord) error {
	if l.cb == nil {
		err := l.next.Append(ctx, record)
		recordOperation("append", err)
		return err
	}

	// A conflict is a healthy answer from the store, not a failure; it must
	// neither trip the breaker nor be masked by it.
	result, err := l.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		appendErr := l.next.Append(ctx, record)
		if pkgerrors.IsConflict(appendErr) {
			return appendErr, nil
		}
		return nil, appendErr
	})
	if err != nil {
		recordOperation("append", err)
		return l.wrapError(err, "append")
	}
	if conflictErr, ok := result.(error); ok && conflictErr != nil {
		recordOperation("append", conflictErr)
		return conflictErr
	}
	recordOperation("append", nil)
	return nil
}

func (l *CircuitBreakerLedger) RecentRecords(ctx context.Context, limit int) ([]models.ProcessedRecord, error) {
	if l.cb == nil {
		records, err := l.next.RecentRecords(ctx, limit)
		recordOperation("recent_records", err)
		return records, err
	}

	result, err := l.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return l.next.RecentRecords(ctx, limit)
	})
	recordOperation("recent_records", err)
	if err != nil {
		return nil, l.wrapError(err, "recent_records")
	}

	records, ok := result.([]models.ProcessedRecord)
	if !ok && result != nil {
		return nil, fmt.Errorf("ledger returned invalid result type")
	}
	return records, nil
}

func (l *CircuitBreakerLedger) Stats(ctx context.Context) (Stats, error) {
	if l.cb == nil {
		stats, err := l.next.Stats(ctx)
		recordOperation("stats", err)
		return stats, err
	}

	result, err := l.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return l.next.Stats(ctx)
	})
	recordOperation("stats", err)
	if err != nil {
		return Stats{}, l.wrapError(err, "stats")
	}

	stats, ok := result.(Stats)
	if !ok {
		return Stats{}, fmt.Errorf("ledger returned invalid result type")
	}
	return stats, nil
}

// wrapError normalizes breaker rejections into store-unavailable errors so
// callers see one failure mode whether the store is down or the breaker is
// open.
func (l *CircuitBreakerLedger) wrapError(err error, operation string) error {
	if pkgerrors.IsStoreUnavailable(err) || pkgerrors.IsConflict(err) {
		return err
	}
	return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", operation)
}

func recordOperation(operation string, err error) {
	status := "success"
	switch {
	case pkgerrors.IsConflict(err):
		status = "conflict"
	case err != nil:
		status = "error"
	}
	metrics.LedgerOperationsTotal.WithLabelValues(operation, status).Inc()
}
