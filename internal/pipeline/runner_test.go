package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/internal/source"
	"lookout/pkg/models"
)

type stubSource struct {
	batches [][]models.Event
	calls   int
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]models.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func newRunnerFixture(t *testing.T, src source.Source) (*Runner, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := NewRunner(src, f.orch, 50*time.Millisecond, 40*time.Millisecond, logger.NopLogger())
	return r, f
}

func TestRunnerProcessesFirstBatchImmediately(t *testing.T) {
	src := &stubSource{batches: [][]models.Event{{event("evt-1"), event("evt-2")}}}
	r, f := newRunnerFixture(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Len(t, f.not.alerts, 2)
	assert.NotNil(t, f.led.records["evt-1"])
	assert.NotNil(t, f.led.records["evt-2"])
}

func TestRunnerDedupsAcrossBatches(t *testing.T) {
	src := &stubSource{batches: [][]models.Event{
		{event("evt-1")},
		{event("evt-1"), event("evt-2")},
	}}
	r, f := newRunnerFixture(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)

	require.GreaterOrEqual(t, src.calls, 2)
	assert.Len(t, f.not.alerts, 2)
	assert.Equal(t, "evt-1", f.not.alerts[0].EventID)
	assert.Equal(t, "evt-2", f.not.alerts[1].EventID)
}

func TestRunnerSurvivesFetchFailure(t *testing.T) {
	src := &stubSource{err: assert.AnError}
	r, _ := newRunnerFixture(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, src.calls, 2)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	src := &stubSource{}
	r, _ := newRunnerFixture(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// checkpointSource serves the same batch until the runner commits the
// checkpoint, the way the HTTP source holds its ETag back for an unfinished
// batch.
type checkpointSource struct {
	events    []models.Event
	committed bool
	fetches   int
}

func (s *checkpointSource) Name() string { return "stub" }

func (s *checkpointSource) Fetch(ctx context.Context) ([]models.Event, error) {
	s.fetches++
	if s.committed {
		return nil, nil
	}
	return s.events, nil
}

func (s *checkpointSource) CommitCheckpoint() { s.committed = true }

func TestRunnerRedeliversBatchAfterLedgerWriteFailure(t *testing.T) {
	src := &checkpointSource{events: []models.Event{event("evt-1")}}
	r, f := newRunnerFixture(t, src)

	// The first append fails, aborting the batch before anything is
	// ledgered. The store heals for the next tick.
	f.led.appendFailures = 1

	ctx, cancel := context.WithTimeout(context.Background(), 130*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)

	// The aborted batch left the checkpoint untouched, so the event was
	// served again and dispatched exactly once.
	require.GreaterOrEqual(t, src.fetches, 2)
	assert.True(t, src.committed)
	require.NotNil(t, f.led.records["evt-1"])
	require.Len(t, f.not.alerts, 1)
	assert.Equal(t, "evt-1", f.not.alerts[0].EventID)
}

func TestRunnerConfigSanity(t *testing.T) {
	cfg := config.PipelineConfig{PollInterval: 30 * time.Second, BatchTimeout: 25 * time.Second}
	r := NewRunner(&stubSource{}, nil, cfg.PollInterval, cfg.BatchTimeout, logger.NopLogger())
	assert.Equal(t, 30*time.Second, r.pollInterval)
	assert.Equal(t, 25*time.Second, r.batchTimeout)

	// Defaults kick in for zero values.
	r = NewRunner(&stubSource{}, nil, 0, 0, logger.NopLogger())
	assert.Equal(t, 30*time.Second, r.pollInterval)
	assert.Equal(t, 27*time.Second, r.batchTimeout)
}
