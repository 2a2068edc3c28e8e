package source

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"context"

	"golang.org/x/time/rate"

	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/retry"
	"lookout/pkg/tracing"
)

// HTTPSource polls a notifications endpoint. It sends If-None-Match with the
// last committed ETag so an unchanged upstream answers 304 and the pass costs
// nothing. The ETag advances only on CommitCheckpoint: until the batch is
// fully processed the same events must stay fetchable, otherwise an aborted
// pass would lose them behind a 304 for as long as the upstream is unchanged.
// Transient failures are retried under the configured policy.
type HTTPSource struct {
	cfg     config.APISourceConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  logger.Logger

	mu          sync.Mutex
	etag        string
	pendingETag string
	pendingSet  bool
}

func NewHTTPSource(cfg config.APISourceConfig, log logger.Logger) *HTTPSource {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &HTTPSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		logger:  log,
	}
}

func (s *HTTPSource) Name() string {
	return "api"
}

// CommitCheckpoint promotes the ETag from the last successful fetch. Called
// by the runner once the batch has been processed to the end.
func (s *HTTPSource) CommitCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSet {
		s.etag = s.pendingETag
		s.pendingETag = ""
		s.pendingSet = false
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.Event, error) {
	ctx, span := tracing.GetTracer("lookout-source").Start(ctx, "source.fetch")
	defer span.End()

	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
	if s.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = s.cfg.Retry.MaxAttempts
	}
	if s.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = s.cfg.Retry.InitialInterval
	}
	if s.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = s.cfg.Retry.MaxInterval
	}
	if s.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = s.cfg.Retry.Multiplier
	}

	var events []models.Event
	err := retry.RetryWithCallback(ctx, policy, func() error {
		fetched, err := s.fetchOnce(ctx)
		if err != nil {
			return err
		}
		events = fetched
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("source", "fetch").Inc()
		s.logger.WarnwCtx(ctx, "Retrying source fetch",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}

	metrics.EventsFetchedTotal.WithLabelValues(s.Name()).Add(float64(len(events)))
	return events, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]models.Event, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/notifications?per_page=%s", s.cfg.BaseURL, strconv.Itoa(s.cfg.PageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, retry.NewFatalError(fmt.Errorf("source returned status %d", resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	var raw []models.Event
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode source response: %w", err)
	}

	s.mu.Lock()
	s.pendingETag = resp.Header.Get("ETag")
	s.pendingSet = true
	s.mu.Unlock()

	events := make([]models.Event, 0, len(raw))
	for _, ev := range raw {
		ev := ev
		if err := models.ValidateEvent(&ev); err != nil {
			s.logger.WarnwCtx(ctx, "Dropping malformed event from source",
				"event_id", ev.ID,
				"error", err,
			)
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}
