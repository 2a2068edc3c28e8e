package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"lookout/internal/broker"
	"lookout/internal/logger"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

// KafkaSource adapts the push-style broker consumer to the pipeline's pull
// model: consumed events accumulate in a bounded buffer and Fetch drains
// whatever arrived since the last pass.
type KafkaSource struct {
	consumer broker.Consumer
	topic    string
	logger   logger.Logger

	mu     sync.Mutex
	buffer []models.Event
	max    int
}

func NewKafkaSource(consumer broker.Consumer, topic string, log logger.Logger) *KafkaSource {
	return &KafkaSource{
		consumer: consumer,
		topic:    topic,
		logger:   log,
		max:      10000,
	}
}

func (s *KafkaSource) Name() string {
	return "kafka"
}

// Start consumes the input topic until ctx is canceled. Malformed messages
// fail the handler so the broker's retry/DLQ policy applies.
func (s *KafkaSource) Start(ctx context.Context) error {
	return s.consumer.Consume(ctx, s.topic, func(ctx context.Context, key string, value []byte) error {
		var ev models.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		if err := models.ValidateEvent(&ev); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.buffer) >= s.max {
			s.logger.WarnwCtx(ctx, "Source buffer full, dropping oldest event",
				"event_id", s.buffer[0].ID,
			)
			s.buffer = s.buffer[1:]
		}
		s.buffer = append(s.buffer, ev)
		return nil
	})
}

func (s *KafkaSource) Fetch(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	events := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	metrics.EventsFetchedTotal.WithLabelValues(s.Name()).Add(float64(len(events)))
	return events, nil
}
