package notifier

import (
	"context"
	"time"

	"lookout/internal/broker"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

// KafkaNotifier publishes alerts onto the broker's alert topic for a
// downstream consumer to fan out.
type KafkaNotifier struct {
	producer broker.Producer
	topic    string
	timeout  time.Duration
}

func NewKafkaNotifier(producer broker.Producer, topic string, timeout time.Duration) *KafkaNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		timeout:  timeout,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	err := n.producer.Publish(ctx, n.topic, alert.EventID, alert)

	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.AlertsTotal.WithLabelValues(status).Inc()
	metrics.ObserveAlertDeliveryDuration(time.Since(start), status)

	if err != nil {
		return pkgerrors.ErrDelivery.WithCause(err).WithDetail("event_id", alert.EventID)
	}
	return nil
}
