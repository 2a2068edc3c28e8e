package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lookout/internal/config"
	"lookout/internal/constants"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/tracing"
)

type WebhookNotifier struct {
	url     string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

func NewWebhookNotifier(cfg config.NotifierConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &WebhookNotifier{
		url:     cfg.Webhook.URL,
		headers: cfg.Webhook.Headers,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert models.Alert) error {
	ctx, span := tracing.GetTracer("lookout-notifier").Start(ctx, "notifier.notify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	err := n.deliver(ctx, alert)
	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.AlertsTotal.WithLabelValues(status).Inc()
	metrics.ObserveAlertDeliveryDuration(time.Since(start), status)

	return err
}

func (n *WebhookNotifier) deliver(ctx context.Context, alert models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return pkgerrors.ErrDelivery.WithCause(err).WithDetail("event_id", alert.EventID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.ErrDelivery.WithCause(err).WithDetail("event_id", alert.EventID)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return pkgerrors.ErrDelivery.WithCause(err).WithDetail("event_id", alert.EventID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return pkgerrors.ErrDelivery.
			WithCause(fmt.Errorf("webhook returned status %d", resp.StatusCode)).
			WithDetail("event_id", alert.EventID)
	}

	return nil
}
