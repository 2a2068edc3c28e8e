package classifier

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

// APIClassifier posts the event to an external judge endpoint and expects a
// verdict back. Every failure mode maps to a classification error so the
// caller's fallback policy stays in one place.
type APIClassifier struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
}

func NewAPIClassifier(cfg config.ClassifierConfig) *APIClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &APIClassifier{
		url:     cfg.API.URL,
		token:   cfg.API.Token,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// classifyRequest is the deliberately narrow judgment payload. The event id
// and link stay out of it: the judge decides on what the event is about, not
// on identifiers it has no business correlating.
type classifyRequest struct {
	Category     models.Category `json:"category"`
	SourceName   string          `json:"source_name"`
	SubjectTitle string          `json:"subject_title"`
	SubjectKind  string          `json:"subject_kind"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newClassifyRequest(ev models.Event) classifyRequest {
	return classifyRequest{
		Category:     ev.Category,
		SourceName:   ev.Origin.Name,
		SubjectTitle: ev.SubjectTitle,
		SubjectKind:  ev.SubjectKind,
		UpdatedAt:    ev.UpdatedAt,
	}
}

type classifyResponse struct {
	Important bool   `json:"important"`
	Reason    string `json:"reason"`
}

func (c *APIClassifier) Classify(ctx context.Context, ev models.Event) (models.Verdict, error) {
	ctx, span := tracing.GetTracer("lookout-classifier").Start(ctx, "classifier.classify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	verdict, err := c.classify(ctx, ev)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ClassificationsTotal.WithLabelValues(outcome).Inc()
	metrics.ObserveClassificationDuration(time.Since(start), outcome)

	return verdict, err
}

func (c *APIClassifier) classify(ctx context.Context, ev models.Event) (models.Verdict, error) {
	body, err := json.Marshal(newClassifyRequest(ev))
	if err != nil {
		return models.Verdict{}, pkgerrors.ErrClassification.WithCause(err).WithDetail("event_id", ev.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, pkgerrors.ErrClassification.WithCause(err).WithDetail("event_id", ev.ID)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Verdict{}, pkgerrors.ErrClassification.WithCause(err).WithDetail("event_id", ev.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return models.Verdict{}, pkgerrors.ErrClassification.
			WithCause(fmt.Errorf("classifier returned status %d", resp.StatusCode)).
			WithDetail("event_id", ev.ID)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Verdict{}, pkgerrors.ErrClassification.WithCause(err).WithDetail("event_id", ev.ID)
	}

	return models.Verdict{Important: result.Important, Reason: result.Reason}, nil
}
