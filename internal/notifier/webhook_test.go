package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/models"
)

func testAlert() models.Alert {
	return models.Alert{
		EventID:      "evt-1",
		SourceName:   "backend",
		Category:     models.CategoryReviewRequested,
		SubjectTitle: "Add request coalescing",
		SubjectKind:  "PullRequest",
		Reason:       "review requested from you",
		SentAt:       time.Now(),
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received models.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "token123", r.Header.Get("X-Auth"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		Timeout: 2 * time.Second,
		Webhook: config.WebhookConfig{
			URL:     srv.URL,
			Headers: map[string]string{"X-Auth": "token123"},
		},
	})

	err := n.Notify(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", received.EventID)
	assert.Equal(t, "review requested from you", received.Reason)
}

func TestWebhookNotifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		Timeout: 2 * time.Second,
		Webhook: config.WebhookConfig{URL: srv.URL},
	})

	err := n.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDelivery(err))
}

func TestWebhookNotifierTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		Timeout: 50 * time.Millisecond,
		Webhook: config.WebhookConfig{URL: srv.URL},
	})

	err := n.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDelivery(err))
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	n := NewWebhookNotifier(config.NotifierConfig{
		Timeout: 100 * time.Millisecond,
		Webhook: config.WebhookConfig{URL: "http://127.0.0.1:1"},
	})

	err := n.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDelivery(err))
}
