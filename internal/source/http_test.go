package source

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
	"lookout/internal/logger"
	"lookout/pkg/models"
)

func testSourceConfig(url string) config.APISourceConfig {
	return config.APISourceConfig{
		BaseURL:  url,
		Token:    "token123",
		Timeout:  2 * time.Second,
		PageSize: 50,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	events := []models.Event{
		{
			ID:           "evt-1",
			Category:     models.CategoryMention,
			Origin:       models.Origin{Name: "backend"},
			SubjectTitle: "Fix retry loop",
			SubjectKind:  "Issue",
			UpdatedAt:    time.Now().UTC(),
		},
		{
			ID:          "evt-2",
			Category:    models.CategoryAssignment,
			Origin:      models.Origin{Name: "infra"},
			SubjectKind: "PullRequest",
			UpdatedAt:   time.Now().UTC(),
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		w.Header().Set("ETag", `"abc"`)
		json.NewEncoder(w).Encode(events)
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	fetched, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "evt-1", fetched[0].ID)
	assert.Equal(t, models.CategoryAssignment, fetched[1].Category)
}

func TestHTTPSourceSendsETagAndHandles304(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("ETag", `"v1"`)
			json.NewEncoder(w).Encode([]models.Event{{
				ID:       "evt-1",
				Category: models.CategoryMention,
				Origin:   models.Origin{Name: "backend"},
			}})
			return
		}
		assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	fetched, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, fetched, 1)
	s.CommitCheckpoint()

	fetched, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fetched)
}

func TestHTTPSourceUncommittedETagRefetches(t *testing.T) {
	event := []models.Event{{
		ID:       "evt-1",
		Category: models.CategoryMention,
		Origin:   models.Origin{Name: "backend"},
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		json.NewEncoder(w).Encode(event)
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	// First pass fetches the event but the batch never completes, so the
	// checkpoint is not committed.
	fetched, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 1)

	// The event must be served again: the upstream is unchanged but the
	// validator was never advanced.
	fetched, err = s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, "evt-1", fetched[0].ID)

	// Once committed, the unchanged upstream answers 304.
	s.CommitCheckpoint()
	fetched, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fetched)
}

func TestHTTPSourceDropsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Event{
			{ID: "", Category: models.CategoryMention, Origin: models.Origin{Name: "backend"}},
			{ID: "evt-2", Category: models.CategoryMention, Origin: models.Origin{Name: "backend"}},
		})
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	fetched, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, "evt-2", fetched[0].ID)
}

func TestHTTPSourceRetriesTransientFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]models.Event{{
			ID:       "evt-1",
			Category: models.CategoryMention,
			Origin:   models.Origin{Name: "backend"},
		}})
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	fetched, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, fetched, 1)
	assert.Equal(t, 2, calls)
}

func TestHTTPSourceAuthFailureIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewHTTPSource(testSourceConfig(srv.URL), logger.NopLogger())

	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
