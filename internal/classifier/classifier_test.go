package classifier

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

func testEvent() models.Event {
	return models.Event{
		ID:           "evt-1",
		Category:     models.CategoryMention,
		Origin:       models.Origin{Name: "backend"},
		SubjectTitle: "Deploy broke on main",
		SubjectKind:  "Issue",
		UpdatedAt:    time.Now(),
	}
}

func TestAPIClassifierPayloadStaysNarrow(t *testing.T) {
	var posted map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		json.NewEncoder(w).Encode(classifyResponse{Important: false, Reason: "routine"})
	}))
	defer srv.Close()

	c := NewAPIClassifier(config.ClassifierConfig{
		Timeout: 2 * time.Second,
		API:     config.ClassifierAPIConfig{URL: srv.URL},
	})

	ev := testEvent()
	ev.Link = "https://git.example.com/org/backend/issues/42"

	_, err := c.Classify(context.Background(), ev)
	require.NoError(t, err)

	// Only the judgment fields go over the wire; the event id and link are
	// deliberately withheld.
	assert.NotContains(t, posted, "id")
	assert.NotContains(t, posted, "link")
	assert.NotContains(t, posted, "event")
	assert.Equal(t, "mention", posted["category"])
	assert.Equal(t, "backend", posted["source_name"])
	assert.Contains(t, posted, "subject_title")
	assert.Contains(t, posted, "subject_kind")
	assert.Contains(t, posted, "updated_at")
}

func TestFallbackVerdict(t *testing.T) {
	v := FallbackVerdict()
	assert.False(t, v.Important)
	assert.Equal(t, "classification failed", v.Reason)
}

func TestAPIClassifierSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.CategoryMention, req.Category)
		assert.Equal(t, "backend", req.SourceName)
		assert.Equal(t, "Deploy broke on main", req.SubjectTitle)

		json.NewEncoder(w).Encode(classifyResponse{Important: true, Reason: "direct mention"})
	}))
	defer srv.Close()

	c := NewAPIClassifier(config.ClassifierConfig{
		Timeout: 2 * time.Second,
		API:     config.ClassifierAPIConfig{URL: srv.URL, Token: "secret"},
	})

	verdict, err := c.Classify(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, verdict.Important)
	assert.Equal(t, "direct mention", verdict.Reason)
}

func TestAPIClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAPIClassifier(config.ClassifierConfig{
		Timeout: 2 * time.Second,
		API:     config.ClassifierAPIConfig{URL: srv.URL},
	})

	_, err := c.Classify(context.Background(), testEvent())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsClassification(err))
}

func TestAPIClassifierMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewAPIClassifier(config.ClassifierConfig{
		Timeout: 2 * time.Second,
		API:     config.ClassifierAPIConfig{URL: srv.URL},
	})

	_, err := c.Classify(context.Background(), testEvent())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsClassification(err))
}

func TestAPIClassifierTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewAPIClassifier(config.ClassifierConfig{
		Timeout: 50 * time.Millisecond,
		API:     config.ClassifierAPIConfig{URL: srv.URL},
	})

	_, err := c.Classify(context.Background(), testEvent())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsClassification(err))
}

func TestCELClassifierImportant(t *testing.T) {
	c, err := NewCELClassifier(config.ClassifierConfig{
		CEL: config.ClassifierCELConfig{
			Expression:      `category == "mention"`,
			ImportantReason: "you were mentioned",
		},
	})
	require.NoError(t, err)

	verdict, err := c.Classify(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, verdict.Important)
	assert.Equal(t, "you were mentioned", verdict.Reason)
}

func TestCELClassifierNotImportant(t *testing.T) {
	c, err := NewCELClassifier(config.ClassifierConfig{
		CEL: config.ClassifierCELConfig{Expression: `category == "assignment"`},
	})
	require.NoError(t, err)

	verdict, err := c.Classify(context.Background(), testEvent())
	require.NoError(t, err)
	assert.False(t, verdict.Important)
	assert.NotEmpty(t, verdict.Reason)
}

func TestCELClassifierInvalidExpression(t *testing.T) {
	_, err := NewCELClassifier(config.ClassifierConfig{
		CEL: config.ClassifierCELConfig{Expression: `title`},
	})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	_, err := New(config.ClassifierConfig{Type: "cel", CEL: config.ClassifierCELConfig{Expression: `true`}})
	require.NoError(t, err)

	_, err = New(config.ClassifierConfig{Type: "api", API: config.ClassifierAPIConfig{URL: "http://localhost"}})
	require.NoError(t, err)

	_, err = New(config.ClassifierConfig{Type: "bogus"})
	assert.Error(t, err)
}
