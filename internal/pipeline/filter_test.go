package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/models"
)

func TestFilterCategories(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{
		Categories: []string{"mention", "assignment"},
	}, logger.NopLogger())
	require.NoError(t, err)

	ctx := context.Background()

	assert.True(t, f.Eligible(ctx, models.Event{ID: "e1", Category: models.CategoryMention}))
	assert.True(t, f.Eligible(ctx, models.Event{ID: "e2", Category: models.CategoryAssignment}))
	assert.False(t, f.Eligible(ctx, models.Event{ID: "e3", Category: models.CategoryAuthored}))
}

func TestFilterExpression(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{
		Categories: []string{"mention"},
		Expression: `source != "noisy-repo"`,
	}, logger.NopLogger())
	require.NoError(t, err)

	ctx := context.Background()

	assert.True(t, f.Eligible(ctx, models.Event{
		ID: "e1", Category: models.CategoryMention, Origin: models.Origin{Name: "backend"},
	}))
	assert.False(t, f.Eligible(ctx, models.Event{
		ID: "e2", Category: models.CategoryMention, Origin: models.Origin{Name: "noisy-repo"},
	}))
}

func TestFilterInvalidExpression(t *testing.T) {
	_, err := NewFilter(config.FilterConfig{
		Categories: []string{"mention"},
		Expression: `title`,
	}, logger.NopLogger())
	assert.Error(t, err)
}

func TestFilterUpdateCategories(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{
		Categories: []string{"mention"},
	}, logger.NopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	ev := models.Event{ID: "e1", Category: models.CategoryReviewRequested}

	assert.False(t, f.Eligible(ctx, ev))

	f.UpdateCategories([]string{"review_requested"})

	assert.True(t, f.Eligible(ctx, ev))
	assert.False(t, f.Eligible(ctx, models.Event{ID: "e2", Category: models.CategoryMention}))
	assert.ElementsMatch(t, []string{"review_requested"}, f.Categories())
}
