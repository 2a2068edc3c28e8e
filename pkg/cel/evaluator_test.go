package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `category == "mention"`,
			wantError: false,
		},
		{
			name:      "valid string method",
			expr:      `title.contains("release")`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `category == "review_requested"`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `title`,
			wantError: true,
		},
		{
			name:      "valid compound filter",
			expr:      `source == "backend" && kind == "PullRequest"`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateFilter(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	ev := models.Event{
		ID:           "evt-1",
		Category:     models.CategoryMention,
		Origin:       models.Origin{Name: "backend", URL: "https://example.com/backend"},
		SubjectTitle: "Fix flaky retry test",
		SubjectKind:  "Issue",
		UpdatedAt:    time.Now(),
		Link:         "https://example.com/backend/issues/42",
	}

	tests := []struct {
		name      string
		expr      string
		want      bool
		wantError bool
	}{
		{
			name: "category match",
			expr: `category == "mention"`,
			want: true,
		},
		{
			name: "category mismatch",
			expr: `category == "assignment"`,
			want: false,
		},
		{
			name: "title contains",
			expr: `title.contains("flaky")`,
			want: true,
		},
		{
			name: "compound expression",
			expr: `source == "backend" && kind == "Issue"`,
			want: true,
		},
		{
			name:      "non-bool output",
			expr:      `title`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval.EvaluateFilter(ctx, tt.expr, ev)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}
		})
	}
}

func TestCompileAndEvaluateProgram(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileExpression(`category == "review_requested" || title.contains("urgent")`)
	require.NoError(t, err)

	ctx := context.Background()

	match, err := eval.EvaluateProgram(ctx, program, models.Event{
		ID:           "evt-2",
		Category:     models.CategoryReviewRequested,
		Origin:       models.Origin{Name: "infra"},
		SubjectTitle: "Bump base image",
		SubjectKind:  "PullRequest",
		UpdatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, match)

	match, err = eval.EvaluateProgram(ctx, program, models.Event{
		ID:           "evt-3",
		Category:     models.CategoryAuthored,
		Origin:       models.Origin{Name: "infra"},
		SubjectTitle: "Weekly digest",
		SubjectKind:  "Issue",
		UpdatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, match)
}
