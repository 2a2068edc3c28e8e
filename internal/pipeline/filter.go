package pipeline

import (
	"context"
	"sync"

	celgo "github.com/google/cel-go/cel"

	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/cel"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

// Filter gates events at pipeline entry: the category must be on the
// eligible list and the optional CEL predicate must hold. The category set
// can be swapped at runtime via config updates.
type Filter struct {
	logger    logger.Logger
	evaluator *cel.Evaluator
	program   celgo.Program

	mu         sync.RWMutex
	categories map[models.Category]struct{}
}

func NewFilter(cfg config.FilterConfig, log logger.Logger) (*Filter, error) {
	f := &Filter{
		logger:     log,
		categories: categorySet(cfg.Categories),
	}

	if cfg.Expression != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		if err := evaluator.ValidateFilterExpression(cfg.Expression); err != nil {
			return nil, err
		}
		program, err := evaluator.CompileExpression(cfg.Expression)
		if err != nil {
			return nil, err
		}
		f.evaluator = evaluator
		f.program = program
	}

	return f, nil
}

// Eligible reports whether the event should enter the pipeline. A CEL
// evaluation failure admits the event: dedup and the ledger make an extra
// pass harmless, a wrongly dropped event is gone for good.
func (f *Filter) Eligible(ctx context.Context, ev models.Event) bool {
	f.mu.RLock()
	_, ok := f.categories[ev.Category]
	f.mu.RUnlock()
	if !ok {
		return false
	}

	if f.program == nil {
		return true
	}

	match, err := f.evaluator.EvaluateProgram(ctx, f.program, ev)
	if err != nil {
		metrics.FallbackUsageTotal.WithLabelValues("filter", "admit_on_error", "cel_evaluation").Inc()
		f.logger.WarnwCtx(ctx, "Filter expression failed, admitting event",
			"event_id", ev.ID,
			"error", err,
		)
		return true
	}

	return match
}

// UpdateCategories replaces the eligible-category set.
func (f *Filter) UpdateCategories(categories []string) {
	set := categorySet(categories)

	f.mu.Lock()
	f.categories = set
	f.mu.Unlock()

	f.logger.Infow("Updated eligible categories", "categories", categories)
}

func (f *Filter) Categories() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.categories))
	for c := range f.categories {
		out = append(out, string(c))
	}
	return out
}

func categorySet(categories []string) map[models.Category]struct{} {
	set := make(map[models.Category]struct{}, len(categories))
	for _, c := range categories {
		set[models.Category(c)] = struct{}{}
	}
	return set
}
