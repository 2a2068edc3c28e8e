package classifier

import (
	"context"
	"time"

	celgo "github.com/google/cel-go/cel"

	"lookout/internal/config"
	"lookout/pkg/cel"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

// CELClassifier evaluates a compiled CEL predicate locally instead of asking
// an external judge. Useful when importance is a pure function of the event.
type CELClassifier struct {
	evaluator         *cel.Evaluator
	program           celgo.Program
	importantReason   string
	unimportantReason string
}

func NewCELClassifier(cfg config.ClassifierConfig) (*CELClassifier, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	if err := evaluator.ValidateFilterExpression(cfg.CEL.Expression); err != nil {
		return nil, err
	}

	program, err := evaluator.CompileExpression(cfg.CEL.Expression)
	if err != nil {
		return nil, err
	}

	importantReason := cfg.CEL.ImportantReason
	if importantReason == "" {
		importantReason = "matched importance rule"
	}
	unimportantReason := cfg.CEL.UnimportantReason
	if unimportantReason == "" {
		unimportantReason = "did not match importance rule"
	}

	return &CELClassifier{
		evaluator:         evaluator,
		program:           program,
		importantReason:   importantReason,
		unimportantReason: unimportantReason,
	}, nil
}

func (c *CELClassifier) Classify(ctx context.Context, ev models.Event) (models.Verdict, error) {
	start := time.Now()

	important, err := c.evaluator.EvaluateProgram(ctx, c.program, ev)
	if err != nil {
		metrics.ClassificationsTotal.WithLabelValues("error").Inc()
		metrics.ObserveClassificationDuration(time.Since(start), "error")
		return models.Verdict{}, pkgerrors.ErrClassification.WithCause(err).WithDetail("event_id", ev.ID)
	}

	metrics.ClassificationsTotal.WithLabelValues("success").Inc()
	metrics.ObserveClassificationDuration(time.Since(start), "success")

	if important {
		return models.Verdict{Important: true, Reason: c.importantReason}, nil
	}
	return models.Verdict{Important: false, Reason: c.unimportantReason}, nil
}
