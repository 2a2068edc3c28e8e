package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"lookout/pkg/models"
)

// Evaluator compiles and runs CEL expressions over notification events.
// The same environment backs both the eligibility filter and the rule-based
// classifier.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("link", cel.StringType),
		cel.Variable("updated_at", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

func (e *Evaluator) EvaluateFilter(ctx context.Context, expression string, ev models.Event) (bool, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	result, _, err := program.ContextEval(ctx, eventVars(ev))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// CompileExpression compiles an expression once for repeated evaluation.
// Callers run the returned program with EvaluateProgram.
func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) EvaluateProgram(ctx context.Context, program cel.Program, ev models.Event) (bool, error) {
	result, _, err := program.ContextEval(ctx, eventVars(ev))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func eventVars(ev models.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":         ev.ID,
		"category":   string(ev.Category),
		"source":     ev.Origin.Name,
		"title":      ev.SubjectTitle,
		"kind":       ev.SubjectKind,
		"link":       ev.Link,
		"updated_at": ev.UpdatedAt,
	}
}
