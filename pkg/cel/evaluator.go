package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"herald/pkg/models"
)

// Evaluator compiles boolean conditions over a module-result event and
// caches the compiled programs by source text.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(models.FieldModuleID, cel.StringType),
		cel.Variable(models.FieldDeploymentID, cel.StringType),
		cel.Variable(models.FieldDeviceName, cel.StringType),
		cel.Variable(models.FieldModuleConfigID, cel.StringType),
		cel.Variable(models.FieldPrimitives, cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// ValidateCondition checks that expression compiles and yields a bool.
func (e *Evaluator) ValidateCondition(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()

	return program, nil
}

// EvaluateCondition reports whether event satisfies expression.
func (e *Evaluator) EvaluateCondition(ctx context.Context, expression string, event *models.Event) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	primitives := make([]interface{}, 0, len(event.Primitives))
	for _, p := range event.Primitives {
		primitives = append(primitives, map[string]interface{}(p))
	}

	vars := map[string]interface{}{
		models.FieldModuleID:       event.ModuleID,
		models.FieldDeploymentID:   event.DeploymentID,
		models.FieldDeviceName:     event.DeviceName,
		models.FieldModuleConfigID: event.ModuleConfigID,
		models.FieldPrimitives:     primitives,
	}

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) cached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}
