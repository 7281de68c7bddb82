package celengine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	guardEnvOnce sync.Once
	guardEnv     *cel.Env
	guardEnvErr  error
)

// GuardEnv is the shared CEL environment for policy guard expressions.
// Guards see the submitted action, its base points and the metadata map.
func GuardEnv() (*cel.Env, error) {
	guardEnvOnce.Do(func() {
		guardEnv, guardEnvErr = cel.NewEnv(
			cel.Variable("action", cel.StringType),
			cel.Variable("base_points", cel.IntType),
			cel.Variable("metadata", cel.MapType(cel.StringType, cel.StringType)),
		)
	})
	return guardEnv, guardEnvErr
}

// ValidateExpression compiles the expression against the env, returning the
// first compile issue if any.
func ValidateExpression(env *cel.Env, expr string) error {
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

// Evaluate compiles and runs a boolean expression against the activation.
func Evaluate(env *cel.Env, expr string, attrs map[string]interface{}) (bool, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	val := out.Value()

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", val, val)
	}

	return b, nil
}
