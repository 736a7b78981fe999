package action

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/revgen/voicecmd/domain/entities"
)

// Only numbers, whitespace, parentheses and arithmetic operators may reach the
// evaluator; identifiers and function calls never do.
var arithmeticPattern = regexp.MustCompile(`^[0-9\s.+\-*/%^()]+$`)

var calculateSpec = entities.ToolSpec{
	Name:        "calculate",
	Description: "Evaluate a mathematical expression",
	Parameters: entities.ParameterSchema{
		Properties: map[string]entities.Property{
			"expression": {
				Type:        entities.PropertyString,
				Description: "The mathematical expression to evaluate, e.g. 25 * 4 + 10",
			},
		},
		Required: []string{"expression"},
	},
}

// Calculate evaluates an arithmetic expression. Integral results are returned
// as int64, everything else as float64.
func Calculate(expression string) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" || !arithmeticPattern.MatchString(expression) {
		return nil, fmt.Errorf("%w: %q is not an arithmetic expression", ErrInvalidArguments, expression)
	}

	program, err := expr.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not parse: %v", ErrInvalidArguments, expression, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", expression, err)
	}

	switch v := out.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%q has no finite result", expression)
		}
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%q evaluated to a non-numeric %T", expression, out)
	}
}

func calculateHandler(ctx context.Context, args map[string]any) (entities.ActionResult, error) {
	value, err := Calculate(stringArg(args, "expression", ""))
	if err != nil {
		return entities.ActionResult{}, err
	}
	return entities.Succeeded(value), nil
}
