package pricing

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/caterdispatch/tally/internal/domain"
)

// Conditions compiles and caches the optional CEL gates attached to pricing
// rules. A gate that evaluates false for a given input keeps the rule from
// firing; rules without a gate always fire.
type Conditions struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

// NewConditions creates a condition evaluator with the calculation input
// variables bound into the CEL environment.
func NewConditions() (*Conditions, error) {
	env, err := cel.NewEnv(
		cel.Variable("head_count", cel.IntType),
		cel.Variable("food_cost", cel.DoubleType),
		cel.Variable("mileage", cel.DoubleType),
		cel.Variable("requires_bridge", cel.BoolType),
		cel.Variable("number_of_stops", cel.IntType),
		cel.Variable("tips", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Conditions{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate compiles an expression without caching it.
func (c *Conditions) Validate(expr string) error {
	_, err := c.compile(expr)
	return err
}

// Allows evaluates a rule's gate against the input. Rules without a gate
// always pass. A compilation or evaluation error fails closed: the rule is
// treated as not firing and the error is returned for flagging.
func (c *Conditions) Allows(rule *domain.PricingRule, input *domain.CalculationInput) (bool, error) {
	if rule.Condition == "" {
		return true, nil
	}

	prog, err := c.program(rule.Condition)
	if err != nil {
		return false, err
	}

	foodCost, _ := input.FoodCost.Float64()
	mileage, _ := input.Mileage.Float64()
	tips, _ := input.Tips.Float64()

	out, _, err := prog.Eval(map[string]any{
		"head_count":      input.Headcount,
		"food_cost":       foodCost,
		"mileage":         mileage,
		"requires_bridge": input.RequiresBridge,
		"number_of_stops": input.NumberOfStops,
		"tips":            tips,
	})
	if err != nil {
		return false, fmt.Errorf("condition evaluation failed for rule %s: %w", rule.ID, err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("condition for rule %s did not return bool", rule.ID)
	}
	return bool(b), nil
}

func (c *Conditions) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prog, ok := c.programs[expr]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := c.compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[expr] = prog
	c.mu.Unlock()
	return prog, nil
}

func (c *Conditions) compile(expr string) (cel.Program, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition %q must return bool, got %s", expr, ast.OutputType())
	}
	prog, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for condition %q: %w", expr, err)
	}
	return prog, nil
}
