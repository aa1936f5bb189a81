package logic

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Constraint is a scalar predicate over bound condition variables,
// expressed in CEL (e.g. "age > 18 && age < 150"). Expressions are
// compiled once when the rule set is built and evaluated per candidate
// substitution during joins.
type Constraint struct {
	Expr string
	Vars []string

	prg cel.Program
}

// NewConstraint declares a constraint over the named variables. The
// expression is compiled by RuleSetBuilder.Build.
func NewConstraint(expr string, vars ...string) *Constraint {
	return &Constraint{Expr: expr, Vars: vars}
}

// compile builds the CEL program. Variables are declared dynamic since
// bindings carry the closed Value sum.
func (c *Constraint) compile() error {
	opts := make([]cel.EnvOption, 0, len(c.Vars))
	for _, v := range c.Vars {
		opts = append(opts, cel.Variable(v, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return fmt.Errorf("%w: constraint env: %v", ErrInvalidRule, err)
	}
	ast, iss := env.Compile(c.Expr)
	if iss != nil && iss.Err() != nil {
		return fmt.Errorf("%w: compiling %q: %v", ErrInvalidRule, c.Expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return fmt.Errorf("%w: building program for %q: %v", ErrInvalidRule, c.Expr, err)
	}
	c.prg = prg
	return nil
}

// Eval applies the constraint to a substitution. Every declared
// variable must be bound.
func (c *Constraint) Eval(sub Substitution) (bool, error) {
	if c.prg == nil {
		return false, fmt.Errorf("%w: constraint %q was not compiled", ErrInvalidRule, c.Expr)
	}

	activation := make(map[string]any, len(c.Vars))
	for _, v := range c.Vars {
		val, ok := sub[v]
		if !ok {
			return false, fmt.Errorf("%w: constraint %q needs variable %q", ErrMissingPrecondition, c.Expr, v)
		}
		activation[v] = celValue(val)
	}

	out, _, err := c.prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("%w: evaluating %q: %v", ErrUnificationFailed, c.Expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: constraint %q is not boolean", ErrInvalidRule, c.Expr)
	}
	return b, nil
}

// celValue lowers a bound Value to a CEL-native representation. Node
// references surface as their string identifier.
func celValue(v triple.Value) any {
	if n, ok := v.Node(); ok {
		return n.String()
	}
	return v.Native()
}
