package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Prove attempts a goal-directed (backward-chaining) resolution of the
// goal pattern and returns a machine-checkable proof. The search never
// mutates the graph, so a failed or cancelled attempt leaves no partial
// state. Each search branch carries its own copy of the in-flight goal
// set; a goal recurring within one branch fails that branch with an
// inference-loop error without affecting alternatives. maxDepth bounds
// nested sub-goal recursion.
func (e *Engine) Prove(ctx context.Context, goal triple.Pattern, rs *RuleSet, maxDepth int) (*Proof, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	conclusion, steps, err := e.prove(ctx, goal, rs, 0, maxDepth, nil)
	if err != nil {
		return nil, err
	}
	slog.Debug("goal proved", "goal", goal.String(), "steps", len(steps))
	return &Proof{Conclusion: conclusion, Steps: steps}, nil
}

// prove resolves one goal: ground facts first, then rules whose Assert
// action could produce a matching triple. Steps come back in dependency
// order, ending with the step deriving the conclusion (or empty for a
// ground fact).
func (e *Engine) prove(ctx context.Context, goal triple.Pattern, rs *RuleSet, depth, maxDepth int, inflight map[string]bool) (triple.Triple, []ProofStep, error) {
	if err := ctx.Err(); err != nil {
		return triple.Triple{}, nil, err
	}
	if depth > maxDepth {
		return triple.Triple{}, nil, fmt.Errorf("%w: goal %s at depth %d", ErrMaxDepthExceeded, goal, depth)
	}

	key := goal.String()
	if inflight[key] {
		return triple.Triple{}, nil, fmt.Errorf("%w: goal %s recurs within its own branch", ErrInferenceLoop, goal)
	}

	facts, err := e.store.Find(goal)
	if err != nil {
		return triple.Triple{}, nil, err
	}
	if len(facts) > 0 {
		return facts[0], nil, nil
	}

	// copy-on-branch: alternatives and concurrent attempts never share
	// visited state
	branch := make(map[string]bool, len(inflight)+1)
	for k := range inflight {
		branch[k] = true
	}
	branch[key] = true

	var lastGuardErr error
	for _, r := range rs.Asserting() {
		for _, a := range r.Actions {
			if a.Kind != ActionAssert {
				continue
			}
			seed, ok := unifyActionWithGoal(a, goal)
			if !ok {
				continue
			}

			sol, ok, err := e.solveConditions(ctx, r, r.Conditions, seed, rs, depth, maxDepth, branch)
			if err != nil {
				if errors.Is(err, ErrInferenceLoop) || errors.Is(err, ErrMaxDepthExceeded) {
					lastGuardErr = err
					continue // this alternative is a dead end, not fatal
				}
				return triple.Triple{}, nil, err
			}
			if !ok {
				continue
			}

			derived, err := instantiate(a, sol.sub)
			if err != nil {
				return triple.Triple{}, nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			if !goal.Matches(derived) {
				continue
			}

			steps := append(sol.steps, ProofStep{
				Rule:     r.Name,
				Premises: sol.premises,
				Derived:  derived,
			})
			return derived, steps, nil
		}
	}

	if lastGuardErr != nil {
		return triple.Triple{}, nil, lastGuardErr
	}
	return triple.Triple{}, nil, fmt.Errorf("%w: no fact or rule derives %s", ErrMissingPrecondition, goal)
}

// branchSolution is one way of satisfying a rule body during backward
// chaining: the final substitution, the premise IDs in condition order,
// and the sub-proof steps accumulated along the way.
type branchSolution struct {
	sub      Substitution
	premises []triple.ID
	steps    []ProofStep
}

// solveConditions satisfies a rule body left to right. Each condition
// is matched against existing facts first; when no fact fits, it is
// attempted as a nested sub-goal. The first complete solution wins.
func (e *Engine) solveConditions(ctx context.Context, r Rule, conds []Condition, sub Substitution, rs *RuleSet, depth, maxDepth int, inflight map[string]bool) (branchSolution, bool, error) {
	if len(conds) == 0 {
		// the whole body is bound now; settle every constraint,
		// including those that were not ready mid-join
		for _, c := range r.Conditions {
			if c.Constraint == nil {
				continue
			}
			keep, err := c.Constraint.Eval(sub)
			if err != nil {
				return branchSolution{}, false, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			if !keep {
				return branchSolution{}, false, nil
			}
		}
		return branchSolution{sub: sub}, true, nil
	}

	cond := conds[0]
	pat, ok := conditionPattern(cond, sub)
	if !ok {
		return branchSolution{}, false, nil
	}

	// alternative 1: satisfy against facts already in the graph
	facts, err := e.store.Find(pat)
	if err != nil {
		return branchSolution{}, false, err
	}
	var lastGuardErr error
	for _, fact := range facts {
		sol, ok, err := e.extendSolution(ctx, r, cond, conds[1:], fact, nil, sub, rs, depth, maxDepth, inflight)
		if err != nil {
			return branchSolution{}, false, err
		}
		if ok {
			return sol, true, nil
		}
	}

	// alternative 2: derive the condition as a nested sub-goal
	conclusion, substeps, err := e.prove(ctx, pat, rs, depth+1, maxDepth, inflight)
	if err != nil {
		if errors.Is(err, ErrInferenceLoop) || errors.Is(err, ErrMaxDepthExceeded) {
			lastGuardErr = err
		} else if !errors.Is(err, ErrMissingPrecondition) {
			return branchSolution{}, false, err
		}
	} else if len(substeps) > 0 {
		sol, ok, err := e.extendSolution(ctx, r, cond, conds[1:], conclusion, substeps, sub, rs, depth, maxDepth, inflight)
		if err != nil {
			return branchSolution{}, false, err
		}
		if ok {
			return sol, true, nil
		}
	}

	if lastGuardErr != nil {
		return branchSolution{}, false, lastGuardErr
	}
	return branchSolution{}, false, nil
}

// extendSolution unifies one satisfying triple into the running
// substitution, applies the condition's constraint when it is ready,
// and recurses into the remaining conditions.
func (e *Engine) extendSolution(ctx context.Context, r Rule, cond Condition, rest []Condition, fact triple.Triple, substeps []ProofStep, sub Substitution, rs *RuleSet, depth, maxDepth int, inflight map[string]bool) (branchSolution, bool, error) {
	next, ok := unifyCondition(cond, fact, sub)
	if !ok {
		return branchSolution{}, false, nil
	}
	if c := cond.Constraint; c != nil && constraintReady(c, next) {
		keep, err := c.Eval(next)
		if err != nil {
			return branchSolution{}, false, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if !keep {
			return branchSolution{}, false, nil
		}
	}

	id, err := triple.IDOf(fact)
	if err != nil {
		return branchSolution{}, false, err
	}

	tail, ok, err := e.solveConditions(ctx, r, rest, next, rs, depth, maxDepth, inflight)
	if err != nil || !ok {
		return branchSolution{}, ok, err
	}

	sol := branchSolution{
		sub:      tail.sub,
		premises: append([]triple.ID{id}, tail.premises...),
		steps:    append(append([]ProofStep(nil), substeps...), tail.steps...),
	}
	return sol, true, nil
}

// unifyActionWithGoal binds an Assert template against the bound fields
// of a goal pattern, producing the seed substitution for the rule body.
func unifyActionWithGoal(a Action, goal triple.Pattern) (Substitution, bool) {
	sub := Substitution{}
	if goal.Subject != nil {
		if !bind(a.Subject, triple.NodeValue(*goal.Subject), sub) {
			return nil, false
		}
	}
	if goal.Predicate != nil {
		if !bind(a.Predicate, triple.StringValue(string(*goal.Predicate)), sub) {
			return nil, false
		}
	}
	if goal.Object != nil {
		if !bind(a.Object, *goal.Object, sub) {
			return nil, false
		}
	}
	return sub, true
}
