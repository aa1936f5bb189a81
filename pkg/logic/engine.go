package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duynguyendang/logicgraph/pkg/graph"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Default budgets applied when a caller passes a non-positive bound.
const (
	DefaultMaxIterations = 100
	DefaultMaxDepth      = 32
)

// Engine runs inference against one graph store. It holds no mutable
// state of its own, so one engine may serve concurrent calls; because
// insertion is idempotent and content-addressed, overlapping forward
// derivations are safe.
type Engine struct {
	store *graph.Store
}

// NewEngine creates an engine over the given store.
func NewEngine(store *graph.Store) *Engine {
	return &Engine{store: store}
}

// Store returns the underlying graph store.
func (e *Engine) Store() *graph.Store {
	return e.store
}

// match is one substitution satisfying a rule's conditions, with the
// supporting triples recorded in condition order.
type match struct {
	sub      Substitution
	premises []triple.ID
	facts    []triple.Triple
	deferred []*Constraint
}

// matchRule computes every substitution satisfying the rule's
// conditions, evaluated in declared order as a relational join: the
// accumulated substitution turns already-bound variables of later
// conditions into concrete query constraints.
func (e *Engine) matchRule(r Rule, seed Substitution) ([]match, error) {
	return e.joinConditions(r.Name, r.Conditions, seed)
}

// joinConditions is the relational join shared by forward chaining and
// the validator.
func (e *Engine) joinConditions(ruleName string, conds []Condition, seed Substitution) ([]match, error) {
	if seed == nil {
		seed = Substitution{}
	}
	current := []match{{sub: seed.Clone()}}

	for _, cond := range conds {
		var next []match
		for _, m := range current {
			pat, ok := conditionPattern(cond, m.sub)
			if !ok {
				continue
			}
			candidates, err := e.store.Find(pat)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", ruleName, err)
			}
			for _, t := range candidates {
				sub, ok := unifyCondition(cond, t, m.sub)
				if !ok {
					continue
				}

				deferred := m.deferred
				if c := cond.Constraint; c != nil {
					if constraintReady(c, sub) {
						keep, err := c.Eval(sub)
						if err != nil {
							return nil, fmt.Errorf("rule %q: %w", ruleName, err)
						}
						if !keep {
							continue
						}
					} else {
						// constraint variables bound by a later
						// condition; re-checked after the join
						deferred = append(append([]*Constraint(nil), m.deferred...), c)
					}
				}

				id, err := triple.IDOf(t)
				if err != nil {
					return nil, err
				}
				next = append(next, match{
					sub:      sub,
					premises: appendCopy(m.premises, id),
					facts:    appendCopy(m.facts, t),
					deferred: deferred,
				})
			}
		}
		current = next
		if len(current) == 0 {
			return nil, nil
		}
	}

	// settle deferred constraints now that every variable is bound
	out := current[:0]
	for _, m := range current {
		keep := true
		for _, c := range m.deferred {
			ok, err := c.Eval(m.sub)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", ruleName, err)
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			m.deferred = nil
			out = append(out, m)
		}
	}
	return out, nil
}

// InferForward sweeps every rule over the current graph until a sweep
// derives no new triple (a fixpoint) and returns the newly derived
// triples. Only Assert actions mutate the graph; Reject and Require are
// validator-only. Exceeding maxIterations fails with an inference-loop
// error instead of running unbounded.
func (e *Engine) InferForward(ctx context.Context, rs *RuleSet, maxIterations int) ([]triple.Triple, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var derived []triple.Triple
	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return derived, err
		}
		if iteration >= maxIterations {
			return derived, fmt.Errorf("%w: no fixpoint after %d iterations", ErrInferenceLoop, maxIterations)
		}

		added := 0
		for _, r := range rs.rules {
			matches, err := e.matchRule(r, nil)
			if err != nil {
				return derived, err
			}
			for _, m := range matches {
				for _, a := range r.Actions {
					if a.Kind != ActionAssert {
						continue
					}
					t, err := instantiate(a, m.sub)
					if err != nil {
						return derived, fmt.Errorf("rule %q: %w", r.Name, err)
					}
					if _, err := e.store.InsertStrict(t); err != nil {
						if errors.Is(err, graph.ErrDuplicate) {
							continue // re-derivation is harmless
						}
						return derived, err
					}
					derived = append(derived, t)
					added++
				}
			}
		}

		if added == 0 {
			slog.Debug("forward chaining reached fixpoint",
				"iterations", iteration+1, "derived", len(derived))
			return derived, nil
		}
	}
}

func appendCopy[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
