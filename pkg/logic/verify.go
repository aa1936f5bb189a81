package logic

import (
	"fmt"

	"github.com/duynguyendang/logicgraph/pkg/graph"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// VerifyProof replays a proof against a graph snapshot without
// re-running inference. Every premise must be a ground fact in the
// store or the derived triple of a strictly earlier step; each step's
// rule conditions must unify against its premises and reproduce exactly
// the claimed derived triple; the final step must derive the
// conclusion. Verification is strictly cheaper than proof construction.
func VerifyProof(proof *Proof, rs *RuleSet, store *graph.Store) error {
	if proof == nil {
		return fmt.Errorf("%w: nil proof", ErrInvalidProof)
	}

	if len(proof.Steps) == 0 {
		ok, err := store.Contains(proof.Conclusion)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: conclusion %s is not a ground fact and has no steps",
				ErrInvalidProof, proof.Conclusion)
		}
		return nil
	}

	derived := make(map[triple.ID]triple.Triple, len(proof.Steps))

	for i, step := range proof.Steps {
		rule, err := rs.Lookup(step.Rule)
		if err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidProof, i, err)
		}
		if len(step.Premises) != len(rule.Conditions) {
			return fmt.Errorf("%w: step %d has %d premises for %d conditions of rule %q",
				ErrInvalidProof, i, len(step.Premises), len(rule.Conditions), step.Rule)
		}

		sub := Substitution{}
		for j, premiseID := range step.Premises {
			premise, ok := derived[premiseID]
			if !ok {
				premise, ok, err = store.Get(premiseID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: step %d premise %s is neither a ground fact nor an earlier derivation",
						ErrInvalidProof, i, premiseID)
				}
			}

			sub, ok = unifyCondition(rule.Conditions[j], premise, sub)
			if !ok {
				return fmt.Errorf("%w: step %d premise %s does not unify with condition %d of rule %q",
					ErrInvalidProof, i, premiseID, j, step.Rule)
			}
		}

		for _, c := range rule.Conditions {
			if c.Constraint == nil {
				continue
			}
			ok, err := c.Constraint.Eval(sub)
			if err != nil {
				return fmt.Errorf("%w: step %d: %v", ErrInvalidProof, i, err)
			}
			if !ok {
				return fmt.Errorf("%w: step %d violates constraint %q of rule %q",
					ErrInvalidProof, i, c.Constraint.Expr, step.Rule)
			}
		}

		if !stepReproduces(rule, sub, step.Derived) {
			return fmt.Errorf("%w: step %d of rule %q does not derive %s from its premises",
				ErrInvalidProof, i, step.Rule, step.Derived)
		}

		id, err := triple.IDOf(step.Derived)
		if err != nil {
			return err
		}
		derived[id] = step.Derived
	}

	last := proof.Steps[len(proof.Steps)-1]
	if !last.Derived.Equal(proof.Conclusion) {
		return fmt.Errorf("%w: final step derives %s but conclusion claims %s",
			ErrInvalidProof, last.Derived, proof.Conclusion)
	}
	return nil
}

// stepReproduces checks that some Assert action of the rule, under the
// verified substitution, yields exactly the claimed triple.
func stepReproduces(rule Rule, sub Substitution, claimed triple.Triple) bool {
	for _, a := range rule.Actions {
		if a.Kind != ActionAssert {
			continue
		}
		t, err := instantiate(a, sub)
		if err != nil {
			continue
		}
		if t.Equal(claimed) {
			return true
		}
	}
	return false
}
