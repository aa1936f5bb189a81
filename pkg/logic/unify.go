package logic

import (
	"fmt"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Substitution maps variable names to the concrete values they are
// bound to during unification.
type Substitution map[string]triple.Value

// Clone returns an independent copy.
func (s Substitution) Clone() Substitution {
	out := make(Substitution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// bind attempts to bind one term slot against a concrete value. A
// variable already bound to a different value fails; a concrete term
// must equal the value exactly.
func bind(t Term, v triple.Value, sub Substitution) bool {
	if !t.IsVariable() {
		return t.Value.Equal(v)
	}
	if prev, ok := sub[t.Variable]; ok {
		return prev.Equal(v)
	}
	sub[t.Variable] = v
	return true
}

// slotValue lifts one triple field into the uniform Value space used by
// bindings: subjects as node values, predicates as string values.
func slotValues(t triple.Triple) (subject, predicate, object triple.Value) {
	return triple.NodeValue(t.Subject), triple.StringValue(string(t.Predicate)), t.Object
}

// unifyCondition binds a condition's pattern against a concrete triple,
// extending base. Returns the extended substitution, or ok=false when
// the triple does not unify (including variable binding conflicts).
// base is never mutated.
func unifyCondition(c Condition, t triple.Triple, base Substitution) (Substitution, bool) {
	sub := base.Clone()
	sv, pv, ov := slotValues(t)
	if !bind(c.Subject, sv, sub) {
		return nil, false
	}
	if !bind(c.Predicate, pv, sub) {
		return nil, false
	}
	if !bind(c.Object, ov, sub) {
		return nil, false
	}
	return sub, true
}

// conditionPattern lowers a condition to a store query pattern under
// the given substitution: bound variables and concrete terms become
// pattern constraints, unbound variables stay wildcards. ok=false means
// the condition can never match (e.g. a non-node value in the subject
// slot).
func conditionPattern(c Condition, sub Substitution) (triple.Pattern, bool) {
	p := triple.Any()

	if v, bound := resolveTerm(c.Subject, sub); bound {
		n, ok := v.Node()
		if !ok {
			return p, false
		}
		p = p.WithSubject(n)
	}
	if v, bound := resolveTerm(c.Predicate, sub); bound {
		s, ok := v.Str()
		if !ok {
			return p, false
		}
		p = p.WithPredicate(triple.Predicate(s))
	}
	if v, bound := resolveTerm(c.Object, sub); bound {
		p = p.WithObject(v)
	}
	return p, true
}

// resolveTerm returns the concrete value of a term under sub, and
// whether it is concrete at all.
func resolveTerm(t Term, sub Substitution) (triple.Value, bool) {
	if !t.IsVariable() {
		return t.Value, true
	}
	v, ok := sub[t.Variable]
	return v, ok
}

// instantiate substitutes an action template into a ground triple.
// Every slot must resolve; the subject must be a node and the predicate
// a string.
func instantiate(a Action, sub Substitution) (triple.Triple, error) {
	sv, ok := resolveTerm(a.Subject, sub)
	if !ok {
		return triple.Triple{}, fmt.Errorf("%w: unbound subject variable %q", ErrUnificationFailed, a.Subject.Variable)
	}
	subject, ok := sv.Node()
	if !ok {
		return triple.Triple{}, fmt.Errorf("%w: subject slot resolved to %s value", ErrUnificationFailed, sv.Kind())
	}

	pv, ok := resolveTerm(a.Predicate, sub)
	if !ok {
		return triple.Triple{}, fmt.Errorf("%w: unbound predicate variable %q", ErrUnificationFailed, a.Predicate.Variable)
	}
	pred, ok := pv.Str()
	if !ok {
		return triple.Triple{}, fmt.Errorf("%w: predicate slot resolved to %s value", ErrUnificationFailed, pv.Kind())
	}

	ov, ok := resolveTerm(a.Object, sub)
	if !ok {
		return triple.Triple{}, fmt.Errorf("%w: unbound object variable %q", ErrUnificationFailed, a.Object.Variable)
	}

	return triple.New(subject, triple.Predicate(pred), ov), nil
}

// constraintReady reports whether every variable a constraint needs is
// bound, so it can be evaluated at this point of the join.
func constraintReady(c *Constraint, sub Substitution) bool {
	for _, v := range c.Vars {
		if _, ok := sub[v]; !ok {
			return false
		}
	}
	return true
}
