package logic

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/duynguyendang/logicgraph/pkg/graph"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// ValidationError is one rule violation found for a candidate triple.
type ValidationError struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

// String renders severity, rule and message.
func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Rule, e.Message)
}

// ValidationResult collects the outcome for one candidate. Valid is
// true only when no error has severity Error or Fatal; warnings alone
// do not fail validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Validator applies Integrity- and Authority-kind rules to candidate
// triples and detects contradictions on functional predicates.
// Validation never mutates the graph; whether to insert after a clean
// result is the caller's policy. A Fatal result does not block Insert
// by itself.
type Validator struct {
	engine *Engine
	rules  *RuleSet

	mu         sync.RWMutex
	functional map[triple.Predicate]bool
}

// NewValidator creates a validator over a store and a frozen rule set.
func NewValidator(store *graph.Store, rs *RuleSet) *Validator {
	return &Validator{
		engine:     NewEngine(store),
		rules:      rs,
		functional: make(map[triple.Predicate]bool),
	}
}

// RegisterFunctional flags predicates as single-valued per subject. A
// candidate whose object differs from an already-stored object for the
// same subject and predicate fails with a Fatal contradiction, no
// explicit rule needed.
func (v *Validator) RegisterFunctional(preds ...triple.Predicate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range preds {
		v.functional[p] = true
	}
}

// Validate checks one candidate triple.
func (v *Validator) Validate(t triple.Triple) (ValidationResult, error) {
	if err := t.Validate(); err != nil {
		return ValidationResult{}, err
	}

	var errs []ValidationError

	contradictions, err := v.checkFunctional(t)
	if err != nil {
		return ValidationResult{}, err
	}
	errs = append(errs, contradictions...)

	for _, r := range v.rules.OfKind(KindIntegrity, KindAuthority) {
		ruleErrs, err := v.applyRule(r, t)
		if err != nil {
			return ValidationResult{}, err
		}
		errs = append(errs, ruleErrs...)
	}

	return ValidationResult{Valid: !hasBlocking(errs), Errors: errs}, nil
}

// ValidateBatch validates candidates concurrently. Results align with
// the input order.
func (v *Validator) ValidateBatch(ctx context.Context, candidates []triple.Triple) ([]ValidationResult, error) {
	results := make([]ValidationResult, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := v.Validate(t)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkFunctional detects single-valued predicate contradictions.
func (v *Validator) checkFunctional(t triple.Triple) ([]ValidationError, error) {
	v.mu.RLock()
	isFunctional := v.functional[t.Predicate]
	v.mu.RUnlock()
	if !isFunctional {
		return nil, nil
	}

	existing, err := v.engine.store.Find(
		triple.Any().WithSubject(t.Subject).WithPredicate(t.Predicate))
	if err != nil {
		return nil, err
	}

	var errs []ValidationError
	for _, prev := range existing {
		if !prev.Object.Equal(t.Object) {
			errs = append(errs, ValidationError{
				Severity: SeverityFatal,
				Rule:     fmt.Sprintf("functional(%s)", t.Predicate),
				Message: fmt.Sprintf("%v: subject %s already has %s = %s, candidate claims %s",
					ErrContradiction, t.Subject, t.Predicate, prev.Object, t.Object),
			})
		}
	}
	return errs, nil
}

// applyRule fires a rule when the candidate satisfies one of its
// conditions and the remaining conditions hold against the graph. A
// Reject action, or a Require whose pattern is unsatisfied, yields an
// error at the rule's severity.
func (v *Validator) applyRule(r Rule, candidate triple.Triple) ([]ValidationError, error) {
	severity := r.Severity
	if severity == 0 {
		severity = SeverityError
	}

	for i, cond := range r.Conditions {
		seed, ok := unifyCondition(cond, candidate, Substitution{})
		if !ok {
			continue
		}
		if c := cond.Constraint; c != nil && constraintReady(c, seed) {
			keep, err := c.Eval(seed)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			if !keep {
				continue
			}
		}

		rest := make([]Condition, 0, len(r.Conditions)-1)
		rest = append(rest, r.Conditions[:i]...)
		rest = append(rest, r.Conditions[i+1:]...)

		matches, err := v.engine.joinConditions(r.Name, rest, seed)
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			errs, err := v.applyActions(r, severity, m.sub, candidate)
			if err != nil {
				return nil, err
			}
			if len(errs) > 0 {
				return errs, nil // one firing per rule is enough
			}
		}
	}
	return nil, nil
}

func (v *Validator) applyActions(r Rule, severity Severity, sub Substitution, candidate triple.Triple) ([]ValidationError, error) {
	var errs []ValidationError
	for _, a := range r.Actions {
		switch a.Kind {
		case ActionReject:
			errs = append(errs, ValidationError{
				Severity: severity,
				Rule:     r.Name,
				Message:  a.Reason,
			})
		case ActionRequire:
			satisfied, err := v.requireHolds(a, sub, candidate)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			if !satisfied {
				errs = append(errs, ValidationError{
					Severity: severity,
					Rule:     r.Name,
					Message: fmt.Sprintf("required pattern <%s, %s, %s> does not hold",
						a.Subject, a.Predicate, a.Object),
				})
			}
		case ActionAssert:
			// forward-chaining only; never fired during validation
		}
	}
	return errs, nil
}

// requireHolds checks a Require template against the graph and the
// candidate itself (the candidate may satisfy its own requirement).
func (v *Validator) requireHolds(a Action, sub Substitution, candidate triple.Triple) (bool, error) {
	cond := Condition{Subject: a.Subject, Predicate: a.Predicate, Object: a.Object}
	if _, ok := unifyCondition(cond, candidate, sub); ok {
		return true, nil
	}

	pat, ok := conditionPattern(cond, sub)
	if !ok {
		return false, nil
	}
	found, err := v.engine.store.Find(pat)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func hasBlocking(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity >= SeverityError {
			return true
		}
	}
	return false
}
