// Package logic implements the rule-based inference and validation
// engine on top of the graph store: unification, forward-chaining
// fixpoint evaluation, backward-chaining goal resolution with
// machine-checkable proofs, and integrity/authority validation with
// automatic contradiction detection for functional predicates.
package logic

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Kind classifies a rule.
type Kind uint8

const (
	KindIntegrity Kind = iota + 1
	KindAuthority
	KindTemporal
	KindInference
)

// String returns the rule kind name.
func (k Kind) String() string {
	switch k {
	case KindIntegrity:
		return "integrity"
	case KindAuthority:
		return "authority"
	case KindTemporal:
		return "temporal"
	case KindInference:
		return "inference"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Severity grades a validation error.
type Severity uint8

const (
	SeverityWarning Severity = iota + 1
	SeverityError
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Term is one slot of a condition or action template: either a named
// variable or a concrete value. Subject slots require a node value;
// predicate slots are carried as string values.
type Term struct {
	Variable string
	Value    triple.Value
}

// Var creates a variable term.
func Var(name string) Term {
	return Term{Variable: name}
}

// Const creates a concrete term from any object value.
func Const(v triple.Value) Term {
	return Term{Value: v}
}

// NodeTerm creates a concrete term holding a named node.
func NodeTerm(name string) Term {
	return Const(triple.NodeValue(triple.NewNodeID(name)))
}

// PredTerm creates a concrete term holding a predicate label.
func PredTerm(p triple.Predicate) Term {
	return Const(triple.StringValue(string(p)))
}

// IsVariable reports whether the term is an unbound variable slot.
func (t Term) IsVariable() bool {
	return t.Variable != ""
}

// String renders the term ("?name" for variables).
func (t Term) String() string {
	if t.IsVariable() {
		return "?" + t.Variable
	}
	return t.Value.String()
}

// Condition is one conjunct of a rule body: a triple pattern whose
// slots may be variables, plus an optional scalar constraint over the
// bound variables.
type Condition struct {
	Subject    Term
	Predicate  Term
	Object     Term
	Constraint *Constraint
}

// Variables returns the set of variable names the condition mentions.
func (c Condition) Variables() []string {
	var vars []string
	for _, t := range []Term{c.Subject, c.Predicate, c.Object} {
		if t.IsVariable() {
			vars = append(vars, t.Variable)
		}
	}
	return vars
}

// String renders the condition as a pattern.
func (c Condition) String() string {
	s := fmt.Sprintf("<%s, %s, %s>", c.Subject, c.Predicate, c.Object)
	if c.Constraint != nil {
		s += " where " + c.Constraint.Expr
	}
	return s
}

// ActionKind discriminates rule actions.
type ActionKind uint8

const (
	// ActionAssert inserts the substituted template during forward
	// chaining, or names the producible triple for backward chaining.
	ActionAssert ActionKind = iota + 1
	// ActionReject fails validation with a reason. Validator-only.
	ActionReject
	// ActionRequire demands that another pattern also hold. Validator-only.
	ActionRequire
)

// Action is one consequence of a satisfied rule.
type Action struct {
	Kind      ActionKind
	Subject   Term // Assert/Require template
	Predicate Term
	Object    Term
	Reason    string // Reject
}

// Assert builds an assert action from a triple template.
func Assert(subject, predicate, object Term) Action {
	return Action{Kind: ActionAssert, Subject: subject, Predicate: predicate, Object: object}
}

// Reject builds a reject action with a reason.
func Reject(reason string) Action {
	return Action{Kind: ActionReject, Reason: reason}
}

// Require builds a require action from a triple template.
func Require(subject, predicate, object Term) Action {
	return Action{Kind: ActionRequire, Subject: subject, Predicate: predicate, Object: object}
}

// Rule couples a conjunctive list of conditions with the actions taken
// for every substitution that satisfies them. Rules are built once via
// RuleSetBuilder and never mutated.
type Rule struct {
	Name       string
	Kind       Kind
	Severity   Severity
	Conditions []Condition
	Actions    []Action
}

// String renders the rule in head :- body form.
func (r Rule) String() string {
	conds := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		conds[i] = c.String()
	}
	return fmt.Sprintf("%s[%s] :- %s", r.Name, r.Kind, strings.Join(conds, ", "))
}

// validate checks structural rule invariants at build time.
func (r Rule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name cannot be empty", ErrInvalidRule)
	}
	if r.Kind == 0 {
		return fmt.Errorf("%w: rule %q has no kind", ErrInvalidRule, r.Name)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: rule %q has no actions", ErrInvalidRule, r.Name)
	}

	bound := make(map[string]bool)
	for _, c := range r.Conditions {
		for _, v := range c.Variables() {
			bound[v] = true
		}
	}
	for _, c := range r.Conditions {
		if c.Constraint == nil {
			continue
		}
		for _, v := range c.Constraint.Vars {
			if !bound[v] {
				return fmt.Errorf("%w: rule %q constraint references unbound variable %q",
					ErrInvalidRule, r.Name, v)
			}
		}
	}
	for _, a := range r.Actions {
		if a.Kind == ActionReject {
			continue
		}
		for _, t := range []Term{a.Subject, a.Predicate, a.Object} {
			if t.IsVariable() && !bound[t.Variable] {
				return fmt.Errorf("%w: rule %q action references unbound variable %q",
					ErrInvalidRule, r.Name, t.Variable)
			}
		}
	}
	return nil
}
