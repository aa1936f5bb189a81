package logic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// atom is a single unit of rule text, e.g. knows(X, Y) or age(X, 42).
type atom struct {
	pred string
	args []string
}

// ParseRule parses one rule in "head :- body." form. The head is a single
// atom that becomes the Assert action; body atoms become conditions.
// Arguments with an uppercase first letter are variables. Quoted arguments
// are string literals, bare lowercase identifiers are nodes, and numbers
// and booleans parse to their typed values. A where(expr) atom in the body
// attaches a constraint to the preceding condition.
func ParseRule(name, text string) (Rule, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ".")

	idx := strings.Index(text, ":-")
	if idx == -1 {
		return Rule{}, fmt.Errorf("%w: rule %q: expected 'head :- body'", ErrInvalidRule, name)
	}
	headPart := strings.TrimSpace(text[:idx])
	bodyPart := strings.TrimSpace(text[idx+2:])

	headAtoms := splitAtoms(headPart)
	if len(headAtoms) != 1 {
		return Rule{}, fmt.Errorf("%w: rule %q: head must be a single atom", ErrInvalidRule, name)
	}
	head, err := parseAtom(headAtoms[0])
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
	}
	action, err := atomToAction(head)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
	}

	var conds []Condition
	for _, raw := range splitAtoms(bodyPart) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		// A != B sugar, kept from the old parser.
		if lhs, rhs, ok := splitInequality(raw); ok {
			expr := lhs + " != " + rhs
			if err := attachConstraint(conds, expr); err != nil {
				return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
			}
			continue
		}

		if expr, ok := whereBody(raw); ok {
			if err := attachConstraint(conds, expr); err != nil {
				return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
			}
			continue
		}

		a, err := parseAtom(raw)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
		}
		cond, err := atomToCondition(a)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
		}
		conds = append(conds, cond)
	}
	if len(conds) == 0 {
		return Rule{}, fmt.Errorf("%w: rule %q: empty body", ErrInvalidRule, name)
	}

	r := Rule{
		Name:       name,
		Kind:       KindInference,
		Severity:   SeverityError,
		Conditions: conds,
		Actions:    []Action{action},
	}
	if err := r.validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// ParseRules reads a rule file: one rule per line in "name: head :- body."
// form, with '#' comments and blank lines ignored.
func ParseRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx == -1 {
			return nil, fmt.Errorf("%w: line %d: expected 'name: rule'", ErrInvalidRule, lineNo)
		}
		name := strings.TrimSpace(line[:idx])
		rule, err := ParseRule(name, line[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return rules, nil
}

func atomToCondition(a atom) (Condition, error) {
	if len(a.args) != 2 {
		return Condition{}, fmt.Errorf("atom %s expects 2 arguments, got %d", a.pred, len(a.args))
	}
	subj, err := parseArg(a.args[0], true)
	if err != nil {
		return Condition{}, err
	}
	obj, err := parseArg(a.args[1], false)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Subject: subj, Predicate: predTerm(a.pred), Object: obj}, nil
}

func atomToAction(a atom) (Action, error) {
	cond, err := atomToCondition(a)
	if err != nil {
		return Action{}, err
	}
	return Assert(cond.Subject, cond.Predicate, cond.Object), nil
}

// parseArg converts a raw argument into a term. Subject slots get node
// values for bare identifiers; object slots keep the literal's type.
func parseArg(raw string, subjectSlot bool) (Term, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Term{}, fmt.Errorf("empty argument")
	}
	if isVariable(raw) {
		return Var(raw), nil
	}
	if quoted(raw) {
		s := raw[1 : len(raw)-1]
		if subjectSlot {
			return NodeTerm(s), nil
		}
		return Const(triple.StringValue(s)), nil
	}
	if !subjectSlot {
		if raw == "true" || raw == "false" {
			return Const(triple.BoolValue(raw == "true")), nil
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Const(triple.IntValue(n)), nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Const(triple.FloatValue(f)), nil
		}
	}
	return NodeTerm(raw), nil
}

func predTerm(pred string) Term {
	if isVariable(pred) {
		return Var(pred)
	}
	return PredTerm(triple.Predicate(pred))
}

func attachConstraint(conds []Condition, expr string) error {
	if len(conds) == 0 {
		return fmt.Errorf("constraint %q has no preceding condition", expr)
	}
	last := &conds[len(conds)-1]
	if last.Constraint != nil {
		expr = "(" + last.Constraint.Expr + ") && (" + expr + ")"
	}
	last.Constraint = NewConstraint(expr, exprVariables(expr)...)
	return nil
}

// exprVariables scans a constraint expression for uppercase-initial
// identifiers, the same convention atom arguments use.
func exprVariables(expr string) []string {
	seen := make(map[string]bool)
	var vars []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		id := cur.String()
		cur.Reset()
		if isVariable(id) && !seen[id] {
			seen[id] = true
			vars = append(vars, id)
		}
	}
	inQuote := false
	var quoteChar rune
	for _, r := range expr {
		if inQuote {
			if r == quoteChar {
				inQuote = false
			}
			continue
		}
		switch {
		case r == '"' || r == '\'':
			flush()
			inQuote = true
			quoteChar = r
		case unicode.IsLetter(r) || r == '_' || (cur.Len() > 0 && unicode.IsDigit(r)):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return vars
}

func isVariable(s string) bool {
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

func quoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
}

// whereBody extracts the raw expression from a where(...) atom. The body
// is taken verbatim so commas inside the expression survive.
func whereBody(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "where(") || !strings.HasSuffix(raw, ")") {
		return "", false
	}
	return strings.TrimSpace(raw[len("where(") : len(raw)-1]), true
}

// splitInequality handles the top-level "A != B" shorthand. It only fires
// when the piece is not itself an atom.
func splitInequality(raw string) (lhs, rhs string, ok bool) {
	if strings.Contains(raw, "(") {
		return "", "", false
	}
	idx := strings.Index(raw, "!=")
	if idx == -1 {
		return "", "", false
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+2:]), true
}

// splitAtoms splits rule text on top-level commas, respecting quotes and
// parentheses.
func splitAtoms(s string) []string {
	var results []string
	var current strings.Builder
	depth := 0
	inQuote := false
	var quoteChar rune

	for _, r := range s {
		switch r {
		case '"', '\'':
			if inQuote {
				if r == quoteChar {
					inQuote = false
				}
			} else {
				inQuote = true
				quoteChar = r
			}
			current.WriteRune(r)
		case '(':
			if !inQuote {
				depth++
			}
			current.WriteRune(r)
		case ')':
			if !inQuote {
				depth--
			}
			current.WriteRune(r)
		case ',':
			if !inQuote && depth == 0 {
				results = append(results, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		results = append(results, strings.TrimSpace(current.String()))
	}
	return results
}

// parseAtom parses "predicate(arg1, arg2)".
func parseAtom(s string) (atom, error) {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if start == -1 || end == -1 || start >= end {
		return atom{}, fmt.Errorf("expected 'predicate(args...)' but got %q", s)
	}
	pred := strings.TrimSpace(s[:start])
	if pred == "" {
		return atom{}, fmt.Errorf("missing predicate in %q", s)
	}
	args := splitAtoms(s[start+1 : end])
	return atom{pred: pred, args: args}, nil
}
