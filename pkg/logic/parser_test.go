package logic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

func TestParseRuleTransitive(t *testing.T) {
	r, err := ParseRule("knows-transitive", `knows(X, Z) :- knows(X, Y), knows(Y, Z).`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r.Kind != KindInference {
		t.Errorf("kind %s, want inference", r.Kind)
	}
	if len(r.Conditions) != 2 {
		t.Fatalf("got %d conditions, want 2", len(r.Conditions))
	}
	if len(r.Actions) != 1 || r.Actions[0].Kind != ActionAssert {
		t.Fatalf("head should become a single Assert action")
	}

	c := r.Conditions[0]
	if !c.Subject.IsVariable() || c.Subject.Variable != "X" {
		t.Errorf("subject term %v", c.Subject)
	}
	if c.Predicate.IsVariable() {
		t.Error("predicate should be concrete")
	}
	if v, _ := c.Predicate.Value.Str(); v != "knows" {
		t.Errorf("predicate %q", v)
	}
}

func TestParseRuleLiterals(t *testing.T) {
	r, err := ParseRule("flags", `flagged(X, true) :- status(X, "banned"), strikes(X, 3).`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	if v := r.Conditions[0].Object.Value; !v.Equal(triple.StringValue("banned")) {
		t.Errorf("quoted literal parsed as %s", v)
	}
	if v := r.Conditions[1].Object.Value; !v.Equal(triple.IntValue(3)) {
		t.Errorf("numeric literal parsed as %s", v)
	}
	if v := r.Actions[0].Object.Value; !v.Equal(triple.BoolValue(true)) {
		t.Errorf("boolean literal parsed as %s", v)
	}
}

func TestParseRuleNodeConstants(t *testing.T) {
	r, err := ParseRule("root-admin", `admin(root, true) :- role(root, "admin").`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	n, ok := r.Conditions[0].Subject.Value.Node()
	if !ok || n.Name != "root" {
		t.Errorf("bare lowercase subject should be a node, got %v", r.Conditions[0].Subject)
	}
}

func TestParseRuleWhereConstraint(t *testing.T) {
	r, err := ParseRule("adult", `adult(X, true) :- age(X, A), where(A >= 18).`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	c := r.Conditions[len(r.Conditions)-1].Constraint
	if c == nil {
		t.Fatal("where() did not attach a constraint")
	}
	if c.Expr != "A >= 18" {
		t.Errorf("constraint expr %q", c.Expr)
	}
	if len(c.Vars) != 1 || c.Vars[0] != "A" {
		t.Errorf("constraint vars %v", c.Vars)
	}
}

func TestParseRuleInequalitySugar(t *testing.T) {
	r, err := ParseRule("distinct", `related(X, Y) :- parent(X, Z), parent(Y, Z), X != Y.`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	last := r.Conditions[len(r.Conditions)-1]
	if last.Constraint == nil || last.Constraint.Expr != "X != Y" {
		t.Errorf("inequality sugar not attached: %v", last.Constraint)
	}
}

func TestParseRuleErrors(t *testing.T) {
	cases := map[string]string{
		"no body separator":  `adult(X, true)`,
		"empty body":         `adult(X, true) :- .`,
		"multi-atom head":    `a(X, Y), b(X, Y) :- c(X, Y).`,
		"malformed atom":     `adult(X, true) :- age X.`,
		"wrong arity":        `adult(X, true) :- age(X, A, B).`,
		"leading constraint": `adult(X, true) :- where(A > 0), age(X, A).`,
	}
	for name, text := range cases {
		if _, err := ParseRule("r", text); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("%s: expected ErrInvalidRule, got %v", name, err)
		}
	}
}

func TestParseRules(t *testing.T) {
	src := `
# social inference rules
knows-transitive: knows(X, Z) :- knows(X, Y), knows(Y, Z).

adult: adult(X, true) :- age(X, A), where(A >= 18).
`
	rules, err := ParseRules(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Name != "knows-transitive" || rules[1].Name != "adult" {
		t.Errorf("rule names: %s, %s", rules[0].Name, rules[1].Name)
	}
}

func TestParseRulesBadLine(t *testing.T) {
	if _, err := ParseRules(strings.NewReader("just some text\n")); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
}

// Parsed rules must run end to end through the engine.
func TestParsedRulesInfer(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e,
		fact("a", "knows", node("b")),
		fact("b", "knows", node("c")),
		fact("alice", "age", triple.IntValue(30)),
	)

	rules, err := ParseRules(strings.NewReader(
		"trans: knows(X, Z) :- knows(X, Y), knows(Y, Z).\n" +
			"adult: adult(X, true) :- age(X, A), where(A >= 18).\n"))
	if err != nil {
		t.Fatal(err)
	}
	b := NewRuleSetBuilder()
	for _, r := range rules {
		b.Add(r)
	}
	rs, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	derived, err := e.InferForward(context.Background(), rs, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(derived) != 2 {
		t.Fatalf("derived %d, want 2: %v", len(derived), derived)
	}
	for _, want := range []triple.Triple{
		fact("a", "knows", node("c")),
		fact("alice", "adult", triple.BoolValue(true)),
	} {
		ok, err := e.Store().Contains(want)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("missing %s", want)
		}
	}
}
