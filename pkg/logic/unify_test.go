package logic

import (
	"errors"
	"testing"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

func fact(s, p string, o triple.Value) triple.Triple {
	return triple.New(triple.NewNodeID(s), triple.Predicate(p), o)
}

func node(name string) triple.Value {
	return triple.NodeValue(triple.NewNodeID(name))
}

func TestUnifyConditionBindsVariables(t *testing.T) {
	cond := Condition{Subject: Var("X"), Predicate: PredTerm("knows"), Object: Var("Y")}
	f := fact("alice", "knows", node("bob"))

	sub, ok := unifyCondition(cond, f, Substitution{})
	if !ok {
		t.Fatal("expected unification to succeed")
	}
	if got := sub["X"]; !got.Equal(node("alice")) {
		t.Errorf("X bound to %s, want alice", got)
	}
	if got := sub["Y"]; !got.Equal(node("bob")) {
		t.Errorf("Y bound to %s, want bob", got)
	}
}

func TestUnifyConditionConcreteMismatch(t *testing.T) {
	cond := Condition{Subject: NodeTerm("carol"), Predicate: PredTerm("knows"), Object: Var("Y")}
	f := fact("alice", "knows", node("bob"))

	if _, ok := unifyCondition(cond, f, Substitution{}); ok {
		t.Error("expected concrete subject mismatch to fail")
	}
}

func TestUnifyConditionRespectsExistingBinding(t *testing.T) {
	cond := Condition{Subject: Var("X"), Predicate: PredTerm("knows"), Object: Var("Y")}
	f := fact("alice", "knows", node("bob"))

	base := Substitution{"X": node("carol")}
	if _, ok := unifyCondition(cond, f, base); ok {
		t.Error("expected conflicting binding to fail")
	}

	base = Substitution{"X": node("alice")}
	sub, ok := unifyCondition(cond, f, base)
	if !ok {
		t.Fatal("consistent binding should succeed")
	}
	if len(base) != 1 {
		t.Error("base substitution was mutated")
	}
	if !sub["Y"].Equal(node("bob")) {
		t.Error("Y not bound")
	}
}

// The same variable appearing twice must take the same value.
func TestUnifySharedVariable(t *testing.T) {
	cond := Condition{Subject: Var("X"), Predicate: PredTerm("likes"), Object: Var("X")}

	if _, ok := unifyCondition(cond, fact("alice", "likes", node("alice")), Substitution{}); !ok {
		t.Error("reflexive fact should unify")
	}
	if _, ok := unifyCondition(cond, fact("alice", "likes", node("bob")), Substitution{}); ok {
		t.Error("non-reflexive fact should not unify")
	}
}

func TestConditionPattern(t *testing.T) {
	cond := Condition{Subject: Var("X"), Predicate: PredTerm("age"), Object: Var("A")}

	p, ok := conditionPattern(cond, Substitution{})
	if !ok {
		t.Fatal("expected a pattern")
	}
	if p.Subject != nil || p.Object != nil {
		t.Error("unbound variables should stay wildcards")
	}
	if p.Predicate == nil || *p.Predicate != "age" {
		t.Error("concrete predicate should be bound")
	}

	p, ok = conditionPattern(cond, Substitution{"X": node("alice"), "A": triple.IntValue(30)})
	if !ok {
		t.Fatal("expected a pattern")
	}
	if p.Subject == nil || p.Subject.Name != "alice" {
		t.Error("bound subject variable should constrain the pattern")
	}
	if p.Object == nil || !p.Object.Equal(triple.IntValue(30)) {
		t.Error("bound object variable should constrain the pattern")
	}

	// A non-node binding in the subject slot can never match.
	if _, ok := conditionPattern(cond, Substitution{"X": triple.IntValue(5)}); ok {
		t.Error("non-node subject binding should be unmatchable")
	}
}

func TestInstantiate(t *testing.T) {
	a := Assert(Var("X"), PredTerm("adult"), Const(triple.BoolValue(true)))

	got, err := instantiate(a, Substitution{"X": node("alice")})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	want := fact("alice", "adult", triple.BoolValue(true))
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}

	if _, err := instantiate(a, Substitution{}); !errors.Is(err, ErrUnificationFailed) {
		t.Errorf("unbound variable: expected ErrUnificationFailed, got %v", err)
	}

	if _, err := instantiate(a, Substitution{"X": triple.StringValue("alice")}); !errors.Is(err, ErrUnificationFailed) {
		t.Errorf("non-node subject: expected ErrUnificationFailed, got %v", err)
	}
}
