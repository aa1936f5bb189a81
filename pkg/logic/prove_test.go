package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

func goalFor(f triple.Triple) triple.Pattern {
	return triple.Any().
		WithSubject(f.Subject).
		WithPredicate(f.Predicate).
		WithObject(f.Object)
}

func TestProveGroundFact(t *testing.T) {
	e := newTestEngine(t)
	f := fact("alice", "knows", node("bob"))
	insertFacts(t, e, f)
	rs := mustRuleSet(t, transitiveKnows())

	proof, err := e.Prove(context.Background(), goalFor(f), rs, 0)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.Steps) != 0 {
		t.Errorf("ground fact proof has %d steps, want 0", len(proof.Steps))
	}
	if !proof.Conclusion.Equal(f) {
		t.Errorf("conclusion %s, want %s", proof.Conclusion, f)
	}
	if err := VerifyProof(proof, rs, e.Store()); err != nil {
		t.Errorf("VerifyProof: %v", err)
	}
}

func TestProveOneStep(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e,
		fact("a", "knows", node("b")),
		fact("b", "knows", node("c")),
	)
	rs := mustRuleSet(t, transitiveKnows())

	goal := goalFor(fact("a", "knows", node("c")))
	proof, err := e.Prove(context.Background(), goal, rs, 0)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.Steps) != 1 {
		t.Fatalf("proof has %d steps, want 1", len(proof.Steps))
	}
	step := proof.Steps[0]
	if step.Rule != "knows-transitive" {
		t.Errorf("step rule %q", step.Rule)
	}
	if len(step.Premises) != 2 {
		t.Errorf("step has %d premises, want 2", len(step.Premises))
	}
	if !proof.Conclusion.Equal(fact("a", "knows", node("c"))) {
		t.Errorf("conclusion %s", proof.Conclusion)
	}

	if err := VerifyProof(proof, rs, e.Store()); err != nil {
		t.Errorf("VerifyProof: %v", err)
	}
}

// A goal needing a derived intermediate: the proof must chain steps in
// dependency order.
func TestProveNestedDerivation(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e,
		fact("a", "knows", node("b")),
		fact("b", "knows", node("c")),
		fact("c", "knows", node("d")),
	)
	rs := mustRuleSet(t, transitiveKnows())

	goal := goalFor(fact("a", "knows", node("d")))
	proof, err := e.Prove(context.Background(), goal, rs, 0)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.Steps) < 2 {
		t.Fatalf("expected a chained proof, got %d steps", len(proof.Steps))
	}
	last := proof.Steps[len(proof.Steps)-1]
	if !last.Derived.Equal(proof.Conclusion) {
		t.Error("final step does not derive the conclusion")
	}

	if err := VerifyProof(proof, rs, e.Store()); err != nil {
		t.Errorf("VerifyProof: %v", err)
	}
}

func TestProveUnprovableGoal(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e, fact("a", "knows", node("b")))
	rs := mustRuleSet(t, transitiveKnows())

	_, err := e.Prove(context.Background(), goalFor(fact("x", "knows", node("y"))), rs, 0)
	if !errors.Is(err, ErrMissingPrecondition) {
		t.Errorf("expected ErrMissingPrecondition, got %v", err)
	}
}

// Mutually recursive rules with no base case must fail a branch instead
// of spinning.
func TestProveCyclicRules(t *testing.T) {
	e := newTestEngine(t)
	rules := []Rule{
		{
			Name: "a-from-b", Kind: KindInference,
			Conditions: []Condition{{Subject: Var("X"), Predicate: PredTerm("b"), Object: Var("Y")}},
			Actions:    []Action{Assert(Var("X"), PredTerm("a"), Var("Y"))},
		},
		{
			Name: "b-from-a", Kind: KindInference,
			Conditions: []Condition{{Subject: Var("X"), Predicate: PredTerm("a"), Object: Var("Y")}},
			Actions:    []Action{Assert(Var("X"), PredTerm("b"), Var("Y"))},
		},
	}
	rs := mustRuleSet(t, rules...)

	_, err := e.Prove(context.Background(), goalFor(fact("s", "a", node("o"))), rs, 0)
	if err == nil {
		t.Fatal("expected cyclic goal to fail")
	}
	if !errors.Is(err, ErrInferenceLoop) && !errors.Is(err, ErrMissingPrecondition) {
		t.Errorf("unexpected error kind: %v", err)
	}
}

func TestProveDepthCap(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 10; i++ {
		insertFacts(t, e, fact(
			"n"+string(rune('a'+i)), "knows", node("n"+string(rune('a'+i+1)))))
	}
	rs := mustRuleSet(t, transitiveKnows())

	goal := goalFor(fact("na", "knows", node("nk")))
	_, err := e.Prove(context.Background(), goal, rs, 1)
	if err == nil {
		t.Fatal("expected depth-capped proof to fail")
	}
	if !errors.Is(err, ErrMaxDepthExceeded) && !errors.Is(err, ErrInferenceLoop) && !errors.Is(err, ErrMissingPrecondition) {
		t.Errorf("unexpected error kind: %v", err)
	}
}

func TestProveDoesNotMutateGraph(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e,
		fact("a", "knows", node("b")),
		fact("b", "knows", node("c")),
	)
	rs := mustRuleSet(t, transitiveKnows())
	before, _ := e.Store().Stats()

	if _, err := e.Prove(context.Background(), goalFor(fact("a", "knows", node("c"))), rs, 0); err != nil {
		t.Fatal(err)
	}
	_, _ = e.Prove(context.Background(), goalFor(fact("x", "knows", node("y"))), rs, 0)

	after, _ := e.Store().Stats()
	if before.Triples != after.Triples {
		t.Errorf("Prove mutated the graph: %d -> %d triples", before.Triples, after.Triples)
	}
}

func TestProveRespectsConstraints(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e, fact("kid", "age", triple.IntValue(9)))
	rs := mustRuleSet(t, adultRule())

	_, err := e.Prove(context.Background(), goalFor(fact("kid", "adult", triple.BoolValue(true))), rs, 0)
	if err == nil {
		t.Fatal("constraint-violating goal should not be provable")
	}
}

func TestProofDigestStable(t *testing.T) {
	e := newTestEngine(t)
	insertFacts(t, e,
		fact("a", "knows", node("b")),
		fact("b", "knows", node("c")),
	)
	rs := mustRuleSet(t, transitiveKnows())

	proof, err := e.Prove(context.Background(), goalFor(fact("a", "knows", node("c"))), rs, 0)
	if err != nil {
		t.Fatal(err)
	}
	d1, err := proof.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := proof.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("digest not stable across calls")
	}
	if len(d1) != 64 {
		t.Errorf("digest length %d, want 64 hex chars", len(d1))
	}
}
