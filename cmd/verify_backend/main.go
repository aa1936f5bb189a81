package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/duynguyendang/logicgraph/pkg/graph"
	"github.com/duynguyendang/logicgraph/pkg/graph/backend"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Seeds the same fact set into every storage engine and checks that
// queries, deletes and counts agree. Run manually when touching a
// backend implementation.
func main() {
	engines := []string{backend.EngineMemory, backend.EngineBadger, backend.EngineSQLite}

	stores := make(map[string]*graph.Store, len(engines))
	for _, eng := range engines {
		dir, err := os.MkdirTemp("", "logicgraph-verify-"+eng+"-*")
		if err != nil {
			log.Fatal(err)
		}
		defer os.RemoveAll(dir)

		cfg := backend.DefaultConfig(dir)
		cfg.Engine = eng
		be, err := backend.Open(cfg)
		if err != nil {
			log.Fatalf("open %s: %v", eng, err)
		}
		s, err := graph.NewStore(be)
		if err != nil {
			log.Fatalf("wrap %s: %v", eng, err)
		}
		defer s.Close()
		stores[eng] = s
	}

	facts := seedFacts()
	fmt.Printf("Seeding %d facts into %d engines...\n", len(facts), len(engines))
	var ids []triple.ID
	for _, t := range facts {
		var first triple.ID
		for i, eng := range engines {
			id, err := stores[eng].Insert(t)
			if err != nil {
				log.Fatalf("insert into %s: %v", eng, err)
			}
			if i == 0 {
				first = id
			} else if id != first {
				log.Fatalf("ID divergence for %s: %s vs %s", t, first, id)
			}
		}
		ids = append(ids, first)
	}
	fmt.Println("  PASS: identical content-derived IDs across engines")

	// Duplicate inserts must be no-ops everywhere.
	for _, eng := range engines {
		if _, err := stores[eng].Insert(facts[0]); err != nil {
			log.Fatalf("duplicate insert on %s: %v", eng, err)
		}
	}
	checkCounts(stores, engines, int64(len(facts)))
	fmt.Println("  PASS: duplicate insert is a no-op")

	patterns := []triple.Pattern{
		triple.Any(),
		triple.Any().WithSubject(triple.NewNodeID("alice")),
		triple.Any().WithPredicate("knows"),
		triple.Any().WithObject(triple.IntValue(30)),
		triple.Any().WithSubject(triple.NewNodeID("alice")).WithPredicate("age"),
	}
	for _, p := range patterns {
		var baseline []string
		for i, eng := range engines {
			got, err := stores[eng].Find(p)
			if err != nil {
				log.Fatalf("find on %s: %v", eng, err)
			}
			rendered := renderSorted(got)
			if i == 0 {
				baseline = rendered
			} else if !equalStrings(baseline, rendered) {
				log.Fatalf("query divergence on %s for %s:\n  %v\n  vs\n  %v", eng, p, baseline, rendered)
			}
		}
		fmt.Printf("  PASS: %s (%d results agree)\n", p, len(baseline))
	}

	// Delete the first fact everywhere and re-check.
	for _, eng := range engines {
		ok, err := stores[eng].Delete(ids[0])
		if err != nil || !ok {
			log.Fatalf("delete on %s: ok=%v err=%v", eng, ok, err)
		}
	}
	checkCounts(stores, engines, int64(len(facts)-1))
	fmt.Println("  PASS: delete agrees across engines")

	fmt.Println("All backends equivalent.")
}

func seedFacts() []triple.Triple {
	return []triple.Triple{
		triple.New(triple.NewNodeID("alice"), "knows", triple.NodeValue(triple.NewNodeID("bob"))),
		triple.New(triple.NewNodeID("bob"), "knows", triple.NodeValue(triple.NewNodeID("carol"))),
		triple.New(triple.NewNodeID("alice"), "age", triple.IntValue(30)),
		triple.New(triple.NewNodeID("bob"), "age", triple.IntValue(30)),
		triple.New(triple.NewNodeID("carol"), "name", triple.StringValue("Carol")),
		triple.New(triple.NewNodeID("carol"), "active", triple.BoolValue(true)),
		triple.New(triple.NewNodeID("dave"), "score", triple.FloatValue(0.75)),
	}
}

func checkCounts(stores map[string]*graph.Store, engines []string, want int64) {
	for _, eng := range engines {
		stats, err := stores[eng].Stats()
		if err != nil {
			log.Fatalf("stats on %s: %v", eng, err)
		}
		if stats.Triples != want {
			log.Fatalf("count divergence on %s: got %d want %d", eng, stats.Triples, want)
		}
	}
}

func renderSorted(ts []triple.Triple) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
