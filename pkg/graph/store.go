// Package graph implements the content-addressed triple store: one
// storage backend plus three derived in-memory indices (by subject,
// predicate and object) that accelerate pattern queries.
//
// Inserts are idempotent: writing a value-identical triple twice is a
// no-op success, which makes replay-safe writes easy for upstream
// replication. Index hits are candidate hints only; every candidate is
// re-checked against the full pattern before it is returned, so index
// staleness can cost work but never correctness.
package graph

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/duynguyendang/logicgraph/pkg/graph/backend"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// idSet is one bucket of a derived index.
type idSet map[triple.ID]struct{}

// Store owns a backend and the derived indices over it.
type Store struct {
	be backend.Backend

	mu          sync.RWMutex
	bySubject   map[triple.NodeID]idSet
	byPredicate map[triple.Predicate]idSet
	byObject    map[triple.Value]idSet
}

// NewStore wraps a backend and rebuilds the derived indices from its
// current contents. The store takes ownership of the backend; Close
// closes it.
func NewStore(be backend.Backend) (*Store, error) {
	s := &Store{
		be:          be,
		bySubject:   make(map[triple.NodeID]idSet),
		byPredicate: make(map[triple.Predicate]idSet),
		byObject:    make(map[triple.Value]idSet),
	}

	var loaded int
	for item, err := range be.IterAll() {
		if err != nil {
			return nil, fmt.Errorf("rebuilding indices: %w", err)
		}
		t, err := triple.Decode(item.Data)
		if err != nil {
			return nil, fmt.Errorf("rebuilding indices for %s: %w", item.ID, err)
		}
		s.indexAdd(t, item.ID)
		loaded++
	}
	if loaded > 0 {
		slog.Info("graph indices rebuilt", "triples", loaded)
	}
	return s, nil
}

// Insert writes a triple and returns its content address. Inserting a
// value-identical triple again is a no-op success returning the same ID.
func (s *Store) Insert(t triple.Triple) (triple.ID, error) {
	id, _, err := s.insert(t)
	return id, err
}

// InsertStrict is Insert for callers that need de-duplication reported:
// a value-identical triple already present yields ErrDuplicate alongside
// the existing ID.
func (s *Store) InsertStrict(t triple.Triple) (triple.ID, error) {
	id, existed, err := s.insert(t)
	if err != nil {
		return id, err
	}
	if existed {
		return id, fmt.Errorf("%w: %s", ErrDuplicate, t)
	}
	return id, nil
}

func (s *Store) insert(t triple.Triple) (triple.ID, bool, error) {
	data, err := triple.Encode(t)
	if err != nil {
		return triple.ID{}, false, err
	}
	id := triple.IDOfEncoded(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.bySubject[t.Subject]; ok {
		if _, present := set[id]; present {
			duplicateInsertsTotal.Inc()
			return id, true, nil
		}
	}

	if err := s.be.Put(id, data); err != nil {
		return triple.ID{}, false, err
	}
	s.indexAdd(t, id)
	insertsTotal.Inc()
	slog.Debug("triple inserted", "id", id, "triple", t.String())
	return id, false, nil
}

// Delete removes a triple by content address from the backend and every
// index. Returns whether an entry existed.
func (s *Store) Delete(id triple.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.be.Get(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	t, err := triple.Decode(data)
	if err != nil {
		return false, err
	}

	existed, err := s.be.Delete(id)
	if err != nil {
		return false, err
	}
	s.indexRemove(t, id)
	if existed {
		deletesTotal.Inc()
		slog.Debug("triple deleted", "id", id, "triple", t.String())
	}
	return existed, nil
}

// Get loads a triple by content address.
func (s *Store) Get(id triple.ID) (triple.Triple, bool, error) {
	data, ok, err := s.be.Get(id)
	if err != nil || !ok {
		return triple.Triple{}, ok, err
	}
	t, err := triple.Decode(data)
	if err != nil {
		return triple.Triple{}, false, err
	}
	return t, true, nil
}

// Exists reports whether a triple with the given content address is stored.
func (s *Store) Exists(id triple.ID) (bool, error) {
	return s.be.Exists(id)
}

// Contains reports whether a value-identical triple is stored.
func (s *Store) Contains(t triple.Triple) (bool, error) {
	id, err := triple.IDOf(t)
	if err != nil {
		return false, err
	}
	return s.be.Exists(id)
}

// Find returns every stored triple matching the pattern, in unspecified
// order. The most selective bound index supplies candidates; additional
// bound fields intersect them; the all-wildcard pattern falls back to a
// full backend scan.
func (s *Store) Find(p triple.Pattern) ([]triple.Triple, error) {
	findsTotal.Inc()

	if p.IsWildcard() {
		return s.scanAll(p)
	}

	s.mu.RLock()
	candidates := s.candidateSet(p)
	ids := make([]triple.ID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	results := make([]triple.Triple, 0, len(ids))
	for _, id := range ids {
		t, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue // index raced a delete; the re-check absorbs it
		}
		if p.Matches(t) {
			results = append(results, t)
		}
	}
	return results, nil
}

// candidateSet intersects the index buckets of all bound fields,
// starting from the smallest. Caller holds at least the read lock.
func (s *Store) candidateSet(p triple.Pattern) idSet {
	var sets []idSet
	if p.Subject != nil {
		sets = append(sets, s.bySubject[*p.Subject])
	}
	if p.Predicate != nil {
		sets = append(sets, s.byPredicate[*p.Predicate])
	}
	if p.Object != nil {
		sets = append(sets, s.byObject[*p.Object])
	}

	smallest := 0
	for i, set := range sets {
		if len(set) < len(sets[smallest]) {
			smallest = i
		}
	}
	if len(sets[smallest]) == 0 {
		return nil
	}

	out := make(idSet, len(sets[smallest]))
	for id := range sets[smallest] {
		out[id] = struct{}{}
	}
	for i, set := range sets {
		if i == smallest {
			continue
		}
		for id := range out {
			if _, ok := set[id]; !ok {
				delete(out, id)
			}
		}
	}
	return out
}

func (s *Store) scanAll(p triple.Pattern) ([]triple.Triple, error) {
	fullScansTotal.Inc()
	var results []triple.Triple
	for item, err := range s.be.IterAll() {
		if err != nil {
			return nil, err
		}
		t, err := triple.Decode(item.Data)
		if err != nil {
			return nil, err
		}
		if p.Matches(t) {
			results = append(results, t)
		}
	}
	return results, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Triples    int64 `json:"triples"`
	Subjects   int   `json:"subjects"`
	Predicates int   `json:"predicates"`
	Objects    int   `json:"objects"`
}

// Stats derives counts from the backend counter and index sizes.
func (s *Store) Stats() (Stats, error) {
	n, err := s.be.Count()
	if err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Triples:    n,
		Subjects:   len(s.bySubject),
		Predicates: len(s.byPredicate),
		Objects:    len(s.byObject),
	}, nil
}

// Flush forwards to the backend.
func (s *Store) Flush() error { return s.be.Flush() }

// Close closes the underlying backend.
func (s *Store) Close() error { return s.be.Close() }

// indexAdd registers id in all three indices. Caller holds the write
// lock (or is the single-threaded constructor).
func (s *Store) indexAdd(t triple.Triple, id triple.ID) {
	addToIndex(s.bySubject, t.Subject, id)
	addToIndex(s.byPredicate, t.Predicate, id)
	addToIndex(s.byObject, t.Object, id)
}

// indexRemove drops id from all three indices, pruning empty buckets.
func (s *Store) indexRemove(t triple.Triple, id triple.ID) {
	removeFromIndex(s.bySubject, t.Subject, id)
	removeFromIndex(s.byPredicate, t.Predicate, id)
	removeFromIndex(s.byObject, t.Object, id)
}

func addToIndex[K comparable](idx map[K]idSet, key K, id triple.ID) {
	set, ok := idx[key]
	if !ok {
		set = make(idSet)
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex[K comparable](idx map[K]idSet, key K, id triple.ID) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}
