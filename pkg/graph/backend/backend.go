// Package backend defines the storage capability contract for the graph
// store and its interchangeable implementations: a volatile in-memory
// map, an embedded BadgerDB store, and an embedded SQLite store.
//
// A backend is a flat key-value mapping from triple.ID to the canonical
// serialized byte form of a triple. It guarantees safe concurrent Put,
// Get and Delete at single-operation granularity; there is no
// cross-operation atomicity. Callers never depend on a concrete type,
// only on the Backend interface chosen at construction time via Open.
package backend

import (
	"errors"
	"iter"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Storage-layer error kinds.
var (
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage error")
	ErrConfig             = errors.New("invalid configuration")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Item is one stored entry: an identifier and the canonical triple bytes.
type Item struct {
	ID   triple.ID
	Data []byte
}

// Backend is the storage capability contract. Iteration order of IterAll
// is unspecified; callers must not depend on it.
type Backend interface {
	// Put stores data under id, overwriting any existing entry.
	Put(id triple.ID, data []byte) error

	// Get returns the stored bytes and whether the entry exists.
	Get(id triple.ID) ([]byte, bool, error)

	// Delete removes the entry and reports whether it existed.
	Delete(id triple.ID) (bool, error)

	// Exists reports whether an entry is present.
	Exists(id triple.ID) (bool, error)

	// IterAll streams every stored entry in unspecified order.
	IterAll() iter.Seq2[Item, error]

	// Count returns the number of stored entries.
	Count() (int64, error)

	// SizeBytes returns the approximate on-disk or in-memory size.
	SizeBytes() (int64, error)

	// Flush forces buffered writes to durable storage.
	Flush() error

	// Close releases all resources. The backend is unusable afterwards.
	Close() error
}

// existsViaGet derives Exists from Get for backends without a cheaper
// membership probe.
func existsViaGet(b Backend, id triple.ID) (bool, error) {
	_, ok, err := b.Get(id)
	return ok, err
}
