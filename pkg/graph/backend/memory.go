package backend

import (
	"iter"
	"sync"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Memory is the volatile in-memory backend. It is the reference
// implementation of the storage contract and the default for tests.
type Memory struct {
	mu        sync.RWMutex
	entries   map[triple.ID][]byte
	sizeBytes int64
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[triple.ID][]byte)}
}

// Put stores data under id.
func (m *Memory) Put(id triple.ID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[id]; ok {
		m.sizeBytes -= int64(len(old))
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.entries[id] = cp
	m.sizeBytes += int64(len(cp))
	return nil
}

// Get returns the stored bytes for id.
func (m *Memory) Get(id triple.ID) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// Delete removes the entry for id.
func (m *Memory) Delete(id triple.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	m.sizeBytes -= int64(len(data))
	delete(m.entries, id)
	return true, nil
}

// Exists reports whether id is present.
func (m *Memory) Exists(id triple.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok, nil
}

// IterAll streams every entry. The snapshot is taken under the read
// lock, so concurrent writes during iteration are not reflected.
func (m *Memory) IterAll() iter.Seq2[Item, error] {
	m.mu.RLock()
	items := make([]Item, 0, len(m.entries))
	for id, data := range m.entries {
		cp := make([]byte, len(data))
		copy(cp, data)
		items = append(items, Item{ID: id, Data: cp})
	}
	m.mu.RUnlock()

	return func(yield func(Item, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

// Count returns the number of entries.
func (m *Memory) Count() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// SizeBytes returns the total payload size.
func (m *Memory) SizeBytes() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeBytes, nil
}

// Flush is a no-op for the volatile backend.
func (m *Memory) Flush() error { return nil }

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[triple.ID][]byte)
	m.sizeBytes = 0
	return nil
}
