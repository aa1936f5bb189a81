package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/logicgraph/pkg/graph"
	"github.com/duynguyendang/logicgraph/pkg/graph/backend"
)

// GraphMetadata represents the graph information exposed to callers.
type GraphMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MemoryProfile defines the cache sizing strategy for opened backends.
type MemoryProfile string

const (
	MemoryProfileDefault MemoryProfile = "default"
	MemoryProfileLow     MemoryProfile = "low"
	MaxOpenGraphs                      = 10
	GraphListTTL                       = 1 * time.Minute
)

// Manager manages multiple graph stores under a base directory, one
// subdirectory per graph. At most MaxOpenGraphs stay open; the least
// recently used store is closed on eviction.
type Manager struct {
	baseDir       string
	engine        string
	graphs        *lru.Cache[string, *graph.Store]
	mu            sync.RWMutex
	profile       MemoryProfile
	readOnly      bool
	cachedList    []GraphMetadata
	lastListBuild time.Time
}

// NewManager creates a Manager. engine selects the storage engine for
// graphs it opens ("memory", "badger" or "sqlite").
func NewManager(baseDir, engine string, profile MemoryProfile, readOnly bool) *Manager {
	cache, _ := lru.NewWithEvict[string, *graph.Store](MaxOpenGraphs, func(key string, value *graph.Store) {
		_ = value.Close()
	})

	return &Manager{
		baseDir:  baseDir,
		engine:   engine,
		graphs:   cache,
		profile:  profile,
		readOnly: readOnly,
	}
}

// Get retrieves a graph store by ID, opening it if necessary.
func (m *Manager) Get(graphID string) (*graph.Store, error) {
	// lru.Get updates recency
	if s, ok := m.graphs.Get(graphID); ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check under lock
	if s, ok := m.graphs.Get(graphID); ok {
		return s, nil
	}

	graphDir := filepath.Join(m.baseDir, graphID)
	if _, err := os.Stat(graphDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("graph not found: %s", graphID)
	}

	s, err := m.open(graphDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph %s: %w", graphID, err)
	}

	m.graphs.Add(graphID, s)
	return s, nil
}

// Create makes a new graph directory, writes its metadata and opens it.
func (m *Manager) Create(graphID, name, description string) (*graph.Store, error) {
	if m.readOnly {
		return nil, fmt.Errorf("manager is read-only")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	graphDir := filepath.Join(m.baseDir, graphID)
	if _, err := os.Stat(graphDir); err == nil {
		return nil, fmt.Errorf("graph already exists: %s", graphID)
	}
	if err := os.MkdirAll(graphDir, 0o755); err != nil {
		return nil, err
	}

	meta := GraphMetadata{ID: graphID, Name: name, Description: description}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(graphDir, "metadata.json"), data, 0o644); err != nil {
		return nil, err
	}

	s, err := m.open(graphDir)
	if err != nil {
		return nil, err
	}
	m.graphs.Add(graphID, s)
	m.cachedList = nil
	return s, nil
}

func (m *Manager) open(graphDir string) (*graph.Store, error) {
	cfg := backend.DefaultConfig(graphDir)
	if m.engine != "" {
		cfg.Engine = m.engine
	}
	cfg.ReadOnly = m.readOnly

	if m.profile == MemoryProfileLow {
		cfg.BlockCacheSize = 64 << 20
		cfg.IndexCacheSize = 64 << 20
	} else {
		cfg.BlockCacheSize = 128 << 20
		cfg.IndexCacheSize = 128 << 20
	}

	be, err := backend.Open(cfg)
	if err != nil {
		return nil, err
	}
	return graph.NewStore(be)
}

// List returns the graphs available under the base directory. Results
// are cached for GraphListTTL.
func (m *Manager) List() ([]GraphMetadata, error) {
	m.mu.RLock()
	if time.Since(m.lastListBuild) < GraphListTTL && m.cachedList != nil {
		// Return copy to be safe
		list := make([]GraphMetadata, len(m.cachedList))
		copy(list, m.cachedList)
		m.mu.RUnlock()
		return list, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check
	if time.Since(m.lastListBuild) < GraphListTTL && m.cachedList != nil {
		list := make([]GraphMetadata, len(m.cachedList))
		copy(list, m.cachedList)
		return list, nil
	}

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, err
	}

	var graphs []GraphMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		meta := GraphMetadata{ID: id, Name: id}

		metaPath := filepath.Join(m.baseDir, id, "metadata.json")
		if data, err := os.ReadFile(metaPath); err == nil {
			var jsonMeta GraphMetadata
			if err := json.Unmarshal(data, &jsonMeta); err == nil {
				if jsonMeta.Name != "" {
					meta.Name = jsonMeta.Name
				}
				meta.Description = jsonMeta.Description
			}
		}
		graphs = append(graphs, meta)
	}

	m.cachedList = graphs
	m.lastListBuild = time.Now()

	return graphs, nil
}

// CloseAll closes all open graph stores.
func (m *Manager) CloseAll() {
	m.graphs.Purge()
}
