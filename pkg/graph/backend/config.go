package backend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Engine names accepted by Config.Engine.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
)

// Config selects and tunes a storage backend.
type Config struct {
	// Engine is one of "memory", "badger" or "sqlite".
	Engine string `yaml:"engine"`

	// DataDir is the directory for persistent engines.
	DataDir string `yaml:"data_dir"`

	// BlockCacheSize is the Badger block cache size in bytes.
	BlockCacheSize int64 `yaml:"block_cache_size"`

	// IndexCacheSize is the Badger index cache size in bytes.
	IndexCacheSize int64 `yaml:"index_cache_size"`

	// TripleCacheSize is the number of decoded entries held in the LRU
	// read cache in front of a persistent engine. 0 disables the cache.
	TripleCacheSize int `yaml:"triple_cache_size"`

	// SyncWrites forces synchronous writes. Disabled by default for
	// throughput; recent writes may be lost on crash.
	SyncWrites bool `yaml:"sync_writes"`

	// Compression enables ZSTD compression for the Badger engine.
	Compression bool `yaml:"compression"`

	// ReadOnly opens the backend in read-only mode.
	ReadOnly bool `yaml:"read_only"`
}

// DefaultConfig returns a production-ready Badger configuration.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		Engine:          EngineBadger,
		DataDir:         dataDir,
		BlockCacheSize:  256 << 20,
		IndexCacheSize:  64 << 20,
		TripleCacheSize: 65536,
		Compression:     true,
		SyncWrites:      false,
	}
}

// Validate checks the configuration and returns an error if it cannot
// be used to open a backend.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineMemory:
	case EngineBadger, EngineSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("%w: DataDir must be set for engine %q", ErrConfig, c.Engine)
		}
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrConfig, c.Engine)
	}
	if c.BlockCacheSize < 0 {
		return fmt.Errorf("%w: BlockCacheSize must be non-negative, got %d", ErrConfig, c.BlockCacheSize)
	}
	if c.IndexCacheSize < 0 {
		return fmt.Errorf("%w: IndexCacheSize must be non-negative, got %d", ErrConfig, c.IndexCacheSize)
	}
	if c.TripleCacheSize < 0 {
		return fmt.Errorf("%w: TripleCacheSize must be non-negative, got %d", ErrConfig, c.TripleCacheSize)
	}
	return nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Open constructs the backend selected by the configuration.
func Open(cfg *Config) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Engine {
	case EngineMemory:
		return NewMemory(), nil
	case EngineBadger:
		return OpenBadger(cfg)
	case EngineSQLite:
		return OpenSQLite(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrConfig, cfg.Engine)
	}
}
