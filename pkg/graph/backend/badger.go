package backend

import (
	"encoding/binary"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// Key space of the Badger engine. Triple entries live under a one-byte
// prefix; 0xFF is reserved for system metadata so data keys never
// collide with it.
const (
	triplePrefix byte = 0x01
	systemPrefix byte = 0xFF
)

var keyTripleCount = []byte{systemPrefix, 0x01}

// Badger is the embedded persistent backend built on BadgerDB. An
// optional LRU cache holds recently read values so repeated candidate
// checks during queries skip the storage layer.
type Badger struct {
	db    *badger.DB
	cfg   *Config
	cache *lru.Cache[triple.ID, []byte]

	// count tracks the entry total in RAM; persisted on Flush and Close.
	count atomic.Int64
}

var _ Backend = (*Badger)(nil)

// OpenBadger opens (or creates) a Badger backend under cfg.DataDir.
func OpenBadger(cfg *Config) (*Badger, error) {
	opts := badger.DefaultOptions(filepath.Join(cfg.DataDir, "badger"))
	opts.Logger = nil
	opts.DetectConflicts = false
	opts.SyncWrites = cfg.SyncWrites
	opts.ReadOnly = cfg.ReadOnly
	opts.BloomFalsePositive = 0.01
	if cfg.BlockCacheSize > 0 {
		opts.BlockCacheSize = cfg.BlockCacheSize
	}
	if cfg.IndexCacheSize > 0 {
		opts.IndexCacheSize = cfg.IndexCacheSize
	}
	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger at %s: %v", ErrBackendUnavailable, cfg.DataDir, err)
	}

	b := &Badger{db: db, cfg: cfg}
	if cfg.TripleCacheSize > 0 {
		cache, err := lru.New[triple.ID, []byte](cfg.TripleCacheSize)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: creating read cache: %v", ErrConfig, err)
		}
		b.cache = cache
	}

	if err := b.loadCount(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("badger backend opened", "dataDir", cfg.DataDir, "entries", b.count.Load())
	return b, nil
}

func tripleKey(id triple.ID) []byte {
	key := make([]byte, 1+triple.IDSize)
	key[0] = triplePrefix
	copy(key[1:], id[:])
	return key
}

// loadCount reads the persisted entry counter into RAM.
func (b *Badger) loadCount() error {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyTripleCount)
		if err == badger.ErrKeyNotFound {
			b.count.Store(0)
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) >= 8 {
				b.count.Store(int64(binary.BigEndian.Uint64(val)))
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%w: loading entry count: %v", ErrStorage, err)
	}
	return nil
}

// saveCount writes the RAM counter to disk.
func (b *Badger) saveCount() error {
	if b.cfg.ReadOnly {
		return nil
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(b.count.Load()))
		return txn.Set(keyTripleCount, buf)
	})
	if err != nil {
		return fmt.Errorf("%w: saving entry count: %v", ErrStorage, err)
	}
	return nil
}

// Put stores data under id.
func (b *Badger) Put(id triple.ID, data []byte) error {
	key := tripleKey(id)
	var existed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		switch _, err := txn.Get(key); err {
		case nil:
			existed = true
		case badger.ErrKeyNotFound:
		default:
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, id, err)
	}
	if !existed {
		b.count.Add(1)
	}
	if b.cache != nil {
		cp := make([]byte, len(data))
		copy(cp, data)
		b.cache.Add(id, cp)
	}
	return nil
}

// Get returns the stored bytes for id, consulting the read cache first.
func (b *Badger) Get(id triple.ID) ([]byte, bool, error) {
	if b.cache != nil {
		if data, ok := b.cache.Get(id); ok {
			cp := make([]byte, len(data))
			copy(cp, data)
			return cp, true, nil
		}
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tripleKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrStorage, id, err)
	}
	if b.cache != nil {
		cp := make([]byte, len(data))
		copy(cp, data)
		b.cache.Add(id, cp)
	}
	return data, true, nil
}

// Delete removes the entry for id.
func (b *Badger) Delete(id triple.ID) (bool, error) {
	key := tripleKey(id)
	var existed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		switch _, err := txn.Get(key); err {
		case nil:
			existed = true
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrStorage, id, err)
	}
	if existed {
		b.count.Add(-1)
	}
	if b.cache != nil {
		b.cache.Remove(id)
	}
	return existed, nil
}

// Exists probes for id without loading the value.
func (b *Badger) Exists(id triple.ID) (bool, error) {
	if b.cache != nil && b.cache.Contains(id) {
		return true, nil
	}
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		switch _, err := txn.Get(tripleKey(id)); err {
		case nil:
			found = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrStorage, id, err)
	}
	return found, nil
}

// IterAll streams every triple entry under the data prefix.
func (b *Badger) IterAll() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		txn := b.db.NewTransaction(false)
		defer txn.Discard()

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{triplePrefix}

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{triplePrefix}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != 1+triple.IDSize {
				continue // skip non-triple keys
			}
			var id triple.ID
			copy(id[:], key[1:])

			data, err := item.ValueCopy(nil)
			if err != nil {
				yield(Item{}, fmt.Errorf("%w: iterating: %v", ErrStorage, err))
				return
			}
			if !yield(Item{ID: id, Data: data}, nil) {
				return
			}
		}
	}
}

// Count returns the tracked entry total.
func (b *Badger) Count() (int64, error) {
	return b.count.Load(), nil
}

// SizeBytes returns the combined LSM and value-log size.
func (b *Badger) SizeBytes() (int64, error) {
	lsm, vlog := b.db.Size()
	return lsm + vlog, nil
}

// Flush persists the entry counter and syncs the value log.
func (b *Badger) Flush() error {
	if err := b.saveCount(); err != nil {
		return err
	}
	if b.cfg.ReadOnly {
		return nil
	}
	if err := b.db.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrStorage, err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	slog.Info("closing badger backend", "entries", b.count.Load())
	if err := b.saveCount(); err != nil {
		slog.Error("failed to persist entry count", "error", err)
	}
	if b.cache != nil {
		b.cache.Purge()
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStorage, err)
	}
	return nil
}
