package backend

import (
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// SQLite is the second persistent backend, backed by an embedded SQLite
// database through database/sql. It exists to prove the storage
// contract is engine-neutral: the equivalence tests run the same
// history against Memory, Badger and SQLite and demand identical
// results.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) a SQLite backend under cfg.DataDir.
func OpenSQLite(cfg *Config) (*SQLite, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrBackendUnavailable, cfg.DataDir, err)
	}
	path := filepath.Join(cfg.DataDir, "triples.db")

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if cfg.SyncWrites {
		dsn += "&_pragma=synchronous(FULL)"
	} else {
		dsn += "&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite at %s: %v", ErrBackendUnavailable, path, err)
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent Put/Delete.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS triples (
		id   BLOB PRIMARY KEY,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", ErrStorage, err)
	}

	slog.Info("sqlite backend opened", "path", path)
	return &SQLite{db: db, path: path}, nil
}

// Put stores data under id.
func (s *SQLite) Put(id triple.ID, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO triples (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		id[:], data,
	)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, id, err)
	}
	return nil
}

// Get returns the stored bytes for id.
func (s *SQLite) Get(id triple.ID) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM triples WHERE id = ?`, id[:]).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrStorage, id, err)
	}
	return data, true, nil
}

// Delete removes the entry for id.
func (s *SQLite) Delete(id triple.ID) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM triples WHERE id = ?`, id[:])
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrStorage, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrStorage, id, err)
	}
	return n > 0, nil
}

// Exists probes for id.
func (s *SQLite) Exists(id triple.ID) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM triples WHERE id = ?`, id[:]).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrStorage, id, err)
	}
	return true, nil
}

// IterAll streams every stored entry.
func (s *SQLite) IterAll() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		rows, err := s.db.Query(`SELECT id, data FROM triples`)
		if err != nil {
			yield(Item{}, fmt.Errorf("%w: iterating: %v", ErrStorage, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rawID, data []byte
			if err := rows.Scan(&rawID, &data); err != nil {
				yield(Item{}, fmt.Errorf("%w: iterating: %v", ErrStorage, err))
				return
			}
			if len(rawID) != triple.IDSize {
				yield(Item{}, fmt.Errorf("%w: malformed id of %d bytes", ErrStorage, len(rawID)))
				return
			}
			var id triple.ID
			copy(id[:], rawID)
			if !yield(Item{ID: id, Data: data}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Item{}, fmt.Errorf("%w: iterating: %v", ErrStorage, err))
		}
	}
}

// Count returns the number of stored entries.
func (s *SQLite) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM triples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorage, err)
	}
	return n, nil
}

// SizeBytes returns the database size from the page pragmas.
func (s *SQLite) SizeBytes() (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("%w: page_count: %v", ErrStorage, err)
	}
	if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("%w: page_size: %v", ErrStorage, err)
	}
	return pageCount * pageSize, nil
}

// Flush checkpoints the WAL.
func (s *SQLite) Flush() error {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("%w: checkpoint: %v", ErrStorage, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	slog.Info("closing sqlite backend", "path", s.path)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStorage, err)
	}
	return nil
}
