package backend

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

func openTestBackend(t *testing.T, engine string) Backend {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.Engine = engine
	be, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open(%s): %v", engine, err)
	}
	t.Cleanup(func() { _ = be.Close() })
	return be
}

func testID(n int) triple.ID {
	t := triple.New(triple.NewNodeID(fmt.Sprintf("node-%d", n)), "p", triple.IntValue(int64(n)))
	id, err := triple.IDOf(t)
	if err != nil {
		panic(err)
	}
	return id
}

func testData(n int) []byte {
	t := triple.New(triple.NewNodeID(fmt.Sprintf("node-%d", n)), "p", triple.IntValue(int64(n)))
	data, err := triple.Encode(t)
	if err != nil {
		panic(err)
	}
	return data
}

// Contract test shared by every engine.
func TestBackendContract(t *testing.T) {
	for _, engine := range []string{EngineMemory, EngineBadger, EngineSQLite} {
		t.Run(engine, func(t *testing.T) {
			be := openTestBackend(t, engine)

			id, data := testID(1), testData(1)

			if _, ok, err := be.Get(id); err != nil || ok {
				t.Fatalf("Get on empty backend: ok=%v err=%v", ok, err)
			}
			if ok, err := be.Exists(id); err != nil || ok {
				t.Fatalf("Exists on empty backend: ok=%v err=%v", ok, err)
			}

			if err := be.Put(id, data); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok, err := be.Get(id)
			if err != nil || !ok {
				t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Get returned %x, want %x", got, data)
			}
			if ok, err := be.Exists(id); err != nil || !ok {
				t.Errorf("Exists after Put: ok=%v err=%v", ok, err)
			}
			if n, err := be.Count(); err != nil || n != 1 {
				t.Errorf("Count after Put: n=%d err=%v", n, err)
			}

			// Overwrite must not double-count.
			if err := be.Put(id, data); err != nil {
				t.Fatalf("overwrite Put: %v", err)
			}
			if n, err := be.Count(); err != nil || n != 1 {
				t.Errorf("Count after overwrite: n=%d err=%v", n, err)
			}

			existed, err := be.Delete(id)
			if err != nil || !existed {
				t.Fatalf("Delete: existed=%v err=%v", existed, err)
			}
			existed, err = be.Delete(id)
			if err != nil || existed {
				t.Fatalf("second Delete: existed=%v err=%v", existed, err)
			}
			if n, err := be.Count(); err != nil || n != 0 {
				t.Errorf("Count after Delete: n=%d err=%v", n, err)
			}
		})
	}
}

func TestBackendIterAll(t *testing.T) {
	for _, engine := range []string{EngineMemory, EngineBadger, EngineSQLite} {
		t.Run(engine, func(t *testing.T) {
			be := openTestBackend(t, engine)

			const n = 25
			want := make(map[triple.ID][]byte, n)
			for i := 0; i < n; i++ {
				id, data := testID(i), testData(i)
				want[id] = data
				if err := be.Put(id, data); err != nil {
					t.Fatalf("Put %d: %v", i, err)
				}
			}

			seen := make(map[triple.ID][]byte, n)
			for item, err := range be.IterAll() {
				if err != nil {
					t.Fatalf("IterAll: %v", err)
				}
				seen[item.ID] = item.Data
			}
			if len(seen) != n {
				t.Fatalf("IterAll yielded %d items, want %d", len(seen), n)
			}
			for id, data := range want {
				if !bytes.Equal(seen[id], data) {
					t.Errorf("IterAll data mismatch for %s", id)
				}
			}
		})
	}
}

func TestBackendPersistence(t *testing.T) {
	for _, engine := range []string{EngineBadger, EngineSQLite} {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			cfg := DefaultConfig(dir)
			cfg.Engine = engine

			be, err := Open(cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			id, data := testID(7), testData(7)
			if err := be.Put(id, data); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := be.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if err := be.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			be, err = Open(cfg)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer be.Close()

			got, ok, err := be.Get(id)
			if err != nil || !ok {
				t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(got, data) {
				t.Error("data changed across restart")
			}
			if n, err := be.Count(); err != nil || n != 1 {
				t.Errorf("Count after reopen: n=%d err=%v", n, err)
			}
		})
	}
}

func TestBackendSizeBytes(t *testing.T) {
	for _, engine := range []string{EngineMemory, EngineBadger, EngineSQLite} {
		t.Run(engine, func(t *testing.T) {
			be := openTestBackend(t, engine)
			for i := 0; i < 10; i++ {
				if err := be.Put(testID(i), testData(i)); err != nil {
					t.Fatal(err)
				}
			}
			n, err := be.SizeBytes()
			if err != nil {
				t.Fatalf("SizeBytes: %v", err)
			}
			if n < 0 {
				t.Errorf("SizeBytes negative: %d", n)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Engine: EngineMemory}, false},
		{"badger with dir", Config{Engine: EngineBadger, DataDir: "/tmp/x"}, false},
		{"badger without dir", Config{Engine: EngineBadger}, true},
		{"sqlite without dir", Config{Engine: EngineSQLite}, true},
		{"unknown engine", Config{Engine: "etcd"}, true},
		{"negative cache", Config{Engine: EngineMemory, TripleCacheSize: -1}, true},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err != nil) != c.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", c.name, err, c.wantErr)
		}
		if err != nil && !errors.Is(err, ErrConfig) {
			t.Errorf("%s: error %v is not ErrConfig", c.name, err)
		}
	}
}

func TestOpenUnknownEngine(t *testing.T) {
	if _, err := Open(&Config{Engine: "bolt"}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
	if _, err := Open(nil); !errors.Is(err, ErrConfig) {
		t.Errorf("nil config: expected ErrConfig, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/backend.yaml"
	yaml := "engine: sqlite\ndata_dir: " + dir + "\ntriple_cache_size: 128\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine != EngineSQLite || cfg.DataDir != dir || cfg.TripleCacheSize != 128 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := LoadConfig(dir + "/missing.yaml"); !errors.Is(err, ErrConfig) {
		t.Errorf("missing file: expected ErrConfig, got %v", err)
	}
}
