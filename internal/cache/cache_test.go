package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKeyStability(t *testing.T) {
	a := Key(map[string]any{"url": "https://x.test", "method": "GET"})
	b := Key(map[string]any{"method": "GET", "url": "https://x.test"})
	if a != b {
		t.Errorf("Key() differs for equal payloads: %s vs %s", a, b)
	}
	c := Key(map[string]any{"url": "https://y.test", "method": "GET"})
	if a == c {
		t.Error("Key() collided for different payloads")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer store.Close()

	value := map[string]any{"count": 3.0, "name": "animals"}
	if err := store.Write("indexer_search", "abc", value); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok := store.Read("indexer_search", "abc", time.Hour)
	if !ok {
		t.Fatal("Read() miss after write")
	}
	m, ok := got.(map[string]any)
	if !ok || m["name"] != "animals" || m["count"] != 3.0 {
		t.Errorf("Read() = %#v", got)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, ok := store.Read("ns", "nothing", time.Hour); ok {
		t.Error("Read() hit on a key never written")
	}
}

func TestFileStoreTTLExpiry(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Write("ns", "k", "v"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := store.Read("ns", "k", time.Hour); !ok {
		t.Error("Read() expired a fresh entry")
	}

	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := store.Read("ns", "k", time.Hour); ok {
		t.Error("Read() returned an entry past its TTL")
	}
	if _, ok := store.Read("ns", "k", 0); !ok {
		t.Error("Read() with zero TTL should never expire")
	}
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "ns"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ns", "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Read("ns", "bad", time.Hour); ok {
		t.Error("Read() returned a value from a corrupt file")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Write("tracker_group", "g1", map[string]any{"id": 42.0}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, ok := store.Read("tracker_group", "g1", time.Hour)
	if !ok {
		t.Fatal("Read() miss after write")
	}
	m, ok := got.(map[string]any)
	if !ok || m["id"] != 42.0 {
		t.Errorf("Read() = %#v", got)
	}

	// Same key in a different namespace stays independent.
	if _, ok := store.Read("other", "g1", time.Hour); ok {
		t.Error("Read() crossed namespaces")
	}
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Write("ns", "k", "first"); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("ns", "k", "second"); err != nil {
		t.Fatal(err)
	}
	got, ok := store.Read("ns", "k", time.Hour)
	if !ok || got != "second" {
		t.Errorf("Read() = %v, %v; want second", got, ok)
	}
}

func TestSQLiteStoreTTLExpiry(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Write("ns", "k", "v"); err != nil {
		t.Fatal(err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := store.Read("ns", "k", time.Hour); ok {
		t.Error("Read() returned an entry past its TTL")
	}
}

func TestNopNeverStores(t *testing.T) {
	var store Nop
	if err := store.Write("ns", "k", "v"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, ok := store.Read("ns", "k", time.Hour); ok {
		t.Error("Nop.Read() reported a hit")
	}
}
