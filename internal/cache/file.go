package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileStore keeps one JSON file per entry under <root>/<namespace>/. It
// tolerates concurrent writers via an advisory lock per namespace.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{root: dir, now: time.Now}, nil
}

func (s *FileStore) path(namespace, key string) string {
	return filepath.Join(s.root, namespace, key+".json")
}

// Read loads an entry, honoring the TTL. Corrupt files read as misses.
func (s *FileStore) Read(namespace, key string, ttl time.Duration) (any, bool) {
	raw, err := os.ReadFile(s.path(namespace, key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.expired(ttl, float64(s.now().UnixNano())/float64(time.Second)) {
		return nil, false
	}
	return e.Value, true
}

// Write stores an entry. The write goes to a temp file first so a reader
// never observes a partial entry, with a namespace-level lock serializing
// concurrent writers.
func (s *FileStore) Write(namespace, key string, value any) error {
	dir := filepath.Join(s.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache namespace: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock cache namespace: %w", err)
	}
	defer lock.Unlock()

	raw, err := json.MarshalIndent(entry{
		Timestamp: float64(s.now().UnixNano()) / float64(time.Second),
		Value:     value,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp := s.path(namespace, key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, s.path(namespace, key)); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
