package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    timestamp  REAL NOT NULL,
    value      TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// SQLiteStore keeps all entries in one SQLite database. WAL mode lets
// batch workers share it without serializing reads behind writes.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Read(namespace, key string, ttl time.Duration) (any, bool) {
	var (
		timestamp float64
		raw       string
	)
	row := s.db.QueryRow(
		`SELECT timestamp, value FROM cache_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	if err := row.Scan(&timestamp, &raw); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false
		}
		return nil, false
	}
	e := entry{Timestamp: timestamp}
	if e.expired(ttl, float64(s.now().UnixNano())/float64(time.Second)) {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false
	}
	return value, true
}

func (s *SQLiteStore) Write(namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO cache_entries (namespace, key, timestamp, value)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (namespace, key) DO UPDATE SET timestamp = excluded.timestamp, value = excluded.value`,
		namespace, key, float64(s.now().UnixNano())/float64(time.Second), string(raw),
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
