// Package cache provides namespaced TTL caching for provider responses.
// Two backends exist: plain JSON files, and a single SQLite database for
// deployments that run many requests concurrently.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the read/write surface steps use. Read returns (nil, false)
// for missing, expired, or unreadable entries; a cache miss is never an
// error worth failing a step over.
type Store interface {
	Read(namespace, key string, ttl time.Duration) (any, bool)
	Write(namespace, key string, value any) error
	Close() error
}

// Key derives a stable cache key from an arbitrary JSON-encodable payload.
func Key(payload any) string {
	raw, err := canonicalJSON(payload)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON produces deterministic bytes: encoding/json already sorts
// map keys, so one marshal pass suffices.
func canonicalJSON(payload any) ([]byte, error) {
	return json.Marshal(payload)
}

// entry is the stored shape shared by both backends.
type entry struct {
	Timestamp float64 `json:"timestamp"`
	Value     any     `json:"value"`
}

func (e entry) expired(ttl time.Duration, nowUnix float64) bool {
	if ttl <= 0 {
		return false
	}
	age := nowUnix - e.Timestamp
	return age > ttl.Seconds()
}

// Nop is a Store that caches nothing.
type Nop struct{}

func (Nop) Read(string, string, time.Duration) (any, bool) { return nil, false }
func (Nop) Write(string, string, any) error                { return nil }
func (Nop) Close() error                                   { return nil }
