package weft

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching query results. Implement it with
// your preferred backing store (Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache. Returns nil, nil if the
	// key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL. A zero ttl means the
	// value does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a compiled query for caching. Two statements
// compile to the same key exactly when they compile to the same SQL
// text and arguments.
func CacheKey(table, query string, args []any) string {
	var sb strings.Builder
	sb.WriteString(table)
	sb.WriteByte(':')
	sb.WriteString(query)
	for _, a := range args {
		fmt.Fprintf(&sb, ":%v", a)
	}
	return sb.String()
}

// RowSet is a materialized query result: the projected column names
// and the raw row values. It is the unit of cache storage, encoded
// with msgpack.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Encode serializes the row set for cache storage.
func (rs *RowSet) Encode() ([]byte, error) {
	return msgpack.Marshal(rs)
}

// DecodeRowSet deserializes a cached row set.
func DecodeRowSet(data []byte) (*RowSet, error) {
	var rs RowSet
	if err := msgpack.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("weft: decode cached rows: %w", err)
	}
	return &rs, nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local Cache implementation, safe for
// concurrent use. Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
