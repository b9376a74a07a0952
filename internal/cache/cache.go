package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long adapter responses are reused before the
// upstream source is queried again.
const DefaultTTL = 24 * time.Hour

// Key identifies one cached adapter response. Two fetches with the same key
// are interchangeable, so concurrent repopulation of a key is harmless.
type Key struct {
	Source     string
	Lat        float64
	Lng        float64
	MaxResults int
	ADA        *bool
	Unisex     *bool
}

func (k Key) String() string {
	return fmt.Sprintf("extloc:%s:%g:%g:%d:%s:%s",
		k.Source, k.Lat, k.Lng, k.MaxResults, boolFlag(k.ADA), boolFlag(k.Unisex))
}

func boolFlag(b *bool) string {
	if b == nil {
		return "-"
	}
	if *b {
		return "t"
	}
	return "f"
}

// Cache stores serialized values under string keys with an expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

// Memory is a process-local Cache backed by a map.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.val, true
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{val: val, expiresAt: m.now().Add(ttl)}
}

// Redis is a Cache backed by a shared redis instance. Errors are treated as
// misses: a broken cache degrades to fetching from the source, never fails
// the caller.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	r.rdb.Set(ctx, key, val, ttl)
}
