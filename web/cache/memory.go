package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend keeps sessions in process memory. Expired entries are
// invisible immediately and reclaimed by Cleanup.
type MemoryBackend struct {
	items *gocache.Cache
}

// NewMemoryBackend returns an empty backend. There is no janitor goroutine;
// the session cleanup job calls Cleanup.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: gocache.New(defaultMaxAge*time.Second, 0)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, data []byte, ttl time.Duration) error {
	// copy: the caller's buffer may be reused
	m.items.Set(key, append([]byte(nil), data...), ttl)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *MemoryBackend) Cleanup() int {
	m.items.DeleteExpired()
	return m.items.ItemCount()
}

func (m *MemoryBackend) Close() error {
	m.items.Flush()
	return nil
}
