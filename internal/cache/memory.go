package cache

import (
	"context"
	"sync"
	"time"
)

// memoryClient implementa Client usando un map en memoria.
// Usado para desarrollo, testing, y despliegues con scoping per-hop
// (cada servicio protege replays solo contra su propio cache).
type memoryClient struct {
	prefix string
	data   map[string]memoryEntry
	mu     sync.Mutex
	hits   int64
	misses int64
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
	noExpire  bool
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		data:   make(map[string]memoryEntry),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// live retorna la entrada si existe y no expiró. Caller debe tener el lock.
func (c *memoryClient) live(k string) (memoryEntry, bool) {
	entry, ok := c.data[k]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.noExpire && time.Now().After(entry.expiresAt) {
		delete(c.data, k)
		return memoryEntry{}, false
	}
	return entry, true
}

func (c *memoryClient) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(c.key(key))
	if !ok {
		c.misses++
		return "", ErrNotFound
	}
	c.hits++
	return entry.value, nil
}

func (c *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[c.key(key)] = newEntry(value, ttl)
	return nil
}

func (c *memoryClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	if _, ok := c.live(k); ok {
		// Ya existe: no tocamos valor ni TTL
		return false, nil
	}
	c.data[k] = newEntry(value, ttl)
	return true, nil
}

func (c *memoryClient) GetDel(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	entry, ok := c.live(k)
	if !ok {
		c.misses++
		return "", ErrNotFound
	}
	delete(c.data, k)
	c.hits++
	return entry.value, nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, c.key(key))
	return nil
}

func (c *memoryClient) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.live(c.key(key))
	return ok, nil
}

func (c *memoryClient) Ping(ctx context.Context) error {
	return nil
}

func (c *memoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	return nil
}

func (c *memoryClient) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Contar solo keys no expiradas
	var count int64
	now := time.Now()
	for _, entry := range c.data {
		if entry.noExpire || now.Before(entry.expiresAt) {
			count++
		}
	}

	return Stats{
		Driver: "memory",
		Keys:   count,
		Hits:   c.hits,
		Misses: c.misses,
	}, nil
}

func newEntry(value string, ttl time.Duration) memoryEntry {
	entry := memoryEntry{
		value:    value,
		noExpire: ttl == 0,
	}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	return entry
}
