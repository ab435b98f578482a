// Package local provee un cache process-local sin dependencias de red,
// usado para memoizar lookups del directorio. No confundir con el cache
// compartido (internal/cache): esto es una optimización por instancia,
// no parte del protocolo.
package local

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Cache struct{ c *gocache.Cache }

// New crea un cache local con el TTL default dado.
// La limpieza de entradas expiradas corre cada minuto.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Cache) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	return b, true
}

func (m *Cache) Set(k string, v []byte, ttl time.Duration) { m.c.Set(k, v, ttl) }
func (m *Cache) Delete(k string)                           { m.c.Delete(k) }
