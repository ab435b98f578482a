package directory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/passbridge/internal/cache/local"
)

// Cached memoiza ResolveRole por instancia con un TTL corto.
// Singleflight colapsa lookups concurrentes del mismo principal (dos tabs
// presentando el mismo handoff a la vez) en una sola consulta al backend.
// Solo memoiza éxitos: NotFound y fallos de backend se consultan siempre.
type Cached struct {
	inner Resolver
	memo  *local.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewCached(inner Resolver, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cached{
		inner: inner,
		memo:  local.New(ttl),
		ttl:   ttl,
	}
}

func (c *Cached) ResolveRole(ctx context.Context, principalID string) (Principal, error) {
	key := strings.ToLower(principalID)

	if b, ok := c.memo.Get(key); ok {
		var p Principal
		if json.Unmarshal(b, &p) == nil {
			return p, nil
		}
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		p, err := c.inner.ResolveRole(ctx, principalID)
		if err != nil {
			return Principal{}, err
		}
		if b, err := json.Marshal(p); err == nil {
			c.memo.Set(key, b, c.ttl)
		}
		return p, nil
	})
	if err != nil {
		return Principal{}, err
	}
	return v.(Principal), nil
}
