// Package localcache is an in-process domain.Cache on ccache, optionally
// fronting a shared cache (Redis or memcached) as a second level.
package localcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/rs/zerolog/log"

	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/domain"
)

const (
	defaultSize = 5000
	// entries refilled from the shared level live locally at most this long
	refillTTL = 5 * time.Minute
)

type Cache struct {
	local *ccache.Cache[[]byte]
	next  domain.Cache
}

// New returns a bounded local cache. next may be nil.
func New(maxSize int64, next domain.Cache) *Cache {
	if maxSize <= 0 {
		maxSize = defaultSize
	}
	return &Cache{
		local: ccache.New(ccache.Configure[[]byte]().MaxSize(maxSize)),
		next:  next,
	}
}

func (c *Cache) Stop() { c.local.Stop() }

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		observability.ObserveCache("local", "hit")
		return true, json.Unmarshal(item.Value(), dst)
	}
	observability.ObserveCache("local", "miss")
	if c.next == nil {
		return false, nil
	}

	var raw json.RawMessage
	ok, err := c.next.Get(ctx, key, &raw)
	if !ok || err != nil {
		return false, err
	}
	c.local.Set(key, raw, refillTTL)
	return true, json.Unmarshal(raw, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := time.Duration(ttlSec) * time.Second
	if ttlSec <= 0 {
		ttl = 24 * time.Hour
	}
	c.local.Set(key, b, ttl)
	observability.ObserveCache("local", "set")
	if c.next != nil {
		if err := c.next.Set(ctx, key, json.RawMessage(b), ttlSec); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("shared cache write failed")
		}
	}
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	c.local.Delete(key)
	observability.ObserveCache("local", "del")
	if c.next != nil {
		return c.next.Del(ctx, key)
	}
	return nil
}
