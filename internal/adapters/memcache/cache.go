// Package memcachead is a domain.Cache on memcached, the alternative shared
// level behind localcache when Redis is not deployed.
package memcachead

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"trip_planner/internal/adapters/observability"
)

const (
	keyPrefix = "trip:"
	// memcached reads larger expirations as absolute unix times
	maxRelativeTTL = 30 * 24 * 3600
)

type Cache struct{ c *memcache.Client }

func New(servers ...string) *Cache { return &Cache{c: memcache.New(servers...)} }

func (m *Cache) Ping(context.Context) error { return m.c.Ping() }

// memcache keys may not contain spaces or control characters.
func key(k string) string {
	b := []byte(keyPrefix + k)
	for i, ch := range b {
		if ch <= ' ' || ch == 0x7f {
			b[i] = '_'
		}
	}
	return string(b)
}

func (m *Cache) Get(_ context.Context, k string, dst any) (bool, error) {
	it, err := m.c.Get(key(k))
	if errors.Is(err, memcache.ErrCacheMiss) {
		observability.ObserveCache("memcached", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("memcached", "error")
		return false, err
	}
	if err := json.Unmarshal(it.Value, dst); err != nil {
		observability.ObserveCache("memcached", "error")
		return false, err
	}
	observability.ObserveCache("memcached", "hit")
	return true, nil
}

func (m *Cache) Set(_ context.Context, k string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("memcached", "set")
	return m.c.Set(&memcache.Item{Key: key(k), Value: b, Expiration: expiration(ttlSec, time.Now())})
}

func expiration(ttlSec int, now time.Time) int32 {
	if ttlSec <= 0 {
		return 0
	}
	if ttlSec > maxRelativeTTL {
		return int32(now.Unix() + int64(ttlSec))
	}
	return int32(ttlSec)
}

func (m *Cache) Del(_ context.Context, k string) error {
	observability.ObserveCache("memcached", "del")
	if err := m.c.Delete(key(k)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}
