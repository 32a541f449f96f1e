package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"trip_planner/internal/domain"
)

// CachedGeocoder reuses known coordinates so the fair-use geocoder is only
// hit on a miss. No-match results are not cached.
type CachedGeocoder struct {
	next  domain.Geocoder
	cache domain.Cache
	ttl   time.Duration
}

func NewCachedGeocoder(next domain.Geocoder, cache domain.Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache, ttl: ttl}
}

func geoKey(place string) string {
	return "geo:" + strings.Join(strings.Fields(strings.ToLower(place)), " ")
}

func (g *CachedGeocoder) Geocode(ctx context.Context, place string) (*domain.Coords, error) {
	key := geoKey(place)
	var c domain.Coords
	if ok, err := g.cache.Get(ctx, key, &c); ok && err == nil {
		return &c, nil
	} else if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("geocode cache read failed")
	}

	coords, err := g.next.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, key, coords, int(g.ttl.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
	return coords, nil
}
