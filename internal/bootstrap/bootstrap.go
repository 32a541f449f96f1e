// Package bootstrap builds the search stack from Config; both binaries share it.
package bootstrap

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"trip_planner/internal/adapters/amadeus"
	"trip_planner/internal/adapters/booking"
	"trip_planner/internal/adapters/credentials"
	"trip_planner/internal/adapters/httpclient"
	"trip_planner/internal/adapters/localcache"
	memcachead "trip_planner/internal/adapters/memcache"
	"trip_planner/internal/adapters/nominatim"
	redisad "trip_planner/internal/adapters/redis"
	"trip_planner/internal/adapters/vrbo"
	"trip_planner/internal/app"
	"trip_planner/internal/domain"
	"trip_planner/internal/shared"
	mysqlrepo "trip_planner/internal/storage/mysql"
)

type Stack struct {
	Search  *app.SearchService
	Places  *booking.Client
	closers []func()
}

// Close releases pools and caches in reverse build order.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build wires providers, caches and the optional MySQL store. Optional
// backends that fail to connect are logged and skipped; only a bad
// geocoder configuration is fatal.
func Build(ctx context.Context, cfg shared.Config) (*Stack, error) {
	st := &Stack{}

	var db *sql.DB
	if cfg.MySQLDSN != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err := mysqlrepo.Open(pingCtx, cfg.MySQLDSN)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("mysql unavailable; location codes and search log disabled")
		} else {
			db = conn
			st.closers = append(st.closers, func() { _ = db.Close() })
			log.Info().Msg("database connection ok")
		}
	}

	cache := buildCache(ctx, cfg, st)

	codes := domain.NewLocationTable(amadeus.DefaultLocationCodes()).WithFallback(cfg.HotelFallbackCode)
	codes.Merge(cfg.LocationCodes)

	var repo *mysqlrepo.Repo
	if db != nil {
		repo = mysqlrepo.New(db)
		loadCodes(ctx, repo, codes)
	}

	nom, err := nominatim.New(cfg.GeocoderBase, cfg.GeocoderUserAgent,
		httpclient.New("nominatim", httpclient.WithRateLimit(cfg.GeocoderRPS, 1)))
	if err != nil {
		return nil, err
	}
	geo := app.NewCachedGeocoder(nom, cache, cfg.GeocodeCacheTTL)

	// geocoder and coordinate rental calls stay single-shot
	retries := httpclient.WithRetries(cfg.HTTPRetries)
	store := credentials.NewStore(httpclient.New("oauth", retries))
	hotels := amadeus.New(amadeus.Config{
		BaseURL:      cfg.AmadeusBase,
		ClientID:     cfg.AmadeusClientID,
		ClientSecret: cfg.AmadeusClientSecret,
	}, store, codes, httpclient.New("amadeus", retries))

	rentals := booking.New(booking.Config{
		APIKey:     cfg.RapidAPIKey,
		Host:       cfg.BookingHost,
		BaseURL:    cfg.BookingBase,
		Categories: cfg.BookingCategories,
	}, httpclient.New("booking", retries))

	stays := vrbo.New(vrbo.Config{
		APIKey:      cfg.RapidAPIKey,
		Host:        cfg.VrboHost,
		BaseURL:     cfg.VrboBase,
		RadiusMiles: cfg.VrboRadiusMiles,
	}, geo, httpclient.New("vrbo"))

	agg := app.NewAggregator(cfg.ProviderTimeout, hotels, rentals, stays)
	svc := app.NewSearchService(agg, app.StandardDefaults())
	if repo != nil {
		svc = svc.WithSearchLog(repo)
	}

	st.Search = svc
	st.Places = rentals
	log.Info().
		Int("location_codes", codes.Len()).
		Bool("search_log", repo != nil).
		Dur("provider_timeout", cfg.ProviderTimeout).
		Int("http_retries", cfg.HTTPRetries).
		Msg("search stack ready")
	return st, nil
}

// buildCache returns a local ccache level in front of Redis, else memcached, else nothing.
func buildCache(ctx context.Context, cfg shared.Config, st *Stack) domain.Cache {
	var l2 domain.Cache
	switch {
	case cfg.RedisAddr != "":
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; local cache only")
			_ = rc.Close()
			break
		}
		st.closers = append(st.closers, func() { _ = rc.Close() })
		l2 = rc
	case cfg.MemcachedAddr != "":
		mc := memcachead.New(cfg.MemcachedAddr)
		if err := mc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcachedAddr).Msg("memcached unavailable; local cache only")
			break
		}
		l2 = mc
	}

	local := localcache.New(cfg.LocalCacheMax, l2)
	st.closers = append(st.closers, local.Stop)
	return local
}

func loadCodes(ctx context.Context, src domain.LocationCodeSource, into *domain.LocationTable) {
	rows, err := src.ListLocationCodes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load location codes failed")
		return
	}
	into.Merge(rows)
}
