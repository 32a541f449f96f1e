package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trip", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trip", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	ProviderOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "provider_outcomes_total", Help: "Provider search outcomes per aggregation."},
		[]string{"provider", "outcome"}, // outcome: ok|empty|config_absent|auth_failed|no_match|upstream|timeout
	)
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trip", Name: "provider_search_duration_seconds",
			Help:    "Provider search duration seconds, including auth and geocoding.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	BudgetDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "budget_dropped_listings_total", Help: "Listings excluded by the budget filter."},
		[]string{"provider"},
	)
	ListingsReturned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "listings_returned_total", Help: "Listings contributed to aggregate results."},
		[]string{"provider"},
	)
	DuplicateIDs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "duplicate_listing_ids_total", Help: "Listing ids repeated within one aggregation."},
		[]string{"provider"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip", Name: "credential_refreshes_total", Help: "Client-credentials token exchanges."},
		[]string{"provider", "result"}, // result: ok|error
	)
)

var collectors = []prometheus.Collector{
	HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
	ProviderOutcomes, ProviderLatency, BudgetDrops, ListingsReturned, DuplicateIDs, TokenRefreshes,
}

// Serve starts a standalone metrics listener; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// InitRegistry registers the collectors once per registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		_ = reg.Register(c)
	}
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call; status 0 means the call never got a response.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveProvider(provider, outcome string, dur time.Duration) {
	ProviderOutcomes.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(dur.Seconds())
}

func ObserveListings(provider string, n int) {
	ListingsReturned.WithLabelValues(provider).Add(float64(n))
}

func ObserveBudgetDrop(provider string) {
	BudgetDrops.WithLabelValues(provider).Inc()
}

func ObserveDuplicateID(provider string) {
	DuplicateIDs.WithLabelValues(provider).Inc()
}

func ObserveTokenRefresh(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TokenRefreshes.WithLabelValues(provider, result).Inc()
}
