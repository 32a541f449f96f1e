package shared

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr     string
	RedisDB       int
	RedisPass     string
	MemcachedAddr string
	LocalCacheMax int64
	MySQLDSN      string

	AmadeusBase         string
	AmadeusClientID     string
	AmadeusClientSecret string
	HotelFallbackCode   string

	RapidAPIKey       string
	BookingHost       string
	BookingBase       string
	BookingCategories string
	VrboHost          string
	VrboBase          string
	VrboRadiusMiles   float64

	GeocoderBase      string
	GeocoderUserAgent string
	GeocoderRPS       float64
	GeocodeCacheTTL   time.Duration

	ProviderTimeout time.Duration
	// HTTPRetries applies to the token, hotel aggregator and destination rental calls only.
	HTTPRetries     int
	SweepWorkers    int
	// LocationCodes extends the hotel aggregator's alias table (LOCATION_CODES_JSON).
	LocationCodes   map[string]string
}

// Load reads an optional .env, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		MemcachedAddr: env("MEMCACHED_ADDR", ""),
		LocalCacheMax: int64(atoi("LOCAL_CACHE_MAX_ITEMS", 5000)),
		MySQLDSN:      env("MYSQL_DSN", ""),

		AmadeusBase:         env("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),
		AmadeusClientID:     env("AMADEUS_CLIENT_ID", ""),
		AmadeusClientSecret: env("AMADEUS_CLIENT_SECRET", ""),
		HotelFallbackCode:   env("HOTEL_FALLBACK_CITY_CODE", ""),

		RapidAPIKey:       env("RAPIDAPI_KEY", ""),
		BookingHost:       env("RAPIDAPI_HOST_BOOKING", "booking-com15.p.rapidapi.com"),
		BookingBase:       env("BOOKING_BASE_URL", ""),
		BookingCategories: env("BOOKING_CATEGORIES", ""),
		VrboHost:          env("RAPIDAPI_HOST_VRBO", "vrbo1.p.rapidapi.com"),
		VrboBase:          env("VRBO_BASE_URL", ""),
		VrboRadiusMiles:   atof("VRBO_RADIUS_MILES", 1),

		GeocoderBase:      env("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: env("GEOCODER_USER_AGENT", "trip-planner/1.0 (ops@trip-planner.local)"),
		GeocoderRPS:       atof("GEOCODER_RPS", 1),
		GeocodeCacheTTL:   seconds("GEOCODE_CACHE_TTL_SECONDS", 24*3600),

		ProviderTimeout: seconds("PROVIDER_TIMEOUT_SECONDS", 25),
		HTTPRetries:     atoi("HTTP_RETRIES", 2),
		SweepWorkers:    atoi("SWEEP_WORKERS", 4),
		LocationCodes:   codes("LOCATION_CODES_JSON"),
	}
	if c.AmadeusClientID == "" || c.AmadeusClientSecret == "" {
		log.Warn().Msg("AMADEUS_CLIENT_ID/AMADEUS_CLIENT_SECRET are empty; hotel aggregator disabled")
	}
	if c.RapidAPIKey == "" {
		log.Warn().Msg("RAPIDAPI_KEY is empty; rental providers disabled")
	}
	return c
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer config value")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric config value")
	}
	return def
}

func seconds(k string, def int) time.Duration {
	return time.Duration(atoi(k, def)) * time.Second
}

// codes parses a JSON object of alias -> code, e.g. {"outer banks":"ORF"}.
func codes(k string) map[string]string {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		log.Warn().Err(err).Str("key", k).Msg("ignoring malformed location codes")
		return nil
	}
	return out
}
