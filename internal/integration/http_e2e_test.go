//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "trip_planner/internal/adapters/http_server"
	"trip_planner/internal/bootstrap"
	"trip_planner/internal/domain"
	"trip_planner/internal/shared"
	mysqlrepo "trip_planner/internal/storage/mysql"
)

// ---------- helpers ----------

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- fake upstreams (all four providers on one server) ----------

type upstreams struct {
	mu       sync.Mutex
	hits     map[string]int
	cityCode string
}

func (u *upstreams) handler(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	if u.hits == nil {
		u.hits = map[string]int{}
	}
	u.hits[r.URL.Path]++
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/security/oauth2/token":
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":1799}`))
	case "/v1/reference-data/locations/hotels/by-city":
		u.mu.Lock()
		u.cityCode = r.URL.Query().Get("cityCode")
		u.mu.Unlock()
		_, _ = w.Write([]byte(`{"data":[{"hotelId":"HC1"}]}`))
	case "/v2/shopping/hotel-offers":
		_, _ = w.Write([]byte(`{"data":[{"hotel":{"hotelId":"HC1","name":"Lighthouse Inn","rating":"3"},
			"offers":[{"price":{"total":"180.00","currency":"USD"}}]}]}`))
	case "/api/v1/hotels/searchDestination":
		_, _ = w.Write([]byte(`{"data":[{"dest_id":"900","search_type":"CITY","dest_type":"city","label":"Corolla"}]}`))
	case "/api/v1/hotels/searchHotels":
		_, _ = w.Write([]byte(`{"data":{"hotels":[
			{"property":{"id":11,"name":"Sound Side","priceBreakdown":{"grossPrice":{"value":250,"currency":"USD"}}}},
			{"property":{"id":12,"name":"Ocean Front","priceBreakdown":{"grossPrice":{"value":900,"currency":"USD"}}}}]}}`))
	case "/search":
		_, _ = w.Write([]byte(`[{"lat":"36.3771","lon":"-75.8302","display_name":"Corolla"}]`))
	case "/vacation-rental-data/vrbo/search":
		_, _ = w.Write([]byte(`{"listings":[{"listingId":"77","propertyMetadata":{"headline":"Wild Horse Cottage"},
			"prices":{"perNight":{"amount":199}},"bedrooms":2,"sleeps":6}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstreams) snapshot() (map[string]int, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	hits := make(map[string]int, len(u.hits))
	for k, v := range u.hits {
		hits[k] = v
	}
	return hits, u.cityCode
}

// ---------- the test ----------

func TestHTTP_EndToEnd_SearchAndRecent(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=trip",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/trip?multiStatements=true&charset=utf8mb4,utf8",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = mysqlrepo.Open(context.Background(), dsn)
		return e
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	ctx := context.Background()
	// a code only the database knows about
	if err := mysqlrepo.New(db).UpsertLocationCodes(ctx, map[string]string{"corolla": "ECG"}); err != nil {
		t.Fatalf("UpsertLocationCodes: %v", err)
	}

	up := &upstreams{}
	fake := httptest.NewServer(http.HandlerFunc(up.handler))
	defer fake.Close()

	stack, err := bootstrap.Build(ctx, shared.Config{
		MySQLDSN:            dsn,
		AmadeusBase:         fake.URL,
		AmadeusClientID:     "id",
		AmadeusClientSecret: "secret",
		RapidAPIKey:         "k",
		BookingBase:         fake.URL,
		VrboBase:            fake.URL,
		GeocoderBase:        fake.URL,
		GeocoderUserAgent:   "trip-planner-e2e",
		GeocodeCacheTTL:     time.Hour,
		ProviderTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer stack.Close()

	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{Search: stack.Search, Places: stack.Places})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// Hit the search endpoint twice; the second geocode comes from cache.
	var body struct {
		RunID    string           `json:"runId"`
		Listings []domain.Listing `json:"listings"`
		Count    int              `json:"count"`
	}
	for i := 0; i < 2; i++ {
		res, err := http.Get(ts.URL + "/v1/search?destination=Corolla&checkIn=2026-06-01&checkOut=2026-06-06&budget=300")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		if res.StatusCode != http.StatusOK {
			t.Fatalf("status %d", res.StatusCode)
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = res.Body.Close()
	}

	if body.Count != 3 || len(body.Listings) != 3 {
		t.Fatalf("unexpected listings: %+v", body.Listings)
	}
	want := []domain.Source{domain.SourceHotelAggregator, domain.SourceRentalSearch, domain.SourceCoordinateRental}
	for i, l := range body.Listings {
		if l.Source != want[i] || l.Price > 300 {
			t.Fatalf("listing %d: %+v", i, l)
		}
	}
	hits, city := up.snapshot()
	if city != "ECG" {
		t.Fatalf("city code from db not used: %q", city)
	}
	if hits["/v1/security/oauth2/token"] != 1 || hits["/search"] != 1 {
		t.Fatalf("token or geocode not reused: %v", hits)
	}

	// Recorded runs, newest first.
	res, err := http.Get(ts.URL + "/v1/searches/recent?limit=5")
	if err != nil {
		t.Fatalf("GET recent: %v", err)
	}
	defer res.Body.Close()
	var recent struct {
		Searches []domain.SearchRun `json:"searches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&recent); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recent.Searches) != 2 || recent.Searches[0].ID != body.RunID {
		t.Fatalf("unexpected recent runs: %+v", recent.Searches)
	}
	if got := recent.Searches[0].Outcomes; len(got) != 3 || got[0].Outcome != domain.KindNone {
		t.Fatalf("unexpected outcomes: %+v", got)
	}
}
