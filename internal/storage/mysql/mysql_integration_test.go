//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"trip_planner/internal/domain"
	mysqlrepo "trip_planner/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	// package dir is internal/storage/mysql
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

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

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
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
	return db
}

func TestRepo_MySQL_LocationCodesAndSearchRuns(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// seeded by the migration
	codes, err := repo.ListLocationCodes(ctx)
	if err != nil {
		t.Fatalf("ListLocationCodes: %v", err)
	}
	if codes["outer banks"] != "ORF" {
		t.Fatalf("expected seeded alias, got %v", codes)
	}

	if err := repo.UpsertLocationCodes(ctx, map[string]string{" Kiawah Island ": "chs", "savannah": "SVN"}); err != nil {
		t.Fatalf("UpsertLocationCodes: %v", err)
	}
	codes, _ = repo.ListLocationCodes(ctx)
	if codes["kiawah island"] != "CHS" || codes["savannah"] != "SVN" {
		t.Fatalf("upsert not applied: %v", codes)
	}

	// the table feeds the hotel aggregator's resolver
	table := domain.NewLocationTable(nil)
	table.Merge(codes)
	if code, ok := table.Resolve("Kiawah Island, SC"); !ok || code != "CHS" {
		t.Fatalf("resolve via db codes: %q %v", code, ok)
	}

	run := domain.SearchRun{
		ID: uuid.NewString(), Destination: "Wilmington", CheckIn: "2026-01-04", CheckOut: "2026-01-09",
		Adults: 2, Budget: 300, Listings: 1,
		Outcomes: []domain.RunOutcome{
			{Provider: domain.SourceHotelAggregator, Outcome: domain.KindConfigAbsent},
			{Provider: domain.SourceRentalSearch, Outcome: domain.KindNone, Listings: 1, ElapsedMS: 420},
		},
	}
	if err := repo.RecordSearch(ctx, run); err != nil {
		t.Fatalf("RecordSearch: %v", err)
	}
	if err := repo.RecordSearch(ctx, run); err == nil {
		t.Fatalf("duplicate run id must fail")
	}

	got, err := repo.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 1 || got[0].ID != run.ID || got[0].CheckIn != "2026-01-04" || got[0].Budget != 300 {
		t.Fatalf("unexpected runs: %+v", got)
	}
	if len(got[0].Outcomes) != 2 || got[0].Outcomes[1].Listings != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected outcomes: %+v", got[0])
	}
}
