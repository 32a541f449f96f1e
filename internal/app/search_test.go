package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip_planner/internal/app"
	"trip_planner/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type countingGeocoder struct {
	calls  int32
	coords *domain.Coords
	err    error
}

func (g *countingGeocoder) Geocode(context.Context, string) (*domain.Coords, error) {
	atomic.AddInt32(&g.calls, 1)
	return g.coords, g.err
}

// ---- geocode cache ----

func TestCachedGeocoder_MissThenHit(t *testing.T) {
	next := &countingGeocoder{coords: &domain.Coords{Lat: 34.2, Lon: -77.9}}
	cache := &fakeCache{}
	g := app.NewCachedGeocoder(next, cache, time.Hour)

	first, err := g.Geocode(context.Background(), "Wilmington, NC")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "  wilmington,   nc ")
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&next.calls), "normalized key served from cache")
}

func TestCachedGeocoder_NoMatchNotCached(t *testing.T) {
	next := &countingGeocoder{err: domain.ErrNoMatch}
	cache := &fakeCache{}
	g := app.NewCachedGeocoder(next, cache, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := g.Geocode(context.Background(), "Nowhere")
		assert.ErrorIs(t, err, domain.ErrNoMatch)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&next.calls))
	assert.Empty(t, cache.store)
}

// ---- search service ----

func TestSearchService_AppliesDefaults(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	svc := app.NewSearchService(app.NewAggregator(time.Second), app.StandardDefaults()).
		WithClock(func() time.Time { return now })

	got := svc.Complete(domain.SearchRequest{Destination: "SC"})
	assert.Equal(t, "2026-03-03", got.CheckIn, "one month out, normalized by time.AddDate")
	assert.Equal(t, "2026-03-08", got.CheckOut)
	assert.Equal(t, 5, got.Nights())
	assert.Equal(t, 2, got.Adults)
	assert.Equal(t, 0, got.Kids)
	assert.Zero(t, got.Budget, "budget is never defaulted here")
	assert.Equal(t, 10000.0, svc.DefaultBudget())

	kept := svc.Complete(domain.SearchRequest{Destination: "SC", CheckIn: "2026-06-01", Adults: 4, Budget: 800})
	assert.Equal(t, "2026-06-06", kept.CheckOut)
	assert.Equal(t, 4, kept.Adults)
	assert.Equal(t, 800.0, kept.Budget)
}

func TestSearchService_RejectsInvalidRequests(t *testing.T) {
	p := &fakeProvider{name: "p"}
	svc := app.NewSearchService(app.NewAggregator(time.Second, p), app.StandardDefaults())

	_, rep, err := svc.Search(context.Background(), domain.SearchRequest{
		Destination: "NC", CheckIn: "2026-02-10", CheckOut: "2026-02-08",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidDates))
	assert.NotNil(t, rep.Listings)

	_, _, err = svc.Search(context.Background(), domain.SearchRequest{CheckIn: "2026-02-01"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs), "missing destination: %v", err)

	assert.Zero(t, atomic.LoadInt32(&p.calls))
}

func TestSearchService_Aggregates(t *testing.T) {
	p := &fakeProvider{name: "p", out: []domain.Listing{listing("in", 90, "p"), listing("out", 20000, "p")}}
	svc := app.NewSearchService(app.NewAggregator(time.Second, p), app.StandardDefaults())

	req, rep, err := svc.Search(context.Background(), domain.SearchRequest{Destination: "NC", Budget: svc.DefaultBudget()})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, req.Budget)
	assert.Equal(t, []string{"in"}, ids(rep.Listings))
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, 1, rep.Outcomes[0].Count)
}

func TestSearchService_ZeroBudgetKept(t *testing.T) {
	p := &fakeProvider{name: "p", out: []domain.Listing{listing("free", 0, "p"), listing("paid", 250, "p")}}
	svc := app.NewSearchService(app.NewAggregator(time.Second, p), app.StandardDefaults())

	req, rep, err := svc.Search(context.Background(), domain.SearchRequest{Destination: "NC", Budget: 0})
	require.NoError(t, err)
	assert.Zero(t, req.Budget)
	assert.Equal(t, []string{"free"}, ids(rep.Listings))
}

type fakeLog struct {
	runs []domain.SearchRun
	err  error
}

func (l *fakeLog) RecordSearch(_ context.Context, run domain.SearchRun) error {
	l.runs = append(l.runs, run)
	return l.err
}

func (l *fakeLog) RecentSearches(_ context.Context, limit int) ([]domain.SearchRun, error) {
	return l.runs[:min(limit, len(l.runs))], nil
}

func TestSearchService_RecordsRuns(t *testing.T) {
	ok := &fakeProvider{name: "ok", out: []domain.Listing{listing("a", 10, "ok")}}
	off := &fakeProvider{name: "off", err: domain.NewProviderError("off", "config", domain.ErrConfigAbsent)}
	runs := &fakeLog{}
	svc := app.NewSearchService(app.NewAggregator(time.Second, ok, off), app.StandardDefaults()).WithSearchLog(runs)

	_, rep, err := svc.Search(context.Background(), wilmington)
	require.NoError(t, err)
	require.Len(t, runs.runs, 1)

	run := runs.runs[0]
	assert.Equal(t, rep.RunID, run.ID)
	assert.Equal(t, "Wilmington", run.Destination)
	assert.Equal(t, 1, run.Listings)
	require.Len(t, run.Outcomes, 2)
	assert.Equal(t, []domain.RunOutcome{
		{Provider: "ok", Outcome: domain.KindNone, Listings: 1, ElapsedMS: run.Outcomes[0].ElapsedMS},
		{Provider: "off", Outcome: domain.KindConfigAbsent, ElapsedMS: run.Outcomes[1].ElapsedMS},
	}, run.Outcomes)

	recent, err := svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSearchService_LogFailureDoesNotFailSearch(t *testing.T) {
	p := &fakeProvider{name: "p", out: []domain.Listing{listing("a", 10, "p")}}
	svc := app.NewSearchService(app.NewAggregator(time.Second, p), app.StandardDefaults()).
		WithSearchLog(&fakeLog{err: errors.New("db down")})

	_, rep, err := svc.Search(context.Background(), wilmington)
	require.NoError(t, err)
	assert.Len(t, rep.Listings, 1)

	none, err := app.NewSearchService(app.NewAggregator(time.Second), app.StandardDefaults()).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
}
