package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trip_planner/internal/domain"
)

// Defaults fill what a caller left out of a SearchRequest.
type Defaults struct {
	CheckInAfterMonths int
	Nights             int
	Adults             int
	Budget             float64
}

func StandardDefaults() Defaults {
	return Defaults{CheckInAfterMonths: 1, Nights: 5, Adults: 2, Budget: 10000}
}

// SearchService is the caller side of the aggregator: it owns date/guest/budget
// defaults and validation, which the aggregation pipeline itself never does.
type SearchService struct {
	agg      *Aggregator
	defaults Defaults
	now      func() time.Time
	runs     domain.SearchLog
}

func NewSearchService(agg *Aggregator, d Defaults) *SearchService {
	return &SearchService{agg: agg, defaults: d, now: time.Now}
}

// WithClock is for tests that pin "one month out".
func (s *SearchService) WithClock(now func() time.Time) *SearchService {
	s.now = now
	return s
}

// WithSearchLog records every aggregation's outcomes. Recording is best-effort.
func (s *SearchService) WithSearchLog(l domain.SearchLog) *SearchService {
	s.runs = l
	return s
}

// Recent returns the newest recorded runs; empty when no log is configured.
func (s *SearchService) Recent(ctx context.Context, limit int) ([]domain.SearchRun, error) {
	if s.runs == nil {
		return []domain.SearchRun{}, nil
	}
	return s.runs.RecentSearches(ctx, limit)
}

// DefaultBudget is what entry points use when the caller gave no budget at all.
// A budget of 0 is a real budget.
func (s *SearchService) DefaultBudget() float64 { return s.defaults.Budget }

// Complete applies date and guest defaults. A zero adult count is treated as unset.
func (s *SearchService) Complete(req domain.SearchRequest) domain.SearchRequest {
	if req.CheckIn == "" {
		req.CheckIn = s.now().AddDate(0, s.defaults.CheckInAfterMonths, 0).Format(domain.DateLayout)
	}
	if req.CheckOut == "" {
		if in, err := time.Parse(domain.DateLayout, req.CheckIn); err == nil {
			req.CheckOut = in.AddDate(0, 0, s.defaults.Nights).Format(domain.DateLayout)
		}
	}
	if req.Adults == 0 {
		req.Adults = s.defaults.Adults
	}
	return req
}

// Search completes and validates req, then aggregates. Only validation fails;
// provider trouble shows up in the report's outcomes.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchRequest, Report, error) {
	req = s.Complete(req)
	if err := req.Validate(); err != nil {
		return req, Report{Listings: []domain.Listing{}}, err
	}
	rep := s.agg.AggregateWithReport(ctx, req)
	rep.RunID = uuid.NewString()
	if s.runs != nil {
		if err := s.runs.RecordSearch(ctx, toRun(rep, req)); err != nil {
			log.Warn().Err(err).Str("run", rep.RunID).Msg("record search failed")
		}
	}
	return req, rep, nil
}

func toRun(rep Report, req domain.SearchRequest) domain.SearchRun {
	run := domain.SearchRun{
		ID:          rep.RunID,
		Destination: req.Destination,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Adults:      req.Adults,
		Kids:        req.Kids,
		Budget:      req.Budget,
		Listings:    len(rep.Listings),
		Outcomes:    make([]domain.RunOutcome, 0, len(rep.Outcomes)),
	}
	for _, oc := range rep.Outcomes {
		run.Outcomes = append(run.Outcomes, domain.RunOutcome{
			Provider:  oc.Provider,
			Outcome:   oc.Kind,
			Listings:  oc.Count,
			ElapsedMS: oc.Elapsed.Milliseconds(),
		})
	}
	return run
}
