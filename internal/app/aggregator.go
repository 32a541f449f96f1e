package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/domain"
)

// OutcomeEmpty marks a provider that answered fine but contributed nothing.
const OutcomeEmpty domain.ErrorKind = "empty"

// Outcome is the per-provider diagnostic of one aggregation.
type Outcome struct {
	Provider domain.Source    `json:"provider"`
	Kind     domain.ErrorKind `json:"outcome"`
	Count    int              `json:"count"`
	Elapsed  time.Duration    `json:"-"`
	Err      error            `json:"-"`
}

type Report struct {
	RunID        string
	Listings     []domain.Listing
	Outcomes     []Outcome
	// DuplicateIDs lists ids that occur more than once in Listings. They are kept.
	DuplicateIDs []string
}

// Aggregator fans a search out to every provider and concatenates the results.
// Provider failures never surface to the caller; they are logged, counted, and
// reported through AggregateWithReport.
type Aggregator struct {
	providers []domain.Provider
	timeout   time.Duration
}

// NewAggregator keeps provider order for the output. timeout <= 0 means no
// per-provider bound beyond the caller's context.
func NewAggregator(timeout time.Duration, providers ...domain.Provider) *Aggregator {
	return &Aggregator{providers: providers, timeout: timeout}
}

func (a *Aggregator) Providers() []domain.Source {
	out := make([]domain.Source, 0, len(a.providers))
	for _, p := range a.providers {
		out = append(out, p.Name())
	}
	return out
}

func (a *Aggregator) Aggregate(ctx context.Context, req domain.SearchRequest) []domain.Listing {
	return a.AggregateWithReport(ctx, req).Listings
}

func (a *Aggregator) AggregateWithReport(ctx context.Context, req domain.SearchRequest) Report {
	results := make([][]domain.Listing, len(a.providers))
	outcomes := make([]Outcome, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		g.Go(func() error {
			start := time.Now()
			out, err := a.call(gctx, p, req)
			oc := Outcome{Provider: p.Name(), Count: len(out), Elapsed: time.Since(start), Err: err}
			switch {
			case err != nil:
				oc.Kind = domain.KindOf(err)
				oc.Count = 0
				out = nil
			case len(out) == 0:
				oc.Kind = OutcomeEmpty
			default:
				oc.Kind = domain.KindNone
			}
			results[i] = out
			outcomes[i] = oc
			record(oc)
			// errors are collapsed here so siblings are never cancelled
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	listings := make([]domain.Listing, 0, total)
	for _, r := range results {
		listings = append(listings, r...)
	}
	return Report{Listings: listings, Outcomes: outcomes, DuplicateIDs: duplicateIDs(listings)}
}

// duplicateIDs reports provider-assigned ids seen more than once, in first-repeat order.
func duplicateIDs(ls []domain.Listing) []string {
	seen := make(map[string]int, len(ls))
	var dups []string
	for _, l := range ls {
		seen[l.ID]++
		if seen[l.ID] != 2 {
			continue
		}
		dups = append(dups, l.ID)
		observability.ObserveDuplicateID(string(l.Source))
		log.Warn().Str("id", l.ID).Str("provider", string(l.Source)).Msg("duplicate listing id in one run")
	}
	return dups
}

// call bounds one provider by the aggregator timeout even if the provider
// ignores its context, and turns a panic into an upstream error.
func (a *Aggregator) call(ctx context.Context, p domain.Provider, req domain.SearchRequest) ([]domain.Listing, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type result struct {
		out []domain.Listing
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: domain.NewProviderError(p.Name(), "search",
					fmt.Errorf("%w: panic: %v", domain.ErrUpstream, r))}
			}
		}()
		out, err := p.Search(ctx, req)
		ch <- result{out: out, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(p, r.err)
		}
		return r.out, r.err
	case <-ctx.Done():
		return nil, timeoutError(p, ctx.Err())
	}
}

func timeoutError(p domain.Provider, err error) error {
	if errors.Is(err, context.Canceled) {
		return domain.NewProviderError(p.Name(), "search", err)
	}
	return &domain.ProviderError{Provider: p.Name(), Kind: domain.KindTimeout, Op: "search", Err: err}
}

func record(oc Outcome) {
	observability.ObserveProvider(string(oc.Provider), string(oc.Kind), oc.Elapsed)
	observability.ObserveListings(string(oc.Provider), oc.Count)

	lvl := zerolog.WarnLevel
	switch oc.Kind {
	case domain.KindNone, OutcomeEmpty, domain.KindNoMatch:
		lvl = zerolog.InfoLevel
	case domain.KindConfigAbsent:
		lvl = zerolog.DebugLevel
	}
	log.WithLevel(lvl).Str("provider", string(oc.Provider)).
		Str("outcome", string(oc.Kind)).
		Int("count", oc.Count).
		Dur("elapsed", oc.Elapsed).
		Err(oc.Err).
		Msg("provider search settled")
}
