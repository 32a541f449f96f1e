package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"trip_planner/internal/app"
	"trip_planner/internal/domain"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep DESTINATION...",
	Short: "Search several destinations with bounded concurrency",
	Long: `Runs one aggregated search per destination, at most --workers at a time, with the same dates,
guests and budget, and prints a summary per destination. Useful for comparing beach towns for one trip.`,
	Example: `  search sweep "Wilmington, NC" "Myrtle Beach" "Outer Banks" --budget 2000 --workers 2`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSweep,
}

var (
	sweepForm     form
	sweepWorkers  int
	sweepListings bool
)

func init() {
	addFormFlags(sweepCmd, &sweepForm)
	sweepCmd.Flags().IntVarP(&sweepWorkers, "workers", "w", 0, "Concurrent searches (default SWEEP_WORKERS)")
	sweepCmd.Flags().BoolVar(&sweepListings, "listings", false, "Include the listings, not just counts")

	rootCmd.AddCommand(sweepCmd)
}

type sweepResult struct {
	Destination string           `json:"destination"`
	RunID       string           `json:"runId,omitempty"`
	Count       int              `json:"count"`
	Cheapest    *domain.Listing  `json:"cheapest,omitempty"`
	Outcomes    []app.Outcome    `json:"outcomes,omitempty"`
	Listings    []domain.Listing `json:"listings,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchRequest, app.Report, error)
}

// sweep runs one search per destination; results keep the input order.
func sweep(ctx context.Context, svc searcher, base domain.SearchRequest, destinations []string, workers int) []sweepResult {
	if workers <= 0 {
		workers = 1
	}
	out := make([]sweepResult, len(destinations))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, dest := range destinations {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(destinations); j++ {
				out[j] = sweepResult{Destination: destinations[j], Error: err.Error()}
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			req := base
			req.Destination = dest
			_, rep, err := svc.Search(ctx, req)
			if err != nil {
				log.Warn().Str("destination", dest).Err(err).Msg("sweep search rejected")
				out[i] = sweepResult{Destination: dest, Error: err.Error()}
				return
			}
			out[i] = sweepResult{
				Destination: dest,
				RunID:       rep.RunID,
				Count:       len(rep.Listings),
				Cheapest:    cheapest(rep.Listings),
				Outcomes:    rep.Outcomes,
				Listings:    rep.Listings,
			}
			log.Info().Str("destination", dest).Int("count", len(rep.Listings)).Msg("sweep search ok")
		}()
	}

	wg.Wait()
	return out
}

func cheapest(ls []domain.Listing) *domain.Listing {
	var best *domain.Listing
	for i := range ls {
		if best == nil || ls[i].Price < best.Price {
			best = &ls[i]
		}
	}
	return best
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, cfg, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	workers := sweepWorkers
	if workers <= 0 {
		workers = cfg.SweepWorkers
	}
	log.Info().Int("destinations", len(args)).Int("workers", workers).Msg("sweep starting")

	results := sweep(ctx, st.Search, sweepForm.request(cmd, st.Search.DefaultBudget()), args, workers)
	if !sweepListings {
		for i := range results {
			results[i].Listings = nil
		}
	}
	return printJSON(cmd.OutOrStdout(), results)
}
