package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trip_planner/internal/app"
	"trip_planner/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one aggregated search",
	Long: `Searches every configured provider for one destination and prints the listings.

Missing dates default to check-in one month out for five nights; adults default to 2 and budget to 10000.`,
	Example: `  search search -d "Wilmington, NC" --check-in 2026-07-01 --check-out 2026-07-06 --budget 1500
  search search -d "Myrtle Beach" --lat 33.6891 --lon -78.8867 --report`,
	RunE: runSearch,
}

// form is the request shape both search and sweep accept.
type form struct {
	destination string
	checkIn     string
	checkOut    string
	adults      int
	kids        int
	budget      float64
	lat, lon    float64
}

var (
	searchForm   form
	searchReport bool
)

func addFormFlags(cmd *cobra.Command, f *form) {
	cmd.Flags().StringVar(&f.checkIn, "check-in", "", "Check-in date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.checkOut, "check-out", "", "Check-out date YYYY-MM-DD")
	cmd.Flags().IntVar(&f.adults, "adults", 0, "Adults (default 2)")
	cmd.Flags().IntVar(&f.kids, "kids", 0, "Children")
	cmd.Flags().Float64Var(&f.budget, "budget", 0, "Maximum total price (default 10000)")
}

func init() {
	searchCmd.Flags().StringVarP(&searchForm.destination, "destination", "d", "", "Destination, e.g. \"Wilmington, NC\"")
	addFormFlags(searchCmd, &searchForm)
	searchCmd.Flags().Float64Var(&searchForm.lat, "lat", 0, "Latitude; skips geocoding together with --lon")
	searchCmd.Flags().Float64Var(&searchForm.lon, "lon", 0, "Longitude")
	searchCmd.Flags().BoolVar(&searchReport, "report", false, "Include per-provider outcomes")
	_ = searchCmd.MarkFlagRequired("destination")
	searchCmd.MarkFlagsRequiredTogether("lat", "lon")

	rootCmd.AddCommand(searchCmd)
}

// request builds the search; --budget 0 is kept, an absent --budget becomes defaultBudget.
func (f form) request(cmd *cobra.Command, defaultBudget float64) domain.SearchRequest {
	req := domain.SearchRequest{
		Destination: strings.TrimSpace(f.destination),
		CheckIn:     f.checkIn,
		CheckOut:    f.checkOut,
		Adults:      f.adults,
		Kids:        f.kids,
		Budget:      defaultBudget,
	}
	if cmd.Flags().Changed("budget") {
		req.Budget = f.budget
	}
	if cmd.Flags().Changed("lat") {
		req.Coords = &domain.Coords{Lat: f.lat, Lon: f.lon}
	}
	return req
}

type searchOutput struct {
	RunID    string               `json:"runId"`
	Query    domain.SearchRequest `json:"query"`
	Count    int                  `json:"count"`
	Listings []domain.Listing     `json:"listings"`
	Outcomes []app.Outcome        `json:"outcomes,omitempty"`
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	req, rep, err := st.Search.Search(ctx, searchForm.request(cmd, st.Search.DefaultBudget()))
	if err != nil {
		return fmt.Errorf("invalid search: %w", err)
	}

	out := searchOutput{RunID: rep.RunID, Query: req, Count: len(rep.Listings), Listings: rep.Listings}
	if searchReport {
		out.Outcomes = rep.Outcomes
	}
	return printJSON(cmd.OutOrStdout(), out)
}
