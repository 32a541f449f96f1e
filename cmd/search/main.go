// Command search runs the listing aggregation from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/bootstrap"
	"trip_planner/internal/shared"
)

var rootCmd = &cobra.Command{
	Use:           "search",
	Short:         "Aggregate hotel and vacation-rental listings across providers",
	Long:          "Queries the hotel aggregator, destination rental search and coordinate rental providers concurrently and prints the merged, budget-filtered listings as JSON.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStack loads config (including .env) and builds the search stack.
// Logs go to stderr so stdout stays valid JSON.
func openStack(ctx context.Context) (*bootstrap.Stack, shared.Config, error) {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel).Output(os.Stderr)

	st, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to build search stack: %w", err)
	}
	return st, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
