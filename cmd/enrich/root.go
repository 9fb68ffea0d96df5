package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/case-enrichment-etl/internal/config"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runFlags struct {
	input       string
	output      string
	concurrency int
	limit       int
	dryRun      bool
}

// apply overrides cfg with the flags the user set explicitly.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputPath = f.input
	}
	if flags.Changed("output") {
		cfg.OutputPath = f.output
	}
	if flags.Changed("concurrency") {
		if f.concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1, got %d", f.concurrency)
		}
		cfg.Concurrency = f.concurrency
	}
	if f.limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", f.limit)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich per-country case counts with growth statistics and capital weather",
		Long: `Reads a daily case-count CSV, resolves each country's capital, geocodes it,
averages the historical weather over the configured month, computes the median
and mean day-over-day growth of cumulative cases, and writes one row per country.

Remote lookups are cached (CACHE_BACKEND), so re-running is cheap and repeatable.

Examples:
  # Parse the input only and list the countries that would be processed
  enrich --input full_data.csv --dry-run

  # Full run over the first 10 countries with 4 workers
  enrich --input full_data.csv --output result.csv --limit 10 --concurrency 4`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load := config.Load
			if flags.dryRun {
				load = config.LoadWithoutCredentials
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			runID := uuid.NewString()
			logger := observability.NewLogger(os.Stderr, cfg).With("run_id", runID)

			if flags.dryRun {
				return dryRun(cmd.OutOrStdout(), cfg, flags.limit, logger)
			}
			if err := run(cmd.Context(), cfg, runID, flags.limit, logger); err != nil {
				logger.Error("run failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.input, "input", "", "input CSV path (overrides INPUT_PATH)")
	cmd.Flags().StringVar(&flags.output, "output", "", "output CSV path (overrides OUTPUT_PATH)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 1, "countries processed in parallel (overrides CONCURRENCY)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "max countries to process (0 = all)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "parse the input and print the countries without enriching")

	return cmd
}

type dryRunEntity struct {
	ID         string  `json:"id"`
	CityHint   string  `json:"city_hint,omitempty"`
	TotalCases float64 `json:"total_cases"`
}

// dryRun prints the entities a run would process.
func dryRun(w io.Writer, cfg *config.Config, limit int, logger *slog.Logger) error {
	series, err := csvfile.ReadFile(cfg.InputPath, cfg.RowCasesFloor, logger)
	if err != nil {
		return err
	}

	entities := series.Entities()
	if limit > 0 && limit < len(entities) {
		entities = entities[:limit]
	}

	out := make([]dryRunEntity, len(entities))
	for i, e := range entities {
		out[i] = dryRunEntity{ID: e.ID, CityHint: e.CityHint, TotalCases: e.KnownCumulativeCases}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
