// Command enrich reads per-country daily case counts, enriches each country
// with its capital's coordinates, historical weather, and case growth
// statistics, and writes one CSV row per country.
//
// Usage:
//
//	enrich --input full_data.csv --output result.csv
//	enrich --dry-run --limit 5
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
