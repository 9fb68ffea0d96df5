package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/darksky"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/google"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/case-enrichment-etl/internal/adapter/kafka"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/restcountries"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/config"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"github.com/couchcryptid/case-enrichment-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

const pushTimeout = 10 * time.Second

// run wires the adapters from cfg and executes one enrichment run.
func run(ctx context.Context, cfg *config.Config, runID string, limit int, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	store, err := cache.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}()
	logger.Info("cache ready", "backend", cfg.CacheBackend)

	fetcher := cache.NewFetcher(store, cfg.CacheKeyPrefix, cfg.LookupTimeout, logger, metrics)
	enricher, err := newEnricher(cfg, fetcher, logger, metrics)
	if err != nil {
		return err
	}

	loaders := []pipeline.Loader{csvfile.NewFileSink(cfg.OutputPath)}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, runID, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(
		csvfile.NewFileSource(cfg.InputPath, cfg.RowCasesFloor, logger),
		enricher,
		loaders,
		pipeline.Options{Concurrency: cfg.Concurrency, Limit: limit},
		logger,
		metrics,
	)

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, p, prometheus.DefaultGatherer, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := observability.Push(pushCtx, cfg.PushgatewayURL, runID, prometheus.DefaultGatherer); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}

	return runErr
}

// newEnricher builds the provider adapters selected by cfg. Each provider gets
// its own rate limiter and circuit breaker; all share the fetcher's cache.
func newEnricher(cfg *config.Config, fetcher *cache.Fetcher, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Enricher, error) {
	window, err := domain.MonthlyWindow(cfg.WindowMonth, cfg.WindowHour)
	if err != nil {
		return nil, fmt.Errorf("weather window: %w", err)
	}

	httpClient := &http.Client{}
	opts := remote.Options{
		RequestsPerSecond:   cfg.RateLimitRPS,
		ConsecutiveFailures: cfg.BreakerFailures,
	}
	client := func(provider string) *remote.Client {
		return remote.NewClient(provider, httpClient, opts, logger)
	}

	var geocoder domain.Geocoder
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		geocoder = google.NewGeocoder(cfg.GoogleAPIKey, client(google.Provider), fetcher, logger)
	default:
		geocoder = mapbox.NewClient(cfg.MapboxToken, client(mapbox.Provider), fetcher, logger)
	}

	var weather domain.WeatherSource
	switch cfg.WeatherProvider {
	case config.WeatherOpenMeteo:
		weather = openmeteo.NewSource(cfg.WeatherBaseURL, client(openmeteo.Provider), fetcher, logger)
	default:
		weather = darksky.NewSource(cfg.WeatherAPIKey, cfg.WeatherBaseURL, client(darksky.Provider), fetcher, logger)
	}

	var resolver domain.CapitalResolver
	if cfg.CountriesBaseURL != "" {
		resolver = restcountries.NewClient(cfg.CountriesBaseURL, client(restcountries.Provider), fetcher, logger)
	}

	logger.Info("providers configured",
		"geocoder", cfg.Geocoder,
		"weather", cfg.WeatherProvider,
		"capital_lookup", resolver != nil,
		"window_start", window[0].Format(domain.LocalTimeLayout),
		"window_samples", len(window),
	)

	return pipeline.NewEnricher(pipeline.EnricherConfig{
		Overrides:     cfg.CapitalOverrides,
		Resolver:      resolver,
		Geocoder:      geocoder,
		Weather:       weather,
		Window:        window,
		MinTotalCases: cfg.MinTotalCases,
	}, logger, metrics), nil
}
