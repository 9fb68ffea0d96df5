package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
)

// EnricherConfig wires the collaborators an Enricher consults.
type EnricherConfig struct {
	Overrides     domain.CapitalOverrides
	Resolver      domain.CapitalResolver // nil: overrides only
	Geocoder      domain.Geocoder
	Weather       domain.WeatherSource
	Window        []time.Time
	MinTotalCases float64
}

// Enricher turns one entity into an enriched record. It implements Processor.
type Enricher struct {
	cfg     EnricherConfig
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates an Enricher.
func NewEnricher(cfg EnricherConfig, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{cfg: cfg, logger: logger, metrics: metrics}
}

// Process resolves the capital, geocodes it, computes growth over the entity's
// rows and averages the weather window. Any step failing fails the entity.
func (e *Enricher) Process(ctx context.Context, entity domain.Entity, series domain.TimeSeries) (domain.EnrichedRecord, error) {
	capital, err := domain.ResolveCapital(ctx, entity, e.cfg.Overrides, e.cfg.Resolver)
	if err != nil {
		return domain.EnrichedRecord{}, err
	}

	loc, err := domain.Locate(ctx, capital, entity.Label, e.cfg.Geocoder)
	if err != nil {
		return domain.EnrichedRecord{}, err
	}

	growth, err := domain.AnalyzeGrowth(entity.ID, series, e.cfg.MinTotalCases)
	if err != nil {
		return domain.EnrichedRecord{}, err
	}

	weather := domain.AggregateWeather(ctx, e.cfg.Weather, loc, e.cfg.Window, e.logger.With("entity", entity.ID))
	e.metrics.WeatherSamples.WithLabelValues("resolved").Add(float64(weather.Resolved))
	e.metrics.WeatherSamples.WithLabelValues("failed").Add(float64(weather.Failed))
	if err := ctx.Err(); err != nil {
		return domain.EnrichedRecord{}, err
	}

	record := domain.NewEnrichedRecord(entity, capital, loc, growth, weather)
	if !record.Valid() {
		return domain.EnrichedRecord{}, fmt.Errorf("%w: median=%v mean=%v temp=%v humidity=%v (%d/%d samples)",
			domain.ErrNonFiniteResult, record.Median, record.Mean, record.AverageTemp, record.AverageHumid,
			weather.Resolved, len(e.cfg.Window))
	}
	return record, nil
}
