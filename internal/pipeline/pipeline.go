package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Extractor reads the full time series for a run.
type Extractor interface {
	Extract(ctx context.Context) (domain.TimeSeries, error)
}

// Processor enriches a single entity.
type Processor interface {
	Process(ctx context.Context, entity domain.Entity, series domain.TimeSeries) (domain.EnrichedRecord, error)
}

// Loader writes the run's records to a destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, records []domain.EnrichedRecord) error
}

// Options tune a run.
type Options struct {
	// Concurrency is the number of entities processed at once. Values below 1
	// mean one.
	Concurrency int
	// Limit caps the number of entities processed. Zero means no limit.
	Limit int
}

// Outcome is the result of processing one entity. Err is nil on success.
type Outcome struct {
	Entity domain.Entity
	Record domain.EnrichedRecord
	Err    error
}

// Summary describes a completed run.
type Summary struct {
	Entities int
	Enriched int
	Written  int
	Failures map[string]int
	Duration time.Duration
}

// Progress is a point-in-time view of a running pipeline.
type Progress struct {
	Total    int `json:"total"`
	Done     int `json:"done"`
	Enriched int `json:"enriched"`
	Failed   int `json:"failed"`
}

// Pipeline orchestrates extract, per-entity enrichment, and load.
type Pipeline struct {
	extractor Extractor
	processor Processor
	loaders   []Loader
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready    atomic.Bool
	total    atomic.Int64
	done     atomic.Int64
	enriched atomic.Int64
}

// New creates a Pipeline. Records are handed to loaders in the order given.
func New(e Extractor, p Processor, loaders []Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		loaders:   loaders,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one entity.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any entities yet")
	}
	return nil
}

// Progress reports how far the current run has got.
func (p *Pipeline) Progress() Progress {
	done := int(p.done.Load())
	enriched := int(p.enriched.Load())
	return Progress{
		Total:    int(p.total.Load()),
		Done:     done,
		Enriched: enriched,
		Failed:   done - enriched,
	}
}

// Run executes one enrichment run. Entity failures are logged and skipped;
// extract and load failures and context cancellation end the run with an error.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	series, err := p.extractor.Extract(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("extract: %w", err)
	}

	entities := series.Entities()
	if p.opts.Limit > 0 && len(entities) > p.opts.Limit {
		entities = entities[:p.opts.Limit]
	}
	p.total.Store(int64(len(entities)))
	p.logger.Info("pipeline started",
		"rows", len(series),
		"entities", len(entities),
		"concurrency", p.concurrency(),
	)

	outcomes, err := p.enrichAll(ctx, entities, series)
	if err != nil {
		return Summary{}, err
	}

	records := Records(outcomes)
	for _, l := range p.loaders {
		if err := l.Load(ctx, records); err != nil {
			return Summary{}, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.RecordsWritten.WithLabelValues(l.Name()).Add(float64(len(records)))
	}

	summary := Summary{
		Entities: len(entities),
		Enriched: len(records),
		Written:  len(records),
		Failures: FailureCounts(outcomes),
		Duration: time.Since(start),
	}
	if len(p.loaders) == 0 {
		summary.Written = 0
	}
	p.metrics.RunDuration.Observe(summary.Duration.Seconds())
	p.logger.Info("pipeline finished",
		"entities", summary.Entities,
		"enriched", summary.Enriched,
		"written", summary.Written,
		"failures", summary.Failures,
		"duration", summary.Duration,
	)
	return summary, nil
}

// enrichAll folds entities into outcomes indexed by discovery order. With a
// concurrency of one, entities are processed strictly in that order.
func (p *Pipeline) enrichAll(ctx context.Context, entities []domain.Entity, series domain.TimeSeries) ([]Outcome, error) {
	outcomes := make([]Outcome, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for i, entity := range entities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processOne(gctx, entity, series)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (p *Pipeline) processOne(ctx context.Context, entity domain.Entity, series domain.TimeSeries) Outcome {
	start := time.Now()
	record, err := p.processor.Process(ctx, entity, series)
	p.metrics.EntityDuration.Observe(time.Since(start).Seconds())
	p.done.Add(1)
	p.ready.Store(true)

	if err != nil {
		if ctx.Err() == nil {
			kind := domain.ErrorKind(err)
			p.logger.Warn("entity enrichment failed, skipping",
				"entity", entity.ID,
				"kind", kind,
				"error", err,
			)
			p.metrics.EntitiesProcessed.WithLabelValues("failed").Inc()
			p.metrics.EntityFailures.WithLabelValues(kind).Inc()
		}
		return Outcome{Entity: entity, Err: err}
	}

	p.enriched.Add(1)
	p.metrics.EntitiesProcessed.WithLabelValues("enriched").Inc()
	p.logger.Debug("entity enriched",
		"entity", entity.ID,
		"capital", record.Capital,
		"median", record.Median,
		"weather_samples", record.WeatherSamples,
	)
	return Outcome{Entity: entity, Record: record}
}

func (p *Pipeline) concurrency() int {
	return max(1, p.opts.Concurrency)
}

// Records keeps the successful, finite records in outcome order.
func Records(outcomes []Outcome) []domain.EnrichedRecord {
	records := make([]domain.EnrichedRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil || !o.Record.Valid() {
			continue
		}
		records = append(records, o.Record)
	}
	return records
}

// FailureCounts tallies failed outcomes by error kind.
func FailureCounts(outcomes []Outcome) map[string]int {
	counts := make(map[string]int)
	for _, o := range outcomes {
		if o.Err != nil {
			counts[domain.ErrorKind(o.Err)]++
		}
	}
	return counts
}
