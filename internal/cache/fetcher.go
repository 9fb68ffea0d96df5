package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// LookupFunc performs the live remote call and returns the raw JSON response.
type LookupFunc func(ctx context.Context) ([]byte, error)

// Fetcher is a cache-aside wrapper around remote lookups.
//
// A cached document is served only when it parses as JSON and has no top-level
// "error" member; anything else is refetched. Live responses are stored only on
// success. Store failures are logged and the call proceeds as a cache miss.
// Concurrent fetches of one key share a single live call.
type Fetcher struct {
	store   Store
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	group   singleflight.Group
}

// NewFetcher creates a Fetcher. A nil store disables caching.
func NewFetcher(store Store, prefix string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		store:   store,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// Fetch returns the document for key, calling lookup only when no valid cached
// document exists. Failures wrap domain.ErrLookupFailed.
func (f *Fetcher) Fetch(ctx context.Context, provider, key string, lookup LookupFunc) ([]byte, error) {
	fullKey := f.prefix + key
	v, err, _ := f.group.Do(fullKey, func() (any, error) {
		return f.fetch(ctx, provider, fullKey, lookup)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, provider, key string, lookup LookupFunc) ([]byte, error) {
	if doc, ok := f.read(ctx, provider, key); ok {
		return doc, nil
	}

	doc, err := f.live(ctx, provider, key, lookup)
	if err != nil {
		return nil, err
	}

	f.write(ctx, provider, key, doc)
	return doc, nil
}

func (f *Fetcher) read(ctx context.Context, provider, key string) ([]byte, bool) {
	if f.store == nil {
		return nil, false
	}

	doc, found, err := f.store.Get(ctx, key)
	switch {
	case err != nil:
		f.metrics.CacheRequests.WithLabelValues(provider, "error").Inc()
		f.logger.Warn("cache read failed, using live lookup", "provider", provider, "key", key, "error", err)
		return nil, false
	case !found:
		f.metrics.CacheRequests.WithLabelValues(provider, "miss").Inc()
		return nil, false
	case errorMarker(doc) != "":
		f.metrics.CacheRequests.WithLabelValues(provider, "stale").Inc()
		f.logger.Debug("cached document carries an error, refetching", "provider", provider, "key", key)
		return nil, false
	default:
		f.metrics.CacheRequests.WithLabelValues(provider, "hit").Inc()
		return doc, true
	}
}

func (f *Fetcher) live(ctx context.Context, provider, key string, lookup LookupFunc) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.logger.Debug("fetching", "provider", provider, "key", key)
	start := f.clock.Now()
	doc, err := lookup(ctx)
	f.metrics.LookupDuration.WithLabelValues(provider).Observe(f.clock.Since(start).Seconds())

	if err == nil {
		if msg := errorMarker(doc); msg != "" {
			err = errors.New(msg)
		}
	}
	if err != nil {
		f.metrics.LookupRequests.WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLookupFailed, key, err)
	}

	f.metrics.LookupRequests.WithLabelValues(provider, "success").Inc()
	return doc, nil
}

func (f *Fetcher) write(ctx context.Context, provider, key string, doc []byte) {
	if f.store == nil {
		return
	}
	if err := f.store.Set(ctx, key, doc); err != nil {
		f.metrics.CacheWrites.WithLabelValues(provider, "error").Inc()
		f.logger.Warn("cache write failed", "provider", provider, "key", key, "error", err)
		return
	}
	f.metrics.CacheWrites.WithLabelValues(provider, "success").Inc()
}

// errorMarker returns a description of why doc must not be served or stored,
// or "" when it is a usable document.
func errorMarker(doc []byte) string {
	if !gjson.ValidBytes(doc) {
		return "response is not valid JSON"
	}
	if e := gjson.GetBytes(doc, "error"); e.Exists() {
		if e.Type == gjson.String && e.Str != "" {
			return "provider error: " + e.Str
		}
		return "provider error"
	}
	return ""
}
