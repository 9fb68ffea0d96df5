package darksky

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "secret-key"

var noon = time.Date(2020, 2, 3, 12, 0, 0, 0, time.UTC)

func newTestSource(baseURL string, store cache.Store) *Source {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSource(
		testKey,
		baseURL,
		remote.NewClient(Provider, &http.Client{}, remote.Options{}, logger),
		cache.NewFetcher(store, "", 5*time.Second, logger, observability.NewMetricsForTesting()),
		logger,
	)
}

func TestSource_Sample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast/"+testKey+"/41.9,12.5,2020-02-03T12:00:00", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("exclude"), "minutely")
		_, _ = io.WriteString(w, `{"currently":{"time":1580731200,"temperature":68,"humidity":0.55}}`)
	}))
	defer srv.Close()

	s := newTestSource(srv.URL, cache.NewMemoryStore(10))
	got, err := s.Sample(context.Background(), domain.Coordinates{Lat: 41.9, Lon: 12.5}, noon)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, got.TemperatureCelsius, 1e-9)
	assert.InDelta(t, 0.55, got.HumidityFraction, 1e-9)
}

func TestSource_CachedUnderRedactedKey(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"currently":{"temperature":32,"humidity":0.9}}`)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(10)
	s := newTestSource(srv.URL, store)
	loc := domain.Coordinates{Lat: 1, Lon: 2}

	for range 3 {
		got, err := s.Sample(context.Background(), loc, noon)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got.TemperatureCelsius, 1e-9)
	}
	assert.Equal(t, int64(1), hits.Load())

	key := "darksky:" + srv.URL + "/forecast/REDACTED/1,2,2020-02-03T12:00:00?exclude=minutely,daily,alerts,flags"
	_, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSource_NumericKeyLeavesCoordinatesIntact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast/2/1,2,2020-02-03T12:00:00", r.URL.Path)
		_, _ = io.WriteString(w, `{"currently":{"temperature":50,"humidity":0.4}}`)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(10)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSource("2", srv.URL,
		remote.NewClient(Provider, &http.Client{}, remote.Options{}, logger),
		cache.NewFetcher(store, "", 5*time.Second, logger, observability.NewMetricsForTesting()),
		logger,
	)

	_, err := s.Sample(context.Background(), domain.Coordinates{Lat: 1, Lon: 2}, noon)
	require.NoError(t, err)

	key := "darksky:" + srv.URL + "/forecast/REDACTED/1,2,2020-02-03T12:00:00?exclude=minutely,daily,alerts,flags"
	_, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSource_ErrorDocumentNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"code":400,"error":"The given location is invalid."}`)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(10)
	s := newTestSource(srv.URL, store)

	_, err := s.Sample(context.Background(), domain.Coordinates{Lat: 999, Lon: 2}, noon)
	require.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.False(t, strings.Contains(err.Error(), testKey), "error must not leak the API key")
	assert.Equal(t, 0, store.Len())
}

func TestSource_MissingCurrentlyNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"hourly":{"data":[]}}`)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(10)
	s := newTestSource(srv.URL, store)

	_, err := s.Sample(context.Background(), domain.Coordinates{Lat: 1, Lon: 2}, noon)
	require.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.Equal(t, 0, store.Len())
}

func TestNewSource_DefaultBaseURL(t *testing.T) {
	s := NewSource(testKey, "", nil, nil, nil)
	assert.Equal(t, DefaultBaseURL, s.baseURL)
}
