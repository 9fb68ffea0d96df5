//go:build mapbox

package mapbox

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	logger := testLogger()
	return NewClient(
		token,
		remote.NewClient(Provider, &http.Client{}, remote.Options{RequestsPerSecond: 5}, logger),
		cache.NewFetcher(cache.NewMemoryStore(100), "", 10*time.Second, logger, observability.NewMetricsForTesting()),
		logger,
	)
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Prague", "Czech Republic")
	require.NoError(t, err)

	assert.InDelta(t, 50.08, result.Lat, 0.2, "lat should be near Prague")
	assert.InDelta(t, 14.43, result.Lon, 0.2, "lon should be near Prague")
	assert.Contains(t, result.FormattedAddress, "Prague")
	assert.Greater(t, result.Confidence, 0.5)
}

func TestSmoke_ForwardGeocode_Cached(t *testing.T) {
	c := smokeClient(t)

	r1, err := c.ForwardGeocode(context.Background(), "Manila", "Philippines")
	require.NoError(t, err)
	r2, err := c.ForwardGeocode(context.Background(), "Manila", "Philippines")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
