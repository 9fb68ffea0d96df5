package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/tidwall/gjson"
)

// Provider names the Mapbox geocoder in cache keys and metrics.
const Provider = "mapbox"

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

var errNoFeatures = errors.New("mapbox returned no features")

// Client implements domain.Geocoder using the Mapbox Geocoding API.
// Responses are served through the lookup cache.
type Client struct {
	token   string
	baseURL string
	http    *remote.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, http *remote.Client, fetcher *cache.Fetcher, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    http,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ForwardGeocode converts "place, country" to the coordinates of the first feature.
func (c *Client) ForwardGeocode(ctx context.Context, place, country string) (domain.GeocodingResult, error) {
	query := place
	if country != "" {
		query = fmt.Sprintf("%s, %s", place, country)
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"limit": {"1"},
		"types": {"place,locality"},
	}
	key := cache.RequestKey(Provider, u+"?"+params.Encode())
	params.Set("access_token", c.token)
	fullURL := u + "?" + params.Encode()

	doc, err := c.fetcher.Fetch(ctx, Provider, key, func(ctx context.Context) ([]byte, error) {
		body, err := c.http.GetJSON(ctx, fullURL)
		if err != nil {
			return nil, err
		}
		// Empty results stay uncached so later runs can retry them.
		if !gjson.GetBytes(body, "features.0").Exists() {
			return nil, errNoFeatures
		}
		return body, nil
	})
	if err != nil {
		return domain.GeocodingResult{}, err
	}

	result, err := decode(doc)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	c.logger.Debug("mapbox geocoded",
		"query", query,
		"place_name", result.FormattedAddress,
		"relevance", result.Confidence,
	)
	return result, nil
}

func decode(doc []byte) (domain.GeocodingResult, error) {
	var mapboxResp response
	if err := json.Unmarshal(doc, &mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
