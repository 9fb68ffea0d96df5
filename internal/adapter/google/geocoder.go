package google

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

// Provider names the Google geocoder in cache keys and metrics.
const Provider = "google"

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

var errZeroResults = errors.New("google returned zero results")

// geocodeResponse is the JSON response from the Google Geocoding API.
type geocodeResponse struct {
	Results []result `json:"results"`
	Status  string   `json:"status"`
}

type result struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Geocoder implements domain.Geocoder using the Google Geocoding API.
type Geocoder struct {
	apiKey  string
	baseURL string
	http    *remote.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewGeocoder creates a Google geocoder.
func NewGeocoder(apiKey string, http *remote.Client, fetcher *cache.Fetcher, logger *slog.Logger) *Geocoder {
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    http,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ForwardGeocode resolves "place, country" and returns the first result.
func (g *Geocoder) ForwardGeocode(ctx context.Context, place, country string) (domain.GeocodingResult, error) {
	address := place
	if country != "" {
		address = fmt.Sprintf("%s, %s", place, country)
	}

	params := url.Values{"address": {address}}
	key := cache.RequestKey(Provider, g.baseURL+"?"+params.Encode())
	params.Set("key", g.apiKey)
	reqURL := g.baseURL + "?" + params.Encode()

	doc, err := g.fetcher.Fetch(ctx, Provider, key, func(ctx context.Context) ([]byte, error) {
		body, err := g.http.GetJSON(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		return body, checkStatus(body)
	})
	if err != nil {
		return domain.GeocodingResult{}, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(doc, &resp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("google parse response: %w", err)
	}
	if len(resp.Results) == 0 {
		return domain.GeocodingResult{}, nil
	}

	if len(resp.Results) > 1 {
		g.logger.Debug("google returned several results, using the first",
			"address", address,
			"results", len(resp.Results),
			"chosen", resp.Results[0].FormattedAddress,
		)
	}
	first := resp.Results[0]
	return domain.GeocodingResult{
		Lat:              first.Geometry.Location.Lat,
		Lon:              first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
		Confidence:       locationTypeConfidence(first.Geometry.LocationType),
	}, nil
}

// checkStatus rejects any response that should not be cached. Google reports
// failures in the body with HTTP 200.
func checkStatus(body []byte) error {
	status := gjson.GetBytes(body, "status").String()
	switch status {
	case "OK":
		if !gjson.GetBytes(body, "results.0").Exists() {
			return errZeroResults
		}
		return nil
	case "ZERO_RESULTS":
		return errZeroResults
	default:
		return fmt.Errorf("google status %s: %s", status, gjson.GetBytes(body, "error_message").String())
	}
}

func locationTypeConfidence(locType string) float64 {
	switch locType {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.8
	case "GEOMETRIC_CENTER":
		return 0.6
	default:
		return 0.5
	}
}
