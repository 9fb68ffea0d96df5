// Package openmeteo reads historical hourly observations from the Open-Meteo
// archive API. It needs no credentials.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
)

// Provider names the source in cache keys and metrics.
const Provider = "openmeteo"

// DefaultBaseURL is the Open-Meteo historical archive endpoint.
const DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

const hourLayout = "2006-01-02T15:04"

type archiveResponse struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
		Humidity    []*float64 `json:"relative_humidity_2m"`
	} `json:"hourly"`
}

// Source implements domain.WeatherSource. One archive request covers a whole
// local day, so every hour of a day shares a cache entry.
type Source struct {
	baseURL string
	http    *remote.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewSource creates an archive weather source. An empty baseURL selects DefaultBaseURL.
func NewSource(baseURL string, http *remote.Client, fetcher *cache.Fetcher, logger *slog.Logger) *Source {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		baseURL: baseURL,
		http:    http,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Sample returns the observation for the hour of at, in local time at loc.
func (s *Source) Sample(ctx context.Context, loc domain.Coordinates, at time.Time) (domain.WeatherSample, error) {
	day := at.Format(domain.DateLayout)
	params := url.Values{
		"latitude":   {strconv.FormatFloat(loc.Lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(loc.Lon, 'f', -1, 64)},
		"start_date": {day},
		"end_date":   {day},
		"hourly":     {"temperature_2m,relative_humidity_2m"},
		"timezone":   {"auto"},
	}
	reqURL := s.baseURL + "?" + params.Encode()

	doc, err := s.fetcher.Fetch(ctx, Provider, cache.RequestKey(Provider, reqURL), func(ctx context.Context) ([]byte, error) {
		body, err := s.http.GetJSON(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		if _, err := decode(body); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return domain.WeatherSample{}, err
	}

	resp, err := decode(doc)
	if err != nil {
		s.logger.Warn("cached openmeteo document unreadable", "day", day, "error", err)
		return domain.WeatherSample{}, err
	}
	sample, err := resp.sampleAt(at.Format(hourLayout))
	if err != nil {
		s.logger.Debug("openmeteo hour missing", "day", day, "hour", at.Format(hourLayout), "error", err)
		return domain.WeatherSample{}, err
	}
	return sample, nil
}

func decode(doc []byte) (archiveResponse, error) {
	var resp archiveResponse
	if err := json.Unmarshal(doc, &resp); err != nil {
		return archiveResponse{}, fmt.Errorf("openmeteo decode: %w", err)
	}
	h := resp.Hourly
	if len(h.Time) == 0 || len(h.Temperature) != len(h.Time) || len(h.Humidity) != len(h.Time) {
		return archiveResponse{}, fmt.Errorf("openmeteo: hourly series missing or misaligned")
	}
	return resp, nil
}

func (r archiveResponse) sampleAt(hour string) (domain.WeatherSample, error) {
	for i, t := range r.Hourly.Time {
		if t != hour {
			continue
		}
		temp, humid := r.Hourly.Temperature[i], r.Hourly.Humidity[i]
		if temp == nil || humid == nil {
			return domain.WeatherSample{}, fmt.Errorf("openmeteo: no observation at %s", hour)
		}
		return domain.WeatherSample{
			TemperatureCelsius: *temp,
			HumidityFraction:   *humid / 100,
		}, nil
	}
	return domain.WeatherSample{}, fmt.Errorf("openmeteo: hour %s not in response", hour)
}
