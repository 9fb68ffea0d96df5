// Package darksky reads historical observations from a Dark Sky compatible
// Time Machine API, such as Pirate Weather.
package darksky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/tidwall/gjson"
)

// Provider names the source in cache keys and metrics.
const Provider = "darksky"

// DefaultBaseURL is the Pirate Weather Time Machine endpoint.
const DefaultBaseURL = "https://timemachine.pirateweather.net"

var errNoCurrently = errors.New("response has no currently temperature/humidity")

// Source implements domain.WeatherSource.
type Source struct {
	apiKey  string
	baseURL string
	http    *remote.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewSource creates a Time Machine weather source. An empty baseURL selects DefaultBaseURL.
func NewSource(apiKey, baseURL string, http *remote.Client, fetcher *cache.Fetcher, logger *slog.Logger) *Source {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    http,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Sample returns the "currently" block for loc at local time at.
// Temperature is reported in Fahrenheit and converted to Celsius.
func (s *Source) Sample(ctx context.Context, loc domain.Coordinates, at time.Time) (domain.WeatherSample, error) {
	query := fmt.Sprintf("%s,%s,%s?exclude=minutely,daily,alerts,flags",
		strconv.FormatFloat(loc.Lat, 'f', -1, 64),
		strconv.FormatFloat(loc.Lon, 'f', -1, 64),
		at.Format(domain.LocalTimeLayout),
	)
	key := cache.RequestKey(Provider, s.baseURL+"/forecast/"+cache.Redacted+"/"+query)
	reqURL := s.baseURL + "/forecast/" + s.apiKey + "/" + query

	doc, err := s.fetcher.Fetch(ctx, Provider, key, func(ctx context.Context) ([]byte, error) {
		body, err := s.http.GetJSON(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		if _, err := parse(body); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return domain.WeatherSample{}, err
	}
	sample, err := parse(doc)
	if err != nil {
		s.logger.Warn("cached darksky document unreadable", "key", key, "error", err)
		return domain.WeatherSample{}, err
	}
	return sample, nil
}

func parse(doc []byte) (domain.WeatherSample, error) {
	fields := gjson.GetManyBytes(doc, "currently.temperature", "currently.humidity")
	temp, humid := fields[0], fields[1]
	if temp.Type != gjson.Number || humid.Type != gjson.Number {
		return domain.WeatherSample{}, errNoCurrently
	}
	return domain.WeatherSample{
		TemperatureCelsius: domain.FahrenheitToCelsius(temp.Float()),
		HumidityFraction:   humid.Float(),
	}, nil
}
