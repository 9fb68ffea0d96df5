package domain

import (
	"context"
	"time"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a free-text place to its first matching location.
type Geocoder interface {
	// ForwardGeocode converts a place name qualified by its country to coordinates.
	ForwardGeocode(ctx context.Context, place, country string) (GeocodingResult, error)
}

// CapitalResolver looks up the capital city of a country by name.
type CapitalResolver interface {
	Capital(ctx context.Context, country string) (string, error)
}

// WeatherSource returns the observed weather at a location and local time.
type WeatherSource interface {
	Sample(ctx context.Context, loc Coordinates, at time.Time) (WeatherSample, error)
}
