package domain

import (
	"context"
	"fmt"
	"strings"
)

// CapitalOverrides maps an entity label to the city used in place of the
// metadata capital.
type CapitalOverrides map[string]string

// DefaultCapitalOverrides returns the built-in overrides. China maps to the
// outbreak city rather than its capital.
func DefaultCapitalOverrides() CapitalOverrides {
	return CapitalOverrides{
		"China":          "Wuhan",
		"Philippines":    "Manila",
		"Czech Republic": "Prague",
	}
}

// Merge returns a copy of o with extra applied on top.
func (o CapitalOverrides) Merge(extra map[string]string) CapitalOverrides {
	out := make(CapitalOverrides, len(o)+len(extra))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// ResolveCapital picks the override for the entity label, falling back to the
// resolver. A nil resolver means only overrides are consulted.
func ResolveCapital(ctx context.Context, entity Entity, overrides CapitalOverrides, resolver CapitalResolver) (string, error) {
	if capital, ok := overrides[entity.Label]; ok && capital != "" {
		return capital, nil
	}
	if resolver == nil {
		return "", fmt.Errorf("%w: no override for %q", ErrCapitalResolution, entity.Label)
	}
	capital, err := resolver.Capital(ctx, entity.Label)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrCapitalResolution, entity.Label, err)
	}
	if strings.TrimSpace(capital) == "" {
		return "", fmt.Errorf("%w: %q has no capital", ErrCapitalResolution, entity.Label)
	}
	return capital, nil
}

// Locate geocodes "{capital}, {country}" and keeps the first match.
func Locate(ctx context.Context, capital, country string, geocoder Geocoder) (Coordinates, error) {
	if geocoder == nil {
		return Coordinates{}, fmt.Errorf("%w: no geocoder configured", ErrGeocode)
	}
	result, err := geocoder.ForwardGeocode(ctx, capital, country)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %s, %s: %w", ErrGeocode, capital, country, err)
	}
	if result.Lat == 0 && result.Lon == 0 && result.FormattedAddress == "" {
		return Coordinates{}, fmt.Errorf("%w: %s, %s: no match", ErrGeocode, capital, country)
	}
	return Coordinates{Lat: result.Lat, Lon: result.Lon}, nil
}
