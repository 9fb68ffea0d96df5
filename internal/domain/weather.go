package domain

import (
	"context"
	"log/slog"
	"time"
)

// WeatherSample is one resolved observation in metric units.
type WeatherSample struct {
	TemperatureCelsius float64
	HumidityFraction   float64
}

// WeatherSummary is the reduction of a sampling window.
type WeatherSummary struct {
	AverageTemp  float64
	AverageHumid float64
	Resolved     int
	Failed       int
}

// FahrenheitToCelsius converts a temperature reading.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// AggregateWeather samples every timestamp of window in order and averages the
// samples that resolved. Temperature and humidity are averaged independently;
// with nothing resolved both averages are NaN.
func AggregateWeather(ctx context.Context, source WeatherSource, loc Coordinates, window []time.Time, logger *slog.Logger) WeatherSummary {
	temps := make([]float64, 0, len(window))
	humids := make([]float64, 0, len(window))
	var failed int

	for _, at := range window {
		sample, err := source.Sample(ctx, loc, at)
		if err != nil {
			failed++
			logger.Warn("weather sample failed",
				"lat", loc.Lat,
				"lon", loc.Lon,
				"at", at.Format(LocalTimeLayout),
				"error", err,
			)
			continue
		}
		temps = append(temps, sample.TemperatureCelsius)
		humids = append(humids, sample.HumidityFraction)
	}

	return WeatherSummary{
		AverageTemp:  Mean(temps),
		AverageHumid: Mean(humids),
		Resolved:     len(temps),
		Failed:       failed,
	}
}
