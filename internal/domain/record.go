package domain

import "time"

// EnrichedRecord is the output row for one successfully enriched entity.
type EnrichedRecord struct {
	EntityID       string      `json:"entity_id"`
	Capital        string      `json:"capital"`
	Location       Coordinates `json:"location"`
	Median         float64     `json:"median_growth"`
	Mean           float64     `json:"mean_growth"`
	AverageTemp    float64     `json:"average_temp_c"`
	AverageHumid   float64     `json:"average_humidity"`
	WeatherSamples int         `json:"weather_samples"`
	TotalCases     float64     `json:"total_cases"`
	ProcessedAt    time.Time   `json:"processed_at"`
}

// NewEnrichedRecord assembles a record and stamps it with the package clock.
func NewEnrichedRecord(entity Entity, capital string, loc Coordinates, growth GrowthSummary, weather WeatherSummary) EnrichedRecord {
	return EnrichedRecord{
		EntityID:       entity.ID,
		Capital:        capital,
		Location:       loc,
		Median:         growth.Median,
		Mean:           growth.Mean,
		AverageTemp:    weather.AverageTemp,
		AverageHumid:   weather.AverageHumid,
		WeatherSamples: weather.Resolved,
		TotalCases:     entity.KnownCumulativeCases,
		ProcessedAt:    clock.Now().UTC(),
	}
}

// Valid reports whether the growth statistics and weather averages are finite.
// A window in which no sample resolved leaves NaN averages and fails here.
func (r EnrichedRecord) Valid() bool {
	return GrowthSummary{Median: r.Median, Mean: r.Mean}.Finite() &&
		isFinite(r.AverageTemp) && isFinite(r.AverageHumid)
}
