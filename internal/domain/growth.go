package domain

import (
	"fmt"
	"math"
	"slices"
)

// DefaultMinTotalCases is the cumulative count an entity must reach on its
// latest row before growth is computed.
const DefaultMinTotalCases = 75

// GrowthSummary holds the median and mean day-over-day growth rate.
type GrowthSummary struct {
	Median float64
	Mean   float64
}

// Finite reports whether both statistics are usable numbers.
func (g GrowthSummary) Finite() bool {
	return isFinite(g.Median) && isFinite(g.Mean)
}

// AnalyzeGrowth computes the growth summary for one entity.
func AnalyzeGrowth(entityID string, series TimeSeries, minTotalCases float64) (GrowthSummary, error) {
	rows := series.ForEntity(entityID)
	if len(rows) == 0 {
		return GrowthSummary{}, fmt.Errorf("%w: no rows for %q", ErrInsufficientData, entityID)
	}

	last := rows[len(rows)-1].CumulativeCases
	if last < minTotalCases {
		return GrowthSummary{}, fmt.Errorf("%w: %q has %.0f cases, need %.0f", ErrInsufficientData, entityID, last, minTotalCases)
	}

	rates, err := GrowthRates(rows)
	if err != nil {
		return GrowthSummary{}, fmt.Errorf("%q: %w", entityID, err)
	}

	return GrowthSummary{Median: Median(rates), Mean: Mean(rates)}, nil
}

// GrowthRates returns (curr-prev)/prev for each consecutive pair of rows.
// The rows must already be in date order.
func GrowthRates(rows TimeSeries) ([]float64, error) {
	if len(rows) < 2 {
		return nil, nil
	}
	rates := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		prev := rows[i-1].CumulativeCases
		if prev == 0 {
			return nil, fmt.Errorf("%w: zero cumulative count on %s", ErrDivisionByZero, rows[i-1].Date.Format(DateLayout))
		}
		rates = append(rates, (rows[i].CumulativeCases-prev)/prev)
	}
	return rates, nil
}

// Median returns NaN for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Mean returns NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
