package domain

import (
	"slices"
	"time"
)

// TimeSeriesRow is one daily observation for one entity.
type TimeSeriesRow struct {
	Date            time.Time
	EntityID        string
	EntityLabel     string
	NewCases        float64
	CumulativeCases float64
	RegionCity      string
}

// TimeSeries is the full set of rows loaded for a run. It is read-only once built.
type TimeSeries []TimeSeriesRow

// Entity is a distinct country found in the series.
type Entity struct {
	ID                   string
	Label                string
	CityHint             string
	KnownCumulativeCases float64
}

// DropAtOrBelow returns the rows whose cumulative count exceeds floor.
func (ts TimeSeries) DropAtOrBelow(floor float64) TimeSeries {
	out := make(TimeSeries, 0, len(ts))
	for _, row := range ts {
		if row.CumulativeCases > floor {
			out = append(out, row)
		}
	}
	return out
}

// Entities groups rows by entity ID in order of first appearance. Each entity
// keeps the cumulative count of its latest dated row; rows sharing a date
// resolve to the last one seen.
func (ts TimeSeries) Entities() []Entity {
	index := make(map[string]int)
	var (
		entities []Entity
		latest   []time.Time
	)
	for _, row := range ts {
		i, ok := index[row.EntityID]
		if !ok {
			label := row.EntityLabel
			if label == "" {
				label = row.EntityID
			}
			index[row.EntityID] = len(entities)
			entities = append(entities, Entity{
				ID:       row.EntityID,
				Label:    label,
				CityHint: row.RegionCity,
			})
			latest = append(latest, row.Date)
			i = len(entities) - 1
		}
		if !row.Date.Before(latest[i]) {
			latest[i] = row.Date
			entities[i].KnownCumulativeCases = row.CumulativeCases
		}
		if row.RegionCity != "" {
			entities[i].CityHint = row.RegionCity
		}
	}
	return entities
}

// ForEntity returns a copy of the entity's rows, stable-sorted by date.
func (ts TimeSeries) ForEntity(entityID string) TimeSeries {
	var out TimeSeries
	for _, row := range ts {
		if row.EntityID == entityID {
			out = append(out, row)
		}
	}
	slices.SortStableFunc(out, func(a, b TimeSeriesRow) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
