// Package domain models the per-country case-count series and the facts derived
// from it during enrichment.
//
// # Input Series
//
// The source file holds one row per country per day. Only three columns carry
// meaning for enrichment:
//
//	date (0)         calendar day of the observation, "2006-01-02"
//	location (1)     country name; doubles as the entity identifier and label
//	total_cases (4)  cumulative confirmed cases up to and including that day
//
// Column 2 (new cases) is kept on the row for completeness and column 6, when
// present, is carried as a city hint. Rows whose cumulative count does not exceed
// the load-time floor (4 by default) are dropped before grouping, which keeps
// the first days of an outbreak from dominating the growth statistics.
//
// # Growth
//
// Day-over-day growth is the relative change of the cumulative count:
//
//	growth[i] = (cumulative[i] - cumulative[i-1]) / cumulative[i-1]
//
// Rows are sorted by date before the pairs are formed. An entity must reach a
// minimum cumulative count (75 by default) on its latest row before a summary
// is computed. The median of an even-length list is the mean of its two middle
// values. A single-row entity produces no growth values; its median and mean are
// NaN and the record is filtered out before output.
//
// # Weather Window
//
// Weather is sampled once per day of a calendar month at a fixed wall-clock
// hour (February 2020 at 12:00 by default, 29 samples). Timestamps carry no
// zone; providers interpret them in the local time of the coordinates.
// Temperatures arrive in Fahrenheit and are converted to Celsius; humidity is a
// 0-1 fraction. Samples that fail to resolve are left out of the averages, and an
// entity with no resolved samples reports NaN for both.
//
// # Failures
//
// Every failure below the run level is scoped to one entity and classified with
// the sentinel errors in errors.go. ErrorKind maps an error to a short label used
// for logging and metrics.
package domain
