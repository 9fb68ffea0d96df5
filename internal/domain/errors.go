package domain

import "errors"

var (
	// ErrCacheUnavailable means the key-value store could not be reached.
	// Callers degrade to a live lookup instead of failing.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrLookupFailed marks a remote call that errored, timed out, or returned
	// an error document.
	ErrLookupFailed = errors.New("lookup failed")

	ErrInsufficientData  = errors.New("insufficient data")
	ErrCapitalResolution = errors.New("capital resolution failed")
	ErrGeocode           = errors.New("geocode failed")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrNonFiniteResult   = errors.New("non-finite result")
	ErrMalformedHeader   = errors.New("malformed header")
)

// ErrorKind returns a short label for the most specific sentinel wrapped by err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapitalResolution):
		return "capital_resolution"
	case errors.Is(err, ErrGeocode):
		return "geocode"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrNonFiniteResult):
		return "non_finite"
	case errors.Is(err, ErrLookupFailed):
		return "lookup_failed"
	case errors.Is(err, ErrCacheUnavailable):
		return "cache_unavailable"
	default:
		return "unknown"
	}
}
