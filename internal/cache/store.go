// Package cache persists successful remote lookup responses in a key-value
// store and serves them back on later runs.
package cache

import (
	"context"
	"fmt"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
)

// Store is a persistent key to JSON document map. Entries never expire.
//
// Get reports found=false for a missing key. A non-nil error from either method
// means the store itself could not be reached and wraps domain.ErrCacheUnavailable.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

func unavailable(backend, op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domain.ErrCacheUnavailable, backend, op, err)
}

// Redacted stands in for a credential in request strings used as cache keys.
const Redacted = "REDACTED"

// RequestKey builds the cache key for a provider request. request must be built
// without credentials so that rotated keys keep hitting the same entries.
func RequestKey(provider, request string) string {
	return provider + ":" + request
}
